package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesMatchingNotifications(t *testing.T) {
	f := New(8)
	defer f.Close()

	sub, err := f.Subscribe(CollectionOrders, Filter{OwnerKey: "w1"})
	require.NoError(t, err)
	defer sub.Close()

	f.Publish(Notification{Collection: CollectionOrders, Op: OpInsert, ID: "o1", OwnerKey: "w1"})
	f.Publish(Notification{Collection: CollectionOrders, Op: OpUpdate, ID: "o2", OwnerKey: "w2"})
	f.Publish(Notification{Collection: CollectionAssets, Op: OpUpdate, ID: "a1"})
	f.Publish(Notification{Collection: CollectionOrders, Op: OpUpdate, ID: "o1", OwnerKey: "w1"})

	got := <-sub.C()
	assert.Equal(t, "o1", got.ID)
	assert.Equal(t, OpInsert, got.Op)

	got = <-sub.C()
	assert.Equal(t, "o1", got.ID)
	assert.Equal(t, OpUpdate, got.Op)

	select {
	case n := <-sub.C():
		t.Fatalf("unexpected notification: %+v", n)
	default:
	}
}

func TestFilterByOp(t *testing.T) {
	f := New(8)
	defer f.Close()

	sub, err := f.Subscribe(CollectionAssets, Filter{Ops: []Op{OpUpdate}})
	require.NoError(t, err)
	defer sub.Close()

	f.Publish(Notification{Collection: CollectionAssets, Op: OpInsert, ID: "a1"})
	f.Publish(Notification{Collection: CollectionAssets, Op: OpUpdate, ID: "a1"})

	got := <-sub.C()
	assert.Equal(t, OpUpdate, got.Op)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	f := New(2)
	defer f.Close()

	sub, err := f.Subscribe(CollectionOrders, Filter{})
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < 5; i++ {
		f.Publish(Notification{Collection: CollectionOrders, Op: OpUpdate, ID: "o1", OwnerKey: "w1"})
	}
	assert.Equal(t, uint64(3), sub.Dropped())
}

func TestCloseTerminatesSubscriptions(t *testing.T) {
	f := New(2)
	sub, err := f.Subscribe(CollectionOrders, Filter{})
	require.NoError(t, err)

	f.Close()
	_, ok := <-sub.C()
	assert.False(t, ok)

	_, err = f.Subscribe(CollectionOrders, Filter{})
	assert.ErrorIs(t, err, ErrFeedClosed)
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	f := New(2)
	defer f.Close()

	sub, err := f.Subscribe(CollectionWalletAssets, Filter{})
	require.NoError(t, err)
	sub.Close()
	sub.Close()

	// 已关闭的订阅不再接收
	f.Publish(Notification{Collection: CollectionWalletAssets, Op: OpUpdate, ID: "wa1", OwnerKey: "w1"})
	_, ok := <-sub.C()
	assert.False(t, ok)
}
