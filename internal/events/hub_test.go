package events

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homebroker/internal/feed"
	"homebroker/internal/store/model"
	"homebroker/internal/store/sqlite"
)

func newTestHub(t *testing.T) (*Hub, *sqlite.SqliteStore, *feed.Feed) {
	t.Helper()
	changeFeed := feed.New(64)
	st, err := sqlite.NewSqliteStore(filepath.Join(t.TempDir(), "hub.db"), changeFeed)
	require.NoError(t, err)
	bridge, err := NewBridge(BridgeConfig{
		Feed:       changeFeed,
		Store:      st,
		BackoffMin: 10 * time.Millisecond,
		BackoffMax: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	hub, err := NewHub(bridge, 16)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	hub.Start(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Close()
		changeFeed.Close()
		_ = st.Close()
	})
	return hub, st, changeFeed
}

func insertTestOrder(t *testing.T, st *sqlite.SqliteStore, walletID string) *model.Order {
	t.Helper()
	now := time.Now()
	order := &model.Order{
		ID:        uuid.NewString(),
		WalletID:  walletID,
		AssetID:   "a1",
		Shares:    100,
		Partial:   100,
		Price:     decimal.NewFromInt(10),
		Type:      model.OrderTypeBuy,
		Status:    model.OrderStatusPending,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Orders().Insert(context.Background(), order))
	return order
}

func recvEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C():
		require.True(t, ok, "subscription closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.C():
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

// 订阅建立是异步的，写入前留出桥接挂上 feed 的时间
func waitForUpstream() { time.Sleep(50 * time.Millisecond) }

func TestSubscriberReceivesOrderLifecycle(t *testing.T) {
	hub, st, _ := newTestHub(t)

	sub, err := hub.Subscribe("w1")
	require.NoError(t, err)
	defer sub.Close()
	waitForUpstream()

	order := insertTestOrder(t, st, "w1")
	ev := recvEvent(t, sub)
	assert.Equal(t, KindOrderCreated, ev.Kind)
	created, ok := ev.Data.(*model.Order)
	require.True(t, ok)
	assert.Equal(t, order.ID, created.ID)
	assert.Equal(t, model.OrderStatusPending, created.Status)

	require.NoError(t, st.Orders().UpdateGuarded(context.Background(), order.ID, 1, model.OrderStatusPartial, 60))
	ev = recvEvent(t, sub)
	assert.Equal(t, KindOrderUpdated, ev.Kind)
	updated, ok := ev.Data.(*model.Order)
	require.True(t, ok)
	assert.Equal(t, model.OrderStatusPartial, updated.Status)
	assert.Equal(t, 60, updated.Partial)
	assert.Equal(t, 2, updated.Version)
}

func TestSubscriberScopedToOwner(t *testing.T) {
	hub, st, _ := newTestHub(t)

	sub, err := hub.Subscribe("w1")
	require.NoError(t, err)
	defer sub.Close()
	waitForUpstream()

	insertTestOrder(t, st, "w2")
	assertNoEvent(t, sub)
}

func TestKindFilter(t *testing.T) {
	hub, st, _ := newTestHub(t)

	sub, err := hub.Subscribe("w1", KindOrderUpdated)
	require.NoError(t, err)
	defer sub.Close()
	waitForUpstream()

	order := insertTestOrder(t, st, "w1")
	require.NoError(t, st.Orders().UpdateGuarded(context.Background(), order.ID, 1, model.OrderStatusPartial, 60))

	ev := recvEvent(t, sub)
	assert.Equal(t, KindOrderUpdated, ev.Kind)
	assertNoEvent(t, sub)
}

func TestGlobalAssetPriceSubscription(t *testing.T) {
	hub, st, _ := newTestHub(t)
	now := time.Now()
	asset := &model.Asset{ID: uuid.NewString(), Symbol: "PETR4", Price: decimal.NewFromInt(10), CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.Assets().Insert(context.Background(), asset))

	sub, err := hub.Subscribe(OwnerGlobal)
	require.NoError(t, err)
	defer sub.Close()
	waitForUpstream()

	require.NoError(t, st.Assets().UpdatePrice(context.Background(), asset.ID, decimal.NewFromInt(11)))
	ev := recvEvent(t, sub)
	assert.Equal(t, KindAssetPriceChanged, ev.Kind)
	got, ok := ev.Data.(*model.Asset)
	require.True(t, ok)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(11)), "price = %s", got.Price)
}

func TestStaleNotificationSkipped(t *testing.T) {
	hub, _, changeFeed := newTestHub(t)

	sub, err := hub.Subscribe("w1")
	require.NoError(t, err)
	defer sub.Close()
	waitForUpstream()

	// 指向不存在记录的通知：回读失败后静默跳过
	changeFeed.Publish(feed.Notification{
		Collection: feed.CollectionOrders,
		Op:         feed.OpUpdate,
		ID:         uuid.NewString(),
		OwnerKey:   "w1",
	})
	assertNoEvent(t, sub)
}

func TestSubscribersShareUpstreamWatch(t *testing.T) {
	hub, st, _ := newTestHub(t)

	first, err := hub.Subscribe("w1")
	require.NoError(t, err)
	second, err := hub.Subscribe("w1")
	require.NoError(t, err)
	waitForUpstream()

	hub.mu.Lock()
	require.Len(t, hub.owners, 1)
	assert.Equal(t, 2, hub.owners["w1"].refs)
	hub.mu.Unlock()

	insertTestOrder(t, st, "w1")
	assert.Equal(t, KindOrderCreated, recvEvent(t, first).Kind)
	assert.Equal(t, KindOrderCreated, recvEvent(t, second).Kind)

	first.Close()
	hub.mu.Lock()
	assert.Len(t, hub.owners, 1, "upstream must survive while a subscriber remains")
	hub.mu.Unlock()

	second.Close()
	hub.mu.Lock()
	assert.Empty(t, hub.owners, "last unsubscribe tears down the upstream watch")
	hub.mu.Unlock()

	_, ok := <-first.C()
	assert.False(t, ok)
}

func TestHubCloseTerminatesSubscribers(t *testing.T) {
	hub, _, _ := newTestHub(t)

	sub, err := hub.Subscribe("w1")
	require.NoError(t, err)
	hub.Close()

	select {
	case _, ok := <-sub.C():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after hub shutdown")
	}

	_, err = hub.Subscribe("w1")
	assert.Error(t, err)
}
