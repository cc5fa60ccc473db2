package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"homebroker/internal/feed"
	"homebroker/internal/store"
	"homebroker/internal/store/model"
)

func newTestStore(t *testing.T) (*SqliteStore, *feed.Feed) {
	t.Helper()
	changeFeed := feed.New(64)
	st, err := NewSqliteStore(filepath.Join(t.TempDir(), "store.db"), changeFeed)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
		changeFeed.Close()
	})
	return st, changeFeed
}

func insertOrder(t *testing.T, st *SqliteStore, walletID, assetID string) *model.Order {
	t.Helper()
	now := time.Now()
	order := &model.Order{
		ID:        uuid.NewString(),
		WalletID:  walletID,
		AssetID:   assetID,
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

func TestOrderUpdateGuarded(t *testing.T) {
	st, _ := newTestStore(t)
	order := insertOrder(t, st, "w1", "a1")

	require.NoError(t, st.Orders().UpdateGuarded(context.Background(), order.ID, 1, model.OrderStatusPartial, 60))

	got, err := st.Orders().FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPartial, got.Status)
	assert.Equal(t, 60, got.Partial)
	assert.Equal(t, 2, got.Version)

	// 陈旧版本的重放是空操作
	err = st.Orders().UpdateGuarded(context.Background(), order.ID, 1, model.OrderStatusClosed, 0)
	assert.ErrorIs(t, err, store.ErrVersionConflict)
	got, err = st.Orders().FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPartial, got.Status)
	assert.Equal(t, 2, got.Version)

	err = st.Orders().UpdateGuarded(context.Background(), uuid.NewString(), 1, model.OrderStatusClosed, 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWalletAssetUpdateSharesGuarded(t *testing.T) {
	st, _ := newTestStore(t)
	now := time.Now()
	wa := &model.WalletAsset{
		ID: uuid.NewString(), WalletID: "w1", AssetID: "a1",
		Shares: 100, Version: 1, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, st.WalletAssets().Insert(context.Background(), wa))

	require.NoError(t, st.WalletAssets().UpdateSharesGuarded(context.Background(), wa.ID, 1, 150))
	err := st.WalletAssets().UpdateSharesGuarded(context.Background(), wa.ID, 1, 999)
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	got, err := st.WalletAssets().FindByID(context.Background(), wa.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, got.Shares)
	assert.Equal(t, 2, got.Version)

	err = st.WalletAssets().UpdateSharesGuarded(context.Background(), uuid.NewString(), 1, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAssetUpdatePrice(t *testing.T) {
	st, _ := newTestStore(t)
	now := time.Now()
	asset := &model.Asset{ID: uuid.NewString(), Symbol: "PETR4", Price: decimal.NewFromInt(10), CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.Assets().Insert(context.Background(), asset))

	require.NoError(t, st.Assets().UpdatePrice(context.Background(), asset.ID, decimal.RequireFromString("11.25")))
	got, err := st.Assets().FindByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("11.25")), "price = %s", got.Price)

	err = st.Assets().UpdatePrice(context.Background(), uuid.NewString(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFindByIDMissingReturnsNil(t *testing.T) {
	st, _ := newTestStore(t)

	order, err := st.Orders().FindByID(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, order)

	wallet, err := st.Wallets().FindByID(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, wallet)

	wa, err := st.WalletAssets().FindByWalletAndAsset(context.Background(), "w", "a")
	require.NoError(t, err)
	assert.Nil(t, wa)
}

func TestListByWalletOrdersByRecency(t *testing.T) {
	st, _ := newTestStore(t)
	first := insertOrder(t, st, "w1", "a1")
	second := insertOrder(t, st, "w1", "a1")
	insertOrder(t, st, "w2", "a1")

	// 更新 first，让它排到最前
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, st.Orders().UpdateGuarded(context.Background(), first.ID, 1, model.OrderStatusPartial, 60))

	orders, err := st.Orders().ListByWallet(context.Background(), "w1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, first.ID, orders[0].ID)
	assert.Equal(t, second.ID, orders[1].ID)
}

func TestCommitFlushesNotificationsInOrder(t *testing.T) {
	st, changeFeed := newTestStore(t)
	order := insertOrder(t, st, "w1", "a1")

	sub, err := changeFeed.Subscribe(feed.CollectionOrders, feed.Filter{OwnerKey: "w1"})
	require.NoError(t, err)
	defer sub.Close()
	waSub, err := changeFeed.Subscribe(feed.CollectionWalletAssets, feed.Filter{OwnerKey: "w1"})
	require.NoError(t, err)
	defer waSub.Close()

	uow, err := st.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, uow.Orders().UpdateGuarded(context.Background(), order.ID, 1, model.OrderStatusClosed, 0))
	now := time.Now()
	require.NoError(t, uow.WalletAssets().Insert(context.Background(), &model.WalletAsset{
		ID: uuid.NewString(), WalletID: "w1", AssetID: "a1",
		Shares: 100, Version: 1, CreatedAt: now, UpdatedAt: now,
	}))

	// 提交前 feed 静默
	select {
	case n := <-sub.C():
		t.Fatalf("notification before commit: %+v", n)
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, uow.Commit())

	n := <-sub.C()
	assert.Equal(t, feed.OpUpdate, n.Op)
	assert.Equal(t, order.ID, n.ID)
	wn := <-waSub.C()
	assert.Equal(t, feed.OpInsert, wn.Op)
}

func TestRollbackSuppressesNotifications(t *testing.T) {
	st, changeFeed := newTestStore(t)
	order := insertOrder(t, st, "w1", "a1")

	sub, err := changeFeed.Subscribe(feed.CollectionOrders, feed.Filter{OwnerKey: "w1"})
	require.NoError(t, err)
	defer sub.Close()

	uow, err := st.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, uow.Orders().UpdateGuarded(context.Background(), order.ID, 1, model.OrderStatusPartial, 60))
	require.NoError(t, uow.Rollback())

	select {
	case n := <-sub.C():
		t.Fatalf("notification for rolled back write: %+v", n)
	case <-time.After(20 * time.Millisecond):
	}

	got, err := st.Orders().FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Equal(t, 1, got.Version)
}

func TestOutboxLifecycle(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	first := &model.OutboxMessage{ID: uuid.NewString(), Topic: "input", Payload: datatypes.JSON(`{"order_id":"o1"}`), Attempts: 1, LastError: "queue full"}
	require.NoError(t, st.Outbox().Insert(ctx, first))
	time.Sleep(5 * time.Millisecond)
	second := &model.OutboxMessage{ID: uuid.NewString(), Topic: "input", Payload: datatypes.JSON(`{"order_id":"o2"}`), Attempts: 1, LastError: "queue full"}
	require.NoError(t, st.Outbox().Insert(ctx, second))

	msgs, err := st.Outbox().ListUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID, "oldest first")

	require.NoError(t, st.Outbox().MarkPublished(ctx, first.ID))
	require.NoError(t, st.Outbox().MarkFailed(ctx, second.ID, 2, "still full"))

	msgs, err = st.Outbox().ListUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, second.ID, msgs[0].ID)
	assert.Equal(t, 2, msgs[0].Attempts)
	assert.Equal(t, "still full", msgs[0].LastError)
}
