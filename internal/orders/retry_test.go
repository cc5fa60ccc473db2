package orders

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homebroker/internal/store"
	"homebroker/internal/store/model"
)

// conflictStore 包装真实 store，让前 n 次版本守卫更新返回冲突，
// 用于确定性地验证重试路径。
type conflictStore struct {
	store.Store
	remaining int32
}

func (c *conflictStore) Begin(ctx context.Context) (store.UnitOfWork, error) {
	uow, err := c.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &conflictUnitOfWork{UnitOfWork: uow, remaining: &c.remaining}, nil
}

type conflictUnitOfWork struct {
	store.UnitOfWork
	remaining *int32
}

func (u *conflictUnitOfWork) Orders() store.OrderRepository {
	return &conflictOrderRepo{OrderRepository: u.UnitOfWork.Orders(), remaining: u.remaining}
}

type conflictOrderRepo struct {
	store.OrderRepository
	remaining *int32
}

func (r *conflictOrderRepo) UpdateGuarded(ctx context.Context, id string, expectedVersion int, status model.OrderStatus, partial int) error {
	if atomic.AddInt32(r.remaining, -1) >= 0 {
		return store.ErrVersionConflict
	}
	return r.OrderRepository.UpdateGuarded(ctx, id, expectedVersion, status, partial)
}

func TestSettleWithRetryRecoversFromConflicts(t *testing.T) {
	svc, st, _ := newTestService(t, 16)
	walletID := seedWallet(t, st)
	assetID := seedAsset(t, st, "PETR4", "10")

	order, err := svc.Create(context.Background(), CreateInput{
		WalletID: walletID, AssetID: assetID,
		Type: model.OrderTypeBuy, Shares: 100, Price: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	svc.store = &conflictStore{Store: st, remaining: 2}

	err = svc.SettleWithRetry(context.Background(), SettleInput{
		OrderID: order.ID, Status: model.OrderStatusPartial,
		NegotiatedShares: 40, BrokerTransactionID: "bt-1",
		Price: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	got, err := st.Orders().FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPartial, got.Status)
	assert.Equal(t, 60, got.Partial)
	assert.Equal(t, 2, got.Version)
}

func TestSettleWithRetryExhausts(t *testing.T) {
	svc, st, _ := newTestService(t, 16)
	walletID := seedWallet(t, st)
	assetID := seedAsset(t, st, "PETR4", "10")

	order, err := svc.Create(context.Background(), CreateInput{
		WalletID: walletID, AssetID: assetID,
		Type: model.OrderTypeBuy, Shares: 100, Price: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	svc.store = &conflictStore{Store: st, remaining: 1 << 30}

	err = svc.SettleWithRetry(context.Background(), SettleInput{
		OrderID: order.ID, Status: model.OrderStatusPartial,
		NegotiatedShares: 40, Price: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	// 没有任何尝试落库
	got, err := st.Orders().FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Equal(t, 1, got.Version)
}

func TestSettleWithRetryPassesThroughOtherErrors(t *testing.T) {
	svc, st, _ := newTestService(t, 16)
	walletID := seedWallet(t, st)
	assetID := seedAsset(t, st, "PETR4", "10")

	order, err := svc.Create(context.Background(), CreateInput{
		WalletID: walletID, AssetID: assetID,
		Type: model.OrderTypeBuy, Shares: 100, Price: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	start := time.Now()
	err = svc.SettleWithRetry(context.Background(), SettleInput{
		OrderID: order.ID, Status: model.OrderStatusPartial,
		NegotiatedShares: 0, Price: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, ErrValidation)
	// 校验错误不重试，立即返回
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRetryPolicyDelayBounds(t *testing.T) {
	p := RetryPolicy{MinDelay: 10 * time.Millisecond, MaxDelay: 80 * time.Millisecond, MaxAttempts: 10}
	for attempt := 0; attempt < 20; attempt++ {
		d := p.delay(attempt)
		assert.GreaterOrEqual(t, d, 5*time.Millisecond)
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
}
