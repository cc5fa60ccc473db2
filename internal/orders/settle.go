package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"homebroker/internal/logger"
	"homebroker/internal/store"
	"homebroker/internal/store/model"
)

// SettleInput 是撮合引擎回调的成交参数。
type SettleInput struct {
	OrderID             string
	Status              model.OrderStatus
	NegotiatedShares    int
	BrokerTransactionID string
	RelatedInvestorID   string
	Price               decimal.Decimal
}

// Settle 把一次撮合成交原子地落到 Order + Transaction +（CLOSED 时）
// Asset 与 WalletAsset 上。订单与持仓各自走版本守卫更新；任何一步
// 失败整体回滚，订单状态与持仓状态不会分叉。
//
// 版本冲突原样返回 store.ErrVersionConflict，由调用方重读重提；
// 本方法不做隐式重试。
func (s *Service) Settle(ctx context.Context, input SettleInput) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = uow.Rollback()
		}
	}()

	order, err := uow.Orders().FindByID(ctx, input.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("order %s: %w", input.OrderID, store.ErrNotFound)
	}
	if err := validateSettle(order, input); err != nil {
		return err
	}

	newPartial := order.Partial - input.NegotiatedShares
	if err := uow.Orders().UpdateGuarded(ctx, order.ID, order.Version, input.Status, newPartial); err != nil {
		return err
	}

	if err := uow.Transactions().Insert(ctx, &model.Transaction{
		ID:                  uuid.NewString(),
		OrderID:             order.ID,
		BrokerTransactionID: input.BrokerTransactionID,
		RelatedInvestorID:   input.RelatedInvestorID,
		Shares:              input.NegotiatedShares,
		Price:               input.Price,
		CreatedAt:           time.Now(),
	}); err != nil {
		return err
	}

	if input.Status == model.OrderStatusClosed {
		if err := uow.Assets().UpdatePrice(ctx, order.AssetID, input.Price); err != nil {
			return err
		}
		if err := s.applyPosition(ctx, uow, order); err != nil {
			return err
		}
	}

	if err := uow.Commit(); err != nil {
		return err
	}
	committed = true

	if input.Status == model.OrderStatusClosed && s.history != nil {
		// 派生数据，失败只记日志，不影响已提交的结算。
		if err := s.history.AppendDaily(ctx, order.AssetID, time.Now(), input.Price); err != nil {
			logger.Warnf("价格日线写入失败（asset=%s）: %v", order.AssetID, err)
		}
	}
	return nil
}

// validateSettle 在任何写入之前拒绝非法成交。
func validateSettle(order *model.Order, input SettleInput) error {
	if input.Status != model.OrderStatusPartial && input.Status != model.OrderStatusClosed {
		return fmt.Errorf("%w: settlement status must be PARTIAL or CLOSED", ErrValidation)
	}
	if order.Status.Terminal() {
		return fmt.Errorf("%w: order %s is already %s", ErrValidation, order.ID, order.Status)
	}
	if input.NegotiatedShares <= 0 {
		return fmt.Errorf("%w: negotiated shares must be positive", ErrValidation)
	}
	if input.NegotiatedShares > order.Partial {
		return fmt.Errorf("%w: negotiated shares %d exceed remaining %d", ErrValidation, input.NegotiatedShares, order.Partial)
	}
	if input.Status == model.OrderStatusClosed && input.NegotiatedShares != order.Partial {
		return fmt.Errorf("%w: CLOSED settlement must fill the remaining %d shares", ErrValidation, order.Partial)
	}
	if input.Status == model.OrderStatusPartial && input.NegotiatedShares == order.Partial {
		return fmt.Errorf("%w: full fill must settle as CLOSED", ErrValidation)
	}
	if input.Price.Sign() <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	return nil
}

// applyPosition 在 PARTIAL/PENDING→CLOSED 的那一次转变中，按订单
// 全量 shares 调整持仓，恰好应用一次（validateSettle 已拒绝对
// 终态订单的重复结算）。SELL 不允许创造持仓。
func (s *Service) applyPosition(ctx context.Context, uow store.UnitOfWork, order *model.Order) error {
	position, err := uow.WalletAssets().FindByWalletAndAsset(ctx, order.WalletID, order.AssetID)
	if err != nil {
		return err
	}
	if position != nil {
		newShares := position.Shares
		if order.Type == model.OrderTypeBuy {
			newShares += order.Shares
		} else {
			if position.Shares < order.Shares {
				return fmt.Errorf("%w: position holds %d shares, cannot settle sell of %d", ErrValidation, position.Shares, order.Shares)
			}
			newShares -= order.Shares
		}
		return uow.WalletAssets().UpdateSharesGuarded(ctx, position.ID, position.Version, newShares)
	}
	if order.Type == model.OrderTypeSell {
		return fmt.Errorf("%w: sell settlement against missing position for wallet %s asset %s", ErrValidation, order.WalletID, order.AssetID)
	}
	now := time.Now()
	return uow.WalletAssets().Insert(ctx, &model.WalletAsset{
		ID:        uuid.NewString(),
		WalletID:  order.WalletID,
		AssetID:   order.AssetID,
		Shares:    order.Shares,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	})
}
