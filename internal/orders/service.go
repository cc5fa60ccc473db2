// Package orders 实现订单 intent 发布与结算事务，是本系统唯一
// 允许修改权威状态的写路径。
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"homebroker/internal/bus"
	"homebroker/internal/logger"
	"homebroker/internal/store"
	"homebroker/internal/store/history"
	"homebroker/internal/store/model"
)

// ErrValidation marks a non-retryable input rejection, surfaced before any
// write happens.
var ErrValidation = errors.New("validation failed")

// Service owns the order write path: intent publication and settlement.
type Service struct {
	store          store.Store
	publisher      bus.Publisher
	history        *history.Store
	publishTimeout time.Duration
	retry          RetryPolicy
}

type ServiceConfig struct {
	Store          store.Store
	Publisher      bus.Publisher
	History        *history.Store
	PublishTimeout time.Duration
	Retry          RetryPolicy
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("orders service requires a store")
	}
	if cfg.Publisher == nil {
		return nil, errors.New("orders service requires a bus publisher")
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	cfg.Retry = cfg.Retry.withDefaults()
	return &Service{
		store:          cfg.Store,
		publisher:      cfg.Publisher,
		history:        cfg.History,
		publishTimeout: cfg.PublishTimeout,
		retry:          cfg.Retry,
	}, nil
}

// CreateInput 描述一笔新订单。
type CreateInput struct {
	WalletID string
	AssetID  string
	Type     model.OrderType
	Shares   int
	Price    decimal.Decimal
}

// Create 落库一笔 PENDING 订单并发布 intent 消息。先提交后发布；
// 发布失败不影响 HTTP 调用方，消息进 outbox 等补偿循环重发。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Order, error) {
	if err := s.validateCreate(ctx, input); err != nil {
		return nil, err
	}
	now := time.Now()
	order := &model.Order{
		ID:        uuid.NewString(),
		WalletID:  input.WalletID,
		AssetID:   input.AssetID,
		Shares:    input.Shares,
		Partial:   input.Shares,
		Price:     input.Price,
		Type:      input.Type,
		Status:    model.OrderStatusPending,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Orders().Insert(ctx, order); err != nil {
		return nil, err
	}

	payload, err := intentFromOrder(order).encode()
	if err != nil {
		return nil, fmt.Errorf("encoding intent failed: %w", err)
	}
	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, TopicInput, payload); err != nil {
		logger.Warnf("intent 发布失败（order=%s），转入 outbox: %v", order.ID, err)
		if obErr := s.store.Outbox().Insert(ctx, &model.OutboxMessage{
			ID:        uuid.NewString(),
			Topic:     TopicInput,
			Payload:   datatypes.JSON(payload),
			Attempts:  1,
			LastError: err.Error(),
		}); obErr != nil {
			logger.Errorf("outbox 写入失败（order=%s）: %v", order.ID, obErr)
		}
	}
	return order, nil
}

func (s *Service) validateCreate(ctx context.Context, input CreateInput) error {
	if !input.Type.Valid() {
		return fmt.Errorf("%w: order type must be BUY or SELL", ErrValidation)
	}
	if input.Shares <= 0 {
		return fmt.Errorf("%w: shares must be positive", ErrValidation)
	}
	if input.Price.Sign() <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	wallet, err := s.store.Wallets().FindByID(ctx, input.WalletID)
	if err != nil {
		return err
	}
	if wallet == nil {
		return fmt.Errorf("%w: wallet %s does not exist", ErrValidation, input.WalletID)
	}
	asset, err := s.store.Assets().FindByID(ctx, input.AssetID)
	if err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("%w: asset %s does not exist", ErrValidation, input.AssetID)
	}
	if input.Type == model.OrderTypeSell {
		position, err := s.store.WalletAssets().FindByWalletAndAsset(ctx, input.WalletID, input.AssetID)
		if err != nil {
			return err
		}
		held := 0
		if position != nil {
			held = position.Shares
		}
		if input.Shares > held {
			return fmt.Errorf("%w: sell of %d shares exceeds held position of %d", ErrValidation, input.Shares, held)
		}
	}
	return nil
}

// List 返回钱包的订单，含成交记录与资产摘要，按最近更新排序。
func (s *Service) List(ctx context.Context, walletID string) ([]model.Order, error) {
	if walletID == "" {
		return nil, fmt.Errorf("%w: wallet_id is required", ErrValidation)
	}
	return s.store.Orders().ListByWallet(ctx, walletID)
}
