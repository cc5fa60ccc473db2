package sqlite

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"homebroker/internal/feed"
	"homebroker/internal/store"
	"homebroker/internal/store/model"
)

// orderRepository implements the OrderRepository interface.
type orderRepository struct {
	db     *gorm.DB
	notify notifyFunc
}

// NewOrderRepo creates a new orderRepository.
func NewOrderRepo(db *gorm.DB, notify notifyFunc) *orderRepository {
	return &orderRepository{db: db, notify: notify}
}

func (r *orderRepository) Insert(ctx context.Context, order *model.Order) error {
	if order == nil {
		return errors.New("order cannot be nil")
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return err
	}
	r.notify(feed.Notification{
		Collection: feed.CollectionOrders,
		Op:         feed.OpInsert,
		ID:         order.ID,
		OwnerKey:   order.WalletID,
	})
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListByWallet(ctx context.Context, walletID string) ([]model.Order, error) {
	var orders []model.Order
	if err := r.db.WithContext(ctx).
		Preload("Transactions").
		Preload("Asset").
		Where("wallet_id = ?", walletID).
		Order("updated_at DESC, id DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateGuarded is the only write path for an existing order. The WHERE
// clause carries the expected version; zero affected rows means a concurrent
// writer won this version.
func (r *orderRepository) UpdateGuarded(ctx context.Context, id string, expectedVersion int, status model.OrderStatus, partial int) error {
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"status":  status,
			"partial": partial,
			"version": expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	var row struct{ WalletID string }
	probe := r.db.WithContext(ctx).
		Table("orders").
		Select("wallet_id").
		Where("id = ?", id).
		Take(&row)
	if res.RowsAffected == 0 {
		if errors.Is(probe.Error, gorm.ErrRecordNotFound) {
			return store.ErrNotFound
		}
		if probe.Error != nil {
			return probe.Error
		}
		return store.ErrVersionConflict
	}
	if probe.Error != nil {
		return probe.Error
	}
	r.notify(feed.Notification{
		Collection: feed.CollectionOrders,
		Op:         feed.OpUpdate,
		ID:         id,
		OwnerKey:   row.WalletID,
	})
	return nil
}
