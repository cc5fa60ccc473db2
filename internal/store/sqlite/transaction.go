package sqlite

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"homebroker/internal/store/model"
)

// transactionRepository implements the TransactionRepository interface.
// The ledger is append-only; there is deliberately no update method.
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepo creates a new transactionRepository.
func NewTransactionRepo(db *gorm.DB) *transactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Insert(ctx context.Context, txn *model.Transaction) error {
	if txn == nil {
		return errors.New("transaction cannot be nil")
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *transactionRepository) ListByOrder(ctx context.Context, orderID string) ([]model.Transaction, error) {
	var txns []model.Transaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
