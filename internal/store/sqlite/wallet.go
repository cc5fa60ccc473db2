package sqlite

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"homebroker/internal/store/model"
)

// walletRepository implements the WalletRepository interface.
type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepo creates a new walletRepository.
func NewWalletRepo(db *gorm.DB) *walletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) Insert(ctx context.Context, wallet *model.Wallet) error {
	if wallet == nil {
		return errors.New("wallet cannot be nil")
	}
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *walletRepository) FindByID(ctx context.Context, id string) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}
