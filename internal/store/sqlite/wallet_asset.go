package sqlite

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"homebroker/internal/feed"
	"homebroker/internal/store"
	"homebroker/internal/store/model"
)

// walletAssetRepository implements the WalletAssetRepository interface.
type walletAssetRepository struct {
	db     *gorm.DB
	notify notifyFunc
}

// NewWalletAssetRepo creates a new walletAssetRepository.
func NewWalletAssetRepo(db *gorm.DB, notify notifyFunc) *walletAssetRepository {
	return &walletAssetRepository{db: db, notify: notify}
}

func (r *walletAssetRepository) Insert(ctx context.Context, wa *model.WalletAsset) error {
	if wa == nil {
		return errors.New("wallet asset cannot be nil")
	}
	if err := r.db.WithContext(ctx).Create(wa).Error; err != nil {
		return err
	}
	r.notify(feed.Notification{
		Collection: feed.CollectionWalletAssets,
		Op:         feed.OpInsert,
		ID:         wa.ID,
		OwnerKey:   wa.WalletID,
	})
	return nil
}

func (r *walletAssetRepository) FindByID(ctx context.Context, id string) (*model.WalletAsset, error) {
	var wa model.WalletAsset
	err := r.db.WithContext(ctx).Preload("Asset").Where("id = ?", id).First(&wa).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wa, nil
}

func (r *walletAssetRepository) FindByWalletAndAsset(ctx context.Context, walletID, assetID string) (*model.WalletAsset, error) {
	var wa model.WalletAsset
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND asset_id = ?", walletID, assetID).
		First(&wa).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wa, nil
}

func (r *walletAssetRepository) ListByWallet(ctx context.Context, walletID string) ([]model.WalletAsset, error) {
	var was []model.WalletAsset
	if err := r.db.WithContext(ctx).
		Preload("Asset").
		Where("wallet_id = ?", walletID).
		Find(&was).Error; err != nil {
		return nil, err
	}
	return was, nil
}

// UpdateSharesGuarded races independently from the order's version field:
// exactly one writer wins per position version.
func (r *walletAssetRepository) UpdateSharesGuarded(ctx context.Context, id string, expectedVersion int, shares int) error {
	res := r.db.WithContext(ctx).
		Model(&model.WalletAsset{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"shares":  shares,
			"version": expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	var row struct{ WalletID string }
	probe := r.db.WithContext(ctx).
		Table("wallet_assets").
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
		Collection: feed.CollectionWalletAssets,
		Op:         feed.OpUpdate,
		ID:         id,
		OwnerKey:   row.WalletID,
	})
	return nil
}
