package sqlite

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"homebroker/internal/feed"
	"homebroker/internal/store"
	"homebroker/internal/store/model"
)

// assetRepository implements the AssetRepository interface.
type assetRepository struct {
	db     *gorm.DB
	notify notifyFunc
}

// NewAssetRepo creates a new assetRepository.
func NewAssetRepo(db *gorm.DB, notify notifyFunc) *assetRepository {
	return &assetRepository{db: db, notify: notify}
}

func (r *assetRepository) Insert(ctx context.Context, asset *model.Asset) error {
	if asset == nil {
		return errors.New("asset cannot be nil")
	}
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return err
	}
	r.notify(feed.Notification{
		Collection: feed.CollectionAssets,
		Op:         feed.OpInsert,
		ID:         asset.ID,
	})
	return nil
}

func (r *assetRepository) FindByID(ctx context.Context, id string) (*model.Asset, error) {
	var asset model.Asset
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) All(ctx context.Context) ([]model.Asset, error) {
	var assets []model.Asset
	if err := r.db.WithContext(ctx).Order("symbol ASC").Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// UpdatePrice records the last settled trade price. The asset row carries no
// version column; it is only written inside the serialized settlement
// transaction.
func (r *assetRepository) UpdatePrice(ctx context.Context, id string, price decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&model.Asset{}).
		Where("id = ?", id).
		Update("price", price)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	r.notify(feed.Notification{
		Collection: feed.CollectionAssets,
		Op:         feed.OpUpdate,
		ID:         id,
	})
	return nil
}
