// Package wallets 是钱包与持仓的边界 CRUD。持仓在这里只允许初始建仓；
// 已有持仓的数量只能由结算事务经版本守卫修改。
package wallets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"homebroker/internal/store"
	"homebroker/internal/store/model"
)

var ErrValidation = errors.New("validation failed")

type Service struct {
	store store.Store
}

func NewService(st store.Store) (*Service, error) {
	if st == nil {
		return nil, errors.New("wallets service requires a store")
	}
	return &Service{store: st}, nil
}

func (s *Service) CreateWallet(ctx context.Context, id string) (*model.Wallet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	wallet := &model.Wallet{ID: id, CreatedAt: now, UpdatedAt: now}
	if err := s.store.Wallets().Insert(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *Service) ListWalletAssets(ctx context.Context, walletID string) ([]model.WalletAsset, error) {
	if strings.TrimSpace(walletID) == "" {
		return nil, fmt.Errorf("%w: wallet_id is required", ErrValidation)
	}
	return s.store.WalletAssets().ListByWallet(ctx, walletID)
}

type CreateWalletAssetInput struct {
	WalletID string
	AssetID  string
	Shares   int
}

func (s *Service) CreateWalletAsset(ctx context.Context, input CreateWalletAssetInput) (*model.WalletAsset, error) {
	if input.Shares <= 0 {
		return nil, fmt.Errorf("%w: shares must be positive", ErrValidation)
	}
	wallet, err := s.store.Wallets().FindByID(ctx, input.WalletID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("%w: wallet %s does not exist", ErrValidation, input.WalletID)
	}
	asset, err := s.store.Assets().FindByID(ctx, input.AssetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: asset %s does not exist", ErrValidation, input.AssetID)
	}
	existing, err := s.store.WalletAssets().FindByWalletAndAsset(ctx, input.WalletID, input.AssetID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: position for wallet %s asset %s already exists", ErrValidation, input.WalletID, input.AssetID)
	}
	now := time.Now()
	wa := &model.WalletAsset{
		ID:        uuid.NewString(),
		WalletID:  input.WalletID,
		AssetID:   input.AssetID,
		Shares:    input.Shares,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.WalletAssets().Insert(ctx, wa); err != nil {
		return nil, err
	}
	return wa, nil
}
