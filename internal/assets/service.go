// Package assets 是资产的边界 CRUD，只做形状校验，不承载结算语义。
package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"homebroker/internal/store"
	"homebroker/internal/store/model"
)

var ErrValidation = errors.New("validation failed")

type Service struct {
	store store.Store
}

func NewService(st store.Store) (*Service, error) {
	if st == nil {
		return nil, errors.New("assets service requires a store")
	}
	return &Service{store: st}, nil
}

type CreateInput struct {
	ID     string
	Symbol string
	Price  decimal.Decimal
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Asset, error) {
	symbol := strings.TrimSpace(input.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if input.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	asset := &model.Asset{
		ID:        id,
		Symbol:    symbol,
		Price:     input.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Assets().Insert(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Asset, error) {
	asset, err := s.store.Assets().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("asset %s: %w", id, store.ErrNotFound)
	}
	return asset, nil
}

func (s *Service) All(ctx context.Context) ([]model.Asset, error) {
	return s.store.Assets().All(ctx)
}
