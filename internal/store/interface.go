package store

import (
	"context"

	"github.com/shopspring/decimal"

	"homebroker/internal/store/model"
)

// UnitOfWork defines a transaction scope. Every repository obtained from it
// runs against the same underlying transaction.
type UnitOfWork interface {
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error

	// Orders returns the order repository within this transaction.
	Orders() OrderRepository
	// Transactions returns the fill-ledger repository within this transaction.
	Transactions() TransactionRepository
	// Assets returns the asset repository within this transaction.
	Assets() AssetRepository
	// WalletAssets returns the position repository within this transaction.
	WalletAssets() WalletAssetRepository
}

// Store is the entry point for database access. Repository accessors outside
// a UnitOfWork auto-commit per call.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)

	Orders() OrderRepository
	Transactions() TransactionRepository
	Assets() AssetRepository
	WalletAssets() WalletAssetRepository
	Wallets() WalletRepository
	Outbox() OutboxRepository

	// Close closes the store connection.
	Close() error
}

// OrderRepository handles order persistence.
type OrderRepository interface {
	Insert(ctx context.Context, order *model.Order) error
	// FindByID returns nil, nil when the order does not exist.
	FindByID(ctx context.Context, id string) (*model.Order, error)
	// ListByWallet returns the wallet's orders with fill history and asset
	// summary, most recently updated first.
	ListByWallet(ctx context.Context, walletID string) ([]model.Order, error)
	// UpdateGuarded applies status/partial with `WHERE id = ? AND version = ?`
	// and bumps version by exactly one. Zero affected rows surfaces
	// ErrVersionConflict (or ErrNotFound if the row is gone).
	UpdateGuarded(ctx context.Context, id string, expectedVersion int, status model.OrderStatus, partial int) error
}

// TransactionRepository appends to the immutable fill ledger.
type TransactionRepository interface {
	Insert(ctx context.Context, txn *model.Transaction) error
	ListByOrder(ctx context.Context, orderID string) ([]model.Transaction, error)
}

// AssetRepository handles asset persistence.
type AssetRepository interface {
	Insert(ctx context.Context, asset *model.Asset) error
	// FindByID returns nil, nil when the asset does not exist.
	FindByID(ctx context.Context, id string) (*model.Asset, error)
	All(ctx context.Context) ([]model.Asset, error)
	// UpdatePrice sets the last settled trade price. ErrNotFound when the
	// asset does not exist.
	UpdatePrice(ctx context.Context, id string, price decimal.Decimal) error
}

// WalletRepository handles wallet persistence.
type WalletRepository interface {
	Insert(ctx context.Context, wallet *model.Wallet) error
	// FindByID returns nil, nil when the wallet does not exist.
	FindByID(ctx context.Context, id string) (*model.Wallet, error)
}

// WalletAssetRepository handles position persistence.
type WalletAssetRepository interface {
	Insert(ctx context.Context, wa *model.WalletAsset) error
	// FindByID returns nil, nil when no position exists.
	FindByID(ctx context.Context, id string) (*model.WalletAsset, error)
	// FindByWalletAndAsset returns nil, nil when no position exists.
	FindByWalletAndAsset(ctx context.Context, walletID, assetID string) (*model.WalletAsset, error)
	ListByWallet(ctx context.Context, walletID string) ([]model.WalletAsset, error)
	// UpdateSharesGuarded applies the new share count under the position's own
	// version guard, bumping version by one.
	UpdateSharesGuarded(ctx context.Context, id string, expectedVersion int, shares int) error
}

// OutboxRepository stores intent messages whose bus publish failed.
type OutboxRepository interface {
	Insert(ctx context.Context, msg *model.OutboxMessage) error
	ListUnpublished(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkPublished(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, attempts int, lastError string) error
}
