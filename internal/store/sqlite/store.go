package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"homebroker/internal/feed"
	"homebroker/internal/store"
	"homebroker/internal/store/model"
)

type notifyFunc func(feed.Notification)

// SqliteStore is the gorm-backed Position Store. Committed mutations are
// pushed to the change feed after the transaction commits, in commit order.
type SqliteStore struct {
	db   *gorm.DB
	feed *feed.Feed
}

func NewSqliteStore(path string, changeFeed *feed.Feed) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewSqliteStoreFromDB(db, changeFeed)
}

func NewSqliteStoreFromDB(db *gorm.DB, changeFeed *feed.Feed) (*SqliteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db 不能为空")
	}
	models := []interface{}{
		&model.Wallet{},
		&model.Asset{},
		&model.Order{},
		&model.Transaction{},
		&model.WalletAsset{},
		&model.OutboxMessage{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &SqliteStore{db: db, feed: changeFeed}, nil
}

// publish sends a notification directly, for auto-committed writes.
func (s *SqliteStore) publish(n feed.Notification) {
	if s.feed != nil {
		s.feed.Publish(n)
	}
}

func (s *SqliteStore) Begin(ctx context.Context) (store.UnitOfWork, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormUnitOfWork{tx: tx, feed: s.feed}, nil
}

func (s *SqliteStore) Orders() store.OrderRepository {
	return NewOrderRepo(s.db, s.publish)
}

func (s *SqliteStore) Transactions() store.TransactionRepository {
	return NewTransactionRepo(s.db)
}

func (s *SqliteStore) Assets() store.AssetRepository {
	return NewAssetRepo(s.db, s.publish)
}

func (s *SqliteStore) WalletAssets() store.WalletAssetRepository {
	return NewWalletAssetRepo(s.db, s.publish)
}

func (s *SqliteStore) Wallets() store.WalletRepository {
	return NewWalletRepo(s.db)
}

func (s *SqliteStore) Outbox() store.OutboxRepository {
	return NewOutboxRepo(s.db)
}

func (s *SqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormUnitOfWork queues change notifications while the transaction is open
// and flushes them to the feed only after a successful commit, so the feed
// never signals rows that were rolled back.
type gormUnitOfWork struct {
	tx      *gorm.DB
	feed    *feed.Feed
	pending []feed.Notification
}

func (u *gormUnitOfWork) queue(n feed.Notification) {
	u.pending = append(u.pending, n)
}

func (u *gormUnitOfWork) Orders() store.OrderRepository {
	return NewOrderRepo(u.tx, u.queue)
}

func (u *gormUnitOfWork) Transactions() store.TransactionRepository {
	return NewTransactionRepo(u.tx)
}

func (u *gormUnitOfWork) Assets() store.AssetRepository {
	return NewAssetRepo(u.tx, u.queue)
}

func (u *gormUnitOfWork) WalletAssets() store.WalletAssetRepository {
	return NewWalletAssetRepo(u.tx, u.queue)
}

func (u *gormUnitOfWork) Commit() error {
	if err := u.tx.Commit().Error; err != nil {
		return err
	}
	if u.feed != nil {
		for _, n := range u.pending {
			u.feed.Publish(n)
		}
	}
	u.pending = nil
	return nil
}

func (u *gormUnitOfWork) Rollback() error {
	u.pending = nil
	return u.tx.Rollback().Error
}
