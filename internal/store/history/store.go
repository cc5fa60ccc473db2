// Package history 保存每日价格点（派生反规范化数据，非权威）。
// 走独立的 sqlite 文件，避免与主库的结算事务互相干扰。
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("history path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS asset_dailies (
			asset_id TEXT NOT NULL,
			date     TEXT NOT NULL,
			price    TEXT NOT NULL,
			PRIMARY KEY (asset_id, date)
		)`)
	return err
}

// AppendDaily 记录某资产当日的最新结算价（同日覆盖）。
func (s *Store) AppendDaily(ctx context.Context, assetID string, at time.Time, price decimal.Decimal) error {
	if assetID == "" {
		return fmt.Errorf("asset id 不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("history store closed")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO asset_dailies (asset_id, date, price)
		VALUES (?, ?, ?)
		ON CONFLICT(asset_id, date) DO UPDATE SET price=excluded.price`,
		assetID, at.UTC().Format("2006-01-02"), price.String())
	return err
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
