package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeBuy  OrderType = "BUY"
	OrderTypeSell OrderType = "SELL"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeBuy || t == OrderTypeSell
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPartial   OrderStatus = "PARTIAL"
	OrderStatusClosed    OrderStatus = "CLOSED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPartial, OrderStatusClosed, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further settlement may touch the order.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusClosed || s == OrderStatusCancelled
}

// Wallet 是订单与持仓的属主。
type Wallet struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Wallet) TableName() string { return "wallets" }

// Asset 的 price 始终是最近一次 CLOSED 结算的成交价。
type Asset struct {
	ID        string          `gorm:"column:id;primaryKey" json:"id"`
	Symbol    string          `gorm:"column:symbol;uniqueIndex" json:"symbol"`
	Price     decimal.Decimal `gorm:"column:price;type:decimal(20,8)" json:"price"`
	CreatedAt time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Asset) TableName() string { return "assets" }

// Order.Version 每次提交的变更恰好 +1，是乐观锁的唯一依据。
// Partial 始终等于 shares 减去已成交份额之和。
type Order struct {
	ID           string          `gorm:"column:id;primaryKey" json:"id"`
	WalletID     string          `gorm:"column:wallet_id;index" json:"wallet_id"`
	AssetID      string          `gorm:"column:asset_id;index" json:"asset_id"`
	Shares       int             `gorm:"column:shares" json:"shares"`
	Partial      int             `gorm:"column:partial" json:"partial"`
	Price        decimal.Decimal `gorm:"column:price;type:decimal(20,8)" json:"price"`
	Type         OrderType       `gorm:"column:type" json:"type"`
	Status       OrderStatus     `gorm:"column:status" json:"status"`
	Version      int             `gorm:"column:version" json:"version"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at" json:"updated_at"`
	Transactions []Transaction   `gorm:"foreignKey:OrderID" json:"transactions,omitempty"`
	Asset        *Asset          `gorm:"foreignKey:AssetID;references:ID" json:"asset,omitempty"`
}

func (Order) TableName() string { return "orders" }

// Transaction 是只追加的成交台账，一行对应一次撮合成交，写入后不可变。
type Transaction struct {
	ID                  string          `gorm:"column:id;primaryKey" json:"id"`
	OrderID             string          `gorm:"column:order_id;index" json:"order_id"`
	BrokerTransactionID string          `gorm:"column:broker_transaction_id" json:"broker_transaction_id"`
	RelatedInvestorID   string          `gorm:"column:related_investor_id" json:"related_investor_id"`
	Shares              int             `gorm:"column:shares" json:"shares"`
	Price               decimal.Decimal `gorm:"column:price;type:decimal(20,8)" json:"price"`
	CreatedAt           time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }

// WalletAsset 每个 (wallet_id, asset_id) 唯一，shares 只能经由版本守卫更新。
type WalletAsset struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	WalletID  string    `gorm:"column:wallet_id;uniqueIndex:idx_wallet_asset,priority:1" json:"wallet_id"`
	AssetID   string    `gorm:"column:asset_id;uniqueIndex:idx_wallet_asset,priority:2" json:"asset_id"`
	Shares    int       `gorm:"column:shares" json:"shares"`
	Version   int       `gorm:"column:version" json:"version"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
	Asset     *Asset    `gorm:"foreignKey:AssetID;references:ID" json:"asset,omitempty"`
}

func (WalletAsset) TableName() string { return "wallet_assets" }
