package model

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxMessage 保存落库成功但总线发布失败的 intent 消息，
// 由 orders 包的补偿循环异步重发。
type OutboxMessage struct {
	ID          string         `gorm:"column:id;primaryKey" json:"id"`
	Topic       string         `gorm:"column:topic" json:"topic"`
	Payload     datatypes.JSON `gorm:"column:payload;type:TEXT" json:"payload"`
	Attempts    int            `gorm:"column:attempts" json:"attempts"`
	LastError   string         `gorm:"column:last_error" json:"last_error,omitempty"`
	PublishedAt *time.Time     `gorm:"column:published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (OutboxMessage) TableName() string { return "outbox_messages" }
