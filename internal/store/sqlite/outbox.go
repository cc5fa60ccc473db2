package sqlite

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"homebroker/internal/store/model"
)

// outboxRepository implements the OutboxRepository interface.
type outboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepo creates a new outboxRepository.
func NewOutboxRepo(db *gorm.DB) *outboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Insert(ctx context.Context, msg *model.OutboxMessage) error {
	if msg == nil {
		return errors.New("outbox message cannot be nil")
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *outboxRepository) ListUnpublished(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	var msgs []model.OutboxMessage
	if limit <= 0 {
		limit = 100
	}
	if err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Update("published_at", &now).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, attempts int, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
}
