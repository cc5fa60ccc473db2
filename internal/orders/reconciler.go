package orders

import (
	"context"
	"time"

	"github.com/tidwall/gjson"

	"homebroker/internal/bus"
	"homebroker/internal/logger"
	"homebroker/internal/store"
)

// Reconciler 重发 outbox 里滞留的 intent 消息。没有它，发布失败的
// 订单会永远停在 PENDING 而撮合引擎毫不知情。
type Reconciler struct {
	store          store.Store
	publisher      bus.Publisher
	interval       time.Duration
	maxAttempts    int
	publishTimeout time.Duration
}

type ReconcilerConfig struct {
	Store          store.Store
	Publisher      bus.Publisher
	Interval       time.Duration
	MaxAttempts    int
	PublishTimeout time.Duration
}

func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &Reconciler{
		store:          cfg.Store,
		publisher:      cfg.Publisher,
		interval:       cfg.Interval,
		maxAttempts:    cfg.MaxAttempts,
		publishTimeout: cfg.PublishTimeout,
	}
}

// Run 周期性扫描 outbox 直到 ctx 取消。
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	msgs, err := r.store.Outbox().ListUnpublished(ctx, 100)
	if err != nil {
		logger.Errorf("outbox 扫描失败: %v", err)
		return
	}
	for _, msg := range msgs {
		orderID := gjson.GetBytes(msg.Payload, "order_id").String()
		if msg.Attempts >= r.maxAttempts {
			logger.Errorf("outbox 消息超过最大重试次数，需人工介入（order=%s，attempts=%d）", orderID, msg.Attempts)
			continue
		}
		pubCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
		err := r.publisher.Publish(pubCtx, msg.Topic, []byte(msg.Payload))
		cancel()
		if err != nil {
			logger.Warnf("outbox 重发失败（order=%s，attempt=%d）: %v", orderID, msg.Attempts+1, err)
			if markErr := r.store.Outbox().MarkFailed(ctx, msg.ID, msg.Attempts+1, err.Error()); markErr != nil {
				logger.Errorf("outbox 状态更新失败: %v", markErr)
			}
			continue
		}
		if err := r.store.Outbox().MarkPublished(ctx, msg.ID); err != nil {
			logger.Errorf("outbox 标记已发布失败（order=%s）: %v", orderID, err)
			continue
		}
		logger.Infof("outbox 重发成功（order=%s）", orderID)
	}
}
