package orders

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"homebroker/internal/logger"
	"homebroker/internal/store"
)

// RetryPolicy 是版本冲突的显式重试策略：指数退避加抖动，有上限。
// 无界重试在高争用下是活性隐患，这里强制封顶。
type RetryPolicy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	if p.MinDelay <= 0 {
		p.MinDelay = 20 * time.Millisecond
	}
	if p.MaxDelay < p.MinDelay {
		p.MaxDelay = 2 * time.Second
	}
	return p
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.MinDelay << uint(attempt)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	// 抖动打散同时重试的竞争者
	return d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
}

// SettleWithRetry 在版本冲突时按策略重读重提。每次尝试都重新执行
// 完整的 Settle（含重读当前版本），其它错误立即返回。
func (s *Service) SettleWithRetry(ctx context.Context, input SettleInput) error {
	var lastErr error
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retry.delay(attempt - 1)):
			}
		}
		lastErr = s.Settle(ctx, input)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, store.ErrVersionConflict) {
			return lastErr
		}
		logger.Debugf("结算版本冲突（order=%s，attempt=%d），退避后重试", input.OrderID, attempt+1)
	}
	return fmt.Errorf("settle retries exhausted after %d attempts: %w", s.retry.MaxAttempts, lastErr)
}
