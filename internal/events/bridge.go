package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"homebroker/internal/feed"
	"homebroker/internal/logger"
	"homebroker/internal/store"
)

// Bridge 消费 change feed 并回读权威记录后产出领域事件。feed 的
// 通知可能过期或缺少关联字段，所以载荷一律以回读结果为准。
type Bridge struct {
	feed       *feed.Feed
	store      store.Store
	backoffMin time.Duration
	backoffMax time.Duration
}

type BridgeConfig struct {
	Feed       *feed.Feed
	Store      store.Store
	BackoffMin time.Duration
	BackoffMax time.Duration
}

func NewBridge(cfg BridgeConfig) (*Bridge, error) {
	if cfg.Feed == nil {
		return nil, errors.New("bridge requires a change feed")
	}
	if cfg.Store == nil {
		return nil, errors.New("bridge requires a store")
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = 200 * time.Millisecond
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = 10 * time.Second
	}
	return &Bridge{
		feed:       cfg.Feed,
		store:      cfg.Store,
		backoffMin: cfg.BackoffMin,
		backoffMax: cfg.BackoffMax,
	}, nil
}

// Watch 打开一个按属主过滤的捕获。owner 为 OwnerGlobal 时捕获资产
// 价格变更，否则捕获该钱包的订单与持仓变更。
func (b *Bridge) Watch(ctx context.Context, ownerKey string) *Watch {
	ctx, cancel := context.WithCancel(ctx)
	w := &Watch{
		events: make(chan Event, 64),
		cancel: cancel,
	}
	if ownerKey == OwnerGlobal {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			b.watchLoop(ctx, w, feed.CollectionAssets, feed.Filter{Ops: []feed.Op{feed.OpUpdate}})
		}()
	} else {
		w.wg.Add(2)
		go func() {
			defer w.wg.Done()
			b.watchLoop(ctx, w, feed.CollectionOrders, feed.Filter{
				Ops:      []feed.Op{feed.OpInsert, feed.OpUpdate},
				OwnerKey: ownerKey,
			})
		}()
		go func() {
			defer w.wg.Done()
			b.watchLoop(ctx, w, feed.CollectionWalletAssets, feed.Filter{
				Ops:      []feed.Op{feed.OpInsert, feed.OpUpdate},
				OwnerKey: ownerKey,
			})
		}()
	}
	go func() {
		w.wg.Wait()
		close(w.events)
	}()
	return w
}

// watchLoop 维持对单个 collection 的订阅：断开后带退避无限重订。
// 重订窗口内丢失的通知被容忍，订阅者只会看到投递空档，不会看到错误。
func (b *Bridge) watchLoop(ctx context.Context, w *Watch, c feed.Collection, filter feed.Filter) {
	backoff := b.backoffMin
	for {
		sub, err := b.feed.Subscribe(c, filter)
		if err != nil {
			// feed 已整体关闭，没有可重订的对象
			return
		}
		backoff = b.backoffMin
		alive := b.consume(ctx, w, sub)
		sub.Close()
		if !alive {
			return
		}
		logger.Warnf("feed 订阅断开（collection=%s），%s 后重订", c, backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > b.backoffMax {
			backoff = b.backoffMax
		}
	}
}

// consume 返回 false 表示 watch 被取消，true 表示订阅通道意外关闭。
func (b *Bridge) consume(ctx context.Context, w *Watch, sub *feed.Subscription) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case n, ok := <-sub.C():
			if !ok {
				return true
			}
			ev, ok := b.rehydrate(ctx, n)
			if !ok {
				continue
			}
			select {
			case w.events <- ev:
			case <-ctx.Done():
				return false
			}
		}
	}
}

// rehydrate 按通知回读权威记录（read-after-notify）。记录消失说明
// 通知已过期，跳过即可。
func (b *Bridge) rehydrate(ctx context.Context, n feed.Notification) (Event, bool) {
	switch n.Collection {
	case feed.CollectionOrders:
		order, err := b.store.Orders().FindByID(ctx, n.ID)
		if err != nil {
			logger.Warnf("订单回读失败（id=%s）: %v", n.ID, err)
			return Event{}, false
		}
		if order == nil {
			logger.Warnf("订单通知指向不存在的记录（id=%s），跳过", n.ID)
			return Event{}, false
		}
		kind := KindOrderUpdated
		if n.Op == feed.OpInsert {
			kind = KindOrderCreated
		}
		return Event{Kind: kind, OwnerKey: order.WalletID, Data: order}, true

	case feed.CollectionWalletAssets:
		wa, err := b.store.WalletAssets().FindByID(ctx, n.ID)
		if err != nil {
			logger.Warnf("持仓回读失败（id=%s）: %v", n.ID, err)
			return Event{}, false
		}
		if wa == nil {
			logger.Warnf("持仓通知指向不存在的记录（id=%s），跳过", n.ID)
			return Event{}, false
		}
		return Event{Kind: KindWalletAssetUpdated, OwnerKey: wa.WalletID, Data: wa}, true

	case feed.CollectionAssets:
		asset, err := b.store.Assets().FindByID(ctx, n.ID)
		if err != nil {
			logger.Warnf("资产回读失败（id=%s）: %v", n.ID, err)
			return Event{}, false
		}
		if asset == nil {
			logger.Warnf("资产通知指向不存在的记录（id=%s），跳过", n.ID)
			return Event{}, false
		}
		return Event{Kind: KindAssetPriceChanged, OwnerKey: OwnerGlobal, Data: asset}, true
	}
	return Event{}, false
}

// Watch 是一个活跃的按属主捕获。
type Watch struct {
	events chan Event
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Events 返回事件通道。Stop 后通道关闭。
func (w *Watch) Events() <-chan Event { return w.events }

// Stop 取消捕获并释放订阅。
func (w *Watch) Stop() { w.cancel() }
