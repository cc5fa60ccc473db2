package events

import (
	"context"
	"errors"
	"sync"
)

// Hub 按属主把桥接事件扇出给长连接订阅者。同一属主的多个订阅者
// 共享同一条上游捕获，引用计数归零时拆除上游，而不是每个订阅各开
// 一条。
type Hub struct {
	bridge *Bridge
	buffer int

	mu     sync.Mutex
	ctx    context.Context
	owners map[string]*ownerWatch
	closed bool
}

type ownerWatch struct {
	watch *Watch
	refs  int
	subs  map[*Subscription]struct{}
}

func NewHub(bridge *Bridge, buffer int) (*Hub, error) {
	if bridge == nil {
		return nil, errors.New("hub requires a bridge")
	}
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		bridge: bridge,
		buffer: buffer,
		owners: make(map[string]*ownerWatch),
	}, nil
}

// Start 绑定 hub 的根上下文；所有上游捕获都挂在它下面。
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()
	go func() {
		<-ctx.Done()
		h.Close()
	}()
}

// Subscribe 返回该属主的事件流。kinds 为空表示全部类型。
func (h *Hub) Subscribe(ownerKey string, kinds ...Kind) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errors.New("event hub closed")
	}
	if h.ctx == nil {
		return nil, errors.New("event hub not started")
	}
	ow, ok := h.owners[ownerKey]
	if !ok {
		ow = &ownerWatch{
			watch: h.bridge.Watch(h.ctx, ownerKey),
			subs:  make(map[*Subscription]struct{}),
		}
		h.owners[ownerKey] = ow
		go h.pump(ownerKey, ow)
	}
	sub := &Subscription{
		hub:      h,
		ownerKey: ownerKey,
		kinds:    kinds,
		ch:       make(chan Event, h.buffer),
	}
	ow.refs++
	ow.subs[sub] = struct{}{}
	return sub, nil
}

// pump 把一条上游捕获的事件分发给它的所有订阅者。慢订阅者丢事件，
// 不拖累同属主的其它订阅者。
func (h *Hub) pump(ownerKey string, ow *ownerWatch) {
	for ev := range ow.watch.Events() {
		h.mu.Lock()
		for sub := range ow.subs {
			if !sub.wants(ev.Kind) {
				continue
			}
			select {
			case sub.ch <- ev:
			default:
			}
		}
		h.mu.Unlock()
	}
	// 上游结束（Stop 或 hub 关闭）：关掉还挂着的订阅
	h.mu.Lock()
	for sub := range ow.subs {
		sub.closeLocked()
	}
	ow.subs = map[*Subscription]struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ow, ok := h.owners[sub.ownerKey]
	if !ok {
		return
	}
	if _, member := ow.subs[sub]; !member {
		return
	}
	delete(ow.subs, sub)
	sub.closeLocked()
	ow.refs--
	if ow.refs <= 0 {
		ow.watch.Stop()
		delete(h.owners, sub.ownerKey)
	}
}

// Close 拆除所有上游捕获并终止所有订阅。
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	owners := h.owners
	h.owners = make(map[string]*ownerWatch)
	h.mu.Unlock()
	for _, ow := range owners {
		ow.watch.Stop()
	}
}

// Subscription 是一个独立的推送订阅；Close 立即停止转发并释放只为
// 它持有的资源。
type Subscription struct {
	hub      *Hub
	ownerKey string
	kinds    []Kind
	ch       chan Event

	closeOnce sync.Once
}

func (s *Subscription) wants(k Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	for _, want := range s.kinds {
		if want == k {
			return true
		}
	}
	return false
}

// C 返回事件通道。订阅终止时通道关闭。
func (s *Subscription) C() <-chan Event { return s.ch }

// Close 取消订阅。同属主的最后一个订阅关闭时，上游捕获一并拆除。
func (s *Subscription) Close() { s.hub.unsubscribe(s) }

func (s *Subscription) closeLocked() {
	s.closeOnce.Do(func() { close(s.ch) })
}
