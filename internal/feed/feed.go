// Package feed 实现行级变更通知流。通知只携带实体定位信息
// （collection、id、owner），从不携带行数据本身：它是触发信号，
// 不是事实来源，消费方必须回读权威存储。
package feed

import (
	"errors"
	"sync"
	"sync/atomic"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

type Collection string

const (
	CollectionOrders       Collection = "orders"
	CollectionAssets       Collection = "assets"
	CollectionWalletAssets Collection = "wallet_assets"
)

// Notification 是一条行级变更信号。
type Notification struct {
	Collection Collection
	Op         Op
	ID         string
	OwnerKey   string
}

// Filter 限定订阅收到的操作类型与属主。零值表示不过滤。
type Filter struct {
	Ops      []Op
	OwnerKey string
}

func (f Filter) matches(n Notification) bool {
	if f.OwnerKey != "" && f.OwnerKey != n.OwnerKey {
		return false
	}
	if len(f.Ops) == 0 {
		return true
	}
	for _, op := range f.Ops {
		if op == n.Op {
			return true
		}
	}
	return false
}

var ErrFeedClosed = errors.New("change feed closed")

// Feed 按 collection 扇出通知。同一 collection 内按发布顺序投递；
// 跨 collection 没有顺序保证。慢订阅者丢通知，不阻塞写入方。
type Feed struct {
	buffer int

	mu     sync.RWMutex
	subs   map[Collection]map[*Subscription]struct{}
	closed bool
}

func New(buffer int) *Feed {
	if buffer <= 0 {
		buffer = 64
	}
	return &Feed{
		buffer: buffer,
		subs:   make(map[Collection]map[*Subscription]struct{}),
	}
}

// Publish 将通知投递给所有匹配的订阅。非阻塞；缓冲满则对该订阅丢弃。
func (f *Feed) Publish(n Notification) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	for sub := range f.subs[n.Collection] {
		if !sub.filter.matches(n) {
			continue
		}
		select {
		case sub.ch <- n:
		default:
			atomic.AddUint64(&sub.dropped, 1)
		}
	}
}

// Subscribe 注册一个对 collection 的订阅。
func (f *Feed) Subscribe(c Collection, filter Filter) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrFeedClosed
	}
	sub := &Subscription{
		feed:       f,
		collection: c,
		filter:     filter,
		ch:         make(chan Notification, f.buffer),
	}
	if f.subs[c] == nil {
		f.subs[c] = make(map[*Subscription]struct{})
	}
	f.subs[c][sub] = struct{}{}
	return sub, nil
}

// Close 关闭 feed 并终止所有订阅。
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for _, subs := range f.subs {
		for sub := range subs {
			sub.closeLocked()
		}
	}
	f.subs = nil
}

func (f *Feed) unsubscribe(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if subs, ok := f.subs[sub.collection]; ok {
		delete(subs, sub)
	}
	sub.closeLocked()
}

// Subscription 是一个活跃的 feed 订阅。通道关闭即代表订阅终止，
// 消费方应自行带退避重订。
type Subscription struct {
	feed       *Feed
	collection Collection
	filter     Filter
	ch         chan Notification
	dropped    uint64

	closeOnce sync.Once
}

// C 返回通知通道。订阅终止时通道关闭。
func (s *Subscription) C() <-chan Notification { return s.ch }

// Dropped 返回因缓冲满而丢弃的通知数。
func (s *Subscription) Dropped() uint64 { return atomic.LoadUint64(&s.dropped) }

// Close 取消订阅并关闭通道。
func (s *Subscription) Close() { s.feed.unsubscribe(s) }

func (s *Subscription) closeLocked() {
	s.closeOnce.Do(func() { close(s.ch) })
}
