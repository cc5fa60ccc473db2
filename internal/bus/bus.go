// Package bus 提供 intent 消息的发布通道。外部撮合引擎消费 `input`
// 主题；消息结构是兼容性契约，不允许不兼容变更。
package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

var (
	ErrQueueFull   = errors.New("message queue full")
	ErrQueueClosed = errors.New("message queue closed")
)

// Message is the unit passed through the bus.
type Message struct {
	Topic   string
	Payload []byte
}

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Queue is a bounded in-process topic queue. Publish blocks until there is
// room or the context expires; a full queue under a publish timeout is the
// PublishFailure path callers must tolerate.
type Queue struct {
	ch     chan Message
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Message, capacity)}
}

func (q *Queue) Publish(ctx context.Context, topic string, payload []byte) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	msg := Message{Topic: topic, Payload: payload}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish enqueues without blocking.
func (q *Queue) TryPublish(topic string, payload []byte) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.ch <- Message{Topic: topic, Payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the queue from accepting new messages.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Consume drains messages until the context is done or the queue is closed.
// The external matching engine integration hangs off this loop.
func (q *Queue) Consume(ctx context.Context, handler func(Message)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-q.ch:
			if !ok {
				return
			}
			handler(msg)
		}
	}
}
