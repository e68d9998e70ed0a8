package eventbus

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/polkiloo/ordersync/internal/domain/model"
)

// Signal names a broadcast channel.
type Signal string

const (
	// SignalStatusChange carries targeted status changes.
	SignalStatusChange Signal = "order-status-change"
	// SignalStorage is the generic signal older listeners subscribe to. It
	// carries the same payload as SignalStatusChange.
	SignalStorage Signal = "storage"
)

// Message is the single typed envelope delivered over the bus.
type Message struct {
	Signal Signal
	Event  model.StatusChangeEvent
	// Attempt is the position of this delivery in the repeat schedule.
	Attempt int
}

// Handler receives messages synchronously on the publishing goroutine.
type Handler func(ctx context.Context, msg Message)

// Bus is an in-process publish/subscribe channel. Publish fans out
// synchronously to the handlers subscribed at that instant; nothing is
// buffered for later subscribers.
type Bus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	next     uint64
	handlers map[Signal]map[uint64]Handler
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		logger:   logger,
		handlers: make(map[Signal]map[uint64]Handler),
	}
}

// Subscribe registers h for signal and returns a func removing it.
func (b *Bus) Subscribe(signal Signal, h Handler) (cancel func()) {
	b.mu.Lock()
	b.next++
	id := b.next
	if b.handlers[signal] == nil {
		b.handlers[signal] = make(map[uint64]Handler)
	}
	b.handlers[signal][id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers[signal], id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers msg to every current subscriber of msg.Signal in
// subscription order and returns how many handlers ran. A panicking handler
// is logged and does not stop delivery to the others.
func (b *Bus) Publish(ctx context.Context, msg Message) int {
	b.mu.RLock()
	ids := make([]uint64, 0, len(b.handlers[msg.Signal]))
	for id := range b.handlers[msg.Signal] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	hs := make([]Handler, 0, len(ids))
	for _, id := range ids {
		hs = append(hs, b.handlers[msg.Signal][id])
	}
	b.mu.RUnlock()

	for _, h := range hs {
		b.deliver(ctx, h, msg)
	}
	return len(hs)
}

// Subscribers returns the number of handlers registered for signal.
func (b *Bus) Subscribers(signal Signal) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[signal])
}

func (b *Bus) deliver(ctx context.Context, h Handler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				slog.String("signal", string(msg.Signal)),
				slog.String("order", msg.Event.OrderID),
				slog.Any("panic", r),
			)
		}
	}()
	h(ctx, msg)
}
