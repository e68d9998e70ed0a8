package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/pkg/clock"
)

// Sink receives every notification after it has been recorded.
type Sink func(model.Notification)

const defaultCapacity = 50

// Notifier logs feedback, keeps a bounded history and fans out to sinks.
// Delivery is best effort; a panicking sink is logged and skipped.
type Notifier struct {
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.RWMutex
	capacity int
	recent   []model.Notification
	sinks    []Sink
}

// New creates a Notifier keeping up to capacity recent entries.
func New(c clock.Clock, logger *slog.Logger, capacity int) *Notifier {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Notifier{clock: c, logger: logger, capacity: capacity}
}

// AddSink registers s for future notifications.
func (n *Notifier) AddSink(s Sink) {
	if s == nil {
		return
	}
	n.mu.Lock()
	n.sinks = append(n.sinks, s)
	n.mu.Unlock()
}

// Notify implements repository.Notifier.
func (n *Notifier) Notify(ctx context.Context, note model.Notification) {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = n.clock.Now()
	}

	n.logger.Log(ctx, levelOf(note.Level), note.Title,
		slog.String("message", note.Message),
		slog.String("order", note.OrderID),
		slog.String("severity", string(note.Level)),
	)

	n.mu.Lock()
	n.recent = append(n.recent, note)
	if over := len(n.recent) - n.capacity; over > 0 {
		n.recent = append(n.recent[:0:0], n.recent[over:]...)
	}
	sinks := append([]Sink(nil), n.sinks...)
	n.mu.Unlock()

	for _, s := range sinks {
		n.deliver(s, note)
	}
}

// Recent returns up to limit notifications, newest first. A non-positive
// limit returns everything retained.
func (n *Notifier) Recent(limit int) []model.Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if limit <= 0 || limit > len(n.recent) {
		limit = len(n.recent)
	}
	out := make([]model.Notification, 0, limit)
	for i := len(n.recent) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, n.recent[i])
	}
	return out
}

func (n *Notifier) deliver(s Sink, note model.Notification) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("notification sink panicked", slog.Any("panic", r))
		}
	}()
	s(note)
}

func levelOf(l model.NotificationLevel) slog.Level {
	switch l {
	case model.NotificationError:
		return slog.LevelError
	case model.NotificationWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
