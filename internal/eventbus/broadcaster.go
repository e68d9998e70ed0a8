package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/metrics"
)

// Options configures a Broadcaster.
type Options struct {
	// Schedule lists the delay offsets at which an event is (re)published.
	// A single zero offset gives one authoritative publish.
	Schedule []time.Duration
	// Legacy also emits SignalStorage with every SignalStatusChange.
	Legacy bool
}

// Broadcaster publishes status changes on a Bus following a repeat
// schedule. Repeats carry the identical event so receivers can dedupe by id
// and order by timestamp.
type Broadcaster struct {
	bus      *Bus
	schedule []time.Duration
	legacy   bool
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewBroadcaster constructs a Broadcaster over bus.
func NewBroadcaster(bus *Bus, opts Options, logger *slog.Logger, m *metrics.Metrics) *Broadcaster {
	schedule := make([]time.Duration, 0, len(opts.Schedule))
	for _, d := range opts.Schedule {
		if d < 0 {
			d = 0
		}
		schedule = append(schedule, d)
	}
	if len(schedule) == 0 {
		schedule = []time.Duration{0}
	}
	return &Broadcaster{
		bus:      bus,
		schedule: schedule,
		legacy:   opts.Legacy,
		logger:   logger,
		metrics:  m,
		done:     make(chan struct{}),
	}
}

// Schedule returns a copy of the repeat schedule.
func (b *Broadcaster) Schedule() []time.Duration {
	return append([]time.Duration(nil), b.schedule...)
}

// Publish emits event now for every zero offset and arms timers for the
// rest. Delayed repeats are detached from ctx cancellation and are dropped
// once Stop has been called.
func (b *Broadcaster) Publish(ctx context.Context, event model.StatusChangeEvent) {
	detached := context.WithoutCancel(ctx)

	for attempt, delay := range b.schedule {
		if delay == 0 {
			b.emit(ctx, event, attempt)
			continue
		}

		b.mu.Lock()
		if b.stopped {
			b.mu.Unlock()
			b.logger.Debug("broadcaster stopped, repeat skipped",
				slog.String("order", event.OrderID),
				slog.Int("attempt", attempt),
			)
			continue
		}
		b.wg.Add(1)
		b.mu.Unlock()

		go b.repeat(detached, event, attempt, delay)
	}
}

// Stop cancels pending repeats and waits for in-flight deliveries.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	if !b.stopped {
		b.stopped = true
		close(b.done)
	}
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Broadcaster) repeat(ctx context.Context, event model.StatusChangeEvent, attempt int, delay time.Duration) {
	defer b.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-b.done:
		return
	case <-timer.C:
		b.emit(ctx, event, attempt)
	}
}

func (b *Broadcaster) emit(ctx context.Context, event model.StatusChangeEvent, attempt int) {
	delivered := b.bus.Publish(ctx, Message{Signal: SignalStatusChange, Event: event, Attempt: attempt})
	b.metrics.EventPublished(string(SignalStatusChange))

	if b.legacy {
		delivered += b.bus.Publish(ctx, Message{Signal: SignalStorage, Event: event, Attempt: attempt})
		b.metrics.EventPublished(string(SignalStorage))
	}

	b.logger.Debug("status change published",
		slog.String("order", event.OrderID),
		slog.String("status", string(event.NewStatus)),
		slog.String("event_id", event.ID),
		slog.Int("attempt", attempt),
		slog.Int("delivered", delivered),
	)
}
