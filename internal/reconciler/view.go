package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/eventbus"
	"github.com/polkiloo/ordersync/internal/metrics"
	"github.com/polkiloo/ordersync/internal/worker"
)

// Lister supplies the base order snapshot.
type Lister interface {
	List(ctx context.Context) ([]model.Order, error)
}

// StatusReader reads durable status records. Implementations report read
// failures and corrupt values as absent.
type StatusReader interface {
	GetStatus(ctx context.Context, orderID string) (model.StatusRecord, bool)
}

// Subscriber registers bus handlers.
type Subscriber interface {
	Subscribe(signal eventbus.Signal, h eventbus.Handler) (cancel func())
}

// RenderFunc observes every re-render of a view.
type RenderFunc func(view string, orders []model.Order)

// Resync triggers, used as metric labels.
const (
	TriggerMount  = "mount"
	TriggerEvent  = "event"
	TriggerPoll   = "poll"
	TriggerManual = "manual"
)

// ErrNotMounted is returned by operations that need a mounted view.
var ErrNotMounted = errors.New("view not mounted")

// Config describes a single view.
type Config struct {
	Name     string
	Interval time.Duration
}

// View keeps one surface's order list coherent with the durable store.
// It never writes to the store.
type View struct {
	name    string
	source  Lister
	store   StatusReader
	bus     Subscriber
	logger  *slog.Logger
	metrics *metrics.Metrics
	poller  *worker.Poller

	mu      sync.RWMutex
	mounted bool
	cancels []func()
	base    []model.Order
	orders  []model.Order
	index   map[string]int
	applied map[string]int64
	seen    map[string]string
	version uint64
	renders []RenderFunc
}

// NewView constructs an unmounted view. m may be nil.
func NewView(cfg Config, source Lister, store StatusReader, bus Subscriber, logger *slog.Logger, m *metrics.Metrics) *View {
	v := &View{
		name:    cfg.Name,
		source:  source,
		store:   store,
		bus:     bus,
		logger:  logger.With(slog.String("view", cfg.Name)),
		metrics: m,
		index:   make(map[string]int),
		applied: make(map[string]int64),
		seen:    make(map[string]string),
	}
	v.poller = worker.NewPoller(cfg.Name, cfg.Interval, v.poll, v.logger)
	return v
}

// Name returns the view name.
func (v *View) Name() string {
	return v.name
}

// Interval is the staleness bound: a mounted view converges with the store
// within one interval even if it misses every broadcast.
func (v *View) Interval() time.Duration {
	return v.poller.Interval()
}

// OnRender registers fn for future re-renders.
func (v *View) OnRender(fn RenderFunc) {
	if fn == nil {
		return
	}
	v.mu.Lock()
	v.renders = append(v.renders, fn)
	v.mu.Unlock()
}

// Mount fetches the snapshot, subscribes to both signals, overlays the
// store and starts polling. The poller outlives ctx; Unmount stops it.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()

	base, err := v.source.List(ctx)
	if err != nil {
		return fmt.Errorf("mount %s: %w", v.name, err)
	}

	cancels := []func(){
		v.bus.Subscribe(eventbus.SignalStatusChange, v.handle),
		v.bus.Subscribe(eventbus.SignalStorage, v.handle),
	}

	v.mu.Lock()
	if v.mounted {
		// A concurrent Mount won the race.
		v.mu.Unlock()
		for _, cancel := range cancels {
			cancel()
		}
		return nil
	}
	v.mounted = true
	v.cancels = cancels
	v.base = base
	v.mu.Unlock()

	v.overlay(ctx, TriggerMount, base, false)
	v.poller.Start(context.WithoutCancel(ctx))
	v.logger.InfoContext(ctx, "view mounted", slog.Int("orders", len(base)), slog.Duration("interval", v.Interval()))
	return nil
}

// Unmount drops the subscriptions and stops polling. The last rendered
// list stays readable.
func (v *View) Unmount() {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	cancels := v.cancels
	v.cancels = nil
	v.mounted = false
	v.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	v.poller.Stop()
	v.logger.Info("view unmounted")
}

// Mounted reports whether the view is live.
func (v *View) Mounted() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mounted
}

// Orders returns a copy of the rendered list.
func (v *View) Orders() []model.Order {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]model.Order, len(v.orders))
	for i, o := range v.orders {
		out[i] = o.Clone()
	}
	return out
}

// Status returns the rendered status of one order.
func (v *View) Status(orderID string) (model.OrderStatus, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	i, ok := v.index[orderID]
	if !ok {
		return "", false
	}
	return v.orders[i].Status, true
}

// Version counts re-renders.
func (v *View) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Resync refetches the snapshot and overlays the store.
func (v *View) Resync(ctx context.Context) error {
	if !v.Mounted() {
		return ErrNotMounted
	}
	return v.refetch(ctx, TriggerManual)
}

func (v *View) poll(ctx context.Context) {
	if err := v.refetch(ctx, TriggerPoll); err != nil {
		v.logger.WarnContext(ctx, "background resync failed", slog.String("error", err.Error()))
	}
}

func (v *View) refetch(ctx context.Context, trigger string) error {
	base, err := v.source.List(ctx)
	if err != nil {
		return fmt.Errorf("resync %s: %w", v.name, err)
	}
	v.mu.Lock()
	v.base = base
	v.mu.Unlock()

	v.overlay(ctx, trigger, base, trigger == TriggerManual)
	return nil
}

func (v *View) handle(ctx context.Context, msg eventbus.Message) {
	ev := msg.Event
	if !ev.Targeted() {
		v.logger.DebugContext(ctx, "untargeted event, full resync",
			slog.String("signal", string(msg.Signal)),
			slog.String("event_id", ev.ID),
		)
		v.mu.RLock()
		base := v.base
		v.mu.RUnlock()
		v.overlay(ctx, TriggerEvent, base, false)
		return
	}
	v.apply(ctx, ev)
}

// apply replaces one order's status in place when the event is not older
// than what the view already shows for that order.
func (v *View) apply(ctx context.Context, ev model.StatusChangeEvent) {
	v.mu.Lock()
	i, ok := v.index[ev.OrderID]
	if !ok || !v.mounted {
		v.mu.Unlock()
		return
	}
	if v.seen[ev.OrderID] == ev.ID && !ev.ForceUpdate {
		v.mu.Unlock()
		return
	}
	if v.stale(ev, v.orders[i].Status) {
		v.mu.Unlock()
		v.metrics.StaleEvent(v.name)
		v.logger.DebugContext(ctx, "stale event dropped",
			slog.String("order", ev.OrderID),
			slog.String("status", string(ev.NewStatus)),
			slog.Int64("timestamp", ev.Timestamp),
		)
		return
	}

	v.applied[ev.OrderID] = ev.Timestamp
	v.seen[ev.OrderID] = ev.ID
	if v.orders[i].Status == ev.NewStatus && !ev.ForceUpdate {
		v.mu.Unlock()
		return
	}
	v.orders[i].Status = ev.NewStatus
	snapshot, renders := v.renderLocked()
	v.mu.Unlock()

	v.emit(snapshot, renders)
}

// stale reports whether ev is older than what the view shows. Without a
// known timestamp, for a status read from a store record that lost its
// timestamp or from the snapshot, an event that would step the order back
// in its lifecycle is treated as older.
func (v *View) stale(ev model.StatusChangeEvent, current model.OrderStatus) bool {
	applied := v.applied[ev.OrderID]
	if ev.Timestamp < applied {
		return true
	}
	return applied == 0 && !ev.ForceUpdate && model.Precedes(ev.NewStatus, current)
}

// overlay rebuilds the list from base and the durable store. Store reads
// happen outside the lock; an order keeps its in-memory status when the view
// has already applied something newer than the stored record.
func (v *View) overlay(ctx context.Context, trigger string, base []model.Order, force bool) {
	records := make(map[string]model.StatusRecord, len(base))
	for _, o := range base {
		if rec, ok := v.store.GetStatus(ctx, o.ID); ok {
			records[o.ID] = rec
		}
	}

	v.mu.Lock()
	next := make([]model.Order, 0, len(base))
	index := make(map[string]int, len(base))
	for _, o := range base {
		if _, dup := index[o.ID]; dup {
			continue
		}
		o = o.Clone()
		applied := v.applied[o.ID]
		if rec, ok := records[o.ID]; ok && rec.UpdatedAt >= applied {
			o.Status = rec.Status
			v.applied[o.ID] = rec.UpdatedAt
		} else if i, known := v.index[o.ID]; known && applied > 0 {
			o.Status = v.orders[i].Status
		}
		index[o.ID] = len(next)
		next = append(next, o)
	}

	changed := !sameOrders(v.orders, next)
	v.orders = next
	v.index = index

	var (
		snapshot []model.Order
		renders  []RenderFunc
	)
	if changed || force || trigger == TriggerMount {
		snapshot, renders = v.renderLocked()
	}
	v.mu.Unlock()

	v.metrics.Resync(v.name, trigger)
	if snapshot != nil {
		v.emit(snapshot, renders)
	}
}

func (v *View) renderLocked() ([]model.Order, []RenderFunc) {
	v.version++
	snapshot := make([]model.Order, len(v.orders))
	for i, o := range v.orders {
		snapshot[i] = o.Clone()
	}
	return snapshot, append([]RenderFunc(nil), v.renders...)
}

func (v *View) emit(snapshot []model.Order, renders []RenderFunc) {
	for _, fn := range renders {
		fn(v.name, snapshot)
	}
}

func sameOrders(a, b []model.Order) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
