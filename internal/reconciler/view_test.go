package reconciler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/polkiloo/ordersync/internal/adapter/catalog"
	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/domain/repository"
	"github.com/polkiloo/ordersync/internal/eventbus"
	"github.com/polkiloo/ordersync/internal/metrics"
	"github.com/polkiloo/ordersync/internal/pkg/clock"
	"github.com/polkiloo/ordersync/internal/storage/memory"
	"github.com/polkiloo/ordersync/internal/usecase"
	testhelpers "github.com/polkiloo/ordersync/internal/test"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

var placed = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	kv      *testhelpers.KeyValueStoreStub
	store   *usecase.StatusStore
	source  *catalog.Source
	bus     *eventbus.Bus
	bc      *eventbus.Broadcaster
	mutator *usecase.Mutator
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, schedule []time.Duration, orders ...model.Order) *harness {
	t.Helper()
	kv := testhelpers.NewKeyValueStoreStub()
	h := newHarnessOn(t, kv, schedule, orders...)
	h.kv = kv
	return h
}

func newHarnessOn(t *testing.T, kv repository.KeyValueStore, schedule []time.Duration, orders ...model.Order) *harness {
	t.Helper()
	h := &harness{
		source:  catalog.NewSource(orders),
		bus:     eventbus.New(discardLogger()),
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	h.store = usecase.NewStatusStore(kv, discardLogger(), nil)
	h.bc = eventbus.NewBroadcaster(h.bus, eventbus.Options{Schedule: schedule, Legacy: true}, discardLogger(), h.metrics)
	t.Cleanup(h.bc.Stop)
	h.mutator = usecase.NewMutator(usecase.MutatorDeps{
		Orders:    h.source,
		Store:     h.store,
		Publisher: h.bc,
		Notifier:  &testhelpers.NotifierRecorder{},
		Penalties: &testhelpers.PenaltyChargerStub{},
		Clock:     clock.NewManual(placed),
		Logger:    discardLogger(),
	}, usecase.MutatorOptions{Policy: usecase.CancellationPolicy{Window: 10 * time.Minute, Fee: 5}})
	return h
}

func (h *harness) view(t *testing.T, name string, interval time.Duration) *View {
	t.Helper()
	if interval == 0 {
		interval = time.Hour
	}
	v := NewView(Config{Name: name, Interval: interval}, h.source, h.store, h.bus, discardLogger(), h.metrics)
	t.Cleanup(v.Unmount)
	return v
}

func mounted(t *testing.T, v *View) *View {
	t.Helper()
	if err := v.Mount(context.Background()); err != nil {
		t.Fatalf("mount %s: %v", v.Name(), err)
	}
	return v
}

func order(id string, status model.OrderStatus) model.Order {
	return model.Order{ID: id, Status: status, StoreName: "Store " + id, PlacedAt: placed}
}

func statusOf(t *testing.T, v *View, id string) model.OrderStatus {
	t.Helper()
	st, ok := v.Status(id)
	if !ok {
		t.Fatalf("order %s not in view %s", id, v.Name())
	}
	return st
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestFreshViewRendersStoredStatus(t *testing.T) {
	h := newHarness(t, nil, order("abc123", model.OrderStatusPending))

	if _, err := h.mutator.ChangeStatus(context.Background(), "abc123", model.OrderStatusAccepted, usecase.ChangeOptions{Source: model.SourceVendor}); err != nil {
		t.Fatalf("change status: %v", err)
	}
	rec, ok := h.store.GetStatus(context.Background(), "abc123")
	if !ok || rec.Status != model.OrderStatusAccepted {
		t.Fatalf("expected accepted in store, got %+v", rec)
	}

	v := mounted(t, h.view(t, "customer", 0))
	if got := statusOf(t, v, "abc123"); got != model.OrderStatusAccepted {
		t.Fatalf("fresh view must render accepted, got %s", got)
	}
}

func TestMountKeepsSnapshotStatusWhenAbsentOrCorrupt(t *testing.T) {
	h := newHarness(t, nil, order("a", model.OrderStatusAccepted), order("b", model.OrderStatusPending))
	h.kv.Put(usecase.StatusKey("b"), "{not json")

	v := mounted(t, h.view(t, "admin", 0))
	if got := statusOf(t, v, "a"); got != model.OrderStatusAccepted {
		t.Fatalf("absent record must keep snapshot status, got %s", got)
	}
	if got := statusOf(t, v, "b"); got != model.OrderStatusPending {
		t.Fatalf("corrupt record must keep snapshot status, got %s", got)
	}
}

func TestLiveViewsFollowMutations(t *testing.T) {
	h := newHarness(t, nil, order("o1", model.OrderStatusPending))
	admin := mounted(t, h.view(t, "admin", 0))
	rider := mounted(t, h.view(t, "rider", 0))

	ctx := context.Background()
	_, _ = h.mutator.ChangeStatus(ctx, "o1", model.OrderStatusAccepted, usecase.ChangeOptions{Source: model.SourceAdmin})
	for _, v := range []*View{admin, rider} {
		if got := statusOf(t, v, "o1"); got != model.OrderStatusAccepted {
			t.Fatalf("%s: expected accepted, got %s", v.Name(), got)
		}
	}

	_, _ = h.mutator.ChangeStatus(ctx, "o1", model.OrderStatusCompleted, usecase.ChangeOptions{Source: model.SourceRider})
	if got := statusOf(t, admin, "o1"); got != model.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
}

func TestLateRepeatDoesNotRevertNewerStatus(t *testing.T) {
	h := newHarness(t, []time.Duration{0, 40 * time.Millisecond}, order("o1", model.OrderStatusPending))
	v := mounted(t, h.view(t, "vendor", 0))
	ctx := context.Background()

	first, err := h.mutator.ChangeStatus(ctx, "o1", model.OrderStatusAccepted, usecase.ChangeOptions{})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := h.mutator.ChangeStatus(ctx, "o1", model.OrderStatusCompleted, usecase.ChangeOptions{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	stale := testutil.ToFloat64(h.metrics.StaleEventsTotal.WithLabelValues("vendor"))
	eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.StaleEventsTotal.WithLabelValues("vendor")) > stale
	})
	if got := statusOf(t, v, "o1"); got != model.OrderStatusCompleted {
		t.Fatalf("late repeat of %s reverted the view to %s", first.Event.ID, got)
	}
}

func TestOlderTimestampIsDropped(t *testing.T) {
	h := newHarness(t, nil, order("o1", model.OrderStatusPending))
	v := mounted(t, h.view(t, "admin", 0))
	ctx := context.Background()

	publish := func(status model.OrderStatus, ts int64, id string) {
		h.bus.Publish(ctx, eventbus.Message{Signal: eventbus.SignalStatusChange, Event: model.StatusChangeEvent{
			OrderID: "o1", NewStatus: status, Timestamp: ts, ID: id,
		}})
	}
	publish(model.OrderStatusCompleted, 200, "b")
	publish(model.OrderStatusAccepted, 100, "a")

	if got := statusOf(t, v, "o1"); got != model.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
	if got := testutil.ToFloat64(h.metrics.StaleEventsTotal.WithLabelValues("admin")); got != 1 {
		t.Fatalf("expected one stale event, got %v", got)
	}
}

func TestStatusWithoutTimestampIsNotSteppedBack(t *testing.T) {
	h := newHarness(t, nil, order("o1", model.OrderStatusPending))
	// A record written before its timestamp could be stored.
	h.kv.Put(usecase.StatusKey("o1"), "completed")
	v := mounted(t, h.view(t, "customer", 0))
	ctx := context.Background()

	if got := statusOf(t, v, "o1"); got != model.OrderStatusCompleted {
		t.Fatalf("expected stored completed, got %s", got)
	}
	h.bus.Publish(ctx, eventbus.Message{Signal: eventbus.SignalStatusChange, Event: model.StatusChangeEvent{
		OrderID: "o1", NewStatus: model.OrderStatusAccepted, Timestamp: 100, ID: "late",
	}})
	if got := statusOf(t, v, "o1"); got != model.OrderStatusCompleted {
		t.Fatalf("late event stepped the view back to %s", got)
	}
	if got := testutil.ToFloat64(h.metrics.StaleEventsTotal.WithLabelValues("customer")); got != 1 {
		t.Fatalf("expected one stale event, got %v", got)
	}

	h.bus.Publish(ctx, eventbus.Message{Signal: eventbus.SignalStatusChange, Event: model.StatusChangeEvent{
		OrderID: "o1", NewStatus: model.OrderStatusAccepted, Timestamp: 101, ID: "forced", ForceUpdate: true,
	}})
	if got := statusOf(t, v, "o1"); got != model.OrderStatusAccepted {
		t.Fatalf("forced event must apply, got %s", got)
	}
}

func TestTightQuotaLeavesFreshViewOnSnapshot(t *testing.T) {
	// Room for a status but not for its timestamp.
	h := newHarnessOn(t, memory.NewStore(30), []time.Duration{0, 100 * time.Millisecond}, order("o1", model.OrderStatusPending))
	live := mounted(t, h.view(t, "vendor", 0))
	ctx := context.Background()

	res, err := h.mutator.ChangeStatus(ctx, "o1", model.OrderStatusAccepted, usecase.ChangeOptions{})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.Persisted {
		t.Fatal("expected the write to be refused by the quota")
	}
	if _, ok := h.store.GetStatus(ctx, "o1"); ok {
		t.Fatal("store must not hold a status without its timestamp")
	}
	if got := statusOf(t, live, "o1"); got != model.OrderStatusAccepted {
		t.Fatalf("live view must follow the broadcast, got %s", got)
	}

	fresh := mounted(t, h.view(t, "customer", 0))
	if got := statusOf(t, fresh, "o1"); got != model.OrderStatusPending {
		t.Fatalf("fresh view must fall back to the snapshot, got %s", got)
	}
	// The repeat reaches the fresh view too and moves it forward only.
	eventually(t, func() bool {
		st, _ := fresh.Status("o1")
		return st == model.OrderStatusAccepted
	})
}

func TestStoredRecordOlderThanAppliedEventIsIgnored(t *testing.T) {
	h := newHarness(t, nil, order("o1", model.OrderStatusPending))
	v := mounted(t, h.view(t, "admin", 0))
	ctx := context.Background()

	h.bus.Publish(ctx, eventbus.Message{Signal: eventbus.SignalStatusChange, Event: model.StatusChangeEvent{
		OrderID: "o1", NewStatus: model.OrderStatusAccepted, Timestamp: 500, ID: "new",
	}})
	if err := h.store.SetStatus(ctx, "o1", model.OrderStatusDeclined, 300); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	if err := v.Resync(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if got := statusOf(t, v, "o1"); got != model.OrderStatusAccepted {
		t.Fatalf("older stored record overwrote newer event: %s", got)
	}
}

func TestUntargetedEventTriggersFullOverlay(t *testing.T) {
	h := newHarness(t, nil,
		order("a", model.OrderStatusPending),
		order("b", model.OrderStatusPending),
		order("c", model.OrderStatusAccepted),
	)
	v := mounted(t, h.view(t, "admin", 0))
	ctx := context.Background()

	// Another writer updated the store without any broadcast.
	_ = h.store.SetStatus(ctx, "a", model.OrderStatusDeclined, 10)
	_ = h.store.SetStatus(ctx, "c", model.OrderStatusCompleted, 11)

	tests := []struct {
		name   string
		signal eventbus.Signal
		event  model.StatusChangeEvent
	}{
		{name: "legacy storage signal without order", signal: eventbus.SignalStorage, event: model.StatusChangeEvent{ID: "generic"}},
		{name: "targeted signal missing status", signal: eventbus.SignalStatusChange, event: model.StatusChangeEvent{OrderID: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.bus.Publish(ctx, eventbus.Message{Signal: tt.signal, Event: tt.event})
			want := map[string]model.OrderStatus{
				"a": model.OrderStatusDeclined,
				"b": model.OrderStatusPending,
				"c": model.OrderStatusCompleted,
			}
			for id, st := range want {
				if got := statusOf(t, v, id); got != st {
					t.Fatalf("order %s: expected %s, got %s", id, st, got)
				}
			}
		})
	}
}

func TestOverlayIsIdempotent(t *testing.T) {
	h := newHarness(t, nil, order("a", model.OrderStatusPending), order("b", model.OrderStatusAccepted))
	_ = h.store.SetStatus(context.Background(), "a", model.OrderStatusCancelled, 5)
	v := mounted(t, h.view(t, "admin", 0))

	first := v.Orders()
	version := v.Version()
	v.poll(context.Background())
	second := v.Orders()

	if len(first) != len(second) {
		t.Fatalf("length changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("overlay not idempotent at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
	if v.Version() != version {
		t.Fatal("unchanged overlay must not re-render")
	}
}

func TestEqualStatusSkipsRenderUnlessForced(t *testing.T) {
	h := newHarness(t, nil, order("o1", model.OrderStatusPending))
	v := mounted(t, h.view(t, "admin", 0))
	ctx := context.Background()

	var mu sync.Mutex
	renders := 0
	v.OnRender(func(string, []model.Order) {
		mu.Lock()
		renders++
		mu.Unlock()
	})

	h.bus.Publish(ctx, eventbus.Message{Signal: eventbus.SignalStatusChange, Event: model.StatusChangeEvent{
		OrderID: "o1", NewStatus: model.OrderStatusPending, Timestamp: 1, ID: "same",
	}})
	h.bus.Publish(ctx, eventbus.Message{Signal: eventbus.SignalStatusChange, Event: model.StatusChangeEvent{
		OrderID: "o1", NewStatus: model.OrderStatusPending, Timestamp: 2, ID: "forced", ForceUpdate: true,
	}})

	mu.Lock()
	defer mu.Unlock()
	if renders != 1 {
		t.Fatalf("expected exactly one forced render, got %d", renders)
	}
}

func TestEventForUnknownOrderIsIgnored(t *testing.T) {
	h := newHarness(t, nil, order("o1", model.OrderStatusPending))
	v := mounted(t, h.view(t, "admin", 0))
	version := v.Version()

	h.bus.Publish(context.Background(), eventbus.Message{Signal: eventbus.SignalStatusChange, Event: model.StatusChangeEvent{
		OrderID: "ghost", NewStatus: model.OrderStatusAccepted, Timestamp: 1, ID: "x",
	}})

	if _, ok := v.Status("ghost"); ok {
		t.Fatal("unknown order must not be added")
	}
	if v.Version() != version {
		t.Fatal("unknown order must not re-render")
	}
}

func TestPollingRecoversMissedUpdate(t *testing.T) {
	h := newHarness(t, nil, order("o1", model.OrderStatusPending))
	v := mounted(t, h.view(t, "rider", 10*time.Millisecond))

	// Written while no broadcast reaches the view.
	_ = h.store.SetStatus(context.Background(), "o1", model.OrderStatusAccepted, 99)

	eventually(t, func() bool {
		st, _ := v.Status("o1")
		return st == model.OrderStatusAccepted
	})
}

func TestPollingPicksUpPlacedOrders(t *testing.T) {
	h := newHarness(t, nil)
	v := mounted(t, h.view(t, "vendor", 10*time.Millisecond))

	res, err := h.mutator.Place(context.Background(), model.Order{StoreName: "Deli"}, usecase.ChangeOptions{})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	eventually(t, func() bool {
		_, ok := v.Status(res.OrderID)
		return ok
	})
}

func TestUnmountStopsPollingAndSubscriptions(t *testing.T) {
	h := newHarness(t, nil, order("o1", model.OrderStatusPending))
	v := mounted(t, h.view(t, "customer", 5*time.Millisecond))

	if h.bus.Subscribers(eventbus.SignalStatusChange) != 1 || h.bus.Subscribers(eventbus.SignalStorage) != 1 {
		t.Fatal("expected view subscribed to both signals")
	}
	v.Unmount()
	v.Unmount()

	if h.bus.Subscribers(eventbus.SignalStatusChange) != 0 || h.bus.Subscribers(eventbus.SignalStorage) != 0 {
		t.Fatal("unmount must drop subscriptions")
	}
	if v.poller.Running() {
		t.Fatal("unmount must stop polling")
	}
	if v.Mounted() {
		t.Fatal("expected view unmounted")
	}

	_ = h.store.SetStatus(context.Background(), "o1", model.OrderStatusAccepted, 1)
	time.Sleep(30 * time.Millisecond)
	if got := statusOf(t, v, "o1"); got != model.OrderStatusPending {
		t.Fatalf("unmounted view must not update, got %s", got)
	}
	if err := v.Resync(context.Background()); !errors.Is(err, ErrNotMounted) {
		t.Fatalf("expected ErrNotMounted, got %v", err)
	}
}

type gatedLister struct {
	Lister
	callers int

	mu      sync.Mutex
	arrived int
	gate    chan struct{}
}

// List holds every caller until all expected callers have arrived.
func (g *gatedLister) List(ctx context.Context) ([]model.Order, error) {
	g.mu.Lock()
	g.arrived++
	if g.arrived == g.callers {
		close(g.gate)
	}
	g.mu.Unlock()
	select {
	case <-g.gate:
	case <-time.After(time.Second):
	}
	return g.Lister.List(ctx)
}

func TestConcurrentMountSubscribesOnce(t *testing.T) {
	const callers = 4
	h := newHarness(t, nil, order("o1", model.OrderStatusPending))
	lister := &gatedLister{Lister: h.source, callers: callers, gate: make(chan struct{})}
	v := NewView(Config{Name: "admin", Interval: time.Hour}, lister, h.store, h.bus, discardLogger(), h.metrics)
	t.Cleanup(v.Unmount)

	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := v.Mount(context.Background()); err != nil {
				t.Errorf("mount: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := h.bus.Subscribers(eventbus.SignalStatusChange); n != 1 {
		t.Fatalf("expected one status subscription, got %d", n)
	}
	if n := h.bus.Subscribers(eventbus.SignalStorage); n != 1 {
		t.Fatalf("expected one storage subscription, got %d", n)
	}

	v.Unmount()
	if h.bus.Subscribers(eventbus.SignalStatusChange) != 0 || h.bus.Subscribers(eventbus.SignalStorage) != 0 {
		t.Fatal("unmount must drop every subscription")
	}
}

func TestOrdersReturnsCopies(t *testing.T) {
	h := newHarness(t, nil, order("o1", model.OrderStatusPending))
	v := mounted(t, h.view(t, "admin", 0))

	list := v.Orders()
	list[0].Status = model.OrderStatusCompleted
	if got := statusOf(t, v, "o1"); got != model.OrderStatusPending {
		t.Fatalf("caller mutated view state: %s", got)
	}
}

func TestViewNeverWritesToStore(t *testing.T) {
	h := newHarness(t, nil, order("o1", model.OrderStatusPending))
	v := mounted(t, h.view(t, "admin", 0))

	h.bus.Publish(context.Background(), eventbus.Message{Signal: eventbus.SignalStatusChange, Event: model.StatusChangeEvent{
		OrderID: "o1", NewStatus: model.OrderStatusAccepted, Timestamp: 1, ID: "x",
	}})
	_ = v.Resync(context.Background())

	if w := h.kv.Writes(); len(w) != 0 {
		t.Fatalf("view wrote to store: %v", w)
	}
}
