package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainErrors "github.com/polkiloo/ordersync/internal/domain/errors"
	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/domain/repository"
	"github.com/polkiloo/ordersync/internal/metrics"
	"github.com/polkiloo/ordersync/internal/pkg/clock"
	"github.com/polkiloo/ordersync/internal/pkg/idgen"
)

// Publisher broadcasts status changes to live views.
type Publisher interface {
	Publish(ctx context.Context, event model.StatusChangeEvent)
}

// ChangeOptions tune a single mutation.
type ChangeOptions struct {
	Source      model.Source
	ForceUpdate bool
	// OnSettled runs once the settle delay has passed after a successful
	// mutation.
	OnSettled func(Result)
}

// Result describes a finished mutation. Persisted is false when the durable
// write failed and the new status lives only in broadcasts.
type Result struct {
	OrderID     string
	Previous    model.OrderStatus
	Status      model.OrderStatus
	Event       model.StatusChangeEvent
	Persisted   bool
	PenaltyFree *bool
	Penalty     *model.PenaltyCharge
}

// MutatorDeps are the collaborators of a Mutator.
type MutatorDeps struct {
	Orders    repository.OrderSource
	Store     *StatusStore
	Publisher Publisher
	Notifier  repository.Notifier
	Penalties repository.PenaltyCharger
	Clock     clock.Clock
	Sequencer *clock.Sequencer
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// MutatorOptions hold the timing and cancellation settings.
type MutatorOptions struct {
	Latency     time.Duration
	SettleDelay time.Duration
	Policy      CancellationPolicy
}

// Mutator is the only path that changes order statuses. Each mutation
// validates the transition, persists the record, publishes the event and
// reports feedback through the notifier.
type Mutator struct {
	orders    repository.OrderSource
	store     *StatusStore
	publisher Publisher
	notifier  repository.Notifier
	penalties repository.PenaltyCharger
	clock     clock.Clock
	seq       *clock.Sequencer
	logger    *slog.Logger
	metrics   *metrics.Metrics

	latency     time.Duration
	settleDelay time.Duration
	policy      CancellationPolicy
}

// NewMutator constructs a Mutator.
func NewMutator(deps MutatorDeps, opts MutatorOptions) *Mutator {
	c := deps.Clock
	if c == nil {
		c = clock.System{}
	}
	seq := deps.Sequencer
	if seq == nil {
		seq = clock.NewSequencer(c)
	}
	return &Mutator{
		orders:      deps.Orders,
		store:       deps.Store,
		publisher:   deps.Publisher,
		notifier:    deps.Notifier,
		penalties:   deps.Penalties,
		clock:       c,
		seq:         seq,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		latency:     opts.Latency,
		settleDelay: opts.SettleDelay,
		policy:      opts.Policy,
	}
}

// Policy returns the cancellation policy in effect.
func (m *Mutator) Policy() CancellationPolicy {
	return m.policy
}

// ChangeStatus moves an order to status. Moving to cancelled goes through
// the cancellation flow with the fee decided by the policy.
func (m *Mutator) ChangeStatus(ctx context.Context, orderID string, status model.OrderStatus, opts ChangeOptions) (Result, error) {
	if !status.Valid() {
		return Result{}, m.reject(ctx, orderID, fmt.Errorf("%w: %q", domainErrors.ErrInvalidStatus, status))
	}
	if status == model.OrderStatusCancelled {
		return m.cancel(ctx, orderID, nil, opts)
	}
	return m.apply(ctx, orderID, status, opts, nil)
}

// Cancel cancels an order. isPenaltyFree decides the fee even when the
// elapsed time since placement says otherwise; the mismatch is logged.
func (m *Mutator) Cancel(ctx context.Context, orderID string, isPenaltyFree bool, opts ChangeOptions) (Result, error) {
	return m.cancel(ctx, orderID, &isPenaltyFree, opts)
}

func (m *Mutator) cancel(ctx context.Context, orderID string, flag *bool, opts ChangeOptions) (Result, error) {
	return m.apply(ctx, orderID, model.OrderStatusCancelled, opts, func(ctx context.Context, order model.Order, res *Result) {
		byPolicy := m.policy.PenaltyFree(order.PlacedAt, m.clock.Now())
		free := byPolicy
		if flag != nil {
			free = *flag
			if free != byPolicy {
				m.logger.WarnContext(ctx, "penalty flag contradicts elapsed time",
					slog.String("order", orderID),
					slog.Bool("penalty_free", free),
					slog.Duration("elapsed", m.clock.Now().Sub(order.PlacedAt)),
					slog.Duration("window", m.policy.Window),
				)
			}
		}
		cancelled := true
		res.Event.Cancelled = &cancelled
		res.Event.IsPenaltyFree = &free
		res.PenaltyFree = &free
	})
}

// prepare fills cancellation details into the event before it is written.
type prepare func(ctx context.Context, order model.Order, res *Result)

func (m *Mutator) apply(ctx context.Context, orderID string, next model.OrderStatus, opts ChangeOptions, prep prepare) (Result, error) {
	start := time.Now()
	source := opts.Source
	if source == "" {
		source = model.SourceSystem
	}

	if err := authorize(source, next); err != nil {
		m.metrics.ObserveMutation(string(source), "forbidden", time.Since(start))
		return Result{}, m.reject(ctx, orderID, err)
	}

	order, current, err := m.resolve(ctx, orderID)
	if err != nil {
		m.metrics.ObserveMutation(string(source), "not_found", time.Since(start))
		return Result{}, m.reject(ctx, orderID, err)
	}

	if !model.CanTransition(current, next) {
		m.metrics.ObserveMutation(string(source), "rejected", time.Since(start))
		return Result{}, m.reject(ctx, orderID, fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, current, next))
	}

	if err := m.wait(ctx); err != nil {
		m.metrics.ObserveMutation(string(source), "aborted", time.Since(start))
		return Result{}, m.reject(ctx, orderID, err)
	}
	// Past this point the mutation runs to completion.
	ctx = context.WithoutCancel(ctx)

	ts := m.seq.Next()
	res := Result{
		OrderID:  orderID,
		Previous: current,
		Status:   next,
		Event: model.StatusChangeEvent{
			OrderID:     orderID,
			NewStatus:   next,
			Timestamp:   ts,
			ID:          idgen.EventID(orderID, string(next), ts),
			Source:      source,
			ForceUpdate: opts.ForceUpdate,
		},
	}
	if prep != nil {
		prep(ctx, order, &res)
	}

	res.Persisted = m.persist(ctx, orderID, next, ts)
	m.publisher.Publish(ctx, res.Event)

	if res.PenaltyFree != nil && !*res.PenaltyFree {
		res.Penalty = m.chargePenalty(ctx, orderID)
	}

	m.notifier.Notify(ctx, model.Notification{
		Level:   model.NotificationSuccess,
		Title:   "Order " + string(next),
		Message: fmt.Sprintf("Order %s is now %s", orderID, next),
		OrderID: orderID,
	})

	outcome := "ok"
	if !res.Persisted {
		outcome = "unpersisted"
	}
	m.metrics.ObserveMutation(string(source), outcome, time.Since(start))
	m.logger.InfoContext(ctx, "order status changed",
		slog.String("order", orderID),
		slog.String("from", string(current)),
		slog.String("to", string(next)),
		slog.String("source", string(source)),
		slog.String("event", res.Event.ID),
		slog.Bool("persisted", res.Persisted),
	)

	m.settle(opts.OnSettled, res)
	return res, nil
}

// Place registers a new pending order and announces it.
func (m *Mutator) Place(ctx context.Context, order model.Order, opts ChangeOptions) (Result, error) {
	source := opts.Source
	if source == "" {
		source = model.SourceCustomer
	}
	if err := validateOrder(order); err != nil {
		return Result{}, err
	}
	if order.ID == "" {
		order.ID = idgen.NewOrderID()
	}
	order.Status = model.OrderStatusPending
	if order.PlacedAt.IsZero() {
		order.PlacedAt = m.clock.Now()
	}
	if order.Total == 0 {
		for _, it := range order.Items {
			order.Total += float64(it.Quantity) * it.Price
		}
	}

	if err := m.orders.Add(ctx, order); err != nil {
		return Result{}, err
	}

	ts := m.seq.Next()
	res := Result{
		OrderID: order.ID,
		Status:  order.Status,
		Event: model.StatusChangeEvent{
			OrderID:     order.ID,
			NewStatus:   order.Status,
			Timestamp:   ts,
			ID:          idgen.EventID(order.ID, string(order.Status), ts),
			Source:      source,
			ForceUpdate: true,
		},
	}
	res.Persisted = m.persist(ctx, order.ID, order.Status, ts)
	m.publisher.Publish(ctx, res.Event)
	m.notifier.Notify(ctx, model.Notification{
		Level:   model.NotificationSuccess,
		Title:   "Order placed",
		Message: fmt.Sprintf("Order %s from %s is pending", order.ID, order.StoreName),
		OrderID: order.ID,
	})
	m.logger.InfoContext(ctx, "order placed", slog.String("order", order.ID), slog.String("store", order.StoreName))

	m.settle(opts.OnSettled, res)
	return res, nil
}

// Status returns the authoritative status of an order: the durable record
// when present, the snapshot otherwise.
func (m *Mutator) Status(ctx context.Context, orderID string) (model.OrderStatus, error) {
	_, status, err := m.resolve(ctx, orderID)
	return status, err
}

func (m *Mutator) resolve(ctx context.Context, orderID string) (model.Order, model.OrderStatus, error) {
	order, err := m.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return model.Order{}, "", err
		}
		return model.Order{}, "", fmt.Errorf("load order %s: %w", orderID, err)
	}
	if rec, ok := m.store.GetStatus(ctx, orderID); ok {
		return order, rec.Status, nil
	}
	return order, order.Status, nil
}

func (m *Mutator) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reject raises an error notification for a mutation that did not happen
// and returns err unchanged.
func (m *Mutator) reject(ctx context.Context, orderID string, err error) error {
	m.notifier.Notify(context.WithoutCancel(ctx), model.Notification{
		Level:   model.NotificationError,
		Title:   "Status change rejected",
		Message: fmt.Sprintf("Order %s: %v", orderID, err),
		OrderID: orderID,
	})
	return err
}

func (m *Mutator) persist(ctx context.Context, orderID string, status model.OrderStatus, ts int64) bool {
	if err := m.store.SetStatus(ctx, orderID, status, ts); err != nil {
		m.notifier.Notify(ctx, model.Notification{
			Level:   model.NotificationWarning,
			Title:   "Status not saved",
			Message: fmt.Sprintf("Order %s is %s on this device only and will not survive a restart", orderID, status),
			OrderID: orderID,
		})
		return false
	}
	return true
}

func (m *Mutator) chargePenalty(ctx context.Context, orderID string) *model.PenaltyCharge {
	if m.policy.Fee <= 0 || m.penalties == nil {
		return nil
	}
	charge, err := m.penalties.Charge(ctx, orderID, m.policy.Fee)
	if err != nil {
		m.logger.ErrorContext(ctx, "penalty charge failed", slog.String("order", orderID), slog.String("error", err.Error()))
		m.notifier.Notify(ctx, model.Notification{
			Level:   model.NotificationError,
			Title:   "Penalty not charged",
			Message: fmt.Sprintf("Cancellation fee for order %s could not be charged", orderID),
			OrderID: orderID,
		})
		return nil
	}
	m.notifier.Notify(ctx, model.Notification{
		Level:   model.NotificationWarning,
		Title:   "Cancellation fee charged",
		Message: fmt.Sprintf("A fee of %.2f was charged for cancelling order %s", charge.Amount, orderID),
		OrderID: orderID,
	})
	return &charge
}

func (m *Mutator) settle(fn func(Result), res Result) {
	if fn == nil {
		return
	}
	if m.settleDelay <= 0 {
		fn(res)
		return
	}
	time.AfterFunc(m.settleDelay, func() { fn(res) })
}

func authorize(source model.Source, next model.OrderStatus) error {
	if !source.Valid() {
		return fmt.Errorf("%w: unknown source %q", domainErrors.ErrForbidden, source)
	}
	if next == model.OrderStatusCancelled {
		if !source.CanCancel() {
			return fmt.Errorf("%w: %s cannot cancel", domainErrors.ErrForbidden, source)
		}
		return nil
	}
	if !source.CanFulfil() {
		return fmt.Errorf("%w: %s cannot set %s", domainErrors.ErrForbidden, source, next)
	}
	return nil
}

func validateOrder(order model.Order) error {
	if order.Total < 0 {
		return fmt.Errorf("%w: negative total", domainErrors.ErrInvalidOrder)
	}
	for _, it := range order.Items {
		if it.Quantity <= 0 || it.Price < 0 {
			return fmt.Errorf("%w: bad item %q", domainErrors.ErrInvalidOrder, it.Name)
		}
	}
	return nil
}
