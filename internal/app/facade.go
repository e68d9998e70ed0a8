package app

import (
	"context"
	"fmt"

	"github.com/polkiloo/ordersync/internal/adapter/notify"
	domainErrors "github.com/polkiloo/ordersync/internal/domain/errors"
	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/domain/repository"
	"github.com/polkiloo/ordersync/internal/reconciler"
	"github.com/polkiloo/ordersync/internal/usecase"
)

// HealthChecker is implemented by stores that can report readiness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type SyncFacade struct {
	sessions *usecase.SessionUseCase
	mutator  *usecase.Mutator
	orders   repository.OrderSource
	views    *reconciler.Registry
	notes    *notify.Notifier
	store    repository.KeyValueStore
}

func NewSyncFacade(
	sessions *usecase.SessionUseCase,
	mutator *usecase.Mutator,
	orders repository.OrderSource,
	views *reconciler.Registry,
	notes *notify.Notifier,
	store repository.KeyValueStore,
) *SyncFacade {
	return &SyncFacade{sessions: sessions, mutator: mutator, orders: orders, views: views, notes: notes, store: store}
}

func (f *SyncFacade) Login(role, subject, key string) (model.Actor, string, error) {
	return f.sessions.Login(role, subject, key)
}

func (f *SyncFacade) ParseToken(token string) (model.Actor, error) {
	return f.sessions.ParseToken(token)
}

func (f *SyncFacade) PlaceOrder(ctx context.Context, actor model.Actor, order model.Order) (usecase.Result, error) {
	return f.mutator.Place(ctx, order, usecase.ChangeOptions{Source: actor.Role})
}

func (f *SyncFacade) Orders(ctx context.Context) ([]model.Order, error) {
	return f.orders.List(ctx)
}

func (f *SyncFacade) OrderStatus(ctx context.Context, orderID string) (model.OrderStatus, error) {
	return f.mutator.Status(ctx, orderID)
}

func (f *SyncFacade) ChangeStatus(ctx context.Context, actor model.Actor, orderID string, status model.OrderStatus, force bool) (usecase.Result, error) {
	return f.mutator.ChangeStatus(ctx, orderID, status, usecase.ChangeOptions{Source: actor.Role, ForceUpdate: force})
}

// Cancel routes through the policy-driven path when the caller does not
// state whether the cancellation is penalty free.
func (f *SyncFacade) Cancel(ctx context.Context, actor model.Actor, orderID string, penaltyFree *bool) (usecase.Result, error) {
	opts := usecase.ChangeOptions{Source: actor.Role}
	if penaltyFree == nil {
		return f.mutator.ChangeStatus(ctx, orderID, model.OrderStatusCancelled, opts)
	}
	return f.mutator.Cancel(ctx, orderID, *penaltyFree, opts)
}

func (f *SyncFacade) Views() []string {
	return f.views.Names()
}

func (f *SyncFacade) ViewOrders(name string) ([]model.Order, uint64, error) {
	v, ok := f.views.Get(name)
	if !ok {
		return nil, 0, fmt.Errorf("view %q: %w", name, domainErrors.ErrNotFound)
	}
	return v.Orders(), v.Version(), nil
}

func (f *SyncFacade) ResyncView(ctx context.Context, name string) error {
	v, ok := f.views.Get(name)
	if !ok {
		return fmt.Errorf("view %q: %w", name, domainErrors.ErrNotFound)
	}
	return v.Resync(ctx)
}

func (f *SyncFacade) Notifications(limit int) []model.Notification {
	return f.notes.Recent(limit)
}

// Health checks the durable store when the backend supports it. The
// in-memory store is always healthy.
func (f *SyncFacade) Health(ctx context.Context) error {
	if hc, ok := f.store.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
