// Package facadestub provides an HTTP facade double. It lives apart from
// package test because it depends on usecase, whose own tests import test.
package facadestub

import (
	"context"
	"sync"

	domainErrors "github.com/polkiloo/ordersync/internal/domain/errors"
	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/test"
	"github.com/polkiloo/ordersync/internal/usecase"
)

// CancelCall stores the arguments of a Cancel invocation.
type CancelCall struct {
	Actor       model.Actor
	OrderID     string
	PenaltyFree *bool
}

// SyncFacadeStub provides controllable behaviour for every HTTP endpoint.
// Unset functions fall back to simple successful defaults.
type SyncFacadeStub struct {
	LoginFn      func(role, subject, key string) (model.Actor, string, error)
	ParseFn      func(token string) (model.Actor, error)
	PlaceFn      func(context.Context, model.Actor, model.Order) (usecase.Result, error)
	OrdersFn     func(context.Context) ([]model.Order, error)
	StatusFn     func(context.Context, string) (model.OrderStatus, error)
	ChangeFn     func(context.Context, model.Actor, string, model.OrderStatus, bool) (usecase.Result, error)
	CancelFn     func(context.Context, model.Actor, string, *bool) (usecase.Result, error)
	ViewOrdersFn func(string) ([]model.Order, uint64, error)
	ResyncFn     func(context.Context, string) error
	HealthErr    error
	ViewNames    []string
	RecentNotes  []model.Notification

	mu      sync.Mutex
	Cancels []CancelCall
}

// Login returns a token shaped like StrategyStub tokens.
func (s *SyncFacadeStub) Login(role, subject, key string) (model.Actor, string, error) {
	if s.LoginFn != nil {
		return s.LoginFn(role, subject, key)
	}
	actor := model.Actor{Role: model.Source(role), Subject: subject}
	token, _ := test.StrategyStub{}.IssueToken(actor)
	return actor, token, nil
}

// ParseToken parses StrategyStub tokens unless overridden.
func (s *SyncFacadeStub) ParseToken(token string) (model.Actor, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return test.StrategyStub{}.ParseToken(token)
}

// PlaceOrder echoes the order back as pending.
func (s *SyncFacadeStub) PlaceOrder(ctx context.Context, actor model.Actor, order model.Order) (usecase.Result, error) {
	if s.PlaceFn != nil {
		return s.PlaceFn(ctx, actor, order)
	}
	id := order.ID
	if id == "" {
		id = "placed"
	}
	return usecase.Result{OrderID: id, Status: model.OrderStatusPending, Persisted: true}, nil
}

// Orders returns configured orders.
func (s *SyncFacadeStub) Orders(ctx context.Context) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx)
	}
	return []model.Order{{ID: "o1", Status: model.OrderStatusPending, StoreName: "Store"}}, nil
}

// OrderStatus returns pending unless overridden.
func (s *SyncFacadeStub) OrderStatus(ctx context.Context, orderID string) (model.OrderStatus, error) {
	if s.StatusFn != nil {
		return s.StatusFn(ctx, orderID)
	}
	return model.OrderStatusPending, nil
}

// ChangeStatus reports the requested status as applied.
func (s *SyncFacadeStub) ChangeStatus(ctx context.Context, actor model.Actor, orderID string, status model.OrderStatus, force bool) (usecase.Result, error) {
	if s.ChangeFn != nil {
		return s.ChangeFn(ctx, actor, orderID, status, force)
	}
	return usecase.Result{OrderID: orderID, Previous: model.OrderStatusPending, Status: status, Persisted: true}, nil
}

// Cancel records the call and reports the order as cancelled.
func (s *SyncFacadeStub) Cancel(ctx context.Context, actor model.Actor, orderID string, penaltyFree *bool) (usecase.Result, error) {
	s.mu.Lock()
	s.Cancels = append(s.Cancels, CancelCall{Actor: actor, OrderID: orderID, PenaltyFree: penaltyFree})
	s.mu.Unlock()
	if s.CancelFn != nil {
		return s.CancelFn(ctx, actor, orderID, penaltyFree)
	}
	return usecase.Result{OrderID: orderID, Previous: model.OrderStatusPending, Status: model.OrderStatusCancelled, Persisted: true, PenaltyFree: penaltyFree}, nil
}

// Views returns configured view names.
func (s *SyncFacadeStub) Views() []string {
	return s.ViewNames
}

// ViewOrders returns the default orders for known views.
func (s *SyncFacadeStub) ViewOrders(name string) ([]model.Order, uint64, error) {
	if s.ViewOrdersFn != nil {
		return s.ViewOrdersFn(name)
	}
	for _, v := range s.ViewNames {
		if v == name {
			orders, err := s.Orders(context.Background())
			return orders, 1, err
		}
	}
	return nil, 0, domainErrors.ErrNotFound
}

// ResyncView succeeds unless overridden.
func (s *SyncFacadeStub) ResyncView(ctx context.Context, name string) error {
	if s.ResyncFn != nil {
		return s.ResyncFn(ctx, name)
	}
	return nil
}

// Notifications returns up to limit configured notifications.
func (s *SyncFacadeStub) Notifications(limit int) []model.Notification {
	if limit < len(s.RecentNotes) {
		return s.RecentNotes[:limit]
	}
	return s.RecentNotes
}

// Health returns HealthErr.
func (s *SyncFacadeStub) Health(context.Context) error {
	return s.HealthErr
}
