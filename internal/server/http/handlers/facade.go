package handlers

import (
	"context"

	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/usecase"
)

// SessionFacade describes login capabilities required by handlers.
type SessionFacade interface {
	Login(role, subject, key string) (model.Actor, string, error)
	ParseToken(token string) (model.Actor, error)
}

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	PlaceOrder(ctx context.Context, actor model.Actor, order model.Order) (usecase.Result, error)
	Orders(ctx context.Context) ([]model.Order, error)
	OrderStatus(ctx context.Context, orderID string) (model.OrderStatus, error)
	ChangeStatus(ctx context.Context, actor model.Actor, orderID string, status model.OrderStatus, force bool) (usecase.Result, error)
	// Cancel cancels an order. A nil penaltyFree lets the cancellation
	// window decide.
	Cancel(ctx context.Context, actor model.Actor, orderID string, penaltyFree *bool) (usecase.Result, error)
}

// ViewFacade exposes the reconciled views and user feedback.
type ViewFacade interface {
	Views() []string
	ViewOrders(name string) ([]model.Order, uint64, error)
	ResyncView(ctx context.Context, name string) error
	Notifications(limit int) []model.Notification
}

// HealthFacade reports backend readiness.
type HealthFacade interface {
	Health(ctx context.Context) error
}

// SyncFacade aggregates the full set of operations used across handlers.
type SyncFacade interface {
	SessionFacade
	OrderFacade
	ViewFacade
	HealthFacade
}
