package repository

import (
	"context"

	"github.com/polkiloo/ordersync/internal/domain/model"
)

// Notifier delivers fire-and-forget user feedback.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// PenaltyCharger applies simulated cancellation fees.
type PenaltyCharger interface {
	Charge(ctx context.Context, orderID string, amount float64) (model.PenaltyCharge, error)
}
