package repository

import (
	"context"

	"github.com/polkiloo/ordersync/internal/domain/model"
)

// OrderSource provides base order snapshots.
type OrderSource interface {
	List(ctx context.Context) ([]model.Order, error)
	Get(ctx context.Context, id string) (model.Order, error)
	Add(ctx context.Context, order model.Order) error
}
