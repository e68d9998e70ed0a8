package catalog

import (
	"context"
	"fmt"
	"sync"

	domainErrors "github.com/polkiloo/ordersync/internal/domain/errors"
	"github.com/polkiloo/ordersync/internal/domain/model"
)

// Source is the in-memory base order list. It hands out copies, so callers
// can never mutate the snapshot in place.
type Source struct {
	mu     sync.RWMutex
	orders []model.Order
	index  map[string]int
}

// NewSource creates a Source holding seed in the given order. Later
// duplicates of an id are dropped.
func NewSource(seed []model.Order) *Source {
	s := &Source{index: make(map[string]int, len(seed))}
	for _, o := range seed {
		if _, dup := s.index[o.ID]; dup || o.ID == "" {
			continue
		}
		s.index[o.ID] = len(s.orders)
		s.orders = append(s.orders, o.Clone())
	}
	return s
}

func (s *Source) List(context.Context) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	return out, nil
}

func (s *Source) Get(_ context.Context, id string) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return model.Order{}, fmt.Errorf("order %s: %w", id, domainErrors.ErrNotFound)
	}
	return s.orders[i].Clone(), nil
}

func (s *Source) Add(_ context.Context, order model.Order) error {
	if order.ID == "" {
		return domainErrors.ErrInvalidOrder
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[order.ID]; ok {
		return fmt.Errorf("order %s: %w", order.ID, domainErrors.ErrAlreadyExists)
	}
	s.index[order.ID] = len(s.orders)
	s.orders = append(s.orders, order.Clone())
	return nil
}
