package test

import (
	"context"
	"sync"

	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/domain/repository"
)

// KeyValueStoreStub is a map-backed store with injectable failures.
type KeyValueStoreStub struct {
	mu     sync.Mutex
	data   map[string]string
	writes []string

	GetErr    error
	SetErr    error
	RemoveErr error
	// SetFn, when set, decides the outcome of every write before it lands.
	SetFn func(key, value string) error
}

// NewKeyValueStoreStub creates an empty stub.
func NewKeyValueStoreStub() *KeyValueStoreStub {
	return &KeyValueStoreStub{data: make(map[string]string)}
}

// Get returns the stored value.
func (s *KeyValueStoreStub) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return "", false, s.GetErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value unless a failure is configured.
func (s *KeyValueStoreStub) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetFn != nil {
		if err := s.SetFn(key, value); err != nil {
			return err
		}
	}
	if s.SetErr != nil {
		return s.SetErr
	}
	if s.data == nil {
		s.data = make(map[string]string)
	}
	s.data[key] = value
	s.writes = append(s.writes, key)
	return nil
}

// Remove deletes key.
func (s *KeyValueStoreStub) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RemoveErr != nil {
		return s.RemoveErr
	}
	delete(s.data, key)
	return nil
}

// Put seeds a raw value without recording a write.
func (s *KeyValueStoreStub) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]string)
	}
	s.data[key] = value
}

// Value returns the raw value stored under key.
func (s *KeyValueStoreStub) Value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Writes lists the keys written through Set, in order.
func (s *KeyValueStoreStub) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

// NotifierRecorder captures notifications.
type NotifierRecorder struct {
	mu    sync.Mutex
	notes []model.Notification
}

// Notify records n.
func (r *NotifierRecorder) Notify(_ context.Context, n model.Notification) {
	r.mu.Lock()
	r.notes = append(r.notes, n)
	r.mu.Unlock()
}

// Notes returns every recorded notification.
func (r *NotifierRecorder) Notes() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Notification(nil), r.notes...)
}

// Count returns how many notifications of level were recorded.
func (r *NotifierRecorder) Count(level model.NotificationLevel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, note := range r.notes {
		if note.Level == level {
			n++
		}
	}
	return n
}

// PenaltyChargerStub records charges or fails with Err.
type PenaltyChargerStub struct {
	mu      sync.Mutex
	Err     error
	charges []model.PenaltyCharge
}

// Charge records the fee.
func (s *PenaltyChargerStub) Charge(_ context.Context, orderID string, amount float64) (model.PenaltyCharge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return model.PenaltyCharge{}, s.Err
	}
	charge := model.PenaltyCharge{OrderID: orderID, Amount: amount}
	s.charges = append(s.charges, charge)
	return charge, nil
}

// Charges returns recorded charges.
func (s *PenaltyChargerStub) Charges() []model.PenaltyCharge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.PenaltyCharge(nil), s.charges...)
}

// PublisherRecorder captures published events without delivering them.
type PublisherRecorder struct {
	mu     sync.Mutex
	events []model.StatusChangeEvent
}

// Publish records event.
func (p *PublisherRecorder) Publish(_ context.Context, event model.StatusChangeEvent) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

// Events returns recorded events.
func (p *PublisherRecorder) Events() []model.StatusChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.StatusChangeEvent(nil), p.events...)
}

var (
	_ repository.KeyValueStore  = (*KeyValueStoreStub)(nil)
	_ repository.Notifier       = (*NotifierRecorder)(nil)
	_ repository.PenaltyCharger = (*PenaltyChargerStub)(nil)
)
