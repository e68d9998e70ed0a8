package memory

import (
	"context"
	"sync"

	domainErrors "github.com/polkiloo/ordersync/internal/domain/errors"
)

// Store is an in-process key-value store with a byte quota, modelled on
// browser local storage. A quota of zero means unlimited.
type Store struct {
	mu       sync.RWMutex
	data     map[string]string
	used     int
	quota    int
	disabled bool
}

// NewStore creates an empty Store limited to quota bytes of keys plus values.
func NewStore(quota int) *Store {
	return &Store{data: make(map[string]string), quota: quota}
}

// SetDisabled toggles the unavailable mode in which every call fails.
func (s *Store) SetDisabled(disabled bool) {
	s.mu.Lock()
	s.disabled = disabled
	s.mu.Unlock()
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.disabled {
		return "", false, domainErrors.ErrStorageUnavailable
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return domainErrors.ErrStorageUnavailable
	}

	used := s.used + len(value)
	if old, ok := s.data[key]; ok {
		used -= len(old)
	} else {
		used += len(key)
	}
	if s.quota > 0 && used > s.quota {
		return domainErrors.ErrCapacityExceeded
	}

	s.data[key] = value
	s.used = used
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return domainErrors.ErrStorageUnavailable
	}
	if old, ok := s.data[key]; ok {
		s.used -= len(key) + len(old)
		delete(s.data, key)
	}
	return nil
}

// Used reports the bytes currently stored.
func (s *Store) Used() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}
