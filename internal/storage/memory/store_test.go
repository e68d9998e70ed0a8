package memory

import (
	"context"
	"errors"
	"testing"

	domainErrors "github.com/polkiloo/ordersync/internal/domain/errors"
)

func TestStoreGetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := NewStore(0)

	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "k", "v22"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || v != "v22" {
		t.Fatalf("unexpected get result %q %v %v", v, ok, err)
	}
	if s.Used() != len("k")+len("v22") {
		t.Fatalf("unexpected usage %d", s.Used())
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove of absent key must succeed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("expected key to be removed")
	}
	if s.Used() != 0 {
		t.Fatalf("expected usage to drop to zero, got %d", s.Used())
	}
}

func TestStoreQuotaExceeded(t *testing.T) {
	ctx := context.Background()
	s := NewStore(10)

	if err := s.Set(ctx, "abc", "1234"); err != nil {
		t.Fatalf("set within quota: %v", err)
	}
	if err := s.Set(ctx, "def", "1234"); !errors.Is(err, domainErrors.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if _, ok, _ := s.Get(ctx, "def"); ok {
		t.Fatal("rejected write must not be stored")
	}
	if err := s.Set(ctx, "abc", "1234567"); err != nil {
		t.Fatalf("overwrite fitting the quota must succeed: %v", err)
	}
}

func TestStoreDisabled(t *testing.T) {
	ctx := context.Background()
	s := NewStore(0)
	s.SetDisabled(true)

	if err := s.Set(ctx, "k", "v"); !errors.Is(err, domainErrors.ErrStorageUnavailable) {
		t.Fatalf("expected unavailable on set, got %v", err)
	}
	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, domainErrors.ErrStorageUnavailable) {
		t.Fatalf("expected unavailable on get, got %v", err)
	}
	if err := s.Remove(ctx, "k"); !errors.Is(err, domainErrors.ErrStorageUnavailable) {
		t.Fatalf("expected unavailable on remove, got %v", err)
	}

	s.SetDisabled(false)
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("expected store to recover, got %v", err)
	}
}
