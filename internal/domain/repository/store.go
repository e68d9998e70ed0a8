package repository

import "context"

// KeyValueStore is the persisted key-value storage behind the durable status
// store. Get reports absence with ok=false and a nil error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
