package cache

import (
	"context"
	"time"
)

// Store is a key-value cache with per-entry TTL. Expiry is enforced by the store.
type Store interface {
	// Get returns found=false without error on a miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// NopStore never stores anything. It backs the "none" cache backend.
type NopStore struct{}

var _ Store = NopStore{}

func (NopStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NopStore) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (NopStore) Close() error {
	return nil
}
