package cache

import (
	"context"
	"time"
)

// Cache holds reference data (inventory, customers) between form loads.
// Get reports whether key was present and decoded into dest.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const (
	KeyInventory = "storepos:ref:inventory"
	KeyCustomers = "storepos:ref:customers"
)

type Noop struct{}

func (Noop) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (Noop) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}

func (Noop) Delete(_ context.Context, _ ...string) error {
	return nil
}
