package draft

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storepos/internal/cache"
	"storepos/internal/domain"
	"storepos/internal/logging"
)

type InventorySource interface {
	List(ctx context.Context) ([]domain.Item, error)
}

type CustomerSource interface {
	List(ctx context.Context) ([]domain.Customer, error)
}

type Reference struct {
	Inventory []domain.Item
	Customers []domain.Customer
}

// Loader fetches the reference data a form needs, consulting the cache
// first. Loads run concurrently and the result is only returned once
// every load has finished.
type Loader struct {
	inventory InventorySource
	customers CustomerSource
	cache     cache.Cache
	ttl       time.Duration
	logger    *zap.Logger
}

func NewLoader(inventory InventorySource, customers CustomerSource, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Loader {
	if c == nil {
		c = cache.Noop{}
	}
	return &Loader{
		inventory: inventory,
		customers: customers,
		cache:     c,
		ttl:       ttl,
		logger:    logging.OrNop(logger),
	}
}

func (l *Loader) Load(ctx context.Context, withCustomers bool) (Reference, error) {
	var ref Reference
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := cached(gctx, l, cache.KeyInventory, l.inventory.List)
		ref.Inventory = items
		return err
	})
	if withCustomers {
		g.Go(func() error {
			customers, err := cached(gctx, l, cache.KeyCustomers, l.customers.List)
			ref.Customers = customers
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Reference{}, err
	}
	return ref, nil
}

// InvalidateInventory drops the cached stock snapshot after stock moved.
func (l *Loader) InvalidateInventory(ctx context.Context) {
	if err := l.cache.Delete(ctx, cache.KeyInventory); err != nil {
		l.logger.Warn("invalidate inventory cache failed", zap.Error(err))
	}
}

func cached[T any](ctx context.Context, l *Loader, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	var out []T
	if ok, err := l.cache.Get(ctx, key, &out); err == nil && ok {
		return out, nil
	}
	out, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Set(ctx, key, out, l.ttl); err != nil {
		l.logger.Warn("cache reference data failed", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}
