package inventory

import (
	"context"

	"github.com/BnB-Initivatives/stox-prod-test/internal/platform/cache"
)

// StockCache keeps the low-stock report in Redis until the next stock change.
type StockCache struct {
	versioned *cache.Versioned
}

// NewStockCache wraps a versioned cache namespace.
func NewStockCache(versioned *cache.Versioned) *StockCache {
	return &StockCache{versioned: versioned}
}

// LowStock returns the cached report or fills it from load.
func (c *StockCache) LowStock(ctx context.Context, load func(context.Context) ([]StockLevel, error)) ([]StockLevel, error) {
	if c == nil || c.versioned == nil {
		return load(ctx)
	}
	key, err := c.versioned.Key(ctx, "low-stock")
	if err != nil {
		return load(ctx)
	}
	var levels []StockLevel
	err = c.versioned.FetchJSON(ctx, key, &levels, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return nil, err
	}
	if levels == nil {
		levels = []StockLevel{}
	}
	return levels, nil
}

// Invalidate drops every cached report by moving to a new version. Catalog
// item writes call it as well.
func (c *StockCache) Invalidate(ctx context.Context) error {
	if c == nil || c.versioned == nil {
		return nil
	}
	_, err := c.versioned.Bump(ctx)
	return err
}
