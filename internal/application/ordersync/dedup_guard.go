package ordersync

import (
	"context"

	"go.uber.org/zap"

	"github.com/betminds/linx-orders/internal/domain/order"
)

// DedupGuard answers whether an order is already in the sink. It fails
// open: any lookup error is logged and reported as "not present", so a
// sink hiccup can cause a duplicate write but never a lost order.
type DedupGuard struct {
	repo   order.Repository
	cache  KnownOrderCache
	logger *zap.Logger
}

// NewDedupGuard creates a guard. cache may be nil.
func NewDedupGuard(repo order.Repository, cache KnownOrderCache, logger *zap.Logger) *DedupGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DedupGuard{repo: repo, cache: cache, logger: logger}
}

func cacheKey(value string, byNumber bool) string {
	if byNumber {
		return "number:" + value
	}
	return "id:" + value
}

// Exists reports whether a row with the given order_id (or order_number
// when byNumber is set) exists. Empty values are never considered present.
func (g *DedupGuard) Exists(ctx context.Context, value string, byNumber bool) bool {
	if value == "" {
		return false
	}
	key := cacheKey(value, byNumber)

	if g.cache != nil {
		hit, err := g.cache.Contains(ctx, key)
		if err != nil {
			g.logger.Warn("known-order cache lookup failed", zap.String("key", key), zap.Error(err))
		} else if hit {
			return true
		}
	}

	var (
		count int64
		err   error
	)
	if byNumber {
		count, err = g.repo.CountByOrderNumber(ctx, value)
	} else {
		count, err = g.repo.CountByOrderID(ctx, value)
	}
	if err != nil {
		g.logger.Error("existence check failed, treating order as new",
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}

	if count > 0 {
		g.remember(ctx, key)
		return true
	}
	return false
}

// Remember records a freshly written order in the cache.
func (g *DedupGuard) Remember(ctx context.Context, o *order.NormalizedOrder) {
	if o.OrderID != "" {
		g.remember(ctx, cacheKey(o.OrderID, false))
	}
	if o.OrderNumber != "" {
		g.remember(ctx, cacheKey(o.OrderNumber, true))
	}
}

func (g *DedupGuard) remember(ctx context.Context, key string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Add(ctx, key); err != nil {
		g.logger.Warn("known-order cache update failed", zap.String("key", key), zap.Error(err))
	}
}
