package service

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/observability"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/port"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// CategoryDirectory serves a session's categories from a TTL cache.
// Concurrent misses for the same session share one upstream call.
type CategoryDirectory struct {
	fetcher port.CategoryFetcher
	cache   port.Cache[[]domain.Category]
	group   singleflight.Group
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCategoryDirectory creates a directory backed by fetcher and cache.
func NewCategoryDirectory(
	fetcher port.CategoryFetcher,
	cache port.Cache[[]domain.Category],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CategoryDirectory {
	return &CategoryDirectory{
		fetcher: fetcher,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// cacheKey derives a stable key from the bearer token without storing the token itself.
func cacheKey(s domain.Session) string {
	sum := blake2b.Sum256([]byte(s.AccessToken))
	return "categories:" + hex.EncodeToString(sum[:16])
}

// List returns the session's categories.
func (d *CategoryDirectory) List(ctx context.Context, s domain.Session) ([]domain.Category, error) {
	key := cacheKey(s)
	if cached, ok := d.cache.Get(key); ok {
		d.metrics.IncrCacheHit("categories")
		return cached, nil
	}
	d.metrics.IncrCacheMiss("categories")

	// The shared call must not die with whichever caller started it.
	shared := context.WithoutCancel(ctx)
	ch := d.group.DoChan(key, func() (any, error) {
		categories, err := d.fetcher.ListCategories(shared, s)
		if err != nil {
			return nil, err
		}
		d.cache.Set(key, categories)
		return categories, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			d.logger.Error("failed to fetch categories", zap.Error(res.Err))
			return nil, fmt.Errorf("categories fetch: %w", res.Err)
		}
		return res.Val.([]domain.Category), nil
	}
}

// Names returns the session's categories indexed by id.
func (d *CategoryDirectory) Names(ctx context.Context, s domain.Session) (domain.CategoryNames, error) {
	categories, err := d.List(ctx, s)
	if err != nil {
		return nil, err
	}
	return domain.NewCategoryNames(categories), nil
}

// Invalidate drops the session's cached categories.
func (d *CategoryDirectory) Invalidate(s domain.Session) {
	d.cache.Delete(cacheKey(s))
}
