package artifact

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/JakeFAU/crawl-reports/internal/report"
	"github.com/JakeFAU/crawl-reports/internal/telemetry"
)

// CachingStore memoizes listings and decoded tables of another Store.
// Cached tables are shared between callers and must not be modified.
// Errors are never cached.
type CachingStore struct {
	next   Store
	lists  *gocache.Cache
	tables *gocache.Cache
}

// NewCachingStore wraps next. A non-positive ttl keeps entries until Invalidate.
func NewCachingStore(next Store, ttl time.Duration) *CachingStore {
	expiration, cleanup := gocache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		expiration, cleanup = ttl, 2*ttl
	}
	return &CachingStore{
		next:   next,
		lists:  gocache.New(expiration, cleanup),
		tables: gocache.New(expiration, cleanup),
	}
}

// ListIdentifiers implements Store.
func (c *CachingStore) ListIdentifiers(ctx context.Context, category report.Category) ([]string, error) {
	if v, ok := c.lists.Get(category.Name); ok {
		telemetry.ObserveCache("listing", true)
		return append([]string(nil), v.([]string)...), nil
	}
	telemetry.ObserveCache("listing", false)
	ids, err := c.next.ListIdentifiers(ctx, category)
	if err != nil {
		return nil, err
	}
	c.lists.SetDefault(category.Name, append([]string(nil), ids...))
	return ids, nil
}

// Fetch implements Store.
func (c *CachingStore) Fetch(ctx context.Context, identifier string) (*report.Table, error) {
	if v, ok := c.tables.Get(identifier); ok {
		telemetry.ObserveCache("table", true)
		return v.(*report.Table), nil
	}
	telemetry.ObserveCache("table", false)
	t, err := c.next.Fetch(ctx, identifier)
	if err != nil {
		return nil, err
	}
	c.tables.SetDefault(identifier, t)
	return t, nil
}

// Invalidate drops every cached entry.
func (c *CachingStore) Invalidate() {
	c.lists.Flush()
	c.tables.Flush()
}
