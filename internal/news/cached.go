package news

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"payboard/internal/cache"
	"payboard/internal/core"
	"payboard/internal/log"
)

const (
	defaultCacheEntries = 64
	sharedFetchTimeout  = 30 * time.Second
)

// CachedFetcher memoizes successful fetches per filter for a TTL and
// coalesces identical in-flight requests. Failed fetches are never cached.
type CachedFetcher struct {
	next   Fetcher
	cache  *cache.LRUCache[[]core.Article]
	group  singleflight.Group
	logger *log.Logger
}

var (
	_ Fetcher     = (*CachedFetcher)(nil)
	_ Invalidator = (*CachedFetcher)(nil)
)

func NewCachedFetcher(next Fetcher, ttl time.Duration, logger *log.Logger) *CachedFetcher {
	if logger == nil {
		logger = log.Discard()
	}
	return &CachedFetcher{
		next:   next,
		cache:  cache.NewLRUCache[[]core.Article](defaultCacheEntries, ttl),
		logger: logger.WithComponent(log.ComponentNews),
	}
}

// Cache exposes the underlying cache for registration with a cache.Manager.
func (c *CachedFetcher) Cache() *cache.LRUCache[[]core.Article] {
	return c.cache
}

func (c *CachedFetcher) FetchArticles(ctx context.Context, filter core.FetchFilter) ([]core.Article, error) {
	key := filter.Key()
	if articles, ok := c.cache.Get(key); ok {
		c.logger.DebugContext(ctx, "Article cache hit", log.FieldFilterKey, key)
		return cloneArticles(articles), nil
	}

	// The shared fetch outlives any single caller; each caller only stops
	// waiting when its own ctx is done.
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		articles, err := c.next.FetchArticles(fctx, filter)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, articles)
		return articles, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, &core.FetchError{Op: "request", Err: ctx.Err()}
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		c.logger.DebugContext(ctx, "Article fetch coalesced", log.FieldFilterKey, key)
	}
	v := res.Val
	return cloneArticles(v.([]core.Article)), nil
}

// Invalidate drops the cached response for filter.
func (c *CachedFetcher) Invalidate(filter core.FetchFilter) {
	c.cache.Delete(filter.Key())
}

func cloneArticles(in []core.Article) []core.Article {
	out := make([]core.Article, len(in))
	copy(out, in)
	return out
}
