// Package news supplies articles to the dashboard.
package news

import (
	"context"

	"payboard/internal/core"
)

// Fetcher returns the articles matching a filter. Failures are reported as
// *core.FetchError.
type Fetcher interface {
	FetchArticles(ctx context.Context, filter core.FetchFilter) ([]core.Article, error)
}

// Invalidator is implemented by fetchers that keep responses around, so a
// manual refresh can bypass them.
type Invalidator interface {
	Invalidate(filter core.FetchFilter)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, filter core.FetchFilter) ([]core.Article, error)

func (f FetcherFunc) FetchArticles(ctx context.Context, filter core.FetchFilter) ([]core.Article, error) {
	return f(ctx, filter)
}
