// Package memory serves articles from an in-process list, optionally loaded
// from a JSON fixture file.
package memory

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"payboard/internal/core"
	"payboard/internal/news"
	"payboard/internal/news/newsapi"
)

type Source struct {
	mu       sync.RWMutex
	articles []core.Article
	err      error
}

var _ news.Fetcher = (*Source)(nil)

func New(articles []core.Article) *Source {
	return &Source{articles: append([]core.Article(nil), articles...)}
}

// NewFromFile loads a fixture holding an article array or an API response
// envelope.
func NewFromFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read article fixture: %w", err)
	}
	articles, err := newsapi.DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decode article fixture %s: %w", path, err)
	}
	return New(articles), nil
}

// Replace swaps the served articles.
func (s *Source) Replace(articles []core.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = append([]core.Article(nil), articles...)
}

// FailWith makes every following fetch fail with err; nil restores success.
func (s *Source) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// FetchArticles applies the query as a case-insensitive substring on title or
// author, the inclusive date range, and the type filter.
func (s *Source) FetchArticles(ctx context.Context, filter core.FetchFilter) ([]core.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.FetchError{Op: "request", Err: err}
	}
	filter = filter.Normalized()
	if err := filter.Validate(); err != nil {
		return nil, &core.FetchError{Op: "validate", Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, &core.FetchError{Op: "request", Err: s.err}
	}

	q := strings.ToLower(filter.SearchQuery)
	from, hasFrom := parseDay(filter.DateFrom)
	to, hasTo := parseDay(filter.DateTo)

	out := make([]core.Article, 0, len(s.articles))
	for _, a := range s.articles {
		if !filter.Type.Includes(a.Kind()) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(a.Title), q) && !strings.Contains(strings.ToLower(a.Author), q) {
			continue
		}
		if hasFrom || hasTo {
			ts, ok := a.Published()
			if !ok {
				continue
			}
			if hasFrom && ts.Before(from) {
				continue
			}
			if hasTo && !ts.Before(to.AddDate(0, 0, 1)) {
				continue
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	return t, err == nil
}
