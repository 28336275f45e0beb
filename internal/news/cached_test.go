package news

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"payboard/internal/core"
)

func TestCachedFetcherCachesSuccess(t *testing.T) {
	var calls int32
	next := FetcherFunc(func(ctx context.Context, f core.FetchFilter) ([]core.Article, error) {
		atomic.AddInt32(&calls, 1)
		return []core.Article{{Author: "a"}}, nil
	})
	c := NewCachedFetcher(next, time.Minute, nil)
	ctx := context.Background()

	first, err := c.FetchArticles(ctx, core.FetchFilter{SearchQuery: "go"})
	if err != nil {
		t.Fatal(err)
	}
	first[0].Author = "mutated"
	second, _ := c.FetchArticles(ctx, core.FetchFilter{SearchQuery: " Go ", Type: core.FetchAll})
	if calls != 1 {
		t.Fatalf("expected one upstream call, got %d", calls)
	}
	if second[0].Author != "a" {
		t.Fatalf("cached slice was shared with a caller")
	}

	c.Invalidate(core.FetchFilter{SearchQuery: "go"})
	_, _ = c.FetchArticles(ctx, core.FetchFilter{SearchQuery: "go"})
	if calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", calls)
	}
}

func TestCachedFetcherDoesNotCacheErrors(t *testing.T) {
	var calls int32
	boom := &core.FetchError{Op: "request", Err: errors.New("down")}
	next := FetcherFunc(func(ctx context.Context, f core.FetchFilter) ([]core.Article, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, boom
		}
		return []core.Article{}, nil
	})
	c := NewCachedFetcher(next, time.Minute, nil)
	if _, err := c.FetchArticles(context.Background(), core.FetchFilter{}); !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if _, err := c.FetchArticles(context.Background(), core.FetchFilter{}); err != nil {
		t.Fatalf("expected success on retry, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestCachedFetcherCoalescesInFlight(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	next := FetcherFunc(func(ctx context.Context, f core.FetchFilter) ([]core.Article, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []core.Article{{Author: "a"}}, nil
	})
	c := NewCachedFetcher(next, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.FetchArticles(context.Background(), core.FetchFilter{}); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	if calls != 1 {
		t.Fatalf("expected coalesced upstream call, got %d", calls)
	}
}

func TestCachedFetcherCallerCancelDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	next := FetcherFunc(func(ctx context.Context, f core.FetchFilter) ([]core.Article, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
			return []core.Article{{Author: "a"}}, nil
		case <-ctx.Done():
			return nil, &core.FetchError{Op: "request", Err: ctx.Err()}
		}
	})
	c := NewCachedFetcher(next, time.Minute, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.FetchArticles(firstCtx, core.FetchFilter{})
		firstErr <- err
	}()
	<-started

	type result struct {
		articles []core.Article
		err      error
	}
	second := make(chan result, 1)
	go func() {
		articles, err := c.FetchArticles(context.Background(), core.FetchFilter{})
		second <- result{articles, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: expected context.Canceled, got %v", err)
	}

	close(release)
	got := <-second
	if got.err != nil || len(got.articles) != 1 {
		t.Fatalf("live caller should get the shared result, got %+v %v", got.articles, got.err)
	}
}
