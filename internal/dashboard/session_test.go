package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"payboard/internal/core"
	"payboard/internal/news"
	"payboard/internal/view"
)

var rates = core.PayoutRates{News: 10, Blog: 15}

func TestRefreshAppliesArticles(t *testing.T) {
	s := NewSession("s1", nil)
	f := news.FetcherFunc(func(ctx context.Context, _ core.FetchFilter) ([]core.Article, error) {
		return []core.Article{{Author: "A", Type: "news"}, {Author: "A", Type: "news"}, {Type: "blog"}}, nil
	})
	res := s.Refresh(context.Background(), f)
	if !res.Applied || res.Err != nil || res.Seq != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	snap := s.Snapshot(rates, nil)
	if snap.Summary.Totals != (core.Totals{Articles: 3, Payout: 35}) {
		t.Fatalf("unexpected totals %+v", snap.Summary.Totals)
	}
	if snap.Table.Filtered != 2 || snap.Error != "" || snap.Loading {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestRefreshFailureShowsEmptyList(t *testing.T) {
	s := NewSession("s1", nil)
	ok := news.FetcherFunc(func(context.Context, core.FetchFilter) ([]core.Article, error) {
		return []core.Article{{Author: "A"}}, nil
	})
	fail := news.FetcherFunc(func(context.Context, core.FetchFilter) ([]core.Article, error) {
		return nil, &core.FetchError{Op: "decode", Err: core.ErrInvalidResponse}
	})
	s.Refresh(context.Background(), ok)
	res := s.Refresh(context.Background(), fail)
	if !res.Applied || res.Err == nil {
		t.Fatalf("failure should still be applied: %+v", res)
	}
	snap := s.Snapshot(rates, nil)
	if len(snap.Summary.Authors) != 0 || snap.Error != core.ErrInvalidResponse.Error() {
		t.Fatalf("unexpected snapshot after failure: %+v", snap)
	}
	if snap.Table.Rows == nil || snap.Table.Totals != (core.Totals{}) {
		t.Fatalf("table should render only the totals row")
	}
}

func TestStaleFetchIsDropped(t *testing.T) {
	s := NewSession("s1", nil)
	release := make(chan struct{})
	started := make(chan struct{})
	f := news.FetcherFunc(func(ctx context.Context, filter core.FetchFilter) ([]core.Article, error) {
		if filter.SearchQuery == "slow" {
			close(started)
			<-release
			return []core.Article{{Author: "old"}}, nil
		}
		return []core.Article{{Author: "new"}}, nil
	})

	done := make(chan FetchResult)
	go func() {
		res, _ := s.SetFilter(context.Background(), core.FetchFilter{SearchQuery: "slow"}, f)
		done <- res
	}()
	<-started
	if _, err := s.SetFilter(context.Background(), core.FetchFilter{SearchQuery: "fast"}, f); err != nil {
		t.Fatal(err)
	}
	close(release)
	stale := <-done
	if stale.Applied {
		t.Fatalf("superseded fetch must not be applied")
	}
	got := s.Articles()
	if len(got) != 1 || got[0].Author != "new" {
		t.Fatalf("stale result overwrote newer state: %+v", got)
	}
}

func TestSetFilterRejectsInvalid(t *testing.T) {
	s := NewSession("s1", nil)
	calls := 0
	f := news.FetcherFunc(func(context.Context, core.FetchFilter) ([]core.Article, error) {
		calls++
		return nil, nil
	})
	if _, err := s.SetFilter(context.Background(), core.FetchFilter{Type: "podcast"}, f); !errors.Is(err, core.ErrInvalidFetchType) {
		t.Fatalf("expected ErrInvalidFetchType, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("invalid filter must not trigger a fetch")
	}
	s.EnsureLoaded(context.Background(), f)
	s.EnsureLoaded(context.Background(), f)
	if calls != 1 {
		t.Fatalf("EnsureLoaded should fetch once, got %d", calls)
	}
}

func TestSnapshotReflectsViewAndEditor(t *testing.T) {
	s := NewSession("s1", nil)
	s.Refresh(context.Background(), news.FetcherFunc(func(context.Context, core.FetchFilter) ([]core.Article, error) {
		return []core.Article{{Author: "A"}, {Author: "A"}, {Author: "B"}}, nil
	}))
	minArticles := 2
	_ = s.View(func(v *view.State) error {
		v.SetRanges(view.RangeFilter{MinArticles: &minArticles})
		return nil
	})
	_ = s.Editor(func(e *view.RateEditor) error { return e.Begin(rates) })

	snap := s.Snapshot(rates, time.UTC)
	if snap.Table.Filtered != 1 || snap.Table.Rows[0].Author != "A" {
		t.Fatalf("table filter not applied: %+v", snap.Table)
	}
	if len(snap.Summary.Authors) != 2 {
		t.Fatalf("summary must cover every author")
	}
	if snap.Editor.Phase != view.Editing || snap.Editor.Draft == nil || *snap.Editor.Draft != rates {
		t.Fatalf("unexpected editor snapshot %+v", snap.Editor)
	}
	if len(s.Stats(rates)) != 2 {
		t.Fatalf("export stats must ignore table filters")
	}
}

func TestManagerReusesSessions(t *testing.T) {
	m := NewManager(time.Hour, nil)
	a := m.Get("x")
	if m.Get("x") != a {
		t.Fatalf("expected same session")
	}
	m.Drop("x")
	if m.Get("x") == a {
		t.Fatalf("expected a new session after drop")
	}
}
