// Package dashboard holds the state of one dashboard user: the fetch filter,
// the latest article list, the table view and the rate editor.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"payboard/internal/analytics"
	"payboard/internal/core"
	"payboard/internal/log"
	"payboard/internal/news"
	"payboard/internal/view"
)

// Session is safe for concurrent use. Fetches run outside the lock and only
// the result of the most recently started fetch is applied.
type Session struct {
	id     string
	logger *log.StructuredLogger

	mu        sync.Mutex
	filter    core.FetchFilter
	articles  []core.Article
	fetchErr  string
	loading   bool
	seq       uint64
	fetchedAt time.Time
	view      *view.State
	editor    *view.RateEditor
}

func NewSession(id string, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Discard()
	}
	return &Session{
		id:       id,
		logger:   log.NewStructuredLogger(logger),
		filter:   core.FetchFilter{Type: core.FetchAll},
		articles: []core.Article{},
		view:     view.NewState(),
		editor:   view.NewRateEditor(),
	}
}

func (s *Session) ID() string { return s.id }

// FetchResult describes the outcome of one Refresh.
type FetchResult struct {
	Seq     uint64
	Applied bool
	Err     error
}

// Refresh fetches articles for the current filter. A failure replaces the
// article list with an empty one and records the message for display; a
// result that was superseded by a newer fetch is dropped.
func (s *Session) Refresh(ctx context.Context, f news.Fetcher) FetchResult {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	filter := s.filter
	s.loading = true
	s.mu.Unlock()

	articles, err := f.FetchArticles(ctx, filter)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		s.logger.LogFetch(ctx, s.id, seq, filter.Key(), len(articles), errStale)
		return FetchResult{Seq: seq, Err: err}
	}
	s.loading = false
	s.fetchedAt = time.Now()
	if err != nil {
		s.articles = []core.Article{}
		s.fetchErr = fetchMessage(err)
	} else {
		if articles == nil {
			articles = []core.Article{}
		}
		s.articles = articles
		s.fetchErr = ""
	}
	s.logger.LogFetch(ctx, s.id, seq, filter.Key(), len(s.articles), err)
	return FetchResult{Seq: seq, Applied: true, Err: err}
}

var errStale = errors.New("superseded by a newer fetch")

func fetchMessage(err error) string {
	var fe *core.FetchError
	if errors.As(err, &fe) {
		return fe.Message()
	}
	return "Failed to fetch news"
}

// EnsureLoaded runs the first fetch of a new session.
func (s *Session) EnsureLoaded(ctx context.Context, f news.Fetcher) {
	s.mu.Lock()
	started := s.seq > 0
	s.mu.Unlock()
	if !started {
		s.Refresh(ctx, f)
	}
}

// SetFilter validates and stores filter, then refetches.
func (s *Session) SetFilter(ctx context.Context, filter core.FetchFilter, f news.Fetcher) (FetchResult, error) {
	filter = filter.Normalized()
	if err := filter.Validate(); err != nil {
		return FetchResult{}, err
	}
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	return s.Refresh(ctx, f), nil
}

func (s *Session) Filter() core.FetchFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Articles returns a copy of the current article list.
func (s *Session) Articles() []core.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Article(nil), s.articles...)
}

// Stats aggregates the complete author set, ignoring table filters.
func (s *Session) Stats(rates core.PayoutRates) []core.AuthorStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return analytics.AuthorStats(s.articles, rates)
}

// View runs fn with exclusive access to the table state.
func (s *Session) View(fn func(v *view.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.view)
}

// Editor runs fn with exclusive access to the rate editor.
func (s *Session) Editor(fn func(e *view.RateEditor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.editor)
}

type EditorSnapshot struct {
	Phase view.EditPhase    `json:"phase"`
	Draft *core.PayoutRates `json:"draft,omitempty"`
}

// Snapshot is everything the dashboard renders.
type Snapshot struct {
	Summary   analytics.Summary `json:"summary"`
	Table     view.Table        `json:"table"`
	View      view.State        `json:"view"`
	Filter    core.FetchFilter  `json:"filter"`
	Rates     core.PayoutRates  `json:"rates"`
	Editor    EditorSnapshot    `json:"editor"`
	Loading   bool              `json:"loading"`
	Error     string            `json:"error,omitempty"`
	FetchSeq  uint64            `json:"fetchSeq"`
	FetchedAt time.Time         `json:"fetchedAt"`
}

// Snapshot recomputes every aggregate from the current articles and rates.
func (s *Session) Snapshot(rates core.PayoutRates, loc *time.Location) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := analytics.Summarize(s.articles, rates, loc)
	table := s.view.Apply(summary.Authors)
	ed := EditorSnapshot{Phase: s.editor.Phase()}
	if d, ok := s.editor.Draft(); ok {
		ed.Draft = &d
	}
	return Snapshot{
		Summary:   summary,
		Table:     table,
		View:      *s.view,
		Filter:    s.filter,
		Rates:     rates,
		Editor:    ed,
		Loading:   s.loading,
		Error:     s.fetchErr,
		FetchSeq:  s.seq,
		FetchedAt: s.fetchedAt,
	}
}
