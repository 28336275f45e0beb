package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	News ArticleType = "news"
	Blog ArticleType = "blog"

	FetchAll  FetchType = "all"
	FetchNews FetchType = "news"
	FetchBlog FetchType = "blog"

	// UnknownName replaces a missing author or source name.
	UnknownName = "Unknown"

	// DefaultSearchQuery is sent to the article API when the user left the
	// search box empty.
	DefaultSearchQuery = "technology"
)

type (
	ArticleType string
	FetchType   string

	ArticleSource struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name"`
	}

	// Article is a single news item as returned by the article API.
	Article struct {
		Author      string         `json:"author"`
		Title       string         `json:"title,omitempty"`
		URL         string         `json:"url,omitempty"`
		Source      *ArticleSource `json:"source"`
		PublishedAt string         `json:"publishedAt"`
		Type        string         `json:"type,omitempty"`
	}

	// PayoutRates is the amount credited per article, by article type.
	PayoutRates struct {
		News float64 `json:"news"`
		Blog float64 `json:"blog"`
	}

	AuthorStat struct {
		Author       string  `json:"author"`
		ArticleCount int     `json:"articles"`
		PayoutTotal  float64 `json:"payout"`
	}

	NamedCount struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	DailyTrendPoint struct {
		Date         time.Time `json:"date"`
		ArticleCount int       `json:"articles"`
		PayoutTotal  float64   `json:"payout"`
	}

	Totals struct {
		Articles int     `json:"articles"`
		Payout   float64 `json:"payout"`
	}

	// FetchFilter narrows the article list requested from the article source.
	FetchFilter struct {
		SearchQuery string    `json:"searchQuery"`
		DateFrom    string    `json:"dateFrom"`
		DateTo      string    `json:"dateTo"`
		Type        FetchType `json:"type"`
	}

	// SessionInfo describes an authenticated dashboard session.
	SessionInfo struct {
		ID        string
		Subject   string
		ExpiresAt time.Time
	}
)

// DefaultPayoutRates applies when no rates were ever persisted.
var DefaultPayoutRates = PayoutRates{News: 10, Blog: 15}

var (
	ErrInvalidRate      = errors.New("invalid payout rate")
	ErrInvalidFetchType = errors.New("invalid article type filter")
	ErrInvalidDate      = errors.New("invalid date")
)

// AuthorName returns the author, or UnknownName when missing.
func (a Article) AuthorName() string {
	if name := strings.TrimSpace(a.Author); name != "" {
		return a.Author
	}
	return UnknownName
}

// SourceName returns the source name, or UnknownName when missing.
func (a Article) SourceName() string {
	if a.Source == nil || strings.TrimSpace(a.Source.Name) == "" {
		return UnknownName
	}
	return a.Source.Name
}

// Kind maps the free-form type field onto a payable type. Anything that is
// not a blog is paid as news.
func (a Article) Kind() ArticleType {
	if strings.EqualFold(strings.TrimSpace(a.Type), string(Blog)) {
		return Blog
	}
	return News
}

var publishedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Published parses PublishedAt. The bool is false when the field is empty or
// cannot be parsed.
func (a Article) Published() (time.Time, bool) {
	s := strings.TrimSpace(a.PublishedAt)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RateFor returns the per-article rate for the given type.
func (r PayoutRates) RateFor(kind ArticleType) float64 {
	if kind == Blog {
		return r.Blog
	}
	return r.News
}

func (r PayoutRates) Validate() error {
	for _, v := range []float64{r.News, r.Blog} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return ErrInvalidRate
		}
	}
	return nil
}

func (t FetchType) Validate() error {
	switch t {
	case "", FetchAll, FetchNews, FetchBlog:
		return nil
	default:
		return ErrInvalidFetchType
	}
}

// Includes reports whether an article of the given type passes the filter.
func (t FetchType) Includes(kind ArticleType) bool {
	switch t {
	case FetchNews:
		return kind == News
	case FetchBlog:
		return kind == Blog
	default:
		return true
	}
}

// Normalized fills defaults so equal filters produce equal keys.
func (f FetchFilter) Normalized() FetchFilter {
	f.SearchQuery = strings.TrimSpace(f.SearchQuery)
	f.DateFrom = strings.TrimSpace(f.DateFrom)
	f.DateTo = strings.TrimSpace(f.DateTo)
	if f.Type == "" {
		f.Type = FetchAll
	}
	return f
}

func (f FetchFilter) Validate() error {
	if err := f.Type.Validate(); err != nil {
		return err
	}
	for _, d := range []string{f.DateFrom, f.DateTo} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return ErrInvalidDate
		}
	}
	return nil
}

// Key is a stable cache key for the filter.
func (f FetchFilter) Key() string {
	n := f.Normalized()
	return strings.Join([]string{strings.ToLower(n.SearchQuery), n.DateFrom, n.DateTo, string(n.Type)}, "|")
}

// Expired reports whether the session is past its expiry.
func (s SessionInfo) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
