// Package view holds the per-session table state (sort, search, range
// filters, pagination) and the payout rate edit flow.
package view

import (
	"sort"
	"strconv"
	"strings"

	"payboard/internal/analytics"
	"payboard/internal/core"
)

type SortKey string

const (
	SortNone     SortKey = "none"
	SortAuthor   SortKey = "author"
	SortArticles SortKey = "articles"
	SortPayout   SortKey = "payout"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// PageSizes lists the accepted rows-per-page values.
var PageSizes = []int{5, 10, 25}

const DefaultPageSize = 5

// ParseSortKey maps a column name to a SortKey.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.TrimSpace(s) {
	case "author":
		return SortAuthor, nil
	case "articles", "articleCount":
		return SortArticles, nil
	case "payout", "payoutTotal":
		return SortPayout, nil
	case "", "none":
		return SortNone, nil
	default:
		return SortNone, core.ErrInvalidSortKey
	}
}

// RangeFilter bounds the article count and payout columns. A nil bound is
// unset.
type RangeFilter struct {
	MinArticles *int     `json:"minArticles,omitempty"`
	MaxArticles *int     `json:"maxArticles,omitempty"`
	MinPayout   *float64 `json:"minPayout,omitempty"`
	MaxPayout   *float64 `json:"maxPayout,omitempty"`
}

func (r RangeFilter) Equal(o RangeFilter) bool {
	return eqInt(r.MinArticles, o.MinArticles) && eqInt(r.MaxArticles, o.MaxArticles) &&
		eqFloat(r.MinPayout, o.MinPayout) && eqFloat(r.MaxPayout, o.MaxPayout)
}

func (r RangeFilter) admits(s core.AuthorStat) bool {
	if r.MinArticles != nil && s.ArticleCount < *r.MinArticles {
		return false
	}
	if r.MaxArticles != nil && s.ArticleCount > *r.MaxArticles {
		return false
	}
	if r.MinPayout != nil && s.PayoutTotal < *r.MinPayout {
		return false
	}
	if r.MaxPayout != nil && s.PayoutTotal > *r.MaxPayout {
		return false
	}
	return true
}

func eqInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// State is the table view of one dashboard session.
type State struct {
	SortKey   SortKey     `json:"sortKey"`
	Direction Direction   `json:"direction"`
	Query     string      `json:"query"`
	Ranges    RangeFilter `json:"ranges"`
	Page      int         `json:"page"`
	PageSize  int         `json:"pageSize"`
}

func NewState() *State {
	return &State{SortKey: SortNone, Direction: Asc, PageSize: DefaultPageSize}
}

// Table is one rendered page of author rows.
type Table struct {
	Rows      []core.AuthorStat `json:"rows"`
	Filtered  int               `json:"filtered"`
	Page      int               `json:"page"`
	PageSize  int               `json:"pageSize"`
	PageCount int               `json:"pageCount"`
	Totals    core.Totals       `json:"totals"`
}

// ToggleSort activates key ascending, or flips the direction when key is
// already active.
func (s *State) ToggleSort(key SortKey) {
	if key == SortNone {
		s.SortKey = SortNone
		s.Direction = Asc
		return
	}
	if s.SortKey == key {
		if s.Direction == Asc {
			s.Direction = Desc
		} else {
			s.Direction = Asc
		}
		return
	}
	s.SortKey = key
	s.Direction = Asc
}

func (s *State) SetQuery(q string) {
	if q == s.Query {
		return
	}
	s.Query = q
	s.Page = 0
}

func (s *State) SetRanges(r RangeFilter) {
	if r.Equal(s.Ranges) {
		return
	}
	s.Ranges = r
	s.Page = 0
}

// SetPage stores p; the upper bound is enforced by Apply.
func (s *State) SetPage(p int) {
	if p < 0 {
		p = 0
	}
	s.Page = p
}

func (s *State) SetPageSize(n int) error {
	if !validPageSize(n) {
		return core.ErrInvalidPageSize
	}
	s.PageSize = n
	s.Page = 0
	return nil
}

func validPageSize(n int) bool {
	for _, v := range PageSizes {
		if v == n {
			return true
		}
	}
	return false
}

// Matches reports whether row passes the search text and every set range
// bound.
func (s *State) Matches(row core.AuthorStat) bool {
	if !s.Ranges.admits(row) {
		return false
	}
	q := strings.ToLower(s.Query)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(row.Author), q) ||
		strings.Contains(strconv.Itoa(row.ArticleCount), q) ||
		strings.Contains(core.FormatNumber(row.PayoutTotal), q)
}

// Sorted returns the filtered rows in display order, without paginating.
func (s *State) Sorted(stats []core.AuthorStat) []core.AuthorStat {
	rows := make([]core.AuthorStat, 0, len(stats))
	for _, st := range stats {
		if s.Matches(st) {
			rows = append(rows, st)
		}
	}
	less := s.less()
	if less == nil {
		return rows
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	// Descending is the exact reverse of ascending, ties included.
	if s.Direction == Desc {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	return rows
}

func (s *State) less() func(a, b core.AuthorStat) bool {
	switch s.SortKey {
	case SortAuthor:
		return func(a, b core.AuthorStat) bool { return a.Author < b.Author }
	case SortArticles:
		return func(a, b core.AuthorStat) bool { return a.ArticleCount < b.ArticleCount }
	case SortPayout:
		return func(a, b core.AuthorStat) bool { return a.PayoutTotal < b.PayoutTotal }
	default:
		return nil
	}
}

// Apply filters, sorts and paginates stats. The page is clamped into range
// and written back to the state.
func (s *State) Apply(stats []core.AuthorStat) Table {
	if !validPageSize(s.PageSize) {
		s.PageSize = DefaultPageSize
	}
	rows := s.Sorted(stats)
	n := len(rows)

	pageCount := (n + s.PageSize - 1) / s.PageSize
	if s.Page < 0 {
		s.Page = 0
	}
	if n == 0 {
		s.Page = 0
	} else if s.Page >= pageCount {
		s.Page = pageCount - 1
	}

	start := s.Page * s.PageSize
	end := start + s.PageSize
	if end > n {
		end = n
	}
	page := make([]core.AuthorStat, end-start)
	copy(page, rows[start:end])

	return Table{
		Rows:      page,
		Filtered:  n,
		Page:      s.Page,
		PageSize:  s.PageSize,
		PageCount: pageCount,
		Totals:    analytics.TotalsOf(rows),
	}
}
