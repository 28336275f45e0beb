package view

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"payboard/internal/core"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func scenarioStats() []core.AuthorStat {
	return []core.AuthorStat{
		{Author: "A", ArticleCount: 2, PayoutTotal: 20},
		{Author: core.UnknownName, ArticleCount: 1, PayoutTotal: 15},
	}
}

func manyStats(n int) []core.AuthorStat {
	out := make([]core.AuthorStat, n)
	for i := range out {
		out[i] = core.AuthorStat{
			Author:       fmt.Sprintf("author-%02d", i),
			ArticleCount: (i * 7) % 5,
			PayoutTotal:  float64((i*3)%11) * 2.5,
		}
	}
	return out
}

func TestMinArticlesExcludesUnknown(t *testing.T) {
	s := NewState()
	s.SetRanges(RangeFilter{MinArticles: intp(2)})
	tbl := s.Apply(scenarioStats())
	if tbl.Filtered != 1 || len(tbl.Rows) != 1 || tbl.Rows[0].Author != "A" {
		t.Fatalf("unexpected rows: %+v", tbl.Rows)
	}
	if tbl.Totals != (core.Totals{Articles: 2, Payout: 20}) {
		t.Fatalf("unexpected filtered totals: %+v", tbl.Totals)
	}
}

func TestEmptyTable(t *testing.T) {
	s := NewState()
	s.SetPage(3)
	tbl := s.Apply(nil)
	if len(tbl.Rows) != 0 || tbl.Filtered != 0 || tbl.Page != 0 || tbl.PageCount != 0 {
		t.Fatalf("unexpected table: %+v", tbl)
	}
	if tbl.Totals != (core.Totals{}) {
		t.Fatalf("expected zero totals, got %+v", tbl.Totals)
	}
}

func TestToggleSortTwiceRestoresAscending(t *testing.T) {
	stats := manyStats(12)
	s := NewState()
	if err := s.SetPageSize(25); err != nil {
		t.Fatal(err)
	}
	s.ToggleSort(SortArticles)
	before := s.Apply(stats).Rows
	s.ToggleSort(SortArticles)
	if s.Direction != Desc {
		t.Fatalf("expected desc after second toggle")
	}
	s.ToggleSort(SortArticles)
	after := s.Apply(stats).Rows
	if s.Direction != Asc || !reflect.DeepEqual(before, after) {
		t.Fatalf("ascending order not restored")
	}
}

func TestToggleNewKeyStartsAscending(t *testing.T) {
	s := NewState()
	s.ToggleSort(SortPayout)
	s.ToggleSort(SortPayout)
	s.ToggleSort(SortAuthor)
	if s.SortKey != SortAuthor || s.Direction != Asc {
		t.Fatalf("unexpected sort state %s/%s", s.SortKey, s.Direction)
	}
}

func TestAscendingReversedEqualsDescending(t *testing.T) {
	stats := manyStats(17)
	for _, key := range []SortKey{SortAuthor, SortArticles, SortPayout} {
		asc := &State{SortKey: key, Direction: Asc, PageSize: 25}
		desc := &State{SortKey: key, Direction: Desc, PageSize: 25}
		a := asc.Sorted(stats)
		d := desc.Sorted(stats)
		for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
			a[i], a[j] = a[j], a[i]
		}
		if !reflect.DeepEqual(a, d) {
			t.Fatalf("key %s: reversed ascending differs from descending", key)
		}
	}
}

func TestNoSortKeepsInputOrder(t *testing.T) {
	stats := manyStats(6)
	s := NewState()
	if err := s.SetPageSize(10); err != nil {
		t.Fatal(err)
	}
	if got := s.Apply(stats).Rows; !reflect.DeepEqual(got, stats) {
		t.Fatalf("expected input order")
	}
}

func TestFilteringIsMonotonic(t *testing.T) {
	stats := manyStats(30)
	count := func(r RangeFilter) int {
		s := NewState()
		s.SetRanges(r)
		return s.Apply(stats).Filtered
	}
	prev := count(RangeFilter{})
	for lo := 0; lo <= 5; lo++ {
		n := count(RangeFilter{MinArticles: intp(lo)})
		if n > prev {
			t.Fatalf("raising minArticles to %d increased rows %d -> %d", lo, prev, n)
		}
		prev = n
	}
	prev = count(RangeFilter{})
	for hi := 30.0; hi >= 0; hi -= 2.5 {
		n := count(RangeFilter{MaxPayout: floatp(hi)})
		if n > prev {
			t.Fatalf("lowering maxPayout to %v increased rows %d -> %d", hi, prev, n)
		}
		prev = n
	}
}

func TestPaginationCoversFilteredSet(t *testing.T) {
	stats := manyStats(23)
	for _, size := range PageSizes {
		s := NewState()
		if err := s.SetPageSize(size); err != nil {
			t.Fatal(err)
		}
		s.ToggleSort(SortPayout)
		full := s.Sorted(stats)
		var joined []core.AuthorStat
		first := s.Apply(stats)
		for p := 0; p < first.PageCount; p++ {
			s.SetPage(p)
			joined = append(joined, s.Apply(stats).Rows...)
		}
		if !reflect.DeepEqual(joined, full) {
			t.Fatalf("size %d: pages do not reproduce the filtered set", size)
		}
	}
}

func TestApplyClampsPage(t *testing.T) {
	stats := manyStats(12)
	s := NewState()
	s.SetPage(99)
	tbl := s.Apply(stats)
	if tbl.Page != 2 || s.Page != 2 || len(tbl.Rows) != 2 {
		t.Fatalf("expected clamp to last page, got page %d with %d rows", tbl.Page, len(tbl.Rows))
	}
	s.SetPage(-4)
	if s.Page != 0 {
		t.Fatalf("expected negative page to become 0")
	}
}

func TestPredicateChangesResetPage(t *testing.T) {
	s := NewState()
	s.SetPage(2)
	s.SetQuery("")
	if s.Page != 2 {
		t.Fatalf("unchanged query should keep page")
	}
	s.SetQuery("auth")
	if s.Page != 0 {
		t.Fatalf("query change should reset page")
	}
	s.SetPage(2)
	s.SetRanges(RangeFilter{})
	if s.Page != 2 {
		t.Fatalf("unchanged ranges should keep page")
	}
	s.SetRanges(RangeFilter{MaxArticles: intp(3)})
	if s.Page != 0 {
		t.Fatalf("range change should reset page")
	}
	s.SetPage(1)
	s.ToggleSort(SortAuthor)
	if s.Page != 1 {
		t.Fatalf("sort toggle should keep page")
	}
}

func TestSetPageSize(t *testing.T) {
	s := NewState()
	s.SetPage(3)
	if err := s.SetPageSize(7); !errors.Is(err, core.ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}
	if s.PageSize != 5 || s.Page != 3 {
		t.Fatalf("rejected size must not change state")
	}
	if err := s.SetPageSize(10); err != nil || s.Page != 0 || s.PageSize != 10 {
		t.Fatalf("unexpected state after size change: %+v (%v)", s, err)
	}
}

func TestMatches(t *testing.T) {
	row := core.AuthorStat{Author: "Jane Doe", ArticleCount: 12, PayoutTotal: 127.5}
	cases := []struct {
		q    string
		want bool
	}{
		{"", true},
		{"jane", true},
		{"DOE", true},
		{"12", true},
		{"127.5", true},
		{"$127", false},
		{"smith", false},
	}
	for _, tc := range cases {
		s := NewState()
		s.SetQuery(tc.q)
		if got := s.Matches(row); got != tc.want {
			t.Fatalf("query %q: expected %v", tc.q, tc.want)
		}
	}
	s := NewState()
	s.SetQuery("jane")
	s.SetRanges(RangeFilter{MinPayout: floatp(200)})
	if s.Matches(row) {
		t.Fatalf("range bounds must be ANDed with the text match")
	}
}

func TestParseSortKey(t *testing.T) {
	cases := map[string]SortKey{
		"author": SortAuthor, "articles": SortArticles, "articleCount": SortArticles,
		"payout": SortPayout, "payoutTotal": SortPayout, "": SortNone,
	}
	for in, want := range cases {
		got, err := ParseSortKey(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %s, %v", in, got, err)
		}
	}
	if _, err := ParseSortKey("date"); !errors.Is(err, core.ErrInvalidSortKey) {
		t.Fatalf("expected ErrInvalidSortKey, got %v", err)
	}
}
