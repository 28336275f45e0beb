// Package analytics derives per-author payouts, top-N distributions and
// daily trends from a list of articles.
//
// Every function is pure: results are recomputed from the inputs on each call
// and nothing is cached between calls.
package analytics

import (
	"sort"
	"time"

	"payboard/internal/core"
)

// DefaultTopN is the size of the author and source distribution charts.
const DefaultTopN = 5

// Summary bundles everything the dashboard renders from one article list.
type Summary struct {
	Authors     []core.AuthorStat      `json:"authors"`
	TopAuthors  []core.NamedCount      `json:"topAuthors"`
	TopSources  []core.NamedCount      `json:"topSources"`
	Trend       []core.DailyTrendPoint `json:"trend"`
	Totals      core.Totals            `json:"totals"`
	TrendTotals core.Totals            `json:"trendTotals"`
}

// AuthorStats groups articles by author in a single pass. Articles without an
// author are grouped under core.UnknownName. Rows come out in the order each
// author was first seen.
func AuthorStats(articles []core.Article, rates core.PayoutRates) []core.AuthorStat {
	out := make([]core.AuthorStat, 0)
	index := make(map[string]int)
	for _, a := range articles {
		name := a.AuthorName()
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, core.AuthorStat{Author: name})
		}
		out[i].ArticleCount++
		out[i].PayoutTotal += rates.RateFor(a.Kind())
	}
	return out
}

// AuthorCounts counts articles per author, in first-seen order.
func AuthorCounts(articles []core.Article) []core.NamedCount {
	return countBy(articles, core.Article.AuthorName)
}

// SourceCounts counts articles per source name, in first-seen order.
func SourceCounts(articles []core.Article) []core.NamedCount {
	return countBy(articles, core.Article.SourceName)
}

func countBy(articles []core.Article, key func(core.Article) string) []core.NamedCount {
	out := make([]core.NamedCount, 0)
	index := make(map[string]int)
	for _, a := range articles {
		name := key(a)
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, core.NamedCount{Name: name})
		}
		out[i].Value++
	}
	return out
}

// TopN returns the n largest counts, largest first. Ties keep their input
// order. The input slice is not modified.
func TopN(counts []core.NamedCount, n int) []core.NamedCount {
	if n < 0 {
		n = 0
	}
	sorted := make([]core.NamedCount, len(counts))
	copy(sorted, counts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func TopAuthors(articles []core.Article) []core.NamedCount {
	return TopN(AuthorCounts(articles), DefaultTopN)
}

func TopSources(articles []core.Article) []core.NamedCount {
	return TopN(SourceCounts(articles), DefaultTopN)
}

// DailyTrend buckets articles by calendar day of their publication time in
// loc (UTC when nil). Articles with a missing or unparseable publishedAt are
// skipped. Points are ordered by date ascending.
func DailyTrend(articles []core.Article, rates core.PayoutRates, loc *time.Location) []core.DailyTrendPoint {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]core.DailyTrendPoint, 0)
	index := make(map[string]int)
	for _, a := range articles {
		ts, ok := a.Published()
		if !ok {
			continue
		}
		local := ts.In(loc)
		day := local.Format("2006-01-02")
		i, seen := index[day]
		if !seen {
			i = len(out)
			index[day] = i
			y, m, d := local.Date()
			out = append(out, core.DailyTrendPoint{Date: time.Date(y, m, d, 0, 0, 0, 0, loc)})
		}
		out[i].ArticleCount++
		out[i].PayoutTotal += rates.RateFor(a.Kind())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// TotalsOf sums article counts and payouts over rows in order.
func TotalsOf(stats []core.AuthorStat) core.Totals {
	var t core.Totals
	for _, s := range stats {
		t.Articles += s.ArticleCount
		t.Payout += s.PayoutTotal
	}
	return t
}

// TrendTotalsOf sums the trend buckets. It differs from TotalsOf when some
// articles had no usable publication date.
func TrendTotalsOf(points []core.DailyTrendPoint) core.Totals {
	var t core.Totals
	for _, p := range points {
		t.Articles += p.ArticleCount
		t.Payout += p.PayoutTotal
	}
	return t
}

// Summarize computes every dashboard aggregate for articles.
func Summarize(articles []core.Article, rates core.PayoutRates, loc *time.Location) Summary {
	authors := AuthorStats(articles, rates)
	trend := DailyTrend(articles, rates, loc)
	return Summary{
		Authors:     authors,
		TopAuthors:  TopAuthors(articles),
		TopSources:  TopSources(articles),
		Trend:       trend,
		Totals:      TotalsOf(authors),
		TrendTotals: TrendTotalsOf(trend),
	}
}
