package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"payboard/internal/core"
	"payboard/internal/sheets/memory"
)

type fakePublisher struct {
	exports []core.FetchFilter
	rates   []core.PayoutRates
	err     error
}

func (p *fakePublisher) PublishReportExport(_ context.Context, f core.FetchFilter) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.exports = append(p.exports, f)
	return "msg-1", nil
}

func (p *fakePublisher) PublishRatesChanged(_ context.Context, r core.PayoutRates) error {
	p.rates = append(p.rates, r)
	return p.err
}

var stats = []core.AuthorStat{
	{Author: "Ann", ArticleCount: 2, PayoutTotal: 20},
	{Author: "Bob", ArticleCount: 1, PayoutTotal: 15},
}

func TestRequestSheetsExportDisabled(t *testing.T) {
	s := NewExportService(nil, nil, nil, nil)
	if s.Enabled() {
		t.Fatal("service without adapters must be disabled")
	}
	if _, err := s.RequestSheetsExport(context.Background(), core.FetchFilter{}, stats); !errors.Is(err, core.ErrSheetsDisabled) {
		t.Fatalf("expected ErrSheetsDisabled, got %v", err)
	}
}

func TestRequestSheetsExportQueues(t *testing.T) {
	pub := &fakePublisher{}
	store := memory.New()
	s := NewExportService(pub, store, store, nil)

	res, err := s.RequestSheetsExport(context.Background(), core.FetchFilter{SearchQuery: "go"}, stats)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Queued || res.Ref != "msg-1" || res.Rows != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(pub.exports) != 1 || len(store.Reports()) != 0 {
		t.Fatal("queued export must not append inline")
	}

	pub.err = errors.New("broker down")
	if _, err := s.RequestSheetsExport(context.Background(), core.FetchFilter{}, stats); !errors.Is(err, pub.err) {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestRequestSheetsExportAppendsInline(t *testing.T) {
	store := memory.New()
	s := NewExportService(nil, store, store, nil)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	res, err := s.RequestSheetsExport(context.Background(), core.FetchFilter{}, stats)
	if err != nil {
		t.Fatal(err)
	}
	if res.Queued || res.Rows != 2 || res.Ref == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	rows := store.Reports()
	if len(rows) != 2 || rows[0][0] != "Ann" || rows[1][3] != "2024-05-01" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestRatesCommitted(t *testing.T) {
	rates := core.PayoutRates{News: 12, Blog: 20}

	pub := &fakePublisher{}
	NewExportService(pub, nil, nil, nil).RatesCommitted(context.Background(), rates)
	if len(pub.rates) != 1 || pub.rates[0] != rates {
		t.Fatalf("expected published rate change, got %v", pub.rates)
	}

	store := memory.New()
	NewExportService(nil, store, store, nil).RatesCommitted(context.Background(), rates)
	if len(store.Audit()) != 1 {
		t.Fatal("expected audit row")
	}

	store.FailWith(errors.New("quota"))
	NewExportService(nil, store, store, nil).RatesCommitted(context.Background(), rates)
	NewExportService(nil, nil, nil, nil).RatesCommitted(context.Background(), rates)
}
