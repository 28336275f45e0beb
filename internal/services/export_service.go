// Package services coordinates spreadsheet exports across the queue and the
// spreadsheet adapters.
package services

import (
	"context"
	"fmt"
	"time"

	"payboard/internal/amqp"
	"payboard/internal/core"
	"payboard/internal/log"
	"payboard/internal/report"
	"payboard/internal/sheets"
)

// ExportResult describes an accepted spreadsheet export.
type ExportResult struct {
	// Queued is true when the export was handed to the worker.
	Queued bool   `json:"queued"`
	Ref    string `json:"ref"`
	Rows   int    `json:"rows"`
}

// ExportService sends payout reports to the spreadsheet. With a publisher
// the work is queued for the worker; otherwise rows are appended inline.
type ExportService struct {
	publisher amqp.Publisher
	reports   sheets.ReportAppender
	audit     sheets.AuditAppender
	now       func() time.Time
	logger    *log.Logger
}

func NewExportService(publisher amqp.Publisher, reports sheets.ReportAppender, audit sheets.AuditAppender, logger *log.Logger) *ExportService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportService{
		publisher: publisher,
		reports:   reports,
		audit:     audit,
		now:       time.Now,
		logger:    logger.WithComponent(log.ComponentSheets),
	}
}

// Enabled reports whether any export path is configured.
func (s *ExportService) Enabled() bool {
	return s != nil && (s.publisher != nil || s.reports != nil)
}

// RequestSheetsExport exports stats, the author statistics for filter.
func (s *ExportService) RequestSheetsExport(ctx context.Context, filter core.FetchFilter, stats []core.AuthorStat) (ExportResult, error) {
	if !s.Enabled() {
		return ExportResult{}, core.ErrSheetsDisabled
	}

	if s.publisher != nil {
		id, err := s.publisher.PublishReportExport(ctx, filter)
		if err != nil {
			return ExportResult{}, fmt.Errorf("queue sheets export: %w", err)
		}
		return ExportResult{Queued: true, Ref: id, Rows: len(stats)}, nil
	}

	rows := report.SheetRows(report.New(stats), s.now())
	ref, err := s.reports.AppendReport(ctx, rows)
	if err != nil {
		return ExportResult{}, fmt.Errorf("append sheets export: %w", err)
	}
	return ExportResult{Ref: ref, Rows: len(rows)}, nil
}

// RatesCommitted records a rate change. It is registered as a settings
// commit hook, so failures are logged and never undo the commit.
func (s *ExportService) RatesCommitted(ctx context.Context, rates core.PayoutRates) {
	var err error
	switch {
	case s.publisher != nil:
		err = s.publisher.PublishRatesChanged(ctx, rates)
	case s.audit != nil:
		_, err = s.audit.AppendRateChange(ctx, rates, s.now())
	default:
		return
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to record rate change",
			log.FieldError, err.Error(),
			log.FieldRateNews, rates.News,
			log.FieldRateBlog, rates.Blog)
	}
}
