// Package worker handles queued spreadsheet exports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"payboard/internal/amqp"
	"payboard/internal/analytics"
	"payboard/internal/core"
	"payboard/internal/log"
	"payboard/internal/news"
	"payboard/internal/report"
	"payboard/internal/settings"
	"payboard/internal/sheets"
)

// Consumer delivers queued messages to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, h amqp.Handler) error
}

// ExportWorker rebuilds payout reports from fresh articles and the shared
// rate record, and appends them to the spreadsheet.
type ExportWorker struct {
	articles news.Fetcher
	rates    settings.Store
	reports  sheets.ReportAppender
	audit    sheets.AuditAppender
	now      func() time.Time
	logger   *log.Logger
}

var _ amqp.Handler = (*ExportWorker)(nil)

func NewExportWorker(articles news.Fetcher, rates settings.Store, reports sheets.ReportAppender, audit sheets.AuditAppender, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		articles: articles,
		rates:    rates,
		reports:  reports,
		audit:    audit,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes messages until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Export worker started", log.FieldOperation, log.OpStartup)
	err := c.Consume(ctx, w)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleReportExport fetches the articles and the rates concurrently, then
// appends the aggregated report. An invalid filter is logged and acked.
func (w *ExportWorker) HandleReportExport(ctx context.Context, msg *amqp.ReportExportMessage) error {
	filter := msg.Filter.Normalized()
	if err := filter.Validate(); err != nil {
		w.logger.WarnContext(ctx, "Skipping export with invalid filter",
			log.FieldMessageID, msg.ID,
			log.FieldFilterKey, filter.Key(),
			log.FieldError, err.Error())
		return nil
	}
	if w.reports == nil {
		return core.ErrSheetsDisabled
	}

	var (
		articles []core.Article
		rates    core.PayoutRates
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		articles, err = w.articles.FetchArticles(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		rates, err = w.rates.Read(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("prepare export %s: %w", msg.ID, err)
	}

	rep := report.New(analytics.AuthorStats(articles, rates))
	rows := report.SheetRows(rep, w.now())
	ref, err := w.reports.AppendReport(ctx, rows)
	if err != nil {
		return fmt.Errorf("append export %s: %w", msg.ID, err)
	}

	w.logger.InfoContext(ctx, "Report exported to spreadsheet",
		log.FieldOperation, log.OpExport,
		log.FieldMessageID, msg.ID,
		log.FieldFilterKey, filter.Key(),
		log.FieldRows, len(rows),
		log.FieldSheetsRef, ref)
	return nil
}

// HandleRatesChanged appends the change to the audit sheet.
func (w *ExportWorker) HandleRatesChanged(ctx context.Context, msg *amqp.RatesChangedMessage) error {
	rates := msg.Rates()
	if err := rates.Validate(); err != nil {
		w.logger.WarnContext(ctx, "Skipping invalid rate change",
			log.FieldMessageID, msg.ID,
			log.FieldError, err.Error())
		return nil
	}
	if w.audit == nil {
		return nil
	}
	ref, err := w.audit.AppendRateChange(ctx, rates, msg.ChangedAt)
	if err != nil {
		return fmt.Errorf("append rate change %s: %w", msg.ID, err)
	}
	w.logger.InfoContext(ctx, "Rate change recorded",
		log.FieldMessageID, msg.ID,
		log.FieldRateNews, rates.News,
		log.FieldRateBlog, rates.Blog,
		log.FieldSheetsRef, ref)
	return nil
}
