package sheets

import (
	"context"
	"time"

	"payboard/internal/core"
)

// Ports for outbound spreadsheet adapters.
type (
	// ReportAppender appends payout report rows below the existing ones and
	// returns a reference to the written range.
	ReportAppender interface {
		AppendReport(ctx context.Context, rows [][]any) (ref string, err error)
	}

	// AuditAppender records confirmed payout rate changes.
	AuditAppender interface {
		AppendRateChange(ctx context.Context, rates core.PayoutRates, at time.Time) (ref string, err error)
	}
)

// AuditRow is the spreadsheet row for a rate change.
func AuditRow(rates core.PayoutRates, at time.Time) []any {
	return []any{at.UTC().Format(time.RFC3339), rates.News, rates.Blog}
}

// AuditHeader is written above the first audit row of an empty sheet.
func AuditHeader() []any {
	return []any{"Changed At", "News Rate", "Blog Rate"}
}
