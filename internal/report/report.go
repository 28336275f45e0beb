// Package report renders the payout report as CSV, PDF, or a plain text
// table. A report always covers the complete author set, independent of the
// table filters of the session that requested it.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"payboard/internal/analytics"
	"payboard/internal/core"
)

type Format string

const (
	CSV  Format = "csv"
	PDF  Format = "pdf"
	Text Format = "text"
)

// BaseFilename is shared by every export format.
const BaseFilename = "payout-report"

var header = []string{"Author", "Articles", "Payout"}

const totalLabel = "Total"

// Report is an immutable snapshot of author rows and their totals.
type Report struct {
	Rows        []core.AuthorStat
	Totals      core.Totals
	GeneratedAt time.Time
}

// New builds a report from stats, computing totals over every row.
func New(stats []core.AuthorStat) Report {
	rows := make([]core.AuthorStat, len(stats))
	copy(rows, stats)
	return Report{
		Rows:        rows,
		Totals:      analytics.TotalsOf(rows),
		GeneratedAt: time.Now().UTC(),
	}
}

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case CSV:
		return CSV, nil
	case PDF:
		return PDF, nil
	case Text, "txt":
		return Text, nil
	default:
		return "", fmt.Errorf("%q: %w", s, core.ErrUnknownFormat)
	}
}

func (f Format) Extension() string {
	if f == Text {
		return "txt"
	}
	return string(f)
}

// Filename is the fixed download name for the format.
func Filename(f Format) string {
	return BaseFilename + "." + f.Extension()
}

func ContentType(f Format) string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case PDF:
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Export renders rep into a buffer and copies it to w only when rendering
// succeeded, so a failed export never leaves a partial artifact behind. Every
// failure, including a panic inside a renderer, comes back as
// *core.ExportError.
func Export(w io.Writer, f Format, rep Report) error {
	return ExportWith(w, f, rep, Options{})
}

// Options tune rendering without changing report content.
type Options struct {
	// PDFFontFile is a UTF-8 TrueType font for PDF output. Empty means the
	// built-in Helvetica, which covers cp1252 only.
	PDFFontFile string
}

// ExportWith is Export with rendering options.
func ExportWith(w io.Writer, f Format, rep Report, opts Options) (err error) {
	var buf bytes.Buffer
	defer func() {
		if r := recover(); r != nil {
			err = &core.ExportError{Format: string(f), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	switch f {
	case CSV:
		err = WriteCSV(&buf, rep)
	case PDF:
		err = WritePDFWithFont(&buf, rep, opts.PDFFontFile)
	case Text:
		err = WriteText(&buf, rep)
	default:
		err = core.ErrUnknownFormat
	}
	if err != nil {
		return &core.ExportError{Format: string(f), Err: err}
	}
	if _, err := buf.WriteTo(w); err != nil {
		return &core.ExportError{Format: string(f), Err: err}
	}
	return nil
}

// SheetRows converts rep into spreadsheet rows of Author, Articles, Payout,
// Date. The date is the export day formatted as YYYY-MM-DD.
func SheetRows(rep Report, date time.Time) [][]any {
	day := date.Format("2006-01-02")
	rows := make([][]any, 0, len(rep.Rows))
	for _, r := range rep.Rows {
		rows = append(rows, []any{r.Author, r.ArticleCount, r.PayoutTotal, day})
	}
	return rows
}

// SheetHeader is written above the first appended rows of an empty sheet.
func SheetHeader() []any {
	return []any{"Author", "Articles", "Payout", "Date"}
}
