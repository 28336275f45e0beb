package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"payboard/internal/core"
)

// WriteCSV writes the header, one record per author, and a closing Total
// record. Records are separated by "\n" with no newline after the last one.
func WriteCSV(w io.Writer, rep Report) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	records := make([][]string, 0, len(rep.Rows)+2)
	records = append(records, header)
	for _, r := range rep.Rows {
		records = append(records, []string{r.Author, strconv.Itoa(r.ArticleCount), core.FormatDollars(r.PayoutTotal)})
	}
	records = append(records, []string{totalLabel, strconv.Itoa(rep.Totals.Articles), core.FormatDollars(rep.Totals.Payout)})
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	_, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return err
}

// ParseCSV reads a report written by WriteCSV back into author rows and the
// totals of its Total record.
func ParseCSV(r io.Reader) ([]core.AuthorStat, core.Totals, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, core.Totals{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, core.Totals{}, errors.New("read csv: missing header or total record")
	}
	for i, h := range header {
		if records[0][i] != h {
			return nil, core.Totals{}, fmt.Errorf("read csv: unexpected header %q", records[0])
		}
	}

	body := records[1 : len(records)-1]
	rows := make([]core.AuthorStat, 0, len(body))
	for i, rec := range body {
		count, payout, err := parseCounts(rec)
		if err != nil {
			return nil, core.Totals{}, fmt.Errorf("read csv: record %d: %w", i+2, err)
		}
		rows = append(rows, core.AuthorStat{Author: rec[0], ArticleCount: count, PayoutTotal: payout})
	}

	last := records[len(records)-1]
	if last[0] != totalLabel {
		return nil, core.Totals{}, fmt.Errorf("read csv: last record is %q, want %s", last[0], totalLabel)
	}
	count, payout, err := parseCounts(last)
	if err != nil {
		return nil, core.Totals{}, fmt.Errorf("read csv: total record: %w", err)
	}
	return rows, core.Totals{Articles: count, Payout: payout}, nil
}

func parseCounts(rec []string) (int, float64, error) {
	count, err := strconv.Atoi(strings.TrimSpace(rec[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("articles %q: %w", rec[1], err)
	}
	payout, err := core.ParseAmount(rec[2])
	if err != nil {
		return 0, 0, fmt.Errorf("payout %q: %w", rec[2], err)
	}
	return count, payout, nil
}
