package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"payboard/internal/core"
	"payboard/internal/sheets"
)

// Store keeps appended rows in memory.
type Store struct {
	mu      sync.Mutex
	reports [][]any
	audit   [][]any
	fail    error
}

var (
	_ sheets.ReportAppender = (*Store)(nil)
	_ sheets.AuditAppender  = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// FailWith makes every later append return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// AppendReport stores the rows and returns a synthetic range reference.
func (s *Store) AppendReport(_ context.Context, rows [][]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	first := len(s.reports) + 1
	s.reports = append(s.reports, copyRows(rows)...)
	return fmt.Sprintf("mem:report:%d-%d", first, len(s.reports)), nil
}

func (s *Store) AppendRateChange(_ context.Context, rates core.PayoutRates, at time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.audit = append(s.audit, sheets.AuditRow(rates, at))
	return fmt.Sprintf("mem:audit:%d", len(s.audit)), nil
}

// Reports returns a copy of every appended report row.
func (s *Store) Reports() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRows(s.reports)
}

func (s *Store) Audit() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRows(s.audit)
}

func copyRows(in [][]any) [][]any {
	out := make([][]any, len(in))
	for i, r := range in {
		out[i] = append([]any(nil), r...)
	}
	return out
}
