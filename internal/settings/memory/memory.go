package memory

import (
	"context"
	"errors"
	"sync"

	"payboard/internal/core"
	"payboard/internal/log"
	"payboard/internal/settings"
)

// Store keeps the encoded settings record in process memory.
type Store struct {
	mu     sync.RWMutex
	raw    []byte
	logger *log.Logger
}

var _ settings.Store = (*Store)(nil)

func New(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{logger: logger.WithComponent(log.ComponentSettings)}
}

// SetRaw replaces the stored record bytes verbatim, bypassing validation.
func (s *Store) SetRaw(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = append([]byte(nil), raw...)
}

func (s *Store) Read(ctx context.Context) (core.PayoutRates, error) {
	s.mu.RLock()
	raw := s.raw
	s.mu.RUnlock()
	if raw == nil {
		return core.DefaultPayoutRates, nil
	}
	r, err := settings.DecodeRecord(raw)
	if err != nil {
		var perr *core.ConfigParseError
		if errors.As(err, &perr) {
			s.logger.WarnContext(ctx, "Stored payout rates unreadable, using defaults",
				log.FieldError, perr.Error())
			return core.DefaultPayoutRates, nil
		}
		return core.PayoutRates{}, err
	}
	return r, nil
}

// Write swaps the whole record under the lock.
func (s *Store) Write(_ context.Context, rates core.PayoutRates) error {
	raw, err := settings.EncodeRecord(rates)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
	return nil
}
