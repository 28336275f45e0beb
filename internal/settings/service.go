// Package settings owns the live payout rates and their persistence.
package settings

import (
	"context"
	"fmt"
	"sync"

	"payboard/internal/core"
	"payboard/internal/log"
)

// CommitHook runs after new rates were persisted and activated.
type CommitHook func(ctx context.Context, rates core.PayoutRates)

// Service is the single owner of the live payout rates. Readers get a copy
// through Current; the value only changes through Commit.
type Service struct {
	store  Store
	logger *log.Logger

	mu      sync.RWMutex
	current core.PayoutRates
	hooks   []CommitHook
}

func NewService(store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		store:   store,
		logger:  logger.WithComponent(log.ComponentSettings),
		current: core.DefaultPayoutRates,
	}
}

// Load reads the persisted rates. On error the live value falls back to the
// defaults and the error is returned for the caller to log.
func (s *Service) Load(ctx context.Context) error {
	r, err := s.store.Read(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.current = core.DefaultPayoutRates
		return fmt.Errorf("load payout rates: %w", err)
	}
	s.current = r
	return nil
}

func (s *Service) Current() core.PayoutRates {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// OnCommit registers a hook run after every successful Commit.
func (s *Service) OnCommit(h CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Commit validates and persists rates, then makes them live. A failed write
// leaves the live value unchanged.
func (s *Service) Commit(ctx context.Context, rates core.PayoutRates) error {
	if err := rates.Validate(); err != nil {
		return err
	}
	if err := s.store.Write(ctx, rates); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist payout rates",
			log.FieldOperation, log.OpWrite,
			log.FieldError, err.Error())
		return fmt.Errorf("persist payout rates: %w", err)
	}

	s.mu.Lock()
	s.current = rates
	hooks := append([]CommitHook(nil), s.hooks...)
	s.mu.Unlock()

	for _, h := range hooks {
		h(ctx, rates)
	}
	return nil
}

// Ping reports store health when the store supports it.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
