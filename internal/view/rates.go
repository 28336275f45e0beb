package view

import (
	"context"
	"fmt"

	"payboard/internal/core"
)

type EditPhase string

const (
	Viewing        EditPhase = "viewing"
	Editing        EditPhase = "editing"
	ConfirmPending EditPhase = "confirm_pending"
)

// RateCommitter persists and activates a new set of payout rates.
type RateCommitter interface {
	Commit(ctx context.Context, rates core.PayoutRates) error
}

// RateEditor drives the edit, save, confirm flow for payout rates. The draft
// only exists outside the Viewing phase and is never the live value.
type RateEditor struct {
	phase EditPhase
	draft core.PayoutRates
}

func NewRateEditor() *RateEditor {
	return &RateEditor{phase: Viewing}
}

func (e *RateEditor) Phase() EditPhase {
	if e.phase == "" {
		return Viewing
	}
	return e.phase
}

// Draft returns the pending rates and whether a draft exists.
func (e *RateEditor) Draft() (core.PayoutRates, bool) {
	if e.Phase() == Viewing {
		return core.PayoutRates{}, false
	}
	return e.draft, true
}

// Begin starts editing from a copy of current.
func (e *RateEditor) Begin(current core.PayoutRates) error {
	if e.Phase() != Viewing {
		return transitionErr(e.Phase(), Editing)
	}
	e.draft = current
	e.phase = Editing
	return nil
}

func (e *RateEditor) SetDraft(r core.PayoutRates) error {
	if e.Phase() != Editing {
		return fmt.Errorf("set draft while %s: %w", e.Phase(), core.ErrInvalidTransition)
	}
	e.draft = r
	return nil
}

// Save validates the draft and asks for confirmation. Nothing is persisted.
func (e *RateEditor) Save() error {
	if e.Phase() != Editing {
		return transitionErr(e.Phase(), ConfirmPending)
	}
	if err := e.draft.Validate(); err != nil {
		return err
	}
	e.phase = ConfirmPending
	return nil
}

// Confirm commits the draft. On failure the editor stays in ConfirmPending
// with the draft intact so the user can retry or cancel.
func (e *RateEditor) Confirm(ctx context.Context, c RateCommitter) (core.PayoutRates, error) {
	if e.Phase() != ConfirmPending {
		return core.PayoutRates{}, transitionErr(e.Phase(), Viewing)
	}
	rates := e.draft
	if err := c.Commit(ctx, rates); err != nil {
		return core.PayoutRates{}, err
	}
	e.draft = core.PayoutRates{}
	e.phase = Viewing
	return rates, nil
}

// Cancel discards the draft.
func (e *RateEditor) Cancel() error {
	if e.Phase() == Viewing {
		return transitionErr(Viewing, Viewing)
	}
	e.draft = core.PayoutRates{}
	e.phase = Viewing
	return nil
}

func transitionErr(from, to EditPhase) error {
	return fmt.Errorf("%s -> %s: %w", from, to, core.ErrInvalidTransition)
}
