package http

import (
	"errors"
	"net/http"

	"payboard/internal/core"
	"payboard/internal/view"
	"payboard/internal/webutil"
)

// rateEditError maps rate editor failures to client errors.
func rateEditError(err error) error {
	switch {
	case errors.Is(err, core.ErrInvalidTransition):
		return webutil.ErrConflictWrap("Rate change not allowed in the current step", err)
	case errors.Is(err, core.ErrInvalidRate):
		return webutil.ErrUnprocessableEntityWrap("Rates must be non-negative numbers", err)
	default:
		return err
	}
}

func (s *Server) editRates(w http.ResponseWriter, r *http.Request, fn func(e *view.RateEditor) error) error {
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	if err := sess.Editor(fn); err != nil {
		return rateEditError(err)
	}
	s.respondSnapshot(w, sess, nil)
	return nil
}

func (s *Server) handleRatesEdit(w http.ResponseWriter, r *http.Request) error {
	current := s.settings.Current()
	return s.editRates(w, r, func(e *view.RateEditor) error { return e.Begin(current) })
}

// handleRatesDraft updates the fields present in the body and keeps the
// others.
func (s *Server) handleRatesDraft(w http.ResponseWriter, r *http.Request) error {
	p, err := parseBody(w, r)
	if err != nil {
		return err
	}
	return s.editRates(w, r, func(e *view.RateEditor) error {
		draft, _ := e.Draft()
		var err error
		if p.Has("news") {
			if draft.News, err = core.ParseAmount(p.Get("news")); err != nil {
				return err
			}
		}
		if p.Has("blog") {
			if draft.Blog, err = core.ParseAmount(p.Get("blog")); err != nil {
				return err
			}
		}
		return e.SetDraft(draft)
	})
}

func (s *Server) handleRatesSave(w http.ResponseWriter, r *http.Request) error {
	return s.editRates(w, r, func(e *view.RateEditor) error { return e.Save() })
}

// handleRatesConfirm commits the draft. A failed commit keeps the editor in
// the confirmation step so the user can retry.
func (s *Server) handleRatesConfirm(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	err = sess.Editor(func(e *view.RateEditor) error {
		_, err := e.Confirm(r.Context(), s.settings)
		return err
	})
	if err != nil {
		if errors.Is(err, core.ErrInvalidTransition) || errors.Is(err, core.ErrInvalidRate) {
			return rateEditError(err)
		}
		return webutil.ErrInternalServerWrap("commit payout rates", err)
	}
	s.respondSnapshot(w, sess, &webutil.Notification{
		Type:    "success",
		Message: "Payout rates updated successfully",
	})
	return nil
}

func (s *Server) handleRatesCancel(w http.ResponseWriter, r *http.Request) error {
	return s.editRates(w, r, func(e *view.RateEditor) error { return e.Cancel() })
}
