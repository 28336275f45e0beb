package http

import (
	"errors"
	"net/http"

	"payboard/internal/core"
	"payboard/internal/news"
	"payboard/internal/view"
	"payboard/internal/webutil"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	s.respondSnapshot(w, sess, nil)
	return nil
}

// handleSetFilter replaces the fetch filter and refetches. A failed fetch is
// not an HTTP error: it shows up as the snapshot's error message.
func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	p, err := parseBody(w, r)
	if err != nil {
		return err
	}
	filter := core.FetchFilter{
		SearchQuery: p.First("searchQuery", "query", "q"),
		DateFrom:    p.First("dateFrom", "from"),
		DateTo:      p.First("dateTo", "to"),
		Type:        core.FetchType(p.Get("type")),
	}
	if _, err := sess.SetFilter(r.Context(), filter, s.articles); err != nil {
		if errors.Is(err, core.ErrInvalidFetchType) || errors.Is(err, core.ErrInvalidDate) {
			return webutil.ErrBadRequestWrap(err.Error(), err)
		}
		return err
	}
	s.respondSnapshot(w, sess, nil)
	return nil
}

// handleRefresh bypasses any cached response for the current filter.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	if inv, ok := s.articles.(news.Invalidator); ok {
		inv.Invalidate(sess.Filter())
	}
	sess.Refresh(r.Context(), s.articles)
	s.respondSnapshot(w, sess, nil)
	return nil
}

// updateView parses the body, applies fn to the table state and answers
// with the new snapshot.
func (s *Server) updateView(w http.ResponseWriter, r *http.Request, fn func(p *RequestBodyParser, v *view.State) error) error {
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	p, err := parseBody(w, r)
	if err != nil {
		return err
	}
	if err := sess.View(func(v *view.State) error { return fn(p, v) }); err != nil {
		return err
	}
	s.respondSnapshot(w, sess, nil)
	return nil
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) error {
	return s.updateView(w, r, func(p *RequestBodyParser, v *view.State) error {
		key, err := view.ParseSortKey(p.First("key", "column"))
		if err != nil {
			return webutil.ErrBadRequestWrap("Unknown sort column", err)
		}
		v.ToggleSort(key)
		return nil
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) error {
	return s.updateView(w, r, func(p *RequestBodyParser, v *view.State) error {
		v.SetQuery(p.First("query", "q"))
		return nil
	})
}

func (s *Server) handleRanges(w http.ResponseWriter, r *http.Request) error {
	return s.updateView(w, r, func(p *RequestBodyParser, v *view.State) error {
		var rf view.RangeFilter
		var err error
		if rf.MinArticles, err = p.OptionalInt("minArticles"); err != nil {
			return webutil.ErrBadRequest(err.Error())
		}
		if rf.MaxArticles, err = p.OptionalInt("maxArticles"); err != nil {
			return webutil.ErrBadRequest(err.Error())
		}
		if rf.MinPayout, err = p.OptionalFloat("minPayout"); err != nil {
			return webutil.ErrBadRequest(err.Error())
		}
		if rf.MaxPayout, err = p.OptionalFloat("maxPayout"); err != nil {
			return webutil.ErrBadRequest(err.Error())
		}
		v.SetRanges(rf)
		return nil
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) error {
	return s.updateView(w, r, func(p *RequestBodyParser, v *view.State) error {
		page, err := p.Int("page")
		if err != nil {
			return webutil.ErrBadRequest(err.Error())
		}
		v.SetPage(page)
		return nil
	})
}

func (s *Server) handlePageSize(w http.ResponseWriter, r *http.Request) error {
	return s.updateView(w, r, func(p *RequestBodyParser, v *view.State) error {
		size, err := p.Int("pageSize")
		if err != nil {
			return webutil.ErrBadRequest(err.Error())
		}
		if err := v.SetPageSize(size); err != nil {
			return webutil.ErrBadRequestWrap("Page size must be 5, 10 or 25", err)
		}
		return nil
	})
}
