package http

import (
	"bytes"
	"net/http"

	"payboard/internal/auth"
	"payboard/internal/core"
	"payboard/internal/dashboard"
	"payboard/internal/log"
	"payboard/internal/view"
	"payboard/internal/webutil"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports unready while the settings store cannot be reached.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.Ping(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed",
			log.FieldSettingsStore, "ping",
			log.FieldError, err.Error())
		webutil.RespondWithError(w, http.StatusServiceUnavailable, "settings store unavailable")
		return
	}
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	_, _ = w.Write([]byte("ready"))
}

type indexData struct {
	Rates     core.PayoutRates
	PageSizes []int
	Gated     bool
	Sheets    bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "dashboard.html", indexData{
		Rates:     s.settings.Current(),
		PageSizes: view.PageSizes,
		Gated:     !s.gate.Open(),
		Sheets:    s.exports.Enabled(),
	})
}

type loginData struct {
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.gate.CurrentSession(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", loginData{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", loginData{Error: "Invalid request"})
		return
	}
	info, err := s.gate.Login(r.Context(), p.Get("token"))
	if err != nil {
		s.render(w, r, http.StatusUnauthorized, "login.html", loginData{Error: "Invalid access token"})
		return
	}
	if !s.gate.Open() {
		http.SetCookie(w, s.gate.Cookie(info))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if info, ok := s.gate.CurrentSession(r); ok && info.ID != auth.AnonymousID {
		s.gate.Logout(r.Context(), info.ID)
		s.sessions.Drop(info.ID)
	}
	http.SetCookie(w, s.gate.ClearCookie())
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// render executes a template into a buffer so a failing template never
// sends a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates unavailable", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err.Error())
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeHTMLUTF8)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// session returns the dashboard session of the request, loading its first
// article list on first use.
func (s *Server) session(r *http.Request) (*dashboard.Session, error) {
	info, ok := auth.SessionFromContext(r.Context())
	if !ok {
		return nil, webutil.ErrUnauthorized("")
	}
	sess := s.sessions.Get(info.ID)
	sess.EnsureLoaded(r.Context(), s.articles)
	return sess, nil
}

type dashboardResponse struct {
	dashboard.Snapshot
	Notification *webutil.Notification `json:"notification,omitempty"`
}

func (s *Server) respondSnapshot(w http.ResponseWriter, sess *dashboard.Session, n *webutil.Notification) {
	webutil.RespondWithJSON(w, http.StatusOK, dashboardResponse{
		Snapshot:     sess.Snapshot(s.settings.Current(), s.loc),
		Notification: n,
	})
}

// parseBody parses the request body or fails with 400.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		return nil, webutil.ErrBadRequestWrap("Invalid request body", err)
	}
	return p, nil
}
