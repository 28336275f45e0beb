// Package http serves the payout dashboard and its JSON API.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"payboard/internal/auth"
	"payboard/internal/dashboard"
	"payboard/internal/log"
	"payboard/internal/middleware/ratelimit"
	"payboard/internal/middleware/security"
	"payboard/internal/middleware/trace"
	"payboard/internal/news"
	"payboard/internal/report"
	"payboard/internal/services"
	"payboard/internal/settings"
	"payboard/internal/webutil"
	appweb "payboard/web"
)

const (
	requestTimeout = 30 * time.Second
	staticMaxAge   = 3600
	loginPath      = "/login"
)

// Deps are the collaborators the handlers work with. Exports may be nil
// when no spreadsheet export is configured.
type Deps struct {
	Gate      *auth.TokenGate
	Sessions  *dashboard.Manager
	Settings  *settings.Service
	Articles  news.Fetcher
	Exports   *services.ExportService
	Location  *time.Location
	RateLimit ratelimit.Config
	Report    report.Options
}

type Server struct {
	http.Server

	gate       *auth.TokenGate
	sessions   *dashboard.Manager
	settings   *settings.Service
	articles   news.Fetcher
	exports    *services.ExportService
	loc        *time.Location
	reportOpts report.Options

	templates *template.Template
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	logger    *log.Logger

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware and returns a server ready for
// ListenAndServe.
func NewServer(addr string, deps Deps, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	httpLogger := logger.WithComponent(log.ComponentHTTP)
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	rl := deps.RateLimit
	if rl.RequestsPerMinute == 0 {
		rl = ratelimit.DefaultConfig()
	}

	s := &Server{
		gate:       deps.Gate,
		sessions:   deps.Sessions,
		settings:   deps.Settings,
		articles:   deps.Articles,
		exports:    deps.Exports,
		loc:        loc,
		reportOpts: deps.Report,
		limiter:    ratelimit.NewLimiter(rl),
		detector:   security.NewDetector(logger),
		tracer:     trace.New(logger, remoteIP),
		logger:     httpLogger,
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		httpLogger.Warn("Failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.detector.RealIP)
	r.Use(s.tracer.Handler)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)
	r.Use(s.limiter.Middleware(remoteIP, s.handleRateLimited))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssets(staticMaxAge)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	r.Get(loginPath, s.handleLoginPage)
	r.Post(loginPath, s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(auth.Require(s.gate, loginPath))
		r.Get("/", s.handleIndex)

		r.Route("/api", func(r chi.Router) {
			r.Use(security.NoStore)
			r.Get("/dashboard", webutil.MakeHandler(s.handleDashboard))
			r.Post("/filters", webutil.MakeHandler(s.handleSetFilter))
			r.Post("/refresh", webutil.MakeHandler(s.handleRefresh))

			r.Route("/table", func(r chi.Router) {
				r.Post("/sort", webutil.MakeHandler(s.handleSort))
				r.Post("/search", webutil.MakeHandler(s.handleSearch))
				r.Post("/ranges", webutil.MakeHandler(s.handleRanges))
				r.Post("/page", webutil.MakeHandler(s.handlePage))
				r.Post("/page-size", webutil.MakeHandler(s.handlePageSize))
			})

			r.Route("/rates", func(r chi.Router) {
				r.Post("/edit", webutil.MakeHandler(s.handleRatesEdit))
				r.Post("/draft", webutil.MakeHandler(s.handleRatesDraft))
				r.Post("/save", webutil.MakeHandler(s.handleRatesSave))
				r.Post("/confirm", webutil.MakeHandler(s.handleRatesConfirm))
				r.Post("/cancel", webutil.MakeHandler(s.handleRatesCancel))
			})

			r.Post("/export/sheets", webutil.MakeHandler(s.handleExportSheets))
			r.Get("/export/{format}", webutil.MakeHandler(s.handleExport))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		webutil.RespondWithError(w, http.StatusNotFound, "Resource not found")
	})
	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, remoteIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	webutil.RespondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// remoteIP strips the port RealIP may have left on RemoteAddr.
func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
