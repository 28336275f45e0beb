// Package trace logs every HTTP request and attaches a request-scoped logger
// to its context.
package trace

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"payboard/internal/log"
)

type Middleware struct {
	logger     *log.Logger
	structured *log.StructuredLogger
	extractIP  func(*http.Request) string

	requests atomic.Int64
	failures atomic.Int64
	lastMs   atomic.Int64
}

// New returns request logging middleware. extractIP may be nil.
func New(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = log.Discard()
	}
	return &Middleware{
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
		extractIP:  extractIP,
	}
}

func (m *Middleware) clientIP(r *http.Request) string {
	if m.extractIP == nil {
		return r.RemoteAddr
	}
	return m.extractIP(r)
}

// Handler must run after chi's RequestID middleware to pick up the id.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		ip := m.clientIP(r)

		reqLogger := m.logger.With(log.NewFields().WithRequestID(reqID).ToSlice()...)
		ctx := log.NewContext(r.Context(), reqLogger)
		r = r.WithContext(ctx)

		m.structured.LogHTTPStart(ctx, r, ip)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start).Milliseconds()
		m.requests.Add(1)
		m.lastMs.Store(elapsed)
		if status >= 500 {
			m.failures.Add(1)
		}
		log.NewStructuredLogger(reqLogger).LogHTTPEnd(ctx, r, status, elapsed, ip)
	})
}

type Metrics struct {
	Requests       int64
	ServerFailures int64
	LastDurationMs int64
}

func (m *Middleware) Metrics() Metrics {
	return Metrics{
		Requests:       m.requests.Load(),
		ServerFailures: m.failures.Load(),
		LastDurationMs: m.lastMs.Load(),
	}
}
