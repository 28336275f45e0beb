package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// NewContext returns ctx carrying logger for FromContext.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the request logger, or one backed by slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides domain-level log records.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithClientIP(clientIP)

	sl.logger.WithComponent(ComponentHTTP).DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs at warn for 4xx and error for 5xx responses.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)

	sl.logger.WithComponent(ComponentHTTP).Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogFetch(ctx context.Context, sessionID string, seq uint64, filterKey string, articles int, err error) {
	fields := NewFields().
		WithSession(sessionID).
		WithOperation(OpFetch).
		WithError(err)
	fields[FieldFetchSeq] = seq
	fields[FieldFilterKey] = filterKey
	fields[FieldArticleCount] = articles

	l := sl.logger.WithComponent(ComponentDashboard)
	if err != nil {
		l.WarnContext(ctx, "Article fetch failed", fields.ToSlice()...)
		return
	}
	l.InfoContext(ctx, "Articles fetched", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogRatesCommitted(ctx context.Context, news, blog float64) {
	fields := NewFields().
		WithRates(news, blog).
		WithOperation(OpCommit)
	sl.logger.WithComponent(ComponentSettings).InfoContext(ctx, "Payout rates committed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogExport(ctx context.Context, format string, rows int, err error) {
	fields := NewFields().
		WithOperation(OpExport).
		WithError(err)
	fields[FieldExportFormat] = format
	fields[FieldRows] = rows

	l := sl.logger.WithComponent(ComponentReport)
	if err != nil {
		l.ErrorContext(ctx, "Report export failed", fields.ToSlice()...)
		return
	}
	l.InfoContext(ctx, "Report exported", fields.ToSlice()...)
}
