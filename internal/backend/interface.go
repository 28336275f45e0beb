package backend

import (
	"context"
	"time"

	"payboard/internal/amqp"
	"payboard/internal/news"
	"payboard/internal/settings"
	"payboard/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Backend bundles the adapters the dashboard and the worker run on. Queue
// and spreadsheet adapters are nil when not configured.
type Backend struct {
	Settings settings.Store
	Articles news.Fetcher
	// Cache is set when Articles is wrapped in a TTL cache.
	Cache *news.CachedFetcher

	Publisher amqp.Publisher
	Queue     *amqp.Client

	Reports sheets.ReportAppender
	Audit   sheets.AuditAppender

	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
}

// Config holds configuration for backend creation
type Config struct {
	Settings     BackendType
	SQLiteDBPath string

	News            BackendType
	NewsAPIURL      string
	NewsAPIKey      string
	NewsFixturePath string
	NewsTimeout     time.Duration
	NewsCacheTTL    time.Duration

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Sheets               BackendType
	GoogleSpreadsheetID  string
	GoogleSheetName      string
	GoogleAuditSheetName string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend  BackendType = "memory"
	SQLiteBackend  BackendType = "sqlite"
	NewsAPIBackend BackendType = "newsapi"
	GoogleBackend  BackendType = "google"
	NoBackend      BackendType = "none"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}
