package backend

import (
	"context"
	"errors"
	"fmt"

	"payboard/internal/amqp"
	"payboard/internal/log"
	"payboard/internal/news"
	newsmem "payboard/internal/news/memory"
	"payboard/internal/news/newsapi"
	settingsmem "payboard/internal/settings/memory"
	gsheet "payboard/internal/sheets/google"
	sheetsmem "payboard/internal/sheets/memory"
	"payboard/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend builds every adapter named by config. On failure the adapters
// created so far are closed.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	b := &Backend{}
	var cleanups []CleanupFunc
	fail := func(err error) (*Backend, error) {
		closeAll(cleanups)
		return nil, err
	}

	switch config.Settings {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize SQLite repository: %w", err))
		}
		b.Settings = repo
		cleanups = append(cleanups, repo.Close)
		f.logger.Info("Initialized SQLite settings store", "db_path", config.SQLiteDBPath)
	default:
		b.Settings = settingsmem.New(f.logger)
		f.logger.Info("Initialized memory settings store")
	}

	source, err := f.createArticleSource(config)
	if err != nil {
		return fail(err)
	}
	b.Articles = source
	if config.NewsCacheTTL > 0 {
		b.Cache = news.NewCachedFetcher(source, config.NewsCacheTTL, f.logger)
		b.Articles = b.Cache
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, exporting inline", log.FieldError, err.Error())
		} else {
			b.Queue = client
			b.Publisher = client
			cleanups = append(cleanups, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	switch config.Sheets {
	case GoogleBackend:
		cfg := gsheet.ConfigFromEnv()
		cfg.SpreadsheetID = config.GoogleSpreadsheetID
		if config.GoogleSheetName != "" {
			cfg.ReportSheet = config.GoogleSheetName
		}
		if config.GoogleAuditSheetName != "" {
			cfg.AuditSheet = config.GoogleAuditSheetName
		}
		client, err := gsheet.New(ctx, cfg, f.logger)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize Google Sheets client: %w", err))
		}
		b.Reports, b.Audit = client, client
		f.logger.Info("Initialized Google Sheets client", log.FieldSheetsRef, cfg.SpreadsheetID)
	case MemoryBackend:
		store := sheetsmem.New()
		b.Reports, b.Audit = store, store
		f.logger.Info("Initialized memory spreadsheet")
	}

	b.Cleanup = func() error { return closeAll(cleanups) }
	return b, nil
}

func (f *DefaultFactory) createArticleSource(config Config) (news.Fetcher, error) {
	switch config.News {
	case NewsAPIBackend:
		f.logger.Info("Initialized NewsAPI article source", "base_url", config.NewsAPIURL)
		return newsapi.New(config.NewsAPIURL, config.NewsAPIKey,
			newsapi.WithTimeout(config.NewsTimeout),
			newsapi.WithLogger(f.logger)), nil
	default:
		if config.NewsFixturePath == "" {
			f.logger.Info("Initialized empty memory article source")
			return newsmem.New(nil), nil
		}
		src, err := newsmem.NewFromFile(config.NewsFixturePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load article fixture: %w", err)
		}
		f.logger.Info("Initialized memory article source", "fixture", config.NewsFixturePath)
		return src, nil
	}
}

// closeAll runs cleanups in reverse order.
func closeAll(cleanups []CleanupFunc) error {
	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
