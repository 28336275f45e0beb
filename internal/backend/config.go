package backend

import (
	"fmt"

	"payboard/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Settings:     BackendType(appConfig.SettingsBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,

		News:            BackendType(appConfig.NewsBackend),
		NewsAPIURL:      appConfig.NewsAPIURL,
		NewsAPIKey:      appConfig.NewsAPIKey,
		NewsFixturePath: appConfig.NewsFixturePath,
		NewsTimeout:     appConfig.NewsTimeout,
		NewsCacheTTL:    appConfig.NewsCacheTTL,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		Sheets:               BackendType(appConfig.Sheets()),
		GoogleSpreadsheetID:  appConfig.GoogleSpreadsheetID,
		GoogleSheetName:      appConfig.GoogleSheetName,
		GoogleAuditSheetName: appConfig.GoogleAuditSheetName,
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	switch c.Settings {
	case MemoryBackend:
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite settings backend")
		}
	default:
		return fmt.Errorf("invalid settings backend: %s", c.Settings)
	}

	switch c.News {
	case MemoryBackend:
	case NewsAPIBackend:
		if c.NewsAPIKey == "" {
			return fmt.Errorf("news API key is required for newsapi backend")
		}
	default:
		return fmt.Errorf("invalid news backend: %s", c.News)
	}

	switch c.Sheets {
	case "", NoBackend, MemoryBackend:
	case GoogleBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for google sheets backend")
		}
	default:
		return fmt.Errorf("invalid sheets backend: %s", c.Sheets)
	}
	return nil
}
