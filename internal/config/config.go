package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// PathEnv names an explicit YAML config file. Without it the XDG config
// file payboard/config.yaml is used when present.
const PathEnv = "PAYBOARD_CONFIG"

const (
	BackendMemory  = "memory"
	BackendSQLite  = "sqlite"
	BackendNewsAPI = "newsapi"
	BackendGoogle  = "google"
	BackendNone    = "none"
)

type Config struct {
	// HTTP Server
	Port          string        `yaml:"port"`
	AccessToken   string        `yaml:"access_token"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SecureCookies bool          `yaml:"secure_cookies"`

	// Settings store
	SettingsBackend string `yaml:"settings_backend"`
	SQLiteDBPath    string `yaml:"sqlite_db_path"`

	// Article source
	NewsBackend     string        `yaml:"news_backend"`
	NewsAPIURL      string        `yaml:"news_api_url"`
	NewsAPIKey      string        `yaml:"news_api_key"`
	NewsFixturePath string        `yaml:"news_fixture_path"`
	NewsTimeout     time.Duration `yaml:"news_timeout"`
	NewsCacheTTL    time.Duration `yaml:"news_cache_ttl"`

	// Dashboard
	TrendTimezone string `yaml:"trend_timezone"`
	// PDFFontFile is a UTF-8 TrueType font for PDF reports.
	PDFFontFile string `yaml:"pdf_font_file"`

	// AMQP, optional
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Spreadsheet export, optional. An empty backend means google when a
	// spreadsheet id is set and none otherwise.
	SheetsBackend        string `yaml:"sheets_backend"`
	GoogleSpreadsheetID  string `yaml:"google_spreadsheet_id"`
	GoogleSheetName      string `yaml:"google_sheet_name"`
	GoogleAuditSheetName string `yaml:"google_audit_sheet_name"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// File is the YAML file the config was read from, if any.
	File string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Port:            "8081",
		SessionTTL:      12 * time.Hour,
		SettingsBackend: BackendMemory,
		SQLiteDBPath:    "./data/payboard.db",
		NewsBackend:     BackendMemory,
		NewsAPIURL:      "https://newsapi.org/v2",
		NewsTimeout:     10 * time.Second,
		NewsCacheTTL:    time.Minute,
		TrendTimezone:   "UTC",
		AMQPExchange:    "payboard",
		AMQPQueue:       "payboard_exports",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load starts from the defaults, applies the YAML file if one is found and
// then the environment, which always wins.
func Load() (*Config, error) {
	cfg := Default()

	path, err := configFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func configFile() (string, error) {
	if p := strings.TrimSpace(os.Getenv(PathEnv)); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("config file %s: %w", p, err)
		}
		return p, nil
	}
	p, err := xdg.SearchConfigFile(filepath.Join("payboard", "config.yaml"))
	if err != nil {
		// Not found is the common case.
		return "", nil
	}
	return p, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.File = path
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.AccessToken = getEnv("DASHBOARD_ACCESS_TOKEN", c.AccessToken)
	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.SecureCookies = getEnvBool("SECURE_COOKIES", c.SecureCookies)

	c.SettingsBackend = getEnv("SETTINGS_BACKEND", c.SettingsBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)

	c.NewsBackend = getEnv("NEWS_BACKEND", c.NewsBackend)
	c.NewsAPIURL = getEnv("NEWS_API_URL", c.NewsAPIURL)
	c.NewsAPIKey = getEnv("NEWS_API_KEY", c.NewsAPIKey)
	c.NewsFixturePath = getEnv("NEWS_FIXTURE_PATH", c.NewsFixturePath)
	c.NewsTimeout = getEnvDuration("NEWS_TIMEOUT", c.NewsTimeout)
	c.NewsCacheTTL = getEnvDuration("NEWS_CACHE_TTL", c.NewsCacheTTL)

	c.TrendTimezone = getEnv("TREND_TIMEZONE", c.TrendTimezone)
	c.PDFFontFile = getEnv("PDF_FONT_FILE", c.PDFFontFile)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.SheetsBackend = getEnv("SHEETS_BACKEND", c.SheetsBackend)
	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)
	c.GoogleAuditSheetName = getEnv("GOOGLE_AUDIT_SHEET_NAME", c.GoogleAuditSheetName)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Location resolves TrendTimezone for daily trend bucketing.
func (c *Config) Location() (*time.Location, error) {
	if c.TrendTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TrendTimezone)
}

func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Sheets resolves the spreadsheet export backend.
func (c *Config) Sheets() string {
	if c.SheetsBackend != "" {
		return c.SheetsBackend
	}
	if c.GoogleSpreadsheetID != "" {
		return BackendGoogle
	}
	return BackendNone
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.SettingsBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite settings backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid settings backend '%s': must be one of [memory sqlite]", c.SettingsBackend))
	}

	switch c.NewsBackend {
	case BackendMemory:
	case BackendNewsAPI:
		if c.NewsAPIKey == "" {
			errs = append(errs, "NEWS_API_KEY is required when using the newsapi backend")
		}
		if u, err := url.Parse(c.NewsAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid news API URL '%s'", c.NewsAPIURL))
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid news backend '%s': must be one of [memory newsapi]", c.NewsBackend))
	}

	if c.NewsTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("invalid news timeout %v: must be positive", c.NewsTimeout))
	}
	if c.NewsCacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid news cache TTL %v: must not be negative", c.NewsCacheTTL))
	}
	if c.SessionTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid trend timezone '%s': %v", c.TrendTimezone, err))
	}

	if c.PDFFontFile != "" {
		if _, err := os.Stat(c.PDFFontFile); err != nil {
			errs = append(errs, fmt.Sprintf("invalid PDF font file '%s': %v", c.PDFFontFile, err))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.Sheets() {
	case BackendNone, BackendMemory:
	case BackendGoogle:
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "Google Spreadsheet ID is required when using the google sheets backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid sheets backend '%s': must be one of [none memory google]", c.SheetsBackend))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
