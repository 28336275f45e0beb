package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"payboard/internal/core"
	"payboard/internal/log"
	"payboard/internal/report"
	ports "payboard/internal/sheets"
)

const (
	DefaultReportSheet = "Payouts"
	DefaultAuditSheet  = "Rate Changes"

	valueInputOption = "USER_ENTERED"
)

type Config struct {
	SpreadsheetID string
	ReportSheet   string
	AuditSheet    string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

// ConfigFromEnv reads GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME,
// GOOGLE_AUDIT_SHEET_NAME and the service account credentials from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func ConfigFromEnv() Config {
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return Config{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		ReportSheet:     strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		AuditSheet:      strings.TrimSpace(os.Getenv("GOOGLE_AUDIT_SHEET_NAME")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: file,
	}
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportSheet   string
	auditSheet    string
	logger        *log.Logger
}

var (
	_ ports.ReportAppender = (*Client)(nil)
	_ ports.AuditAppender  = (*Client)(nil)
)

// New creates a Sheets client authenticated with service account
// credentials. Extra options are passed to the Sheets service.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	if len(opts) == 0 {
		creds, err := credentials(cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newClient(svc, cfg, logger), nil
}

func newClient(svc *gsheet.Service, cfg Config, logger *log.Logger) *Client {
	if cfg.ReportSheet == "" {
		cfg.ReportSheet = DefaultReportSheet
	}
	if cfg.AuditSheet == "" {
		cfg.AuditSheet = DefaultAuditSheet
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		reportSheet:   cfg.ReportSheet,
		auditSheet:    cfg.AuditSheet,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case cfg.CredentialsJSON != "":
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// HTTPClient returns an HTTP client with pooled keep-alive connections
// suitable for goption.WithHTTPClient.
func HTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		Timeout: 60 * time.Second,
	}
}

// AppendReport appends Author, Articles, Payout, Date rows to the report
// sheet. A header row goes first when the sheet is empty.
func (c *Client) AppendReport(ctx context.Context, rows [][]any) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	ref, err := c.append(ctx, c.reportSheet, "A:D", report.SheetHeader(), rows)
	if err != nil {
		return "", err
	}
	c.logger.InfoContext(ctx, "Appended payout report",
		log.FieldOperation, log.OpAppend,
		log.FieldRows, len(rows),
		log.FieldSheetsRef, ref)
	return ref, nil
}

func (c *Client) AppendRateChange(ctx context.Context, rates core.PayoutRates, at time.Time) (string, error) {
	ref, err := c.append(ctx, c.auditSheet, "A:C", ports.AuditHeader(), [][]any{ports.AuditRow(rates, at)})
	if err != nil {
		return "", err
	}
	c.logger.InfoContext(ctx, "Appended rate change",
		log.FieldOperation, log.OpAppend,
		log.FieldRateNews, rates.News,
		log.FieldRateBlog, rates.Blog,
		log.FieldSheetsRef, ref)
	return ref, nil
}

func (c *Client) append(ctx context.Context, sheet, cols string, header []any, rows [][]any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	empty, err := c.isEmpty(ctx, sheet)
	if err != nil {
		return "", err
	}
	values := rows
	if empty {
		values = append([][]any{header}, rows...)
	}

	rng := fmt.Sprintf("%s!%s", sheet, cols)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", rng, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

func (c *Client) isEmpty(ctx context.Context, sheet string) (bool, error) {
	rng := fmt.Sprintf("%s!A1:A1", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", rng, err)
	}
	return len(resp.Values) == 0, nil
}
