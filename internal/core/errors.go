package core

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrInvalidPageSize   = errors.New("invalid page size")
	ErrInvalidSortKey    = errors.New("invalid sort key")
	ErrInvalidTransition = errors.New("invalid rate edit transition")
	ErrUnknownFormat     = errors.New("unknown export format")
	ErrSheetsDisabled    = errors.New("spreadsheet export not configured")
	ErrInvalidResponse   = errors.New("invalid data format received from API")
)

// FetchError reports a failed article fetch: network, API or malformed
// response. It is recovered by showing an empty article list.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("fetch articles: %v", e.Err)
	}
	return fmt.Sprintf("fetch articles (%s): %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MsgFetchFailed is shown when the cause is not fit for display.
const MsgFetchFailed = "Failed to fetch news"

// Message is the text shown on the dashboard. Transport errors carry the
// request URL and are replaced by MsgFetchFailed.
func (e *FetchError) Message() string {
	var ue *url.Error
	if e.Err == nil || errors.As(e.Err, &ue) {
		return MsgFetchFailed
	}
	return e.Err.Error()
}

// ExportError reports a failure while building or writing a report.
type ExportError struct {
	Format string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s report: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// ConfigParseError reports a corrupted persisted settings record. Callers
// fall back to DefaultPayoutRates and never show it to the user.
type ConfigParseError struct {
	Key string
	Err error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("parse settings record %q: %v", e.Key, e.Err)
}

func (e *ConfigParseError) Unwrap() error { return e.Err }
