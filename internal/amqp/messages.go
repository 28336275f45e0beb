package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"payboard/internal/core"
)

// Message types carried in the AMQP Type property.
const (
	TypeReportExport = "payboard.report.export"
	TypeRatesChanged = "payboard.rates.changed"
)

// ReportExportMessage asks the worker to rebuild the payout report for a
// filter and append it to the spreadsheet. The worker refetches the articles
// and reads the current rates itself.
type ReportExportMessage struct {
	ID          string           `json:"id"`
	Filter      core.FetchFilter `json:"filter"`
	RequestedAt time.Time        `json:"requestedAt"`
}

func NewReportExportMessage(filter core.FetchFilter) *ReportExportMessage {
	return &ReportExportMessage{
		ID:          uuid.NewString(),
		Filter:      filter.Normalized(),
		RequestedAt: time.Now().UTC(),
	}
}

func (m *ReportExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportExportMessageFromJSON(data []byte) (*ReportExportMessage, error) {
	var msg ReportExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RatesChangedMessage records a confirmed payout rate change for auditing.
type RatesChangedMessage struct {
	ID        string    `json:"id"`
	News      float64   `json:"news"`
	Blog      float64   `json:"blog"`
	ChangedAt time.Time `json:"changedAt"`
}

func NewRatesChangedMessage(r core.PayoutRates) *RatesChangedMessage {
	return &RatesChangedMessage{
		ID:        uuid.NewString(),
		News:      r.News,
		Blog:      r.Blog,
		ChangedAt: time.Now().UTC(),
	}
}

func (m *RatesChangedMessage) Rates() core.PayoutRates {
	return core.PayoutRates{News: m.News, Blog: m.Blog}
}

func (m *RatesChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RatesChangedMessageFromJSON(data []byte) (*RatesChangedMessage, error) {
	var msg RatesChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
