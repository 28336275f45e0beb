package settings

import (
	"encoding/json"
	"errors"
	"fmt"

	"payboard/internal/core"
)

type record struct {
	News *float64 `json:"news"`
	Blog *float64 `json:"blog"`
}

// EncodeRecord serializes rates as {"news":..,"blog":..}.
func EncodeRecord(r core.PayoutRates) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// DecodeRecord parses a stored record. Malformed JSON, a missing rate or an
// invalid rate is reported as *core.ConfigParseError.
func DecodeRecord(raw []byte) (core.PayoutRates, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return core.PayoutRates{}, &core.ConfigParseError{Key: RecordKey, Err: err}
	}
	if rec.News == nil || rec.Blog == nil {
		return core.PayoutRates{}, &core.ConfigParseError{Key: RecordKey, Err: errors.New("missing rate")}
	}
	r := core.PayoutRates{News: *rec.News, Blog: *rec.Blog}
	if err := r.Validate(); err != nil {
		return core.PayoutRates{}, &core.ConfigParseError{Key: RecordKey, Err: fmt.Errorf("%+v: %w", r, err)}
	}
	return r, nil
}
