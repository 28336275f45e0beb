package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func parserFor(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/table/ranges", strings.NewReader(body))
	r.Header.Set("Content-Type", contentType)
	p := NewRequestBodyParser(httptest.NewRecorder(), r)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return p
}

func TestRequestBodyParserFormats(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"json", "application/json", `{"minArticles": 2, "maxPayout": "40.5", "query": " ada "}`},
		{"form", "application/x-www-form-urlencoded", "minArticles=2&maxPayout=40.5&query=+ada+"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parserFor(t, tt.contentType, tt.body)
			if got := p.Get("query"); got != "ada" {
				t.Errorf("query = %q", got)
			}
			minArticles, err := p.OptionalInt("minArticles")
			if err != nil || minArticles == nil || *minArticles != 2 {
				t.Errorf("minArticles = %v, %v", minArticles, err)
			}
			maxPayout, err := p.OptionalFloat("maxPayout")
			if err != nil || maxPayout == nil || *maxPayout != 40.5 {
				t.Errorf("maxPayout = %v, %v", maxPayout, err)
			}
			if v, err := p.OptionalInt("maxArticles"); v != nil || err != nil {
				t.Errorf("unset bound should be nil, got %v %v", v, err)
			}
		})
	}
}

func TestRequestBodyParserErrors(t *testing.T) {
	p := parserFor(t, "application/json", `{"page": "two", "minPayout": "lots"}`)
	if _, err := p.Int("page"); err == nil {
		t.Error("expected integer error")
	}
	if _, err := p.OptionalFloat("minPayout"); err == nil {
		t.Error("expected number error")
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"broken"`))
	if err := NewRequestBodyParser(httptest.NewRecorder(), r).Parse(); err == nil {
		t.Error("expected JSON error")
	}
}

func TestRequestBodyParserFirstAndSanitize(t *testing.T) {
	p := parserFor(t, "application/json", `{"from": "2024-01-01", "searchQuery": "ai\u0000ml"}`)
	if got := p.First("dateFrom", "from"); got != "2024-01-01" {
		t.Errorf("First = %q", got)
	}
	if got := p.Get("searchQuery"); got != "aiml" {
		t.Errorf("control characters not removed: %q", got)
	}
	if parserFor(t, "", "").Has("x") {
		t.Error("empty body has no fields")
	}
}

func TestOptionalFloatRejectsNonFinite(t *testing.T) {
	for _, v := range []string{"NaN", "nan", "Inf", "-Inf", "+Infinity", "$NaN"} {
		p := parserFor(t, "application/json", `{"minPayout": "`+v+`"}`)
		if got, err := p.OptionalFloat("minPayout"); err == nil {
			t.Errorf("%q: expected error, got %v", v, *got)
		}
	}
}
