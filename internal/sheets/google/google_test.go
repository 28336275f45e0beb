package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"

	"payboard/internal/core"
)

type fakeSheets struct {
	mu       sync.Mutex
	sheets   map[string][][]any
	appended []string
	options  []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rest, ok := strings.Cut(r.URL.Path, "/values/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	sheet, _, _ := strings.Cut(strings.TrimSuffix(rest, ":append"), "!")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		rows := f.sheets[sheet]
		if len(rows) > 1 {
			rows = rows[:1]
		}
		json.NewEncoder(w).Encode(map[string]any{"range": rest, "values": rows})
	case r.Method == http.MethodPost && strings.HasSuffix(rest, ":append"):
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.sheets[sheet] = append(f.sheets[sheet], body.Values...)
		f.appended = append(f.appended, sheet)
		f.options = append(f.options, r.URL.Query().Get("valueInputOption"))
		json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-1",
			"updates":       map[string]any{"updatedRange": sheet + "!A1:D9"},
		})
	default:
		http.Error(w, "unexpected request", http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, cfg Config) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{sheets: map[string][][]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg.SpreadsheetID = "sheet-1"
	c, err := New(context.Background(), cfg, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, fake
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAppendReportWritesHeaderOnce(t *testing.T) {
	c, fake := newTestClient(t, Config{})
	ctx := context.Background()

	ref, err := c.AppendReport(ctx, [][]any{{"Ann", 2, 20.0, "2024-05-01"}})
	if err != nil {
		t.Fatal(err)
	}
	if ref != "Payouts!A1:D9" {
		t.Errorf("ref = %q", ref)
	}
	if _, err := c.AppendReport(ctx, [][]any{{"Bob", 1, 15.0, "2024-05-02"}}); err != nil {
		t.Fatal(err)
	}

	rows := fake.sheets[DefaultReportSheet]
	if len(rows) != 3 {
		t.Fatalf("expected header plus two rows, got %v", rows)
	}
	if rows[0][0] != "Author" || rows[1][0] != "Ann" || rows[2][0] != "Bob" {
		t.Fatalf("unexpected rows %v", rows)
	}
	for _, opt := range fake.options {
		if opt != "USER_ENTERED" {
			t.Errorf("valueInputOption = %q", opt)
		}
	}
}

func TestAppendReportSkipsEmpty(t *testing.T) {
	c, fake := newTestClient(t, Config{})
	if _, err := c.AppendReport(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if len(fake.appended) != 0 {
		t.Fatal("empty report must not call the API")
	}
}

func TestAppendRateChange(t *testing.T) {
	c, fake := newTestClient(t, Config{AuditSheet: "Audit"})
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if _, err := c.AppendRateChange(context.Background(), core.PayoutRates{News: 11, Blog: 16}, at); err != nil {
		t.Fatal(err)
	}
	rows := fake.sheets["Audit"]
	if len(rows) != 2 || rows[0][0] != "Changed At" || rows[1][0] != "2024-05-01T09:00:00Z" || rows[1][1] != 11.0 {
		t.Fatalf("unexpected audit rows %v", rows)
	}
}
