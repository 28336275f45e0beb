package webutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMakeHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"bad request", ErrBadRequest("invalid page size"), http.StatusBadRequest, "invalid page size"},
		{"default message", ErrNotFound(""), http.StatusNotFound, "Resource not found"},
		{"wrapped", ErrConflictWrap("cannot save now", errors.New("editing")), http.StatusConflict, "cannot save now"},
		{"internal hides cause", ErrInternalServerWrap("write rates", errors.New("disk full")), http.StatusInternalServerError, "Internal Server Error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := MakeHandler(func(w http.ResponseWriter, r *http.Request) error { return tt.err })
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid body %q: %v", rec.Body.String(), err)
			}
			if body["error"] != tt.wantMsg {
				t.Fatalf("error = %q, want %q", body["error"], tt.wantMsg)
			}
		})
	}
}

func TestMakeHandlerSuccessLeavesResponse(t *testing.T) {
	h := MakeHandler(func(w http.ResponseWriter, r *http.Request) error {
		RespondWithJSON(w, http.StatusCreated, map[string]int{"n": 1})
		return nil
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
	if rec.Code != http.StatusCreated || rec.Body.String() != `{"n":1}` {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(HeaderContentType); ct != ContentTypeJSONUTF8 {
		t.Fatalf("content type = %q", ct)
	}
}

func TestRespondWithNotification(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithNotification(rec, http.StatusInternalServerError, "error", "Failed to generate PDF")
	want := `{"notification":{"type":"error","message":"Failed to generate PDF"}}`
	if rec.Code != http.StatusInternalServerError || rec.Body.String() != want {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHTTPErrorUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := ErrBadRequestWrap("", cause)
	if !errors.Is(err, cause) || err.Message != "Bad Request" {
		t.Fatalf("unexpected error %+v", err)
	}
}
