package newsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"payboard/internal/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, "secret", WithHTTPClient(srv.Client()))
}

func TestFetchArticlesBuildsQuery(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/everything" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		got = map[string]string{"q": q.Get("q"), "from": q.Get("from"), "to": q.Get("to"), "language": q.Get("language"), "key": r.Header.Get("X-Api-Key")}
		if q.Has("apiKey") {
			t.Errorf("API key must not travel in the query string")
		}
		w.Write([]byte(`{"status":"ok","totalResults":2,"articles":[
			{"author":"Ann","source":{"id":null,"name":"Wire"},"publishedAt":"2025-03-01T10:00:00Z","title":"one"},
			{"author":null,"source":{"name":"Blogspot"},"publishedAt":"2025-03-02T10:00:00Z","type":"blog"}
		]}`))
	})

	articles, err := c.FetchArticles(context.Background(), core.FetchFilter{DateFrom: "2025-03-01", DateTo: "2025-03-05"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"q": "technology", "from": "2025-03-01", "to": "2025-03-05", "language": "en", "key": "secret"}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("param %s: got %q want %q", k, got[k], v)
		}
	}
	if len(articles) != 2 || articles[0].AuthorName() != "Ann" || articles[1].AuthorName() != core.UnknownName {
		t.Fatalf("unexpected articles: %+v", articles)
	}
}

func TestFetchArticlesTypeFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","articles":[{"author":"a"},{"author":"b","type":"blog"},{"author":"c","type":"news"}]}`))
	})
	blogs, err := c.FetchArticles(context.Background(), core.FetchFilter{Type: core.FetchBlog})
	if err != nil || len(blogs) != 1 || blogs[0].Author != "b" {
		t.Fatalf("unexpected blog filter result: %+v %v", blogs, err)
	}
	newsOnly, err := c.FetchArticles(context.Background(), core.FetchFilter{Type: core.FetchNews})
	if err != nil || len(newsOnly) != 2 {
		t.Fatalf("unexpected news filter result: %+v %v", newsOnly, err)
	}
}

func TestFetchArticlesErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		invalid bool
	}{
		{"api error", http.StatusUnauthorized, `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`, "Your API key is invalid.", false},
		{"server error without body", http.StatusBadGateway, ``, "unexpected status 502", false},
		{"articles not a list", http.StatusOK, `{"status":"ok","articles":{"author":"x"}}`, "", true},
		{"articles missing", http.StatusOK, `{"status":"ok"}`, "", true},
		{"not json", http.StatusOK, `<html>`, "", true},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		})
		articles, err := c.FetchArticles(context.Background(), core.FetchFilter{})
		var fe *core.FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("%s: expected FetchError, got %v", tc.name, err)
		}
		if articles != nil {
			t.Fatalf("%s: expected no articles", tc.name)
		}
		if tc.invalid && !errors.Is(err, core.ErrInvalidResponse) {
			t.Fatalf("%s: expected ErrInvalidResponse, got %v", tc.name, err)
		}
		if tc.wantMsg != "" && fe.Message() != tc.wantMsg {
			t.Fatalf("%s: message %q, want %q", tc.name, fe.Message(), tc.wantMsg)
		}
	}
}

func TestFetchArticlesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	c := New(srv.URL, "k", WithHTTPClient(&http.Client{}), WithTimeout(20*time.Millisecond))
	_, err := c.FetchArticles(context.Background(), core.FetchFilter{})
	var fe *core.FetchError
	if !errors.As(err, &fe) || fe.Op != "request" {
		t.Fatalf("expected request FetchError, got %v", err)
	}
}

func TestFetchArticlesConnectionRefusedHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := New(addr, "SECRET-KEY-123", WithTimeout(time.Second))
	_, err := c.FetchArticles(context.Background(), core.FetchFilter{})
	var fe *core.FetchError
	if !errors.As(err, &fe) || fe.Op != "request" {
		t.Fatalf("expected request FetchError, got %v", err)
	}
	if fe.Message() != core.MsgFetchFailed {
		t.Fatalf("message = %q, want %q", fe.Message(), core.MsgFetchFailed)
	}
	if strings.Contains(err.Error(), "SECRET-KEY-123") {
		t.Fatalf("error leaks the API key: %v", err)
	}
}

func TestFetchArticlesRejectsBadFilter(t *testing.T) {
	c := New("http://127.0.0.1:1", "k")
	_, err := c.FetchArticles(context.Background(), core.FetchFilter{DateFrom: "03/01/2025"})
	if !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDecodeDocument(t *testing.T) {
	arr, err := DecodeDocument([]byte(` [{"author":"a"}] `))
	if err != nil || len(arr) != 1 {
		t.Fatalf("array: %+v %v", arr, err)
	}
	env, err := DecodeDocument([]byte(`{"status":"ok","articles":[]}`))
	if err != nil || env == nil || len(env) != 0 {
		t.Fatalf("envelope: %+v %v", env, err)
	}
	if _, err := DecodeDocument([]byte(`"text"`)); !errors.Is(err, core.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}
