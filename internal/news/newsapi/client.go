// Package newsapi fetches articles from the NewsAPI /v2/everything endpoint.
package newsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"payboard/internal/core"
	"payboard/internal/log"
	"payboard/internal/news"
)

const (
	DefaultBaseURL  = "https://newsapi.org/v2"
	defaultLanguage = "en"
	maxBodyBytes    = 8 << 20
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *log.Logger
}

var _ news.Fetcher = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. with an httptest one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentNews) }
}

func New(baseURL, apiKey string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  log.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type envelope struct {
	Status   string          `json:"status"`
	Code     string          `json:"code"`
	Message  string          `json:"message"`
	Articles json.RawMessage `json:"articles"`
}

// FetchArticles queries /everything. The type filter is applied locally
// because the API has no notion of article type.
func (c *Client) FetchArticles(ctx context.Context, filter core.FetchFilter) ([]core.Article, error) {
	filter = filter.Normalized()
	if err := filter.Validate(); err != nil {
		return nil, &core.FetchError{Op: "validate", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(filter), nil)
	if err != nil {
		return nil, &core.FetchError{Op: "request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &core.FetchError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &core.FetchError{Op: "read", Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode != http.StatusOK || env.Status == "error" {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return nil, &core.FetchError{Op: "api", Err: errors.New(msg)}
	}
	if decodeErr != nil {
		return nil, &core.FetchError{Op: "decode", Err: core.ErrInvalidResponse}
	}

	articles, err := DecodeArticles(env.Articles)
	if err != nil {
		return nil, &core.FetchError{Op: "decode", Err: err}
	}
	articles = FilterByType(articles, filter.Type)

	c.logger.DebugContext(ctx, "NewsAPI request completed",
		log.FieldFilterKey, filter.Key(),
		log.FieldArticleCount, len(articles),
		log.FieldDuration, time.Since(start).Milliseconds())
	return articles, nil
}

func (c *Client) endpoint(f core.FetchFilter) string {
	q := url.Values{}
	query := f.SearchQuery
	if query == "" {
		query = core.DefaultSearchQuery
	}
	q.Set("q", query)
	if f.DateFrom != "" {
		q.Set("from", f.DateFrom)
	}
	if f.DateTo != "" {
		q.Set("to", f.DateTo)
	}
	q.Set("language", defaultLanguage)
	return c.baseURL + "/everything?" + q.Encode()
}

// DecodeArticles accepts only a JSON array of articles; anything else is
// core.ErrInvalidResponse.
func DecodeArticles(raw json.RawMessage) ([]core.Article, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, core.ErrInvalidResponse
	}
	var articles []core.Article
	if err := json.Unmarshal(trimmed, &articles); err != nil {
		return nil, core.ErrInvalidResponse
	}
	if articles == nil {
		articles = []core.Article{}
	}
	return articles, nil
}

// FilterByType keeps the articles whose Kind passes t.
func FilterByType(articles []core.Article, t core.FetchType) []core.Article {
	if t == "" || t == core.FetchAll {
		return articles
	}
	out := make([]core.Article, 0, len(articles))
	for _, a := range articles {
		if t.Includes(a.Kind()) {
			out = append(out, a)
		}
	}
	return out
}

// DecodeDocument reads either a bare article array or a full API response
// envelope, as saved from the endpoint.
func DecodeDocument(data []byte) ([]core.Article, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, core.ErrInvalidResponse
		}
		return DecodeArticles(env.Articles)
	}
	return DecodeArticles(trimmed)
}
