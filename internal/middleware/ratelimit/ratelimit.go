// Package ratelimit limits requests per client IP over a fixed one-minute
// window.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window     = time.Minute
	staleAfter = 10 * time.Minute
)

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// MutatingOnly exempts GET, HEAD and OPTIONS requests.
	MutatingOnly bool
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		MutatingOnly:      true,
	}
}

type clientWindow struct {
	start    time.Time
	lastSeen time.Time
	requests int
}

// Limiter tracks request counts per client. Stop releases the cleanup
// goroutine.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*clientWindow

	hits     atomic.Int64
	rejected atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	l := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*clientWindow),
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow counts one request from ip and reports whether it is within the
// limit.
func (l *Limiter) Allow(ip string) bool {
	l.hits.Add(1)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[ip]
	if !ok || now.Sub(c.start) >= window {
		l.clients[ip] = &clientWindow{start: now, lastSeen: now, requests: 1}
		return true
	}
	c.requests++
	c.lastSeen = now
	if c.requests > l.cfg.RequestsPerMinute {
		l.rejected.Add(1)
		return false
	}
	return true
}

// retryAfter is the number of seconds until ip's window resets.
func (l *Limiter) retryAfter(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.clients[ip]
	if !ok {
		return 0
	}
	secs := int((window - l.now().Sub(c.start)).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.CleanExpired()
		case <-l.stop:
			return
		}
	}
}

// CleanExpired forgets clients idle for ten minutes and returns how many
// were removed.
func (l *Limiter) CleanExpired() int {
	cutoff := l.now().Add(-staleAfter)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

type Metrics struct {
	Hits     int64
	Rejected int64
	Clients  int
}

func (l *Limiter) Metrics() Metrics {
	l.mu.Lock()
	clients := len(l.clients)
	l.mu.Unlock()
	return Metrics{
		Hits:     l.hits.Load(),
		Rejected: l.rejected.Load(),
		Clients:  clients,
	}
}

func exempt(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Middleware rejects over-limit requests with onLimit, or a plain 429 when
// onLimit is nil. Retry-After is always set.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.cfg.MutatingOnly && exempt(r) {
				next.ServeHTTP(w, r)
				return
			}
			ip := extractIP(r)
			if l.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter(ip)))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
