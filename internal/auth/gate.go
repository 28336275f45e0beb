// Package auth decides whether a request may see the dashboard.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"payboard/internal/cache"
	"payboard/internal/core"
	"payboard/internal/log"
)

const (
	CookieName = "payboard_session"

	// AnonymousID identifies the shared session of an open gate.
	AnonymousID = "anonymous"

	defaultSessionTTL = 12 * time.Hour
	maxSessions       = 256
)

var ErrInvalidToken = errors.New("invalid access token")

// Gate resolves the session of a request.
type Gate interface {
	CurrentSession(r *http.Request) (*core.SessionInfo, bool)
}

// TokenGate admits requests carrying a session cookie issued after a login
// with the configured access token. Without a token the gate is open.
type TokenGate struct {
	token    []byte
	ttl      time.Duration
	sessions *cache.LRUCache[core.SessionInfo]
	secure   bool
	now      func() time.Time
	logger   *log.Logger
}

var _ Gate = (*TokenGate)(nil)

func NewTokenGate(token string, ttl time.Duration, logger *log.Logger) *TokenGate {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &TokenGate{
		token:    []byte(token),
		ttl:      ttl,
		sessions: cache.NewLRUCache[core.SessionInfo](maxSessions, ttl),
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentAuth),
	}
}

// SecureCookies marks issued cookies Secure, for deployments behind TLS.
func (g *TokenGate) SecureCookies(on bool) *TokenGate {
	g.secure = on
	return g
}

// Sessions exposes the session cache for periodic cleanup.
func (g *TokenGate) Sessions() *cache.LRUCache[core.SessionInfo] {
	return g.sessions
}

// Open reports whether no access token is configured.
func (g *TokenGate) Open() bool {
	return len(g.token) == 0
}

func (g *TokenGate) CurrentSession(r *http.Request) (*core.SessionInfo, bool) {
	if g.Open() {
		return &core.SessionInfo{ID: AnonymousID, Subject: AnonymousID}, true
	}
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	info, ok := g.sessions.Get(c.Value)
	if !ok || info.Expired(g.now()) {
		return nil, false
	}
	return &info, true
}

// Login checks token in constant time and starts a session.
func (g *TokenGate) Login(ctx context.Context, token string) (core.SessionInfo, error) {
	if g.Open() {
		return core.SessionInfo{ID: AnonymousID, Subject: AnonymousID}, nil
	}
	if subtle.ConstantTimeCompare([]byte(token), g.token) != 1 {
		g.logger.WarnContext(ctx, "Rejected dashboard login", log.FieldOperation, log.OpLogin)
		return core.SessionInfo{}, ErrInvalidToken
	}
	info := core.SessionInfo{
		ID:        uuid.NewString(),
		Subject:   "dashboard",
		ExpiresAt: g.now().Add(g.ttl),
	}
	g.sessions.Set(info.ID, info)
	g.logger.InfoContext(ctx, "Dashboard session started",
		log.FieldOperation, log.OpLogin,
		log.FieldSessionID, info.ID)
	return info, nil
}

func (g *TokenGate) Logout(ctx context.Context, id string) {
	if id == "" || id == AnonymousID {
		return
	}
	g.sessions.Delete(id)
	g.logger.InfoContext(ctx, "Dashboard session ended",
		log.FieldOperation, log.OpLogout,
		log.FieldSessionID, id)
}

// Cookie returns the cookie carrying info.
func (g *TokenGate) Cookie(info core.SessionInfo) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    info.ID,
		Path:     "/",
		Expires:  info.ExpiresAt,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the session cookie in the browser.
func (g *TokenGate) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
