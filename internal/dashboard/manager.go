package dashboard

import (
	"time"

	"payboard/internal/cache"
	"payboard/internal/log"
)

const maxSessions = 128

// Manager keeps one Session per gate session id. Idle sessions expire after
// the configured TTL.
type Manager struct {
	sessions *cache.LRUCache[*Session]
	logger   *log.Logger
}

func NewManager(ttl time.Duration, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	l := logger.WithComponent(log.ComponentDashboard)
	sessions := cache.NewLRUCache[*Session](maxSessions, ttl).
		OnEvict(func(id string, _ *Session) {
			l.Debug("Dashboard session evicted", log.FieldSessionID, id)
		})
	return &Manager{sessions: sessions, logger: l}
}

// Get returns the session for id, creating it on first use.
func (m *Manager) Get(id string) *Session {
	return m.sessions.GetOrCreate(id, func() *Session {
		m.logger.Debug("Dashboard session created", log.FieldSessionID, id)
		return NewSession(id, m.logger)
	})
}

func (m *Manager) Drop(id string) {
	m.sessions.Delete(id)
}

// Sessions exposes the cache for periodic cleanup.
func (m *Manager) Sessions() *cache.LRUCache[*Session] {
	return m.sessions
}
