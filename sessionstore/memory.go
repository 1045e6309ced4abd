package sessionstore

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/goliatone/go-userbase"
)

const defaultCleanupInterval = 10 * time.Minute

// Memory keeps sessions in process. It suits tests and single instance
// deployments; sessions are lost on restart.
type Memory struct {
	cache *cache.Cache
}

var _ userbase.SessionStore = (*Memory)(nil)

// NewMemory returns a store purging expired sessions every cleanup
// interval. A non positive interval uses ten minutes.
func NewMemory(cleanup time.Duration) *Memory {
	if cleanup <= 0 {
		cleanup = defaultCleanupInterval
	}
	return &Memory{cache: cache.New(cache.NoExpiration, cleanup)}
}

// SaveSession implements userbase.SessionStore.
func (m *Memory) SaveSession(_ context.Context, session userbase.Session, ttl time.Duration) error {
	if session.ID == "" {
		return userbase.ErrSessionMalformed
	}
	if ttl <= 0 {
		m.cache.Delete(session.ID)
		return nil
	}
	m.cache.Set(session.ID, session, ttl)
	return nil
}

// GetSession implements userbase.SessionStore.
func (m *Memory) GetSession(_ context.Context, id string) (*userbase.Session, error) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, nil
	}
	session, ok := v.(userbase.Session)
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// DeleteSession implements userbase.SessionStore.
func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}

// Len returns the number of stored sessions, expired ones included until
// the next cleanup.
func (m *Memory) Len() int {
	return m.cache.ItemCount()
}
