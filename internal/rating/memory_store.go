package rating

import (
	"context"
	"sync"
	"time"

	"github.com/kdimtricp/movierank/internal/ranking"
)

type memoryEntry struct {
	session   ranking.Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Entries older than the TTL are
// invisible to Load and removed by Sweep.
type MemoryStore struct {
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memoryEntry
	mu       sync.RWMutex
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
	}
}

func (m *MemoryStore) Save(_ context.Context, id string, session ranking.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[id] = memoryEntry{session: session, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (ranking.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.sessions[id]
	if !exists || !m.now().Before(entry.expiresAt) {
		return ranking.Session{}, false, nil
	}
	return entry.session, true, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// Count reports sessions that have not yet expired.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	n := 0
	for _, entry := range m.sessions {
		if now.Before(entry.expiresAt) {
			n++
		}
	}
	return n, nil
}

// Sweep removes expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, entry := range m.sessions {
		if !now.Before(entry.expiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}
