package session

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type memoryEntry struct {
	data    map[string]any
	expires time.Time
}

// MemoryStore keeps sessions in the process memory. Sessions expire after the TTL since
// they were last put; zero TTL means they never do.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	clock    clock.Clock
}

func NewMemoryStore(ttl time.Duration, clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.New()
	}

	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		clock:    clk,
	}
}

func (m *MemoryStore) Get(_ context.Context, sid string) (string, map[string]any, error) {
	m.mu.RLock()
	entry, found := m.sessions[sid]
	m.mu.RUnlock()

	if !found || m.expired(entry) {
		return "", nil, nil
	}

	return sid, maps.Clone(entry.data), nil
}

func (m *MemoryStore) Put(_ context.Context, sid string, data map[string]any) (string, error) {
	if len(sid) == 0 {
		sid = newSID()
	}

	entry := memoryEntry{data: maps.Clone(data)}
	if m.ttl > 0 {
		entry.expires = m.clock.Now().Add(m.ttl)
	}

	m.mu.Lock()
	m.sessions[sid] = entry
	m.mu.Unlock()

	return sid, nil
}

func (m *MemoryStore) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	delete(m.sessions, sid)
	m.mu.Unlock()

	return nil
}

// DeleteExpired removes expired sessions and returns how many were removed.
func (m *MemoryStore) DeleteExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for sid, entry := range m.sessions {
		if m.expired(entry) {
			delete(m.sessions, sid)
			removed++
		}
	}

	return removed
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) expired(entry memoryEntry) bool {
	return !entry.expires.IsZero() && !m.clock.Now().Before(entry.expires)
}
