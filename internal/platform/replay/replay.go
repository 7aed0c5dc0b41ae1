// Package replay prevents bearer-token reuse. Tokens are self-certifying, so
// nothing expires them server-side except time; the guard pins each jti for
// the token's remaining lifetime and rejects a second presentation.
package replay

import (
	"context"
	"sync"
	"time"
)

// Guard records token IDs on first use. FirstUse returns true exactly once
// per jti within the ttl window.
type Guard interface {
	FirstUse(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// Memory is a single-process guard for development and tests.
type Memory struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{seen: make(map[string]time.Time)}
}

func (m *Memory) FirstUse(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if expiry, ok := m.seen[jti]; ok && now.Before(expiry) {
		return false, nil
	}
	m.seen[jti] = now.Add(ttl)

	// Opportunistic sweep so the map does not grow unbounded.
	if len(m.seen) > 4096 {
		for id, expiry := range m.seen {
			if now.After(expiry) {
				delete(m.seen, id)
			}
		}
	}
	return true, nil
}
