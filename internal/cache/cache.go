package cache

import (
	"context"
	"sync"
	"time"

	"github.com/1cbyc/view0x-sub000/internal/model"
)

// Store maps an analysis fingerprint to a previously computed merged
// result. Implementations must provide atomic per-key get/set; the
// orchestrator holds no locks of its own.
type Store interface {
	Get(ctx context.Context, fingerprint string) (*model.MergedResult, bool, error)
	Set(ctx context.Context, fingerprint string, result *model.MergedResult, ttl time.Duration) error
}

type entry struct {
	result    *model.MergedResult
	expiresAt time.Time
}

// Memory is a TTL-bounded in-process store, used in tests and as the
// default when no backend is configured.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]entry{}, now: time.Now}
}

func (m *Memory) Get(ctx context.Context, fingerprint string) (*model.MergedResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[fingerprint]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.entries, fingerprint)
		return nil, false, nil
	}
	return e.result, true, nil
}

func (m *Memory) Set(ctx context.Context, fingerprint string, result *model.MergedResult, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.entries[fingerprint] = entry{result: result, expiresAt: exp}
	return nil
}
