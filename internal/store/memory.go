package store

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is a process-local Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]memEntry
	now  func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: map[string]map[string]memEntry{}, now: time.Now}
}

func (m *Memory) Get(_ context.Context, clientID, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[clientID][key]
	if !ok || expired(e.expiresAt, m.now()) {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, clientID, key, value string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	vals, ok := m.data[clientID]
	if !ok {
		vals = map[string]memEntry{}
		m.data[clientID] = vals
	}
	vals[key] = memEntry{value: value, expiresAt: expiresAt}
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
