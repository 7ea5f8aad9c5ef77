package kv

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type memoryItem struct {
	expiresAt time.Time
	value     []byte
}

func (item memoryItem) isExpired(now time.Time) bool {
	return !item.expiresAt.IsZero() && now.After(item.expiresAt)
}

// MemoryBackend keeps values in a map guarded by a single RWMutex.
// Expired items are dropped lazily when touched; nothing runs in the background.
type MemoryBackend struct {
	items  map[string]memoryItem
	now    func() time.Time
	closed atomic.Bool
	mu     sync.RWMutex
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// Get implements Backend.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrBackendClosed
	}

	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrKeyNotFound
	}
	if item.isExpired(m.now()) {
		m.mu.Lock()
		if current, still := m.items[key]; still && current.isExpired(m.now()) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return nil, ErrKeyNotFound
	}
	return cloneBytes(item.value), nil
}

// Set implements Backend.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.closed.Load() {
		return ErrBackendClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = m.newItem(value, ttl)
	return nil
}

// SetNX implements Backend.
func (m *MemoryBackend) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if m.closed.Load() {
		return false, ErrBackendClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.items[key]; ok && !existing.isExpired(m.now()) {
		return false, nil
	}
	m.items[key] = m.newItem(value, ttl)
	return true, nil
}

// Ping implements Backend.
func (m *MemoryBackend) Ping(context.Context) error {
	if m.closed.Load() {
		return ErrBackendClosed
	}
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	m.mu.Lock()
	m.items = make(map[string]memoryItem)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) newItem(value []byte, ttl time.Duration) memoryItem {
	item := memoryItem{value: cloneBytes(value)}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}
	return item
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
