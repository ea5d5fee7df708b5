// Package cache layers a bounded in-process LRU tier over a durable
// BadgerDB tier with TTL expiry. The cache is a performance optimization,
// never a correctness dependency: durable-tier failures degrade to misses
// and logged warnings.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/agenthands/chainmap/internal/model"
)

// Entry is one cached graph with its provenance. Entries are created on
// first synthesis or library load, read many times, and leave only by
// eviction (fast tier) or TTL (durable tier).
type Entry struct {
	Graph     *model.Graph `json:"graph"`
	Source    string       `json:"source"`
	CreatedAt time.Time    `json:"created_at"`
}

// Store is the cache seen by the orchestrator. Keys are normalized query
// strings. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, g *model.Graph, source string)
}

// ErrNotFound reports a durable-tier miss.
var ErrNotFound = errors.New("cache entry not found")

// Memory is a plain mutex-guarded map Store for tests and for running
// without a cache directory.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*Entry
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]*Entry)}
}

func (m *Memory) Get(ctx context.Context, key string) (*Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[key]
	return e, ok
}

func (m *Memory) Set(ctx context.Context, key string, g *model.Graph, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = &Entry{Graph: g, Source: source, CreatedAt: time.Now().UTC()}
}
