package cache

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/agenthands/chainmap/internal/model"
)

// Tiered is the two-tier Store: a bounded LRU in front of a durable TTL
// tier. Reads promote durable hits into the fast tier so repeated lookups
// converge to in-process latency.
type Tiered struct {
	fast    *lru.Cache[string, *Entry]
	durable Durable
	log     *zap.Logger
}

// NewTiered builds the store. durable may be nil, in which case only the
// fast tier is used.
func NewTiered(capacity int, d Durable, logger *zap.Logger) (*Tiered, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fast, err := lru.New[string, *Entry](capacity)
	if err != nil {
		return nil, err
	}
	return &Tiered{fast: fast, durable: d, log: logger}, nil
}

func (t *Tiered) Get(ctx context.Context, key string) (*Entry, bool) {
	if e, ok := t.fast.Get(key); ok {
		return e, true
	}
	if t.durable == nil {
		return nil, false
	}

	e, err := t.durable.load(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			t.log.Warn("durable cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	t.fast.Add(key, e)
	return e, true
}

func (t *Tiered) Set(ctx context.Context, key string, g *model.Graph, source string) {
	e := &Entry{Graph: g, Source: source, CreatedAt: time.Now().UTC()}
	t.fast.Add(key, e)
	if t.durable == nil {
		return
	}
	// Cache is an optimization: a failed Durable write is logged, not
	// surfaced.
	if err := t.durable.save(key, e); err != nil {
		t.log.Warn("durable cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// FastLen reports the number of entries currently in the fast tier.
func (t *Tiered) FastLen() int {
	return t.fast.Len()
}

// FastContains reports whether key is resident in the fast tier without
// promoting it.
func (t *Tiered) FastContains(key string) bool {
	return t.fast.Contains(key)
}
