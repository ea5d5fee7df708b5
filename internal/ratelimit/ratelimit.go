// Package ratelimit provides per-caller sliding-window admission control
// for paths that invoke the generation collaborator. The limiter is a
// courtesy control, not a security boundary: occasional slop under extreme
// races is acceptable, double-admission in normal operation is not.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is the admission check the orchestrator consults. Injected as an
// interface so tests can force either outcome.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// SlidingWindow admits up to limit requests per key within a rolling
// window. Timestamps are pruned lazily on each check; there is no
// background sweep.
type SlidingWindow struct {
	mu         sync.Mutex
	windows    map[string]*window
	limit      int
	windowSize time.Duration
	now        func() time.Time
}

type window struct {
	mu       sync.Mutex
	requests []time.Time
}

func NewSlidingWindow(limit int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windows:    make(map[string]*window),
		limit:      limit,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// Allow records and admits the request if the key has quota left in the
// current window. The per-key lock makes check-then-append atomic.
func (l *SlidingWindow) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	w, exists := l.windows[key]
	if !exists {
		w = &window{}
		l.windows[key] = w
	}
	l.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := l.now().Add(-l.windowSize)
	valid := w.requests[:0]
	for _, t := range w.requests {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	w.requests = valid

	if len(w.requests) >= l.limit {
		return false, nil
	}
	w.requests = append(w.requests, l.now())
	return true, nil
}

// Reset clears the recorded requests for a key.
func (l *SlidingWindow) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}
