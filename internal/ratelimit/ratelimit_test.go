package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaWithinWindow(t *testing.T) {
	l := NewSlidingWindow(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "caller-1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be admitted", i)
	}
	ok, err := l.Allow(ctx, "caller-1")
	require.NoError(t, err)
	assert.False(t, ok, "request past quota must be denied")
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewSlidingWindow(1, time.Minute)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "caller-1")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "caller-1")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "caller-2")
	assert.True(t, ok, "another caller has its own window")
}

func TestWindowSlides(t *testing.T) {
	l := NewSlidingWindow(2, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "caller-1")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "caller-1")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "caller-1")
	assert.False(t, ok)

	// Move past the window; old timestamps prune away.
	now = now.Add(61 * time.Second)
	ok, _ = l.Allow(ctx, "caller-1")
	assert.True(t, ok)
}

func TestReset(t *testing.T) {
	l := NewSlidingWindow(1, time.Minute)
	ctx := context.Background()

	l.Allow(ctx, "caller-1")
	ok, _ := l.Allow(ctx, "caller-1")
	assert.False(t, ok)

	l.Reset("caller-1")
	ok, _ = l.Allow(ctx, "caller-1")
	assert.True(t, ok)
}

func TestConcurrentAdmissionStaysAtQuota(t *testing.T) {
	const quota = 10
	l := NewSlidingWindow(quota, time.Minute)
	ctx := context.Background()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(ctx, "caller-1"); ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(quota), admitted.Load())
}
