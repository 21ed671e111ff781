package trail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAcquireCreatesUpToCapacity(t *testing.T) {
	host := newStubHost()
	pool := NewSurfacePool(host, 3)

	for i := 0; i < 3; i++ {
		_, ok := pool.Acquire()
		require.True(t, ok)
	}
	assert.Equal(t, 3, host.created)
	assert.Equal(t, 3, pool.Outstanding())

	// At capacity with nothing idle: a soft miss, not an error.
	_, ok := pool.Acquire()
	assert.False(t, ok)
	assert.Equal(t, uint64(1), pool.Stats().Misses)
	assert.Equal(t, 3, host.created, "no surface created on a miss")
}

func TestPoolReleaseIsTwoPhase(t *testing.T) {
	host := newStubHost()
	pool := NewSurfacePool(host, 2)

	h, ok := pool.Acquire()
	require.True(t, ok)

	pool.Release(h)
	assert.Equal(t, 0, pool.Outstanding())
	assert.Equal(t, 1, pool.Idle())
	assert.Equal(t, 1, host.hides, "released surface is hidden")
	assert.Equal(t, 0, host.destroyed, "destruction is deferred")

	// Reacquire reuses the warm surface instead of creating a new one.
	h2, ok := pool.Acquire()
	require.True(t, ok)
	assert.Equal(t, h, h2)
	assert.Equal(t, 1, host.created)
}

func TestPoolWarmReuseIsMostRecentFirst(t *testing.T) {
	host := newStubHost()
	pool := NewSurfacePool(host, 3)

	a, _ := pool.Acquire()
	b, _ := pool.Acquire()
	c, _ := pool.Acquire()

	pool.Release(a)
	pool.Release(b)
	pool.Release(c)

	got, ok := pool.Acquire()
	require.True(t, ok)
	assert.Equal(t, c, got, "most recently released surface is reused first")
}

func TestPoolShrinkToIdleDestroys(t *testing.T) {
	host := newStubHost()
	pool := NewSurfacePool(host, 4)

	var handles []SurfaceHandle
	for i := 0; i < 4; i++ {
		h, _ := pool.Acquire()
		handles = append(handles, h)
	}
	for _, h := range handles {
		pool.Release(h)
	}
	require.Equal(t, 4, pool.Idle())
	require.Equal(t, 0, host.destroyed)

	swept := pool.ShrinkToIdle()
	assert.Equal(t, 4, swept)
	assert.Equal(t, 0, pool.Idle())
	assert.Equal(t, 4, host.destroyed)
	assert.Equal(t, uint64(4), pool.Stats().Destroys)
	assert.Equal(t, 0, host.floating())
}

func TestPoolHostCreateFailureIsSoft(t *testing.T) {
	host := newStubHost()
	host.failCreate = true
	pool := NewSurfacePool(host, 2)

	_, ok := pool.Acquire()
	assert.False(t, ok)
	assert.Equal(t, uint64(1), pool.Stats().Misses)

	// Host recovers, so does the pool.
	host.failCreate = false
	_, ok = pool.Acquire()
	assert.True(t, ok)
}

func TestPoolLiveNeverExceedsCapacity(t *testing.T) {
	host := newStubHost()
	pool := NewSurfacePool(host, 2)

	for i := 0; i < 20; i++ {
		h, ok := pool.Acquire()
		if ok && i%3 == 0 {
			pool.Release(h)
		}
		assert.LessOrEqual(t, pool.Live(), 2, "iteration %d", i)
		assert.LessOrEqual(t, pool.Outstanding(), 2, "iteration %d", i)
	}
}
