package trail

import (
	"log/slog"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// PoolStats are cumulative surface pool counters, exposed through the
// diagnostics API.
type PoolStats struct {
	Acquires uint64 `json:"acquires"`
	Misses   uint64 `json:"misses"`
	Creates  uint64 `json:"creates"`
	Destroys uint64 `json:"destroys"`
}

// SurfacePool hands out and reclaims floating-surface handles without
// unbounded growth. Release is two-phase: a released surface is hidden and
// parked on an idle list for warm reuse; physical destruction is deferred to
// ShrinkToIdle on the settle path, amortizing host-call cost.
//
// The idle list is an LRU so the most recently released surfaces are reused
// first and the sweep evicts from the cold end.
//
// The pool is owned by the animation clock and is only touched from the
// engine's event loop; it does no locking of its own.
type SurfacePool struct {
	host     Host
	capacity int
	lowWater int

	outstanding int
	idle        *simplelru.LRU[SurfaceHandle, struct{}]
	reclaiming  bool

	stats PoolStats
}

// NewSurfacePool creates a pool bounded by capacity live surfaces. The sweep
// low-water mark is zero: a settled engine holds no surfaces at all.
func NewSurfacePool(host Host, capacity int) *SurfacePool {
	p := &SurfacePool{
		host:     host,
		capacity: capacity,
	}
	// Error only fires for capacity < 1, which TryNew already rejects.
	p.idle, _ = simplelru.NewLRU[SurfaceHandle, struct{}](capacity, p.onIdleEvict)
	return p
}

// Acquire returns a surface handle, preferring a warm idle one, creating a
// new one while under capacity, and reporting a soft failure otherwise.
// Callers must treat a miss as "skip this frame", never as an error.
func (p *SurfacePool) Acquire() (SurfaceHandle, bool) {
	p.stats.Acquires++

	if keys := p.idle.Keys(); len(keys) > 0 {
		// Keys are ordered oldest first; take the warmest.
		h := keys[len(keys)-1]
		p.reclaiming = true
		p.idle.Remove(h)
		p.reclaiming = false
		p.outstanding++
		return h, true
	}

	if p.Live() >= p.capacity {
		p.stats.Misses++
		return 0, false
	}

	h, err := p.host.CreateOverlay()
	if err != nil {
		p.stats.Misses++
		slog.Debug("surface create failed", "error", err)
		return 0, false
	}
	p.stats.Creates++
	p.outstanding++
	return h, true
}

// Release parks a surface on the idle list for reuse. The surface is hidden
// but not destroyed; ShrinkToIdle handles destruction later.
func (p *SurfacePool) Release(h SurfaceHandle) {
	if err := p.host.HideOverlay(h); err != nil {
		slog.Debug("surface hide failed", "handle", h, "error", err)
	}
	if p.outstanding > 0 {
		p.outstanding--
	}
	p.idle.Add(h, struct{}{})
}

// ShrinkToIdle physically destroys idle surfaces beyond the low-water mark,
// bringing the live surface count back toward baseline. Invoked on the
// settle path after a burst of activity.
func (p *SurfacePool) ShrinkToIdle() int {
	swept := 0
	for p.idle.Len() > p.lowWater {
		// RemoveOldest destroys through the evict callback.
		if _, _, ok := p.idle.RemoveOldest(); !ok {
			break
		}
		swept++
	}
	return swept
}

// Outstanding is the number of handles currently borrowed by trails.
func (p *SurfacePool) Outstanding() int { return p.outstanding }

// Idle is the number of parked, reusable surfaces.
func (p *SurfacePool) Idle() int { return p.idle.Len() }

// Live is the number of surfaces that physically exist in the host.
func (p *SurfacePool) Live() int { return p.outstanding + p.idle.Len() }

// Stats returns a copy of the cumulative counters.
func (p *SurfacePool) Stats() PoolStats { return p.stats }

func (p *SurfacePool) onIdleEvict(h SurfaceHandle, _ struct{}) {
	if p.reclaiming {
		// The handle is being taken back for reuse, not evicted.
		return
	}
	if err := p.host.DestroyOverlay(h); err != nil {
		slog.Debug("surface destroy failed", "handle", h, "error", err)
	}
	p.stats.Destroys++
}
