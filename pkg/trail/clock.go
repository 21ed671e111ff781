package trail

import (
	"log/slog"
	"time"
)

type trailState int

const (
	trailPending trailState = iota
	trailAnimating
	trailDecaying
	trailRetired
)

func (s trailState) String() string {
	switch s {
	case trailPending:
		return "pending"
	case trailAnimating:
		return "animating"
	case trailDecaying:
		return "decaying"
	case trailRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// decayDepth is how many surfaces a trail keeps visible behind its head
// while animating. Older segments are released back to the pool as the head
// moves on, which is what produces the fade-out.
const decayDepth = 4

// Trail is the live animation state for one motion. It is owned exclusively
// by the Clock; nothing else mutates it.
type Trail struct {
	path        []Position
	cursorIndex int
	surfaces    []SurfaceHandle // oldest first
	win         int
	startedAt   time.Time
	animateAt   time.Time
	state       trailState
	truncated   bool
}

// State exposes the lifecycle phase for diagnostics and tests.
func (t *Trail) State() string { return t.state.String() }

// Clock is the single cooperative animation loop. It advances all active
// trails once per tick, in insertion order, retiring finished ones and
// returning their surfaces to the pool. It is only ever driven from the
// engine's event loop, by the host timer in production and by Step in tests.
type Clock struct {
	cfg    Config
	host   Host
	pool   *SurfacePool
	trails []*Trail
	ticks  uint64
}

func NewClock(cfg Config, host Host, pool *SurfacePool) *Clock {
	return &Clock{cfg: cfg, host: host, pool: pool}
}

// Add schedules a trail for the given motion, settled at the given time.
// The re-trigger policy decides what happens when the destination window
// already has a live trail: Finish drops the new motion, Truncate marks the
// old trail for early retirement and animates the new one.
func (c *Clock) Add(m Motion, settledAt time.Time) bool {
	for _, t := range c.trails {
		if t.state == trailRetired || t.win != m.To.Win {
			continue
		}
		switch c.cfg.Retrigger {
		case RetriggerFinish:
			slog.Debug("trail re-trigger dropped", "win", m.To.Win)
			return false
		case RetriggerTruncate:
			t.truncated = true
		}
	}

	c.trails = append(c.trails, &Trail{
		path:        Interpolate(m),
		cursorIndex: -1, // first animating tick lands on the path origin
		win:         m.To.Win,
		startedAt:   settledAt,
		animateAt:   settledAt.Add(c.cfg.DelayEventToSmear),
		state:       trailPending,
	})
	return true
}

// TruncateAll marks every live trail for early retirement. Surfaces are
// released cooperatively on the next tick, never mid-call.
func (c *Clock) TruncateAll() {
	for _, t := range c.trails {
		t.truncated = true
	}
}

// Trails is the number of live trails.
func (c *Clock) Trails() int { return len(c.trails) }

// Ticks is the monotonic tick counter.
func (c *Clock) Ticks() uint64 { return c.ticks }

// Tick advances all trails by one frame. It never fails: host-primitive
// errors are logged and downgraded to skipped frames, so a single bad frame
// is self-healing. When the last trail retires the pool is swept back
// toward baseline.
func (c *Clock) Tick(now time.Time) TickStats {
	c.ticks++
	stats := TickStats{Tick: c.ticks}

	hadTrails := len(c.trails) > 0

	for _, t := range c.trails {
		c.advanceTrail(t, now, &stats)
	}

	// Drop retired trails, preserving FIFO order of the rest.
	live := c.trails[:0]
	for _, t := range c.trails {
		if t.state != trailRetired {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(c.trails); i++ {
		c.trails[i] = nil
	}
	c.trails = live

	if hadTrails && len(c.trails) == 0 {
		stats.Swept = c.pool.ShrinkToIdle()
	}

	stats.Trails = len(c.trails)
	for _, t := range c.trails {
		switch t.state {
		case trailAnimating:
			stats.Animating++
		case trailDecaying:
			stats.Decaying++
		}
	}
	stats.Outstanding = c.pool.Outstanding()
	stats.Idle = c.pool.Idle()
	return stats
}

func (c *Clock) advanceTrail(t *Trail, now time.Time, stats *TickStats) {
	if t.truncated && t.state != trailRetired {
		t.state = trailDecaying
	}

	switch t.state {
	case trailPending:
		if now.Before(t.animateAt) {
			return
		}
		t.state = trailAnimating
		fallthrough

	case trailAnimating:
		if t.cursorIndex < len(t.path)-1 {
			t.cursorIndex++
		}
		head := t.path[t.cursorIndex]

		h, ok := c.pool.Acquire()
		if !ok {
			// Pool exhausted or host refused; skip this frame and retry on
			// the next tick.
			stats.AcquireMisses++
		} else if err := c.host.MoveOverlay(h, head); err != nil {
			slog.Debug("surface move failed", "handle", h, "error", err)
			stats.HostErrors++
			c.pool.Release(h)
		} else {
			t.surfaces = append(t.surfaces, h)
		}

		// Fade out segments behind the head, oldest first.
		for len(t.surfaces) > decayDepth {
			c.pool.Release(t.surfaces[0])
			t.surfaces = t.surfaces[1:]
			stats.Released++
		}

		if t.cursorIndex == len(t.path)-1 {
			t.state = trailDecaying
		}

	case trailDecaying:
		// One surface per tick, oldest first, to avoid a visible snap.
		if len(t.surfaces) > 0 {
			c.pool.Release(t.surfaces[0])
			t.surfaces = t.surfaces[1:]
			stats.Released++
		}
		if len(t.surfaces) == 0 {
			t.state = trailRetired
		}
	}
}
