// Package trail implements a cursor-trail animation engine: a timer-driven
// loop that paints a smooth, decaying trail of floating surfaces behind the
// text cursor as it moves within and across windows.
//
// The engine is single-threaded and cooperative. All mutable state lives on
// one event-loop goroutine; host-facing methods post closures to it and the
// host timer posts tick wakeups, so trails, the surface pool, and the
// debouncer never need locking. Step drives the very same tick path with
// virtual time, which is what makes the animation deterministic under test.
package trail

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// StepResult is the diagnostics snapshot returned by Step.
type StepResult struct {
	Ticks        uint64    `json:"ticks" msgpack:"ticks"`
	ActiveTrails int       `json:"active_trails" msgpack:"active_trails"`
	Outstanding  int       `json:"outstanding" msgpack:"outstanding"`
	Idle         int       `json:"idle" msgpack:"idle"`
	Pool         PoolStats `json:"pool" msgpack:"pool"`
	Last         TickStats `json:"-" msgpack:"-"`
}

// Engine ties the debouncer, motion tracker, interpolator, clock, and pool
// together behind the host-callable API surface.
type Engine struct {
	cfg      Config
	host     Host
	pool     *SurfacePool
	clock    *Clock
	tracker  *Tracker
	debounce *Debouncer

	enabled bool

	// clockTime is the engine's notion of "now": the time of the most recent
	// tick. Wall-clock under the host timer, virtual under Step. Key events
	// are stamped against it so the step path never consults the wall clock.
	clockTime time.Time

	ticks atomic.Uint64

	cmds      chan func()
	tickCh    chan struct{}
	done      chan struct{}
	stopTimer func()
	closeOnce sync.Once

	debugMu     sync.Mutex
	debugWriter io.Writer
}

// New builds an engine and starts its event loop and the host's repeating
// timer. The returned engine is live until Close.
func New(cfg Config, host Host) (*Engine, error) {
	e := newEngine(cfg, host)
	e.cmds = make(chan func())
	e.tickCh = make(chan struct{}, 1)
	e.done = make(chan struct{})
	go e.loop()

	stop, err := host.ScheduleRepeating(cfg.TimeInterval, e.requestTick)
	if err != nil {
		close(e.done)
		return nil, err
	}
	e.stopTimer = stop
	return e, nil
}

// newEngine builds an engine without the event loop or timer. Used by tests
// that drive ticks synchronously.
func newEngine(cfg Config, host Host) *Engine {
	pool := NewSurfacePool(host, cfg.MaxKeptWindows)
	return &Engine{
		cfg:      cfg,
		host:     host,
		pool:     pool,
		clock:    NewClock(cfg, host, pool),
		tracker:  NewTracker(cfg),
		debounce: NewDebouncer(cfg.DelayAfterKey),
		enabled:  true,
	}
}

// loop runs all engine mutation on one goroutine. Commands are executed in
// arrival order; tick wakeups coalesce through a 1-buffered channel. Closing
// done stops the loop.
func (e *Engine) loop() {
	for {
		select {
		case fn := <-e.cmds:
			fn()
		case <-e.tickCh:
			e.tick(time.Now())
		case <-e.done:
			return
		}
	}
}

// do runs fn on the event loop and waits for it. Loop-less engines (tests)
// dispatch synchronously. After Close, fn is silently dropped; host calls
// racing a teardown become no-ops rather than panics.
func (e *Engine) do(fn func()) {
	if e.cmds == nil {
		fn()
		return
	}
	ran := make(chan struct{})
	select {
	case e.cmds <- func() {
		fn()
		close(ran)
	}:
	case <-e.done:
		return
	}
	select {
	case <-ran:
	case <-e.done:
	}
}

// requestTick schedules a tick on the event loop. It is the host timer's
// callback; multiple rapid requests coalesce into one. Nothing else wakes
// the tick path, which keeps Step the sole time source when the host has no
// timer.
func (e *Engine) requestTick() {
	select {
	case e.tickCh <- struct{}{}:
	default:
	}
}

// Config returns the engine's immutable configuration.
func (e *Engine) Config() Config { return e.cfg }

// SetDebugWriter enables per-tick JSONL stats logging. Pass nil to disable.
func (e *Engine) SetDebugWriter(w io.Writer) {
	e.debugMu.Lock()
	e.debugWriter = w
	e.debugMu.Unlock()
}

// OnKey notifies the engine of a raw key event. The cursor is sampled
// immediately; the debouncer decides when the resulting position has
// settled into a Motion.
func (e *Engine) OnKey() {
	pos, err := e.host.CursorPosition()
	if err != nil {
		slog.Debug("cursor query failed", "error", err)
		return
	}
	e.do(func() {
		if !e.enabled {
			return
		}
		e.debounce.Observe(e.clockTime, pos)
	})
}

// Toggle enables or disables the engine at runtime without losing its
// configuration. Disabling retires live trails cooperatively on the next
// tick and sweeps the pool.
func (e *Engine) Toggle(enabled bool) {
	e.do(func() {
		if e.enabled == enabled {
			return
		}
		e.enabled = enabled
		if !enabled {
			e.clock.TruncateAll()
			e.tracker.Reset()
		}
	})
}

// Enabled reports whether the engine is currently animating.
func (e *Engine) Enabled() bool {
	var on bool
	e.do(func() { on = e.enabled })
	return on
}

// Ping returns the monotonic tick counter. It reads atomically so liveness
// probes never block on the event loop.
func (e *Engine) Ping() uint64 {
	return e.ticks.Load()
}

// Echo returns its argument unchanged. Used to verify the host/engine
// boundary is wired correctly.
func (e *Engine) Echo(v any) any { return v }

// Step manually advances the clock by n ticks of virtual time, one
// TimeInterval per tick, and returns a diagnostics snapshot. The wall clock
// is never consulted, so a fixed Motion sequence plus a fixed step count
// yields identical trail states across runs.
func (e *Engine) Step(n int) StepResult {
	if n < 1 {
		n = 1
	}
	var res StepResult
	e.do(func() {
		var last TickStats
		for i := 0; i < n; i++ {
			e.clockTime = e.clockTime.Add(e.cfg.TimeInterval)
			last = e.tickAt(e.clockTime)
		}
		res = e.snapshotLocked()
		res.Last = last
	})
	return res
}

// Snapshot returns the diagnostics snapshot without advancing the clock.
func (e *Engine) Snapshot() StepResult {
	var res StepResult
	e.do(func() { res = e.snapshotLocked() })
	return res
}

// snapshotLocked must run on the event loop.
func (e *Engine) snapshotLocked() StepResult {
	return StepResult{
		Ticks:        e.clock.Ticks(),
		ActiveTrails: e.clock.Trails(),
		Outstanding:  e.pool.Outstanding(),
		Idle:         e.pool.Idle(),
		Pool:         e.pool.Stats(),
	}
}

// Close stops the timer, releases every surface, and shuts the event loop
// down. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		if e.stopTimer != nil {
			e.stopTimer()
		}
		e.do(func() {
			e.clock.TruncateAll()
			// Drain decays synchronously; each tick releases at least one
			// surface per trail, so this terminates quickly.
			for e.clock.Trails() > 0 {
				e.clockTime = e.clockTime.Add(e.cfg.TimeInterval)
				e.tickAt(e.clockTime)
			}
			e.pool.ShrinkToIdle()
		})
		if e.done != nil {
			close(e.done)
		}
	})
}

// tick is the wall-clock entry point used by the host timer.
func (e *Engine) tick(now time.Time) {
	e.clockTime = now
	e.tickAt(now)
}

// tickAt runs one animation frame at the given time. Production and Step
// share this exact path.
func (e *Engine) tickAt(now time.Time) TickStats {
	if pos, ok := e.debounce.Settle(now); ok && e.enabled {
		if m, ok := e.tracker.Observe(pos); ok {
			e.clock.Add(m, now)
		}
	}

	start := time.Now()
	stats := e.clock.Tick(now)
	advance := time.Since(start)
	e.ticks.Store(e.clock.Ticks())

	e.debugMu.Lock()
	w := e.debugWriter
	e.debugMu.Unlock()
	writeTickStats(w, now, advance, stats)

	return stats
}

// ---------- process-wide lifecycle -------------------------------------------

// The host's plugin-loading model expects a single addressable engine, so
// the active instance lives behind an explicit init/replace/teardown
// lifecycle rather than ad hoc globals.

var (
	activeMu sync.Mutex
	active   *Engine
)

// Setup validates opts, builds a fresh engine on host, and atomically swaps
// it in as the active instance, closing any predecessor. Idempotent in the
// sense that re-invoking replaces rather than fails.
func Setup(opts Options, host Host) (*Engine, error) {
	cfg, err := TryNew(opts)
	if err != nil {
		return nil, err
	}

	e, err := New(cfg, host)
	if err != nil {
		return nil, err
	}

	activeMu.Lock()
	prev := active
	active = e
	activeMu.Unlock()

	if prev != nil {
		prev.Close()
	}

	slog.Debug("engine ready",
		"interval", cfg.TimeInterval,
		"max_kept_windows", cfg.MaxKeptWindows,
		"retrigger", cfg.Retrigger)
	return e, nil
}

// Active returns the current engine instance, or nil before Setup.
func Active() *Engine {
	activeMu.Lock()
	defer activeMu.Unlock()
	return active
}

// Teardown closes and forgets the active engine.
func Teardown() {
	activeMu.Lock()
	prev := active
	active = nil
	activeMu.Unlock()

	if prev != nil {
		prev.Close()
	}
}
