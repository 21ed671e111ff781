// Package memhost provides an in-memory trail.Host for tests and for the
// stress harness. Surfaces are plain records; timers never fire on their
// own, so callers drive the engine deterministically through Step.
package memhost

import (
	"fmt"
	"sync"
	"time"

	"github.com/vito/smear/pkg/trail"
)

// Surface is the recorded state of one simulated overlay.
type Surface struct {
	Pos    trail.Position
	Hidden bool
	Moves  int
}

// Host implements trail.Host entirely in memory. The mutex makes it safe to
// inspect from a test while an engine loop owns it.
type Host struct {
	mu     sync.Mutex
	cursor trail.Position
	next   trail.SurfaceHandle
	live   map[trail.SurfaceHandle]*Surface

	created   int
	destroyed int
	moves     int

	failCreates bool

	// MoveCost, when set, is added to every MoveOverlay call to simulate a
	// slow host on the hot path.
	MoveCost time.Duration
}

func New() *Host {
	return &Host{live: map[trail.SurfaceHandle]*Surface{}}
}

// SetCursor positions the simulated cursor for the next CursorPosition query.
func (h *Host) SetCursor(pos trail.Position) {
	h.mu.Lock()
	h.cursor = pos
	h.mu.Unlock()
}

// FailCreates makes CreateOverlay refuse, simulating a host that is out of
// resources.
func (h *Host) FailCreates(fail bool) {
	h.mu.Lock()
	h.failCreates = fail
	h.mu.Unlock()
}

func (h *Host) CursorPosition() (trail.Position, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor, nil
}

func (h *Host) CreateOverlay() (trail.SurfaceHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failCreates {
		return 0, fmt.Errorf("create overlay: refused")
	}
	h.next++
	h.live[h.next] = &Surface{Hidden: true}
	h.created++
	return h.next, nil
}

func (h *Host) MoveOverlay(handle trail.SurfaceHandle, pos trail.Position) error {
	if h.MoveCost > 0 {
		time.Sleep(h.MoveCost)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.live[handle]
	if !ok {
		return fmt.Errorf("move overlay: unknown handle %d", handle)
	}
	s.Pos = pos
	s.Hidden = false
	s.Moves++
	h.moves++
	return nil
}

func (h *Host) HideOverlay(handle trail.SurfaceHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.live[handle]
	if !ok {
		return fmt.Errorf("hide overlay: unknown handle %d", handle)
	}
	s.Hidden = true
	return nil
}

func (h *Host) DestroyOverlay(handle trail.SurfaceHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.live[handle]; !ok {
		return fmt.Errorf("destroy overlay: unknown handle %d", handle)
	}
	delete(h.live, handle)
	h.destroyed++
	return nil
}

// ScheduleRepeating returns a no-op stop function without ever firing fn.
// Engines on a memhost are advanced manually via Step.
func (h *Host) ScheduleRepeating(time.Duration, func()) (func(), error) {
	return func() {}, nil
}

// FloatingWindows is the number of surfaces that currently exist, hidden or
// not. This is what the convergence checks measure after a settle wait.
func (h *Host) FloatingWindows() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

// VisibleWindows is the number of surfaces currently shown.
func (h *Host) VisibleWindows() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, s := range h.live {
		if !s.Hidden {
			n++
		}
	}
	return n
}

// Created and Destroyed report cumulative surface churn.
func (h *Host) Created() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.created
}

func (h *Host) Destroyed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

// Moves reports cumulative MoveOverlay calls.
func (h *Host) Moves() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.moves
}

// Snapshot returns a copy of every live surface keyed by handle.
func (h *Host) Snapshot() map[trail.SurfaceHandle]Surface {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[trail.SurfaceHandle]Surface, len(h.live))
	for k, v := range h.live {
		out[k] = *v
	}
	return out
}
