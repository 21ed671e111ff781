package trail

import (
	"fmt"
	"time"
)

// stubHost records every host call and simulates overlay surfaces. Tests
// drive engines built with newEngine, so everything runs on the test
// goroutine and no locking is needed.
type stubHost struct {
	cursor    Position
	cursorErr error

	next SurfaceHandle
	live map[SurfaceHandle]*stubSurface

	created   int
	destroyed int
	hides     int

	// moveLog records every MoveOverlay in order, for determinism checks.
	moveLog []Position

	failCreate bool
	failMove   bool
}

type stubSurface struct {
	pos    Position
	hidden bool
}

func newStubHost() *stubHost {
	return &stubHost{live: map[SurfaceHandle]*stubSurface{}}
}

func (h *stubHost) CursorPosition() (Position, error) {
	if h.cursorErr != nil {
		return Position{}, h.cursorErr
	}
	return h.cursor, nil
}

func (h *stubHost) CreateOverlay() (SurfaceHandle, error) {
	if h.failCreate {
		return 0, fmt.Errorf("create refused")
	}
	h.next++
	h.live[h.next] = &stubSurface{hidden: true}
	h.created++
	return h.next, nil
}

func (h *stubHost) MoveOverlay(handle SurfaceHandle, pos Position) error {
	if h.failMove {
		return fmt.Errorf("move refused")
	}
	s, ok := h.live[handle]
	if !ok {
		return fmt.Errorf("unknown handle %d", handle)
	}
	s.pos = pos
	s.hidden = false
	h.moveLog = append(h.moveLog, pos)
	return nil
}

func (h *stubHost) HideOverlay(handle SurfaceHandle) error {
	s, ok := h.live[handle]
	if !ok {
		return fmt.Errorf("unknown handle %d", handle)
	}
	s.hidden = true
	h.hides++
	return nil
}

func (h *stubHost) DestroyOverlay(handle SurfaceHandle) error {
	if _, ok := h.live[handle]; !ok {
		return fmt.Errorf("unknown handle %d", handle)
	}
	delete(h.live, handle)
	h.destroyed++
	return nil
}

func (h *stubHost) ScheduleRepeating(time.Duration, func()) (func(), error) {
	return func() {}, nil
}

func (h *stubHost) floating() int { return len(h.live) }

// testConfig returns a validated config with zero debounce delays so each
// settled position animates on the next step.
func testConfig(mutate ...func(*Options)) Config {
	opts := DefaultOptions()
	opts.DelayAfterKeyMs = 0
	opts.DelayEventToSmearMs = 0
	opts.SmearBetweenBuffers = false
	for _, fn := range mutate {
		fn(&opts)
	}
	cfg, err := TryNew(opts)
	if err != nil {
		panic(err)
	}
	return cfg
}

// moveAndStep points the cursor at pos, feeds a key event, and advances n
// ticks.
func moveAndStep(e *Engine, h *stubHost, pos Position, n int) StepResult {
	h.cursor = pos
	e.OnKey()
	return e.Step(n)
}
