package trail

import "time"

// Debouncer coalesces rapid key events so the clock is not re-triggered
// faster than the configured cadence. No event is dropped: the newest
// position within the debounce window simply becomes the eventual Motion's
// destination.
type Debouncer struct {
	quiet time.Duration

	pos      Position
	hasPos   bool
	deadline time.Time
}

func NewDebouncer(delayAfterKey time.Duration) *Debouncer {
	return &Debouncer{quiet: delayAfterKey}
}

// Observe records a key event at now with the cursor at pos. Each event
// pushes the settle deadline out by the quiet time and replaces the pending
// destination.
func (d *Debouncer) Observe(now time.Time, pos Position) {
	d.pos = pos
	d.hasPos = true
	d.deadline = now.Add(d.quiet)
}

// Settle reports the coalesced position once the quiet time has elapsed.
// A settled position is consumed: it is handed out exactly once.
func (d *Debouncer) Settle(now time.Time) (Position, bool) {
	if !d.hasPos || now.Before(d.deadline) {
		return Position{}, false
	}
	d.hasPos = false
	return d.pos, true
}

// Pending reports whether a key event is waiting out its quiet time.
func (d *Debouncer) Pending() bool { return d.hasPos }
