package trail

import "time"

// SurfaceHandle is an opaque reference to one floating overlay. Handles are
// minted by the Host and owned by the surface pool; trails only borrow them.
type SurfaceHandle int64

// Host abstracts the editor the engine lives in, so the engine can be tested
// against a fake host. All calls are synchronous and assumed reliable; any
// error is caught at the call site and downgraded to a skipped frame.
type Host interface {
	// CursorPosition reports the current cursor cell.
	CursorPosition() (Position, error)

	// CreateOverlay materializes a new floating surface, initially unplaced.
	CreateOverlay() (SurfaceHandle, error)

	// MoveOverlay positions a surface at the given cell and makes it visible.
	MoveOverlay(h SurfaceHandle, pos Position) error

	// HideOverlay makes a surface invisible without destroying it, so it can
	// be reused cheaply.
	HideOverlay(h SurfaceHandle) error

	// DestroyOverlay tears a surface down for good.
	DestroyOverlay(h SurfaceHandle) error

	// ScheduleRepeating installs a repeating timer on the host's own event
	// loop, firing fn every interval. The returned function stops it.
	ScheduleRepeating(interval time.Duration, fn func()) (stop func(), err error)
}
