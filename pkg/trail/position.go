package trail

// Position identifies one character cell in one window. Row and Col are
// zero-based cell coordinates within the window's grid.
type Position struct {
	Win int `msgpack:"win" json:"win"`
	Buf int `msgpack:"buf" json:"buf"`
	Row int `msgpack:"row" json:"row"`
	Col int `msgpack:"col" json:"col"`
}

// Motion is one qualifying cursor transition. It is created once per settled
// input event and consumed by the interpolator.
type Motion struct {
	From Position
	To   Position

	CrossesBuffer bool
	CrossesWindow bool
}

// Tracker records cursor position transitions and classifies them. It holds
// only the previously observed position; the suppression decision itself is
// pure: the same previous/current pair always classifies the same way under
// a fixed Config.
type Tracker struct {
	cfg     Config
	prev    Position
	hasPrev bool
}

func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Observe compares the previous position against cur and reports the Motion
// to animate, if any. The previous position is always updated, including for
// suppressed transitions, so a suppressed cross-buffer jump still re-anchors
// the tracker in the new buffer.
func (t *Tracker) Observe(cur Position) (Motion, bool) {
	prev, had := t.prev, t.hasPrev
	t.prev, t.hasPrev = cur, true

	if !had || prev == cur {
		return Motion{}, false
	}

	m := Motion{
		From:          prev,
		To:            cur,
		CrossesBuffer: prev.Buf != cur.Buf,
		CrossesWindow: prev.Win != cur.Win,
	}

	if m.CrossesBuffer && !t.cfg.SmearBetweenBuffers {
		return Motion{}, false
	}

	// The neighbor-lines knob only affects vertical moves: a one-line move in
	// the same column is suppressed when it is off. Horizontal moves between
	// adjacent columns are unaffected.
	if !t.cfg.SmearBetweenNeighborLines &&
		!m.CrossesWindow && !m.CrossesBuffer &&
		prev.Col == cur.Col && abs(prev.Row-cur.Row) == 1 {
		return Motion{}, false
	}

	return m, true
}

// Reset forgets the previously observed position. The next Observe anchors
// without emitting a Motion.
func (t *Tracker) Reset() {
	t.hasPrev = false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
