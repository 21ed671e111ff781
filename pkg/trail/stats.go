package trail

import (
	"encoding/json"
	"io"
	"time"
)

// TickStats captures what one animation tick did. Everything in here is a
// pure function of the motion sequence and tick count, never of the wall
// clock, so step-driven runs reproduce it exactly. Wall-clock timing only
// exists in the JSONL debug record.
type TickStats struct {
	// Tick is the monotonic tick counter after this tick.
	Tick uint64

	// Trails is the number of live trails after this tick.
	Trails int

	// Animating and Decaying split Trails by state.
	Animating int
	Decaying  int

	// Outstanding is the number of surface handles borrowed by trails.
	Outstanding int

	// Idle is the number of parked surfaces available for warm reuse.
	Idle int

	// AcquireMisses counts trails that skipped a frame this tick because the
	// pool was exhausted. Degraded rendering, not an error.
	AcquireMisses int

	// Released is the number of surfaces handed back to the pool this tick.
	Released int

	// Swept is the number of idle surfaces physically destroyed on the
	// settle path this tick.
	Swept int

	// HostErrors counts host-primitive failures that were downgraded to
	// skipped frames.
	HostErrors int
}

// tickStatsJSON is the JSONL record written by the debug writer.
type tickStatsJSON struct {
	Ts            int64  `json:"ts"`
	Tick          uint64 `json:"tick"`
	AdvanceUs     int64  `json:"advance_us"`
	Trails        int    `json:"trails"`
	Animating     int    `json:"animating"`
	Decaying      int    `json:"decaying"`
	Outstanding   int    `json:"outstanding"`
	Idle          int    `json:"idle"`
	AcquireMisses int    `json:"acquire_misses"`
	Released      int    `json:"released"`
	Swept         int    `json:"swept"`
	HostErrors    int    `json:"host_errors"`
}

func writeTickStats(w io.Writer, now time.Time, advance time.Duration, s TickStats) {
	if w == nil {
		return
	}
	rec := tickStatsJSON{
		Ts:            now.UnixMilli(),
		Tick:          s.Tick,
		AdvanceUs:     advance.Microseconds(),
		Trails:        s.Trails,
		Animating:     s.Animating,
		Decaying:      s.Decaying,
		Outstanding:   s.Outstanding,
		Idle:          s.Idle,
		AcquireMisses: s.AcquireMisses,
		Released:      s.Released,
		Swept:         s.Swept,
		HostErrors:    s.HostErrors,
	}
	data, _ := json.Marshal(rec)
	data = append(data, '\n')
	w.Write(data) //nolint:errcheck
}
