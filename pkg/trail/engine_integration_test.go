package trail_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/smear/pkg/memhost"
	"github.com/vito/smear/pkg/trail"
)

// newLiveEngine builds a full engine (event loop and all) on an in-memory
// host. The host's timer never fires, so ticks only happen through Step.
func newLiveEngine(t *testing.T, mutate func(*trail.Options)) (*trail.Engine, *memhost.Host) {
	t.Helper()
	opts := trail.DefaultOptions()
	opts.DelayAfterKeyMs = 0
	opts.DelayEventToSmearMs = 0
	if mutate != nil {
		mutate(&opts)
	}
	host := memhost.New()
	e, err := trail.Setup(opts, host)
	require.NoError(t, err)
	t.Cleanup(trail.Teardown)
	return e, host
}

func TestBurstOfWindowSwitchesConverges(t *testing.T) {
	const windows = 8
	e, host := newLiveEngine(t, func(o *trail.Options) {
		o.MaxKeptWindows = windows
		o.SmearBetweenBuffers = true
		o.Retrigger = "truncate"
	})

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		host.SetCursor(trail.Position{
			Win: 1 + rng.Intn(windows),
			Buf: 1 + rng.Intn(windows),
			Row: rng.Intn(50),
			Col: rng.Intn(200),
		})
		e.OnKey()
		res := e.Step(1)
		require.LessOrEqual(t, res.Outstanding, windows, "step %d", i)
		require.LessOrEqual(t, host.FloatingWindows(), windows, "step %d", i)
	}

	res := e.Step(512)
	assert.Zero(t, res.ActiveTrails)
	assert.Zero(t, res.Outstanding)
	assert.Zero(t, host.FloatingWindows(),
		"every floating window is destroyed once the burst settles")
	assert.Zero(t, host.VisibleWindows())
}

func TestWarmReuseLimitsSurfaceChurn(t *testing.T) {
	e, host := newLiveEngine(t, func(o *trail.Options) {
		o.Retrigger = "truncate"
	})

	host.SetCursor(trail.Position{Win: 1, Buf: 1, Row: 0, Col: 0})
	e.OnKey()
	e.Step(1)

	// Back-and-forth motion in one window, fast enough that the old trail is
	// still decaying when the next one starts. Its surfaces are parked and
	// reused warm instead of being destroyed and recreated per trail.
	for i := 0; i < 20; i++ {
		col := 0
		if i%2 == 0 {
			col = 10
		}
		host.SetCursor(trail.Position{Win: 1, Buf: 1, Row: 0, Col: col})
		e.OnKey()
		e.Step(4)
	}

	assert.LessOrEqual(t, host.Created(), 8,
		"warm reuse keeps surface creation bounded across repeated trails")
	assert.Greater(t, host.Moves(), 40)

	e.Step(64)
	assert.Zero(t, host.FloatingWindows())
	assert.Equal(t, host.Created(), host.Destroyed())
}

func TestCreateFailureRecovers(t *testing.T) {
	e, host := newLiveEngine(t, nil)

	host.SetCursor(trail.Position{Win: 1, Buf: 1, Row: 0, Col: 0})
	e.OnKey()
	e.Step(1)

	host.FailCreates(true)
	host.SetCursor(trail.Position{Win: 1, Buf: 1, Row: 0, Col: 5})
	e.OnKey()
	res := e.Step(16)
	assert.Zero(t, host.FloatingWindows(), "no surfaces while the host refuses")
	assert.Positive(t, res.Pool.Misses)

	host.FailCreates(false)
	host.SetCursor(trail.Position{Win: 1, Buf: 1, Row: 5, Col: 5})
	e.OnKey()
	e.Step(1)
	assert.Positive(t, host.FloatingWindows(), "creation resumes once the host recovers")

	e.Step(64)
	assert.Zero(t, host.FloatingWindows())
}

func TestStepResultsAreDeterministicAcrossEngines(t *testing.T) {
	script := func(e *trail.Engine, host *memhost.Host) []trail.StepResult {
		var out []trail.StepResult
		positions := []trail.Position{
			{Win: 1, Buf: 1, Row: 0, Col: 0},
			{Win: 1, Buf: 1, Row: 0, Col: 20},
			{Win: 1, Buf: 1, Row: 15, Col: 20},
			{Win: 1, Buf: 1, Row: 15, Col: 3},
		}
		for _, pos := range positions {
			host.SetCursor(pos)
			e.OnKey()
			out = append(out, e.Step(7))
		}
		out = append(out, e.Step(100))
		return out
	}

	e1, h1 := newLiveEngine(t, func(o *trail.Options) { o.Retrigger = "truncate" })
	resA := script(e1, h1)
	e2, h2 := newLiveEngine(t, func(o *trail.Options) { o.Retrigger = "truncate" })
	resB := script(e2, h2)

	assert.Equal(t, resA, resB)
	assert.Equal(t, h1.Moves(), h2.Moves())
	assert.Equal(t, h1.Created(), h2.Created())
}
