package trail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func motionBetween(from, to Position) Motion {
	return Motion{
		From:          from,
		To:            to,
		CrossesBuffer: from.Buf != to.Buf,
		CrossesWindow: from.Win != to.Win,
	}
}

func TestInterpolateHorizontal(t *testing.T) {
	path := Interpolate(motionBetween(
		Position{Win: 1, Buf: 1, Row: 3, Col: 0},
		Position{Win: 1, Buf: 1, Row: 3, Col: 4},
	))
	require.Len(t, path, 5)
	for i, p := range path {
		assert.Equal(t, 3, p.Row)
		assert.Equal(t, i, p.Col)
	}
}

func TestInterpolateVertical(t *testing.T) {
	path := Interpolate(motionBetween(
		Position{Win: 1, Buf: 1, Row: 10, Col: 7},
		Position{Win: 1, Buf: 1, Row: 4, Col: 7},
	))
	require.Len(t, path, 7)
	assert.Equal(t, Position{Win: 1, Buf: 1, Row: 10, Col: 7}, path[0])
	assert.Equal(t, Position{Win: 1, Buf: 1, Row: 4, Col: 7}, path[len(path)-1])
	for i := 1; i < len(path); i++ {
		assert.Equal(t, path[i-1].Row-1, path[i].Row)
	}
}

func TestInterpolateDiagonal(t *testing.T) {
	path := Interpolate(motionBetween(
		Position{Win: 1, Buf: 1, Row: 0, Col: 0},
		Position{Win: 1, Buf: 1, Row: 5, Col: 5},
	))
	require.Len(t, path, 6)
	for i, p := range path {
		assert.Equal(t, i, p.Row)
		assert.Equal(t, i, p.Col)
	}
}

func TestInterpolateShallowSlope(t *testing.T) {
	from := Position{Win: 1, Buf: 1, Row: 0, Col: 0}
	to := Position{Win: 1, Buf: 1, Row: 2, Col: 9}
	path := Interpolate(motionBetween(from, to))

	assert.Equal(t, from, path[0])
	assert.Equal(t, to, path[len(path)-1])

	// Each step moves at most one cell per axis, never stalls.
	for i := 1; i < len(path); i++ {
		dr := abs(path[i].Row - path[i-1].Row)
		dc := abs(path[i].Col - path[i-1].Col)
		assert.LessOrEqual(t, dr, 1)
		assert.LessOrEqual(t, dc, 1)
		assert.Positive(t, dr+dc)
	}
}

func TestInterpolateLongJumpUncapped(t *testing.T) {
	// Jump to the end of a large file: the path is not artificially capped,
	// frame budgeting is the clock's job.
	path := Interpolate(motionBetween(
		Position{Win: 1, Buf: 1, Row: 0, Col: 0},
		Position{Win: 1, Buf: 1, Row: 9999, Col: 0},
	))
	assert.Len(t, path, 10000)
}

func TestInterpolateCrossWindowUsesDestinationSpace(t *testing.T) {
	path := Interpolate(motionBetween(
		Position{Win: 1, Buf: 1, Row: 0, Col: 0},
		Position{Win: 2, Buf: 2, Row: 3, Col: 3},
	))
	for _, p := range path {
		assert.Equal(t, 2, p.Win)
		assert.Equal(t, 2, p.Buf)
	}
}

func TestInterpolateDeterministic(t *testing.T) {
	m := motionBetween(
		Position{Win: 1, Buf: 1, Row: 17, Col: 3},
		Position{Win: 1, Buf: 1, Row: 2, Col: 91},
	)
	first := Interpolate(m)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Interpolate(m))
	}
}
