package trail

// Interpolate computes the ordered cells a trail passes through between
// m.From and m.To, inclusive of both endpoints. It is a pure Bresenham walk
// in cell-grid space: deterministic and restartable, the same Motion always
// yields the same path.
//
// Cross-window and cross-buffer motions interpolate in the destination
// window's coordinate space; the visual jump between windows is carried by
// the first cell. Long paths are not capped here: frame budgeting belongs
// to the animation clock.
func Interpolate(m Motion) []Position {
	r0, c0 := m.From.Row, m.From.Col
	r1, c1 := m.To.Row, m.To.Col

	dr := abs(r1 - r0)
	dc := abs(c1 - c0)

	sr := 1
	if r0 > r1 {
		sr = -1
	}
	sc := 1
	if c0 > c1 {
		sc = -1
	}

	path := make([]Position, 0, max(dr, dc)+1)
	err := dc - dr
	r, c := r0, c0
	for {
		path = append(path, Position{
			Win: m.To.Win,
			Buf: m.To.Buf,
			Row: r,
			Col: c,
		})
		if r == r1 && c == c1 {
			return path
		}
		e2 := 2 * err
		if e2 > -dr {
			err -= dr
			c += sc
		}
		if e2 < dc {
			err += dc
			r += sr
		}
	}
}
