package draw

import "math"

// Size of the drawing surface in pixels.
type Size struct {
	Width  int
	Height int
}

var DefaultSize = Size{Width: 800, Height: 500}

// Clamp replaces non-positive dimensions with the defaults and caps very
// large ones.
func (s Size) Clamp() Size {
	const limit = 8000
	if s.Width <= 0 {
		s.Width = DefaultSize.Width
	}
	if s.Height <= 0 {
		s.Height = DefaultSize.Height
	}
	s.Width = min(s.Width, limit)
	s.Height = min(s.Height, limit)
	return s
}

// PointScale places n evenly spaced ordinal positions on [0, extent], with
// padding expressed in steps at both ends and the remainder centred.
type PointScale struct {
	start, step float64
	index       map[string]int
}

func NewPointScale(domain []string, extent, padding float64) PointScale {
	n := len(domain)
	ps := PointScale{index: make(map[string]int, n)}
	for i, d := range domain {
		if _, ok := ps.index[d]; !ok {
			ps.index[d] = i
		}
	}
	ps.step = extent / math.Max(1, float64(n-1)+padding*2)
	ps.start = (extent - ps.step*float64(max(n-1, 0))) / 2
	return ps
}

// At returns the position of v and whether v is in the domain.
func (p PointScale) At(v string) (float64, bool) {
	i, ok := p.index[v]
	if !ok {
		return 0, false
	}
	return p.start + p.step*float64(i), true
}
