package draw

import (
	"math"
	"strings"
)

type Point struct {
	X, Y float64
}

// CatmullRom builds SVG path data through pts using a Catmull-Rom spline
// with the given alpha (0.5 is centripetal), expressed as cubic Béziers.
// Fewer than two points give an empty path.
func CatmullRom(pts []Point, alpha float64) string {
	if len(pts) < 2 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("M" + Num(pts[0].X) + "," + Num(pts[0].Y))
	if len(pts) == 2 {
		sb.WriteString("L" + Num(pts[1].X) + "," + Num(pts[1].Y))
		return sb.String()
	}

	const epsilon = 1e-12
	for i := 0; i+1 < len(pts); i++ {
		p1, p2 := pts[i], pts[i+1]
		p0, p3 := p1, p2
		if i > 0 {
			p0 = pts[i-1]
		}
		if i+2 < len(pts) {
			p3 = pts[i+2]
		}

		l01a, l01_2a := powDist(p0, p1, alpha)
		l12a, l12_2a := powDist(p1, p2, alpha)
		l23a, l23_2a := powDist(p2, p3, alpha)

		c1, c2 := p1, p2
		if l01a > epsilon {
			a := 2*l01_2a + 3*l01a*l12a + l12_2a
			n := 3 * l01a * (l01a + l12a)
			c1.X = (p1.X*a - p0.X*l12_2a + p2.X*l01_2a) / n
			c1.Y = (p1.Y*a - p0.Y*l12_2a + p2.Y*l01_2a) / n
		}
		if l23a > epsilon {
			b := 2*l23_2a + 3*l23a*l12a + l12_2a
			m := 3 * l23a * (l23a + l12a)
			c2.X = (p2.X*b + p1.X*l23_2a - p3.X*l12_2a) / m
			c2.Y = (p2.Y*b + p1.Y*l23_2a - p3.Y*l12_2a) / m
		}
		sb.WriteString("C" + Num(c1.X) + "," + Num(c1.Y) + " " +
			Num(c2.X) + "," + Num(c2.Y) + " " +
			Num(p2.X) + "," + Num(p2.Y))
	}
	return sb.String()
}

func powDist(a, b Point, alpha float64) (la, l2a float64) {
	d2 := (b.X-a.X)*(b.X-a.X) + (b.Y-a.Y)*(b.Y-a.Y)
	l2a = math.Pow(d2, alpha)
	return math.Sqrt(l2a), l2a
}

// AnnularSector builds path data for a ring segment centred on the origin.
// Angles are in radians, clockwise from 12 o'clock. pad is the angular gap
// split between both ends of the segment.
func AnnularSector(inner, outer, start, end, pad float64) string {
	if end-start > pad {
		start += pad / 2
		end -= pad / 2
	} else {
		mid := (start + end) / 2
		start, end = mid, mid
	}
	// A full ring cannot be drawn with a single arc command.
	if end-start >= 2*math.Pi-1e-9 {
		end = start + 2*math.Pi - 1e-6
	}
	large := "0"
	if end-start > math.Pi {
		large = "1"
	}
	at := func(r, a float64) string {
		return Num(r*math.Sin(a)) + "," + Num(-r*math.Cos(a))
	}
	var sb strings.Builder
	sb.WriteString("M" + at(outer, start))
	sb.WriteString("A" + Num(outer) + "," + Num(outer) + " 0 " + large + " 1 " + at(outer, end))
	if inner > 0 {
		sb.WriteString("L" + at(inner, end))
		sb.WriteString("A" + Num(inner) + "," + Num(inner) + " 0 " + large + " 0 " + at(inner, start))
	} else {
		sb.WriteString("L0,0")
	}
	sb.WriteString("Z")
	return sb.String()
}
