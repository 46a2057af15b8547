package bump

import (
	"fmt"
	"io"

	"github.com/aclements/go-moremath/scale"

	"github.com/mahesh-hegde/vizext/app/draw"
)

var margin = struct{ top, right, bottom, left int }{top: 40, right: 130, bottom: 50, left: 50}

const (
	periodPadding = 0.3
	curveAlpha    = 0.5
	dotRadius     = 7
)

// Colors maps each selected series to a colour of the palette, in
// selection order.
func Colors(top []string, palette []string) map[string]string {
	out := make(map[string]string, len(top))
	for i, s := range top {
		out[s] = draw.Ordinal(palette, i)
	}
	return out
}

// Draw writes the chart as SVG. Rank 1 is at the top. Every dot has a
// <title> with series, period, rank and value for hover.
func Draw(w io.Writer, c Chart, size draw.Size, s Settings) error {
	size = size.Clamp()
	theme := s.Theme()
	ew, werr := draw.NewErrWriter(w)
	canvas := draw.Canvas(ew, size)
	canvas.Rect(0, 0, size.Width, size.Height, fmt.Sprintf("fill:%s", s.BgColor))

	iw := float64(max(size.Width-margin.left-margin.right, 1))
	ih := float64(max(size.Height-margin.top-margin.bottom, 1))
	canvas.Gtransform(fmt.Sprintf("translate(%d,%d)", margin.left, margin.top))

	maxRank := c.MaxRank()
	xs := draw.NewPointScale(c.Periods, iw, periodPadding)
	ranks := scale.Linear{Min: 1, Max: float64(maxRank)}
	ys := func(rank int) float64 { return ranks.Map(float64(rank)) * ih }
	px := func(v float64) int { return int(v + 0.5) }

	canvas.Group(`class="grid"`)
	for r := 1; r <= maxRank; r++ {
		y := px(ys(r))
		canvas.Line(0, y, px(iw), y, fmt.Sprintf("stroke:%s;stroke-dasharray:4,4", theme.Grid))
		canvas.Text(-12, y, fmt.Sprintf("#%d", r),
			fmt.Sprintf("text-anchor:end;dominant-baseline:central;font-size:10px;fill:%s", theme.Subtext))
	}
	for _, p := range c.Periods {
		x, _ := xs.At(p)
		canvas.Text(px(x), px(ih)+24, p,
			fmt.Sprintf("text-anchor:middle;font-size:11px;fill:%s", theme.Subtext))
	}
	canvas.Gend()

	colors := Colors(c.TopSeries, s.Colors)
	for _, series := range c.TopSeries {
		points := c.Series(series)
		color := colors[series]

		canvas.Group(`class="series"`, fmt.Sprintf(`data-series="%s"`, draw.Attr(series)))
		coords := make([]draw.Point, len(points))
		for i, p := range points {
			x, _ := xs.At(p.Period)
			coords[i] = draw.Point{X: x, Y: ys(p.Rank)}
		}
		if d := draw.CatmullRom(coords, curveAlpha); d != "" {
			canvas.Path(d, `class="bump-line"`,
				fmt.Sprintf("fill:none;stroke:%s;stroke-width:3;stroke-opacity:0.85", color))
		}
		for i, p := range points {
			x, y := px(coords[i].X), px(coords[i].Y)
			canvas.Group(`class="bump-dot"`)
			canvas.Title(fmt.Sprintf("%s\n%s · Rank #%d\nValue: %s", p.Series, p.Period, p.Rank, draw.Thousands(p.Value)))
			canvas.Circle(x, y, dotRadius, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:2.5", color, s.BgColor))
			canvas.Text(x, y, fmt.Sprintf("%d", p.Rank),
				fmt.Sprintf("text-anchor:middle;dominant-baseline:central;font-size:9px;font-weight:700;fill:%s", theme.OnMark))
			canvas.Gend()
		}
		if n := len(points); n > 0 {
			last := coords[n-1]
			canvas.Text(px(last.X)+16, px(last.Y), draw.Truncate(series, 14, 13),
				fmt.Sprintf("dominant-baseline:central;font-size:11px;font-weight:600;fill:%s", color))
		}
		canvas.Gend()
	}

	canvas.Gend()
	canvas.End()
	return werr()
}
