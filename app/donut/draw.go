package donut

import (
	"fmt"
	"io"
	"math"

	"github.com/mahesh-hegde/vizext/app/draw"
)

var Palette = []string{
	"#2D6BE4", "#E8543A", "#2ECC8A", "#F5A623",
	"#9B59B6", "#1ABC9C", "#E74C3C", "#3498DB",
	"#F39C12", "#27AE60", "#8E44AD", "#16A085",
	"#D35400", "#2980B9", "#C0392B", "#7F8C8D",
}

const (
	outerRatio = 0.78
	innerRatio = 0.52
	padAngle   = 0.025
)

type LegendItem struct {
	Label   string
	Color   string
	Percent string
}

// Legend lists slices in drawing order with their colour and share.
func Legend(ds Dataset) []LegendItem {
	items := make([]LegendItem, len(ds.Points))
	for i, p := range ds.Points {
		items[i] = LegendItem{
			Label:   p.Label,
			Color:   draw.Ordinal(Palette, i),
			Percent: draw.Percent(p.Value, ds.Total),
		}
	}
	return items
}

// CenterLabel is the text in the hole of the donut: the share and label of
// the highlighted slice, or the total when nothing is highlighted.
func CenterLabel(ds Dataset, highlighted int) (value, caption string) {
	if highlighted < 0 || highlighted >= len(ds.Points) {
		return draw.Compact(ds.Total), "Total"
	}
	p := ds.Points[highlighted]
	return draw.Percent(p.Value, ds.Total), draw.Truncate(p.Label, 18, 16)
}

// Draw writes the chart as SVG. Each slice carries a <title> with its
// label, amount and share, which browsers show on hover.
func Draw(w io.Writer, ds Dataset, size draw.Size, theme draw.Theme) error {
	size = size.Clamp()
	ew, werr := draw.NewErrWriter(w)
	canvas := draw.Canvas(ew, size)

	outer := float64(min(size.Width, size.Height)) / 2 * outerRatio
	inner := outer * innerRatio
	canvas.Gtransform(fmt.Sprintf("translate(%d,%d)", size.Width/2, size.Height/2))

	angle := 0.0
	for i, p := range ds.Points {
		sweep := 0.0
		if ds.Total > 0 {
			sweep = p.Value / ds.Total * 2 * math.Pi
		}
		d := draw.AnnularSector(inner, outer, angle, angle+sweep, padAngle)
		angle += sweep

		canvas.Group(`class="slice"`, fmt.Sprintf(`data-label="%s"`, draw.Attr(p.Label)))
		canvas.Title(fmt.Sprintf("%s\n%s · %s", p.Label, draw.Compact(p.Value), draw.Percent(p.Value, ds.Total)))
		canvas.Path(d, fmt.Sprintf("fill:%s;opacity:0.92;cursor:pointer", draw.Ordinal(Palette, i)))
		canvas.Gend()
	}

	value, caption := CenterLabel(ds, -1)
	canvas.Group(`class="center-label"`)
	canvas.Text(0, -6, value, fmt.Sprintf("text-anchor:middle;font-size:22px;font-weight:700;fill:%s", theme.Text))
	canvas.Text(0, 14, caption, fmt.Sprintf("text-anchor:middle;font-size:11px;fill:%s", theme.Subtext))
	canvas.Gend()

	canvas.Gend()
	canvas.End()
	return werr()
}
