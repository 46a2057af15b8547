package draw

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"
)

// Canvas starts an SVG document of the given size on w.
func Canvas(w io.Writer, size Size) *svg.SVG {
	canvas := svg.New(w)
	canvas.Start(size.Width, size.Height, `font-family="sans-serif"`)
	return canvas
}

// Empty draws the placeholder shown when a widget has nothing to chart.
func Empty(w io.Writer, size Size, theme Theme, title, message string) error {
	size = size.Clamp()
	ew, werr := NewErrWriter(w)
	canvas := Canvas(ew, size)
	canvas.Gid("empty")
	if theme.Background != "" {
		canvas.Rect(0, 0, size.Width, size.Height, fmt.Sprintf("fill:%s", theme.Background))
	}
	cx, cy := size.Width/2, size.Height/2
	canvas.Circle(cx, cy-44, 18, fmt.Sprintf("fill:none;stroke:%s;stroke-width:2", theme.Subtext))
	canvas.Text(cx, cy, title, fmt.Sprintf("text-anchor:middle;font-size:15px;font-weight:600;fill:%s", theme.Text))
	canvas.Text(cx, cy+22, message, fmt.Sprintf("text-anchor:middle;font-size:12px;fill:%s", theme.Subtext))
	canvas.Gend()
	canvas.End()
	return werr()
}

// errWriter remembers the first write error, since svgo does not report
// them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

// NewErrWriter wraps w so that the first write error can be retrieved
// once svgo is done with it.
func NewErrWriter(w io.Writer) (io.Writer, func() error) {
	ew := &errWriter{w: w}
	return ew, func() error { return ew.err }
}
