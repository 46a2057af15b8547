package server

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/mahesh-hegde/vizext/app/widget"
)

// inlineSVG strips the XML declaration so the document can be embedded in
// HTML.
func inlineSVG(svgDoc []byte) []byte {
	if bytes.HasPrefix(svgDoc, []byte("<?xml")) {
		if i := bytes.Index(svgDoc, []byte("?>")); i >= 0 {
			svgDoc = bytes.TrimLeft(svgDoc[i+2:], "\r\n")
		}
	}
	return svgDoc
}

// ChartFragment wraps an already rendered chart in a figure element that
// carries the widget state as data attributes.
func ChartFragment(snap *widget.Snapshot, svgDoc []byte) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		mode := string(snap.Mode)
		_, err := fmt.Fprintf(w, `<figure class="widget-chart" data-widget="%s" data-kind="%s" data-mode="%s" data-revision="%d">`,
			templ.EscapeString(snap.Widget), templ.EscapeString(string(snap.Kind)), templ.EscapeString(mode), snap.Revision)
		if err != nil {
			return err
		}
		if err := templ.Raw(string(inlineSVG(svgDoc))).Render(ctx, w); err != nil {
			return err
		}
		if !snap.HasData() {
			if _, err := fmt.Fprintf(w, `<figcaption class="empty">%s</figcaption>`, templ.EscapeString(snap.Reason)); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, "</figure>")
		return err
	})
}
