// Package draw holds the drawing primitives shared by the chart widgets:
// scales, path generators, colour handling and label formatting. Charts
// are written as SVG with svgo.
package draw
