package server

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// MarkdownConverter renders widget descriptions. Raw HTML in the source is
// not passed through.
type MarkdownConverter struct {
	goldmark goldmark.Markdown
}

func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{
		goldmark: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		),
	}
}

// ConvertToHTML returns the rendered description, or an empty string when
// the source cannot be converted.
func (mc *MarkdownConverter) ConvertToHTML(text string) template.HTML {
	if text == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := mc.goldmark.Convert([]byte(text), &buf); err != nil {
		slog.Warn("failed to convert markdown to html", "err", err)
		return ""
	}
	return template.HTML(buf.String())
}
