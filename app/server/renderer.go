package server

import (
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/mahesh-hegde/vizext/app/config"
)

type TemplateRenderer struct {
	tmpl   *template.Template
	conf   *config.VizextConfig
	assets *HashFS
}

func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	wrappedData := map[string]any{
		"Page":       name,
		"Data":       data,
		"Instance":   t.conf.InstanceName,
		"Stylesheet": t.assets.FormatWithHash("style.css"),
	}
	err := t.tmpl.ExecuteTemplate(w, "layout.html", wrappedData)
	if err != nil {
		c.Logger().Error(err)
		return err
	}
	return nil
}

func NewTemplateRenderer(conf *config.VizextConfig, assets *HashFS) *TemplateRenderer {
	return &TemplateRenderer{
		tmpl:   MustParseTemplates(),
		conf:   conf,
		assets: assets,
	}
}
