package server

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed template/*.html
var templateFs embed.FS

//go:embed static
var staticFs embed.FS

func MustParseTemplates() *template.Template {
	funcMap := template.FuncMap{
		"join": strings.Join,
	}

	return template.Must(template.New("").Funcs(funcMap).ParseFS(templateFs, "template/*.html"))
}
