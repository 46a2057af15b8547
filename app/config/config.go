package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/mahesh-hegde/vizext/app/common"
	"github.com/mahesh-hegde/vizext/app/fields"
)

const (
	KindDonut = "donut"
	KindBump  = "bump"
)

// WorksheetDefn describes a table imported into the worksheet store.
type WorksheetDefn struct {
	// A name slug used in URLs and widget definitions. Eg: sales-by-region
	Name         string `json:"name"`
	ReadableName string `json:"readable_name"`
	Description  string `json:"description"`
	// .xlsx or .json file, relative to the data directory.
	DataFile string `json:"data_file"`
	// Sheet to import from an .xlsx file. Defaults to the first sheet.
	Sheet string `json:"sheet"`
}

type WidgetDefn struct {
	Name         string `json:"name"`
	ReadableName string `json:"readable_name"`
	// Markdown, rendered on the widget page.
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Worksheet   string `json:"worksheet"`
	// Role to field name bindings. These play the part of the visual
	// specification of the host.
	Encodings map[common.FieldRole]string `json:"encodings"`
	Match     fields.MatchMode            `json:"match"`
	// Rows per page when reading the worksheet. 0 reads everything at once.
	PageRowCount int `json:"page_row_count"`
}

// MatchMode returns the configured match mode, or the default for the kind:
// donut widgets accept substring matches, bump widgets need exact names.
func (w WidgetDefn) MatchMode() fields.MatchMode {
	if w.Match != "" {
		return w.Match
	}
	if w.Kind == KindDonut {
		return fields.MatchContains
	}
	return fields.MatchExact
}

type VizextConfig struct {
	InstanceName string          `json:"instance_name"`
	DataDir      string          `json:"-"`
	Hostnames    []string        `json:"hostnames"`
	Worksheets   []WorksheetDefn `json:"worksheets"`
	Widgets      []WidgetDefn    `json:"widgets"`

	TimeoutSeconds    int  `json:"timeout_seconds"`
	LogLatency        bool `json:"log_latency"`
	ChartCacheSeconds int  `json:"chart_cache_seconds"`
}

// ServerRuntimeConfig holds the options that come from the command line
// rather than from config.json.
type ServerRuntimeConfig struct {
	Addr               string
	Port               int
	CertDir            string
	AcmeEnabled        bool
	BehindLoadBalancer bool
	RateLimit          int
	GzipLevel          int
}

func (c *VizextConfig) GetWidgetByName(name string) (WidgetDefn, bool) {
	for _, w := range c.Widgets {
		if w.Name == name {
			return w, true
		}
	}
	return WidgetDefn{}, false
}

func (c *VizextConfig) GetWorksheetByName(name string) (WorksheetDefn, bool) {
	for _, w := range c.Worksheets {
		if w.Name == name {
			return w, true
		}
	}
	return WorksheetDefn{}, false
}

func (c *VizextConfig) Validate() error {
	var errs []error
	seen := map[string]bool{}
	for _, ws := range c.Worksheets {
		if ws.Name == "" {
			errs = append(errs, errors.New("worksheet without a name"))
			continue
		}
		if seen[ws.Name] {
			errs = append(errs, fmt.Errorf("duplicate worksheet %q", ws.Name))
		}
		seen[ws.Name] = true
		if ws.DataFile == "" {
			errs = append(errs, fmt.Errorf("worksheet %q has no data_file", ws.Name))
		}
	}

	widgets := map[string]bool{}
	for _, w := range c.Widgets {
		if w.Name == "" {
			errs = append(errs, errors.New("widget without a name"))
			continue
		}
		if widgets[w.Name] {
			errs = append(errs, fmt.Errorf("duplicate widget %q", w.Name))
		}
		widgets[w.Name] = true
		if !slices.Contains([]string{KindDonut, KindBump}, w.Kind) {
			errs = append(errs, fmt.Errorf("widget %q: unknown kind %q", w.Name, w.Kind))
		}
		if !seen[w.Worksheet] {
			errs = append(errs, fmt.Errorf("widget %q: unknown worksheet %q", w.Name, w.Worksheet))
		}
		if _, err := fields.ParseMatchMode(string(w.Match)); err != nil {
			errs = append(errs, fmt.Errorf("widget %q: %w", w.Name, err))
		}
		for role := range w.Encodings {
			if !role.Valid() {
				errs = append(errs, fmt.Errorf("widget %q: unknown role %q", w.Name, role))
			}
		}
		if w.PageRowCount < 0 {
			errs = append(errs, fmt.Errorf("widget %q: negative page_row_count", w.Name))
		}
	}
	return errors.Join(errs...)
}

// Load reads and validates config.json from dataDir.
func Load(dataDir string) (*VizextConfig, error) {
	confFile, err := os.Open(filepath.Join(dataDir, "config.json"))
	if err != nil {
		return nil, fmt.Errorf("error while opening config.json: %w", err)
	}
	defer confFile.Close()

	var conf VizextConfig
	if err := json.NewDecoder(confFile).Decode(&conf); err != nil {
		return nil, fmt.Errorf("error while reading config.json: %w", err)
	}
	conf.DataDir = dataDir
	if conf.InstanceName == "" {
		conf.InstanceName = "vizext"
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config.json: %w", err)
	}
	return &conf, nil
}
