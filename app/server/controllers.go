package server

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/mahesh-hegde/vizext/app/bump"
	"github.com/mahesh-hegde/vizext/app/common"
	"github.com/mahesh-hegde/vizext/app/config"
	"github.com/mahesh-hegde/vizext/app/docstore"
	"github.com/mahesh-hegde/vizext/app/donut"
	"github.com/mahesh-hegde/vizext/app/draw"
	"github.com/mahesh-hegde/vizext/app/host"
	"github.com/mahesh-hegde/vizext/app/widget"
)

const (
	defaultChartCacheTTL  = 5 * time.Minute
	defaultRefreshTimeout = 30 * time.Second
	searchResultSize      = 20
)

// SettingsSource hands out the settings store of a widget.
type SettingsSource interface {
	For(widget string) host.SettingsStore
}

type VizController struct {
	conf     *config.VizextConfig
	widgets  *widget.Registry
	settings SettingsSource
	catalog  *docstore.Catalog
	charts   *cache.Cache
	md       *MarkdownConverter
}

func NewVizController(conf *config.VizextConfig, widgets *widget.Registry, settings SettingsSource, catalog *docstore.Catalog) *VizController {
	ttl := defaultChartCacheTTL
	if conf.ChartCacheSeconds > 0 {
		ttl = time.Duration(conf.ChartCacheSeconds) * time.Second
	}
	return &VizController{
		conf:     conf,
		widgets:  widgets,
		settings: settings,
		catalog:  catalog,
		charts:   cache.New(ttl, 2*ttl),
		md:       NewMarkdownConverter(),
	}
}

type widgetSummary struct {
	Name    string
	Title   string
	Kind    widget.Kind
	HasData bool
}

type widgetPage struct {
	Name        string
	Title       string
	Kind        widget.Kind
	Description template.HTML
	Fragment    template.HTML
	Legend      []donut.LegendItem
	Settings    *bump.Settings
	Snapshot    *widget.Snapshot
}

type searchPage struct {
	Query string
	Hits  []docstore.CatalogHit
}

func (vc *VizController) GetHome(c echo.Context) error {
	var summaries []widgetSummary
	for _, w := range vc.widgets.All() {
		summaries = append(summaries, widgetSummary{
			Name:    w.Name(),
			Title:   w.Title(),
			Kind:    w.Kind(),
			HasData: w.Snapshot().HasData(),
		})
	}
	return c.Render(http.StatusOK, "home", summaries)
}

func (vc *VizController) widget(c echo.Context) (*widget.Widget, error) {
	name := c.Param("name")
	w, ok := vc.widgets.Get(name)
	if !ok {
		return nil, common.NewUserVisibleError(http.StatusNotFound, fmt.Sprintf("no widget named %q", name))
	}
	return w, nil
}

func parseSize(c echo.Context) (draw.Size, error) {
	var size draw.Size
	for _, dim := range []struct {
		param string
		dst   *int
	}{{"width", &size.Width}, {"height", &size.Height}} {
		v := c.QueryParam(dim.param)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return size, common.NewUserVisibleError(http.StatusBadRequest, fmt.Sprintf("invalid %s %q", dim.param, v))
		}
		*dim.dst = n
	}
	return size.Clamp(), nil
}

// chartSVG renders the snapshot, reusing an earlier rendering of the same
// revision at the same size.
func (vc *VizController) chartSVG(snap *widget.Snapshot, size draw.Size) ([]byte, error) {
	key := fmt.Sprintf("%s:%d:%dx%d", snap.Widget, snap.Revision, size.Width, size.Height)
	if cached, found := vc.charts.Get(key); found {
		return cached.([]byte), nil
	}
	var buf bytes.Buffer
	if err := snap.Render(&buf, size); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", snap.Widget, err)
	}
	vc.charts.Set(key, buf.Bytes(), cache.DefaultExpiration)
	return buf.Bytes(), nil
}

func (vc *VizController) GetWidget(c echo.Context) error {
	w, err := vc.widget(c)
	if err != nil {
		return err
	}
	snap := w.Snapshot()
	svgDoc, err := vc.chartSVG(snap, draw.DefaultSize)
	if err != nil {
		return err
	}
	fragment, err := templ.ToGoHTML(c.Request().Context(), ChartFragment(snap, svgDoc))
	if err != nil {
		return err
	}
	page := widgetPage{
		Name:        w.Name(),
		Title:       w.Title(),
		Kind:        w.Kind(),
		Description: vc.md.ConvertToHTML(w.Description()),
		Fragment:    fragment,
		Settings:    snap.Settings,
		Snapshot:    snap,
	}
	if snap.HasData() && snap.Donut != nil {
		page.Legend = donut.Legend(*snap.Donut)
	}
	return c.Render(http.StatusOK, "widget", page)
}

func (vc *VizController) GetChartSVG(c echo.Context) error {
	w, err := vc.widget(c)
	if err != nil {
		return err
	}
	size, err := parseSize(c)
	if err != nil {
		return err
	}
	svgDoc, err := vc.chartSVG(w.Snapshot(), size)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/svg+xml", svgDoc)
}

func (vc *VizController) GetFragment(c echo.Context) error {
	w, err := vc.widget(c)
	if err != nil {
		return err
	}
	size, err := parseSize(c)
	if err != nil {
		return err
	}
	snap := w.Snapshot()
	svgDoc, err := vc.chartSVG(snap, size)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return ChartFragment(snap, svgDoc).Render(c.Request().Context(), c.Response().Writer)
}

func (vc *VizController) GetData(c echo.Context) error {
	w, err := vc.widget(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w.Snapshot())
}

// refreshContext detaches a refresh from the request, so a client going
// away does not cancel it half way, while still bounding it in time.
func (vc *VizController) refreshContext(c echo.Context) (context.Context, context.CancelFunc) {
	timeout := defaultRefreshTimeout
	if vc.conf.TimeoutSeconds > 0 {
		timeout = time.Duration(vc.conf.TimeoutSeconds) * time.Second
	}
	return context.WithTimeout(context.WithoutCancel(c.Request().Context()), timeout)
}

func (vc *VizController) PostRefresh(c echo.Context) error {
	w, err := vc.widget(c)
	if err != nil {
		return err
	}
	ctx, cancel := vc.refreshContext(c)
	defer cancel()
	return c.JSON(http.StatusOK, w.DataChanged(ctx))
}

func (vc *VizController) bumpSettings(c echo.Context) (*widget.Widget, host.SettingsStore, error) {
	w, err := vc.widget(c)
	if err != nil {
		return nil, nil, err
	}
	if w.Kind() != widget.KindBump {
		return nil, nil, common.NewUserVisibleError(http.StatusNotFound, fmt.Sprintf("widget %q has no settings", w.Name()))
	}
	return w, vc.settings.For(w.Name()), nil
}

func (vc *VizController) GetSettings(c echo.Context) error {
	_, store, err := vc.bumpSettings(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bump.Load(c.Request().Context(), store))
}

// settingsUpdate has pointer fields so that keys left out of the request
// keep their current value.
type settingsUpdate struct {
	BgColor  *string  `json:"bgColor"`
	MaxLines *int     `json:"maxLines"`
	Colors   []string `json:"colors"`
}

func (vc *VizController) PutSettings(c echo.Context) error {
	w, store, err := vc.bumpSettings(c)
	if err != nil {
		return err
	}
	var upd settingsUpdate
	if err := c.Bind(&upd); err != nil {
		return common.NewUserVisibleError(http.StatusBadRequest, "settings must be a JSON object")
	}

	ctx := c.Request().Context()
	s := bump.Load(ctx, store)
	if upd.BgColor != nil {
		s.BgColor = strings.TrimSpace(*upd.BgColor)
	}
	if upd.MaxLines != nil {
		s.MaxLines = *upd.MaxLines
	}
	if upd.Colors != nil {
		s.Colors = upd.Colors
	}
	if err := s.Validate(); err != nil {
		return common.NewUserVisibleError(http.StatusBadRequest, err.Error())
	}
	if err := bump.Save(ctx, store, s); err != nil {
		return err
	}
	snap := w.SettingsChanged(ctx)
	return c.JSON(http.StatusOK, snap.Settings)
}

func (vc *VizController) SearchWorksheets(c echo.Context) error {
	q := c.QueryParam("q")
	hits, err := vc.catalog.Search(c.Request().Context(), q, searchResultSize)
	if err != nil {
		return common.WrapErrorForResponse(err, "search failed")
	}
	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) {
		if hits == nil {
			hits = []docstore.CatalogHit{}
		}
		return c.JSON(http.StatusOK, hits)
	}
	return c.Render(http.StatusOK, "search", searchPage{Query: q, Hits: hits})
}
