package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mahesh-hegde/vizext/app/config"
	"github.com/mahesh-hegde/vizext/app/docstore"
	"github.com/mahesh-hegde/vizext/app/draw"
	"github.com/mahesh-hegde/vizext/app/host"
	"github.com/mahesh-hegde/vizext/app/server"
	"github.com/mahesh-hegde/vizext/app/widget"
	"github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "import":
		runImport()
	case "server":
		runServer()
	case "render":
		runRender()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: vizext <command> [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  import        Import configured worksheets into vizext.db")
	fmt.Fprintln(os.Stderr, "  server        Start the vizext server")
	fmt.Fprintln(os.Stderr, "  render        Refresh one widget and write its SVG")
}

func mustLoadConfig(dataDir string) *config.VizextConfig {
	if dataDir == "" {
		slog.Error("--data-dir not provided, stopping")
		os.Exit(1)
	}
	conf, err := config.Load(dataDir)
	if err != nil {
		slog.Error("error while loading config", "err", err)
		os.Exit(1)
	}
	return conf
}

func mustInitDB(ctx context.Context, conf *config.VizextConfig) *docstore.Stores {
	stores, err := docstore.InitDB(ctx, conf)
	if err != nil {
		slog.Error("error while initializing DB", "err", err)
		os.Exit(1)
	}
	return stores
}

// buildWidgets turns the configured widget definitions into widgets backed
// by the worksheet store.
func buildWidgets(conf *config.VizextConfig, stores *docstore.Stores) (*widget.Registry, error) {
	var widgets []*widget.Widget
	for _, defn := range conf.Widgets {
		w, err := widget.New(widget.Options{
			Name:        defn.Name,
			Title:       defn.ReadableName,
			Description: defn.Description,
			Kind:        widget.Kind(defn.Kind),
			Source:      stores.Worksheets.Source(defn.Worksheet, defn.PageRowCount),
			Encodings:   host.StaticEncodings(defn.Encodings),
			MatchMode:   defn.MatchMode(),
			Settings:    stores.Settings.For(defn.Name),
		})
		if err != nil {
			return nil, err
		}
		widgets = append(widgets, w)
	}
	return widget.NewRegistry(widgets...)
}

func runImport() {
	flags := pflag.NewFlagSet("import", pflag.ExitOnError)
	var dataDir string
	flags.StringVarP(&dataDir, "data-dir", "d", "",
		"data directory to read config.json and worksheet files")

	flags.Parse(os.Args[2:])

	conf := mustLoadConfig(dataDir)
	ctx := context.Background()
	stores := mustInitDB(ctx, conf)
	defer stores.Close()
	if stores.Imported {
		return
	}

	if err := docstore.ImportWorksheets(ctx, stores.Worksheets, conf); err != nil {
		slog.Error("error while importing worksheets", "err", err)
		os.Exit(1)
	}
}

func runServer() {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	var dataDir string
	var serverConf config.ServerRuntimeConfig
	flags.StringVarP(&serverConf.Addr, "address", "a", "localhost", "Server address to bind")
	flags.IntVarP(&serverConf.Port, "port", "p", 8080, "Server port to bind")
	flags.StringVarP(&dataDir, "data-dir", "d", "",
		"data directory to read config.json and worksheet files")
	flags.StringVar(&serverConf.CertDir, "cert-dir", "", "directory with fullchain.pem and privkey.pem, or the ACME cache")
	flags.BoolVar(&serverConf.AcmeEnabled, "acme", false, "obtain certificates through ACME for the configured hostnames")
	flags.BoolVar(&serverConf.BehindLoadBalancer, "behind-lb", false, "rate limit by the forwarded client address")
	flags.IntVar(&serverConf.RateLimit, "rate-limit", 0, "requests per second per client, 0 disables")
	flags.IntVar(&serverConf.GzipLevel, "gzip-level", 0, "gzip compression level, 0 disables")

	flags.Parse(os.Args[2:])

	conf := mustLoadConfig(dataDir)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores := mustInitDB(ctx, conf)
	defer stores.Close()

	registry, err := buildWidgets(conf, stores)
	if err != nil {
		slog.Error("error while building widgets", "err", err)
		os.Exit(1)
	}
	catalog, err := docstore.BuildCatalog(ctx, stores.Worksheets, conf)
	if err != nil {
		slog.Error("error while building catalog", "err", err)
		os.Exit(1)
	}
	defer catalog.Close()

	registry.InitAll(ctx)

	controller := server.NewVizController(conf, registry, stores.Settings, catalog)
	e, err := server.NewEchoServer(controller, conf, serverConf)
	if err != nil {
		slog.Error("error while creating server", "err", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during shutdown", "err", err)
		}
	}()

	fmt.Printf("Starting server on %s:%d\n", serverConf.Addr, serverConf.Port)
	if err := server.StartServer(e, conf, serverConf); err != nil && ctx.Err() == nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func runRender() {
	flags := pflag.NewFlagSet("render", pflag.ExitOnError)
	var dataDir, widgetName, output string
	var size draw.Size
	flags.StringVarP(&dataDir, "data-dir", "d", "",
		"data directory to read config.json and worksheet files")
	flags.StringVarP(&widgetName, "widget", "w", "", "widget to render (required)")
	flags.StringVarP(&output, "output", "o", "", "output file, stdout if not given")
	flags.IntVar(&size.Width, "width", draw.DefaultSize.Width, "chart width in pixels")
	flags.IntVar(&size.Height, "height", draw.DefaultSize.Height, "chart height in pixels")

	flags.Parse(os.Args[2:])

	if widgetName == "" {
		fmt.Fprintln(os.Stderr, "Error: --widget is required")
		os.Exit(1)
	}

	conf := mustLoadConfig(dataDir)
	ctx := context.Background()
	stores := mustInitDB(ctx, conf)
	defer stores.Close()

	registry, err := buildWidgets(conf, stores)
	if err != nil {
		slog.Error("error while building widgets", "err", err)
		os.Exit(1)
	}
	w, ok := registry.Get(widgetName)
	if !ok {
		slog.Error("no such widget", "widget", widgetName)
		os.Exit(1)
	}

	snap := w.Init(ctx)
	if !snap.HasData() {
		slog.Warn("widget has no data, writing placeholder", "widget", widgetName, "reason", snap.Reason)
	}

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			slog.Error("error while creating output file", "err", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if err := snap.Render(out, size.Clamp()); err != nil {
		slog.Error("error while rendering", "err", err)
		os.Exit(1)
	}
}
