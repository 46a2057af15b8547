package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mahesh-hegde/vizext/app/common"
	"github.com/mahesh-hegde/vizext/app/config"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/time/rate"
)

// wantsJSON tells API requests apart from page requests when reporting
// errors.
func wantsJSON(c echo.Context) bool {
	req := c.Request()
	if req.Method != http.MethodGet {
		return true
	}
	p := req.URL.Path
	return strings.HasSuffix(p, "/data") || strings.HasSuffix(p, "/settings") ||
		strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// NewEchoServer builds the echo instance with middleware and routes. It does
// not start listening.
func NewEchoServer(controller *VizController, vizConf *config.VizextConfig, serverConf config.ServerRuntimeConfig) (*echo.Echo, error) {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprintf("%v", he.Message)
			}
		}

		var ue *common.UserVisibleError
		if errors.As(err, &ue) {
			code = ue.HttpCode
			msg = ue.Message
		}

		c.Logger().Error(err)

		if c.Response().Committed {
			return
		}
		if wantsJSON(c) {
			if jsonErr := c.JSON(code, map[string]string{"error": msg}); jsonErr != nil {
				c.Logger().Error(jsonErr)
			}
			return
		}
		if renderErr := c.Render(code, "error", msg); renderErr != nil {
			c.Logger().Error(renderErr)
		}
	}
	e.HideBanner = true
	if serverConf.CertDir != "" {
		e.Pre(middleware.HTTPSRedirect())
	}
	e.Pre(middleware.RemoveTrailingSlash())
	if serverConf.AcmeEnabled && len(vizConf.Hostnames) > 0 {
		e.Pre(echo.MiddlewareFunc(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				req := c.Request()
				url := req.URL
				if req.Host != vizConf.Hostnames[0] {
					url.Host = vizConf.Hostnames[0]
					url.Scheme = "https"
					slog.Info("redirect to canonical hostname", "original_hostname", req.Host)
					return c.Redirect(http.StatusPermanentRedirect, url.String())
				}
				return next(c)
			}
		}))
	}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	var identifierExtractor middleware.Extractor

	if serverConf.BehindLoadBalancer {
		identifierExtractor = func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		}
	} else {
		identifierExtractor = func(ctx echo.Context) (string, error) {
			return ctx.Request().RemoteAddr, nil
		}
	}

	if serverConf.RateLimit > 0 {
		rlConfig := middleware.RateLimiterConfig{
			Skipper: middleware.DefaultSkipper,
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(serverConf.RateLimit),
					Burst:     3 * serverConf.RateLimit,
					ExpiresIn: 3 * time.Minute,
				},
			),
			IdentifierExtractor: identifierExtractor,
			ErrorHandler: func(context echo.Context, err error) error {
				return context.String(http.StatusForbidden, "Forbidden")
			},
			DenyHandler: func(context echo.Context, identifier string, err error) error {
				return context.String(http.StatusTooManyRequests, "Too Many Requests")
			},
		}

		e.Use(middleware.RateLimiterWithConfig(rlConfig))
	}

	if serverConf.GzipLevel != 0 {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{Level: serverConf.GzipLevel, MinLength: 512}))
	}

	if vizConf.TimeoutSeconds != 0 {
		e.Use(middleware.ContextTimeout(time.Duration(vizConf.TimeoutSeconds) * time.Second))
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogError:     true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogLatency:   vizConf.LogLatency,
		HandleError:  true, // forwards error to the global error handler, so it can decide appropriate status code
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				logger.LogAttrs(context.Background(), slog.LevelInfo, "REQUEST",
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Int64("latency_ms", v.Latency.Milliseconds()),
					slog.String("remote_ip", v.RemoteIP),
					slog.String("request_id", v.RequestID),
				)
			} else {
				logger.LogAttrs(context.Background(), slog.LevelError, "REQUEST_ERROR",
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.String("err", v.Error.Error()),
					slog.String("remote_ip", v.RemoteIP),
					slog.String("request_id", v.RequestID),
					slog.Int64("latency_ms", v.Latency.Milliseconds()),
				)
			}
			return nil
		},
	}))

	staticDir, err := fs.Sub(staticFs, "static")
	if err != nil {
		return nil, err
	}
	staticServerHashFs, err := NewHashFS(staticDir)
	if err != nil {
		return nil, err
	}

	e.Renderer = NewTemplateRenderer(vizConf, staticServerHashFs)

	e.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static/", staticServerHashFs)))

	e.GET("/", controller.GetHome)
	e.GET("/widgets/:name", controller.GetWidget).Name = "widget"
	e.GET("/widgets/:name/chart.svg", controller.GetChartSVG)
	e.GET("/widgets/:name/fragment", controller.GetFragment)
	e.GET("/widgets/:name/data", controller.GetData)
	e.POST("/widgets/:name/refresh", controller.PostRefresh)
	e.GET("/widgets/:name/settings", controller.GetSettings)
	e.PUT("/widgets/:name/settings", controller.PutSettings)
	e.GET("/worksheets/search", controller.SearchWorksheets)

	return e, nil
}

// StartServer listens until the server fails. TLS comes either from
// certificates in CertDir or, with ACME enabled, from autocert using CertDir
// as the cache.
func StartServer(e *echo.Echo, vizConf *config.VizextConfig, serverConf config.ServerRuntimeConfig) error {
	addr := fmt.Sprintf("%s:%d", serverConf.Addr, serverConf.Port)
	certDir := serverConf.CertDir

	if certDir == "" {
		slog.Info("starting server", "addr", addr)
		return e.Start(addr)
	}
	if serverConf.AcmeEnabled {
		slog.Info("using TLS with ACME", "dir", certDir)
		e.AutoTLSManager.HostPolicy = autocert.HostWhitelist(vizConf.Hostnames...)
		e.AutoTLSManager.Cache = autocert.DirCache(certDir)
		return e.StartAutoTLS(addr)
	}
	slog.Info("using TLS with certDir", "dir", certDir)
	return e.StartTLS(addr, path.Join(certDir, "fullchain.pem"), path.Join(certDir, "privkey.pem"))
}
