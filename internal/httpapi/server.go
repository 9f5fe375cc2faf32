// Package httpapi exposes read-only introspection snapshots over the
// client registry, plus a testing stub for authorization.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"qrtc/server/internal/registry"
)

// AppInfo is a static projection of the running build.
type AppInfo struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
}

// AllInfo aggregates every introspection projection into one response.
type AllInfo struct {
	App     AppInfo                        `json:"app"`
	Config  any                            `json:"config"`
	Store   registry.StoreInfo             `json:"store"`
	Clients map[uint32]registry.ClientInfo `json:"clients"`
}

// Server is the Echo application serving the introspection endpoints.
type Server struct {
	echo     *echo.Echo
	registry *registry.Registry
	app      AppInfo
	config   any
}

// New constructs an Echo app wired to reg. config is whatever value was
// loaded at startup; it is served verbatim from GET /info/config.
func New(reg *registry.Registry, app AppInfo, config any) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{echo: e, registry: reg, app: app, config: config}
	s.registerRoutes()
	return s
}

// requestLogger logs each HTTP request via slog.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			slog.Debug("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}

// Echo exposes the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.POST("/auth/allow-all", s.handleAllowAll)
	s.echo.GET("/info/app", s.handleInfoApp)
	s.echo.GET("/info/config", s.handleInfoConfig)
	s.echo.GET("/info/store", s.handleInfoStore)
	s.echo.GET("/info/clients", s.handleInfoClients)
	s.echo.GET("/info", s.handleInfoAll)
}

// Run starts Echo and blocks until ctx cancellation or startup failure.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("httpapi: shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		slog.Info("httpapi: stopped")
		return nil
	}
}

// handleAllowAll is a fixed testing stub for local development: it always
// accepts, and is never wired into the real authorization callout path.
func (s *Server) handleAllowAll(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleInfoApp(c echo.Context) error {
	return c.JSON(http.StatusOK, s.app)
}

func (s *Server) handleInfoConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, s.config)
}

func (s *Server) handleInfoStore(c echo.Context) error {
	return c.JSON(http.StatusOK, s.registry.StoreInfo())
}

func (s *Server) handleInfoClients(c echo.Context) error {
	return c.JSON(http.StatusOK, s.registry.ClientInfos())
}

func (s *Server) handleInfoAll(c echo.Context) error {
	return c.JSON(http.StatusOK, AllInfo{
		App:     s.app,
		Config:  s.config,
		Store:   s.registry.StoreInfo(),
		Clients: s.registry.ClientInfos(),
	})
}
