package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/focuslock/focuslock/internal/config"
	"github.com/focuslock/focuslock/internal/focus"
	"github.com/focuslock/focuslock/internal/logging"
	"github.com/focuslock/focuslock/internal/model"
	"github.com/focuslock/focuslock/internal/timer"
)

// Controller is the part of the coordinator exposed over HTTP.
type Controller interface {
	Start(ctx context.Context, opts timer.StartOptions) (model.TimerStatus, error)
	Pause() (model.TimerStatus, error)
	Resume() (model.TimerStatus, error)
	Stop() model.TimerStatus
	Cancel() (model.TimerStatus, error)
	Status() model.TimerStatus
	Focusing() bool
	BlockedDomains() []string
	HideOverlay()
	CheckApps(ctx context.Context) ([]string, error)
	AppRunning(ctx context.Context, name string) (bool, error)
	ReloadConfig() error
	Schedule() focus.ScheduleInfo
}

type Router struct {
	Routes []*echo.Route
	Root   *echo.Group
	API    *echo.Group
}

// Server is the local HTTP surface: the browser extension status endpoint,
// the control API used by the CLI and prometheus metrics.
type Server struct {
	Echo   *echo.Echo
	Router *Router

	Config config.Server
	Focus  Controller

	log zerolog.Logger
}

// New creates a server and registers every route.
func New(cfg config.Server, ctrl Controller) *Server {
	if cfg.Addr == "" {
		cfg.Addr = config.DefaultServerAddr
	}
	s := &Server{
		Config: cfg,
		Focus:  ctrl,
		log:    logging.Component("server"),
	}
	s.init()
	return s
}

func (s *Server) init() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	e.Use(s.requestLogger)

	s.Echo = e
	s.Router = &Router{
		Root: e.Group(""),
		API:  e.Group("/api"),
	}

	s.Router.Routes = []*echo.Route{
		GetStatusRoute(s),
		GetMetricsRoute(s),
		GetTimerRoute(s),
		PostStartRoute(s),
		PostPauseRoute(s),
		PostResumeRoute(s),
		PostStopRoute(s),
		PostCancelRoute(s),
		PostHideOverlayRoute(s),
		PostCheckAppsRoute(s),
		GetAppRunningRoute(s),
		PostReloadConfigRoute(s),
		GetScheduleRoute(s),
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.Config.Addr).Msg("HTTP server listening")
	if err := s.Echo.Start(s.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Debug().Msg("Shutting down HTTP server")
	if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		s.log.Debug().
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Int("status", c.Response().Status).
			Msg("Request handled")
		return err
	}
}
