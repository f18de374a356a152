package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func PostHideOverlayRoute(s *Server) *echo.Route {
	return s.Router.API.POST("/overlay/hide", postHideOverlayHandler(s))
}

func postHideOverlayHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.Focus.HideOverlay()
		return c.NoContent(http.StatusNoContent)
	}
}

func PostCheckAppsRoute(s *Server) *echo.Route {
	return s.Router.API.POST("/apps/check", postCheckAppsHandler(s))
}

func postCheckAppsHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		killed, err := s.Focus.CheckApps(c.Request().Context())
		if err != nil {
			return err
		}
		if killed == nil {
			killed = []string{}
		}
		return c.JSON(http.StatusOK, CheckAppsResponse{Killed: killed})
	}
}

func GetAppRunningRoute(s *Server) *echo.Route {
	return s.Router.API.GET("/apps/running", getAppRunningHandler(s))
}

func getAppRunningHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := c.QueryParam("name")
		if name == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "name is required")
		}

		running, err := s.Focus.AppRunning(c.Request().Context(), name)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, AppRunningResponse{Name: name, Running: running})
	}
}

func PostReloadConfigRoute(s *Server) *echo.Route {
	return s.Router.API.POST("/config/reload", postReloadConfigHandler(s))
}

func postReloadConfigHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.Focus.ReloadConfig(); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func GetScheduleRoute(s *Server) *echo.Route {
	return s.Router.API.GET("/schedule", getScheduleHandler(s))
}

func getScheduleHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, s.Focus.Schedule())
	}
}
