package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/focuslock/focuslock/internal/model"
	"github.com/focuslock/focuslock/internal/timer"
)

func GetTimerRoute(s *Server) *echo.Route {
	return s.Router.API.GET("/timer", getTimerHandler(s))
}

func getTimerHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, TimerResponse{Timer: s.Focus.Status()})
	}
}

func PostStartRoute(s *Server) *echo.Route {
	return s.Router.API.POST("/timer/start", postStartHandler(s))
}

// postStartHandler may block for as long as the authorization prompt is open.
func postStartHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req StartRequest
		if c.Request().ContentLength != 0 {
			if err := c.Bind(&req); err != nil {
				return err
			}
		}

		status, err := s.Focus.Start(c.Request().Context(), timer.StartOptions{
			Minutes: req.Minutes,
			Seconds: req.Seconds,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, TimerResponse{Timer: status})
	}
}

func PostPauseRoute(s *Server) *echo.Route {
	return s.Router.API.POST("/timer/pause", timerAction(s.Focus.Pause))
}

func PostResumeRoute(s *Server) *echo.Route {
	return s.Router.API.POST("/timer/resume", timerAction(s.Focus.Resume))
}

func PostCancelRoute(s *Server) *echo.Route {
	return s.Router.API.POST("/timer/cancel", timerAction(s.Focus.Cancel))
}

func PostStopRoute(s *Server) *echo.Route {
	return s.Router.API.POST("/timer/stop", timerAction(func() (model.TimerStatus, error) {
		return s.Focus.Stop(), nil
	}))
}

func timerAction(action func() (model.TimerStatus, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		status, err := action()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, TimerResponse{Timer: status})
	}
}
