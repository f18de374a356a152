package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func GetStatusRoute(s *Server) *echo.Route {
	return s.Router.Root.GET("/status", getStatusHandler(s))
}

func getStatusHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, "*")
		return c.JSON(http.StatusOK, StatusResponse{
			Focusing:     s.Focus.Focusing(),
			BlockedSites: s.Focus.BlockedDomains(),
		})
	}
}

func GetMetricsRoute(s *Server) *echo.Route {
	return s.Router.Root.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
