package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/focuslock/focuslock/internal/config"
	"github.com/focuslock/focuslock/internal/network"
	"github.com/focuslock/focuslock/internal/timer"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, timer.ErrNotRunning),
		errors.Is(err, timer.ErrAlreadyPaused),
		errors.Is(err, timer.ErrNotPaused),
		errors.Is(err, timer.ErrNoOverrides):
		return http.StatusConflict
	case errors.Is(err, timer.ErrInvalidDuration),
		errors.Is(err, config.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, network.ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := statusFor(err)
	msg := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = http.StatusText(code)
		if m, ok := he.Message.(string); ok && code != http.StatusNotFound {
			msg = m
		}
	}

	if code >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Error: msg})
	}
	if err != nil {
		s.log.Debug().Err(err).Msg("Write error response failed")
	}
}
