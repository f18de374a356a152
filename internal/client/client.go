// Package client talks to a running focuslock daemon over its local HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/focuslock/focuslock/internal/focus"
	"github.com/focuslock/focuslock/internal/model"
	"github.com/focuslock/focuslock/internal/server"
)

// DefaultTimeout bounds every request except Start, which waits on the
// administrator prompt.
const DefaultTimeout = 10 * time.Second

// ErrDaemonUnavailable is returned when nothing is listening on the address.
var ErrDaemonUnavailable = errors.New("focuslock daemon is not running")

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Code)
}

// Client is a thin JSON client for the daemon API.
type Client struct {
	base string
	http *http.Client
}

// New returns a client for the daemon listening on addr (host:port).
func New(addr string) *Client {
	return &Client{
		base: "http://" + addr,
		http: &http.Client{},
	}
}

func (c *Client) Status(ctx context.Context) (server.StatusResponse, error) {
	var out server.StatusResponse
	err := c.do(ctx, DefaultTimeout, http.MethodGet, "/status", nil, &out)
	return out, err
}

func (c *Client) Timer(ctx context.Context) (model.TimerStatus, error) {
	var out server.TimerResponse
	err := c.do(ctx, DefaultTimeout, http.MethodGet, "/api/timer", nil, &out)
	return out.Timer, err
}

// Start begins a session. The call blocks until the daemon has applied the
// network block, so ctx should carry the caller's patience rather than a
// short deadline.
func (c *Client) Start(ctx context.Context, req server.StartRequest) (model.TimerStatus, error) {
	var out server.TimerResponse
	err := c.do(ctx, 0, http.MethodPost, "/api/timer/start", req, &out)
	return out.Timer, err
}

func (c *Client) Pause(ctx context.Context) (model.TimerStatus, error) {
	return c.timerAction(ctx, "pause")
}

func (c *Client) Resume(ctx context.Context) (model.TimerStatus, error) {
	return c.timerAction(ctx, "resume")
}

func (c *Client) Stop(ctx context.Context) (model.TimerStatus, error) {
	return c.timerAction(ctx, "stop")
}

func (c *Client) Cancel(ctx context.Context) (model.TimerStatus, error) {
	return c.timerAction(ctx, "cancel")
}

func (c *Client) HideOverlay(ctx context.Context) error {
	return c.do(ctx, DefaultTimeout, http.MethodPost, "/api/overlay/hide", nil, nil)
}

func (c *Client) CheckApps(ctx context.Context) ([]string, error) {
	var out server.CheckAppsResponse
	err := c.do(ctx, DefaultTimeout, http.MethodPost, "/api/apps/check", nil, &out)
	return out.Killed, err
}

func (c *Client) AppRunning(ctx context.Context, name string) (bool, error) {
	var out server.AppRunningResponse
	err := c.do(ctx, DefaultTimeout, http.MethodGet, "/api/apps/running?name="+url.QueryEscape(name), nil, &out)
	return out.Running, err
}

func (c *Client) ReloadConfig(ctx context.Context) error {
	return c.do(ctx, DefaultTimeout, http.MethodPost, "/api/config/reload", nil, nil)
}

func (c *Client) Schedule(ctx context.Context) (focus.ScheduleInfo, error) {
	var out focus.ScheduleInfo
	err := c.do(ctx, DefaultTimeout, http.MethodGet, "/api/schedule", nil, &out)
	return out, err
}

func (c *Client) timerAction(ctx context.Context, action string) (model.TimerStatus, error) {
	var out server.TimerResponse
	err := c.do(ctx, DefaultTimeout, http.MethodPost, "/api/timer/"+action, nil, &out)
	return out.Timer, err
}

func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, body, out interface{}) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && ctx.Err() == nil {
			return errors.WithMessage(ErrDaemonUnavailable, urlErr.Err.Error())
		}
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr server.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Code: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}
