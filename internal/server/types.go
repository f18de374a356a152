package server

import "github.com/focuslock/focuslock/internal/model"

// StatusResponse is polled by the browser extension.
type StatusResponse struct {
	Focusing     bool     `json:"focusing"`
	BlockedSites []string `json:"blocked_sites"`
}

// StartRequest optionally overrides the work duration.
type StartRequest struct {
	Minutes *int `json:"minutes,omitempty"`
	Seconds int  `json:"seconds,omitempty"`
}

// TimerResponse wraps a timer snapshot.
type TimerResponse struct {
	Timer model.TimerStatus `json:"timer"`
}

// CheckAppsResponse lists processes killed by an on-demand check.
type CheckAppsResponse struct {
	Killed []string `json:"killed"`
}

// AppRunningResponse answers whether an app is running.
type AppRunningResponse struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}
