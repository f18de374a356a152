package focus

import (
	"context"

	"github.com/focuslock/focuslock/internal/events"
	"github.com/focuslock/focuslock/internal/model"
	"github.com/focuslock/focuslock/internal/network"
	"github.com/focuslock/focuslock/internal/timer"
)

// Start begins a focus session. It blocks while the authorization prompt is shown.
func (c *Coordinator) Start(ctx context.Context, opts timer.StartOptions) (model.TimerStatus, error) {
	return c.engine.Start(ctx, opts)
}

// Pause freezes the countdown.
func (c *Coordinator) Pause() (model.TimerStatus, error) {
	return c.engine.Pause()
}

// Resume continues a paused countdown.
func (c *Coordinator) Resume() (model.TimerStatus, error) {
	return c.engine.Resume()
}

// Stop ends the session.
func (c *Coordinator) Stop() model.TimerStatus {
	c.scheduledActive.Store(false)
	return c.engine.Stop()
}

// Cancel ends the session with an emergency override.
func (c *Coordinator) Cancel() (model.TimerStatus, error) {
	status, err := c.engine.Cancel()
	if err == nil {
		c.scheduledActive.Store(false)
	}
	return status, err
}

// Status returns the timer snapshot.
func (c *Coordinator) Status() model.TimerStatus {
	return c.engine.Status()
}

// Focusing reports whether a session is active.
func (c *Coordinator) Focusing() bool {
	return c.engine.Running()
}

// BlockedDomains returns the configured sites as hostnames with www siblings.
func (c *Coordinator) BlockedDomains() []string {
	domains := network.Domains(c.Config().BlockedSites)
	if domains == nil {
		return []string{}
	}
	return domains
}

// HideOverlay hides the overlay and withholds new overlay requests for the
// suppression window. A later hide supersedes the pending re-enable.
func (c *Coordinator) HideOverlay() {
	token := c.suppressGen.Next()
	c.overlaySuppressed.Store(true)
	c.bus.Emit(events.Event{Type: events.TypeOverlayHide})

	c.suppressGen.AfterFunc(c.suppressWindow, token, func() {
		c.overlaySuppressed.Store(false)
		c.log.Debug().Uint64("generation", token).Msg("Overlay suppression cleared")
	})
}

// OverlaySuppressed reports whether overlay requests are withheld.
func (c *Coordinator) OverlaySuppressed() bool {
	return c.overlaySuppressed.Load()
}

// CheckApps kills running block list apps once, without overlay events.
func (c *Coordinator) CheckApps(ctx context.Context) ([]string, error) {
	return c.apps.CheckOnce(ctx)
}

// AppRunning reports whether the named app has a live process.
func (c *Coordinator) AppRunning(ctx context.Context, name string) (bool, error) {
	return c.apps.IsRunning(ctx, name)
}

// Unblock removes the site block immediately.
func (c *Coordinator) Unblock(ctx context.Context) error {
	return c.sites.Unblock(ctx)
}

// BlockingActive reports whether the hosts file carries the managed section.
func (c *Coordinator) BlockingActive() bool {
	return c.sites.IsBlockingActive()
}

// ScheduleInfo describes the scheduler state for display.
type ScheduleInfo struct {
	Scheduled  bool   `json:"scheduled"`
	InWindow   bool   `json:"in_window"`
	NextStart  string `json:"next_start,omitempty"`
	CurrentEnd string `json:"current_end,omitempty"`
}

// Schedule reports where now falls among the configured windows.
func (c *Coordinator) Schedule() ScheduleInfo {
	now := c.now()
	info := ScheduleInfo{
		Scheduled: c.Config().IsScheduled(),
		InWindow:  c.scheduler.InSchedule(now),
	}
	info.NextStart, _ = c.scheduler.NextStart(now)
	info.CurrentEnd, _ = c.scheduler.CurrentEnd(now)
	return info
}

func (c *Coordinator) startScheduler() {
	c.scheduler.Start(c.onScheduleChange)
}

// onScheduleChange starts a session on entering a window and stops the
// session it started on leaving it. Manually started sessions are left alone.
func (c *Coordinator) onScheduleChange(inSchedule bool) {
	switch {
	case inSchedule && !c.scheduledActive.Load():
		if c.engine.Running() {
			return
		}
		if _, err := c.engine.Start(context.Background(), timer.StartOptions{}); err != nil {
			c.log.Warn().Err(err).Msg("Scheduled session start failed")
			return
		}
		c.scheduledActive.Store(true)
		c.log.Info().Msg("Scheduled session started")
	case !inSchedule && c.scheduledActive.Load():
		c.scheduledActive.Store(false)
		c.engine.Stop()
		c.log.Info().Msg("Scheduled session stopped")
	}
}
