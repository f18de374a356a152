package timer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/focuslock/focuslock/internal/config"
	"github.com/focuslock/focuslock/internal/events"
	"github.com/focuslock/focuslock/internal/logging"
	"github.com/focuslock/focuslock/internal/metrics"
	"github.com/focuslock/focuslock/internal/model"
	"github.com/focuslock/focuslock/internal/session"
	"github.com/focuslock/focuslock/internal/worker"
)

// TickInterval is how often the tick worker recomputes the remaining time.
const TickInterval = 500 * time.Millisecond

// SessionStore persists the in-progress session.
type SessionStore interface {
	Save(*session.FocusSession) error
	Load() (*session.FocusSession, error)
	Delete() error
}

// SiteBlocker applies and removes the network block.
type SiteBlocker interface {
	Block(ctx context.Context) error
	Unblock(ctx context.Context) error
	IsBlockingActive() bool
	CleanupIfNeeded(ctx context.Context) error
}

// AppBlocker starts and stops process polling.
type AppBlocker interface {
	Start()
	Stop()
}

// Settings gives guarded access to the pomodoro configuration.
type Settings interface {
	Pomodoro() config.Pomodoro
	// UpdatePomodoro applies fn under the config lock and persists the result.
	UpdatePomodoro(fn func(*config.Pomodoro)) (config.Pomodoro, error)
}

// Options wires an Engine to its collaborators.
type Options struct {
	Store    SessionStore
	Sites    SiteBlocker
	Apps     AppBlocker
	Settings Settings
	Emitter  events.Emitter
	Clock    func() time.Time
	Interval time.Duration
}

// StartOptions overrides the configured work duration for one session.
type StartOptions struct {
	// Minutes replaces the configured work minutes when set.
	Minutes *int
	// Seconds is added to the work phase.
	Seconds int
}

// Engine is the focus timer state machine: Idle -> Working -> Breaking -> Idle,
// with Paused layered over Working and Breaking.
type Engine struct {
	store    SessionStore
	sites    SiteBlocker
	apps     AppBlocker
	settings Settings
	emitter  events.Emitter
	now      func() time.Time
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	status model.TimerStatus

	running   atomic.Bool
	paused    atomic.Bool
	emergency atomic.Int32

	ticker     *worker.Worker
	background sync.WaitGroup
}

// New creates an idle engine.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Interval <= 0 {
		opts.Interval = TickInterval
	}
	if opts.Emitter == nil {
		opts.Emitter = events.NewBus()
	}

	p := opts.Settings.Pomodoro()
	remaining := p.MonthlyEmergencyRemaining(opts.Clock())

	e := &Engine{
		store:    opts.Store,
		sites:    opts.Sites,
		apps:     opts.Apps,
		settings: opts.Settings,
		emitter:  opts.Emitter,
		now:      opts.Clock,
		interval: opts.Interval,
		log:      logging.Component("timer"),
		status:   model.NewTimerStatus(p.WorkMinutes, p.BreakMinutes, remaining),
		ticker:   worker.New("timer"),
	}
	e.emergency.Store(int32(remaining))
	return e
}

// Status returns a snapshot of the timer.
func (e *Engine) Status() model.TimerStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status.Clone()
}

// Running reports whether a session is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// EmergencyRemaining returns the overrides left this month.
func (e *Engine) EmergencyRemaining() int {
	return int(e.emergency.Load())
}

// SetDurations updates the durations shown while idle.
func (e *Engine) SetDurations(workMinutes, breakMinutes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status.State == model.StateIdle {
		e.status.WorkMinutes = workMinutes
		e.status.BreakMinutes = breakMinutes
	}
}

// Start begins a focus session. Sites are blocked before the countdown is
// armed, so time spent on the authorization prompt is not counted. A rejected
// duration or a block failure leaves any running session untouched.
func (e *Engine) Start(ctx context.Context, opts StartOptions) (model.TimerStatus, error) {
	wasRunning := e.running.Load()
	now := e.now()
	p := e.settings.Pomodoro()
	workMinutes, breakMinutes := p.WorkMinutes, p.BreakMinutes
	if opts.Minutes != nil {
		workMinutes = *opts.Minutes
	}
	remaining := p.MonthlyEmergencyRemaining(now)

	total := workMinutes*60 + opts.Seconds
	if total <= 0 {
		return e.Status(), errors.Wrapf(ErrInvalidDuration, "%d minutes %d seconds", workMinutes, opts.Seconds)
	}

	// Let the unblock of an already finished session land before blocking again.
	if !wasRunning {
		e.background.Wait()
	}

	if err := e.sites.Block(ctx); err != nil {
		return e.Status(), errors.Wrap(err, "block sites")
	}

	// The previous session kept ticking through the prompt; retire it now.
	e.ticker.Stop()
	e.paused.Store(false)

	// A session that completed meanwhile queued an unblock behind our block.
	if wasRunning && !e.running.Load() {
		e.background.Wait()
		if !e.sites.IsBlockingActive() {
			if err := e.sites.Block(ctx); err != nil {
				return e.Status(), errors.Wrap(err, "block sites")
			}
		}
	}

	if _, err := e.settings.UpdatePomodoro(func(p *config.Pomodoro) {
		remaining = p.MonthlyEmergencyRemaining(now)
		p.LastFocusDuration = workMinutes
	}); err != nil {
		e.log.Warn().Err(err).Msg("Persist pomodoro settings failed")
	}

	// Anchor to the clock after the prompt returned.
	now = e.now()
	if err := e.store.Save(session.New(now, total, workMinutes, breakMinutes, remaining)); err != nil {
		e.log.Warn().Err(err).Msg("Persist session failed")
	}

	e.mu.Lock()
	from := e.status.State
	e.status = model.TimerStatus{
		State:              model.StateWorking,
		RemainingSeconds:   total,
		TotalSeconds:       total,
		EmergencyRemaining: remaining,
		WorkMinutes:        workMinutes,
		BreakMinutes:       breakMinutes,
	}
	status := e.status.Clone()
	e.mu.Unlock()

	e.running.Store(true)
	e.emergency.Store(int32(remaining))
	metrics.PhaseTransition(string(from), string(model.StateWorking))

	e.startTicking(now.Add(time.Duration(total) * time.Second))
	e.apps.Start()

	e.log.Info().Int("work_minutes", workMinutes).Int("break_minutes", breakMinutes).Int("seconds", total).Msg("Focus session started")
	e.emitter.Emit(events.StatusEvent(status))
	return status, nil
}

// Pause freezes the countdown.
func (e *Engine) Pause() (model.TimerStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.status.State {
	case model.StateIdle:
		return e.status.Clone(), ErrNotRunning
	case model.StatePaused:
		return e.status.Clone(), ErrAlreadyPaused
	}

	prev := e.status.State
	e.status.PreviousState = &prev
	e.status.State = model.StatePaused
	e.paused.Store(true)
	metrics.PhaseTransition(string(prev), string(model.StatePaused))

	e.log.Info().Str("previous", string(prev)).Msg("Timer paused")
	return e.status.Clone(), nil
}

// Resume continues a paused countdown. The paused interval is added back to
// the end time by the tick worker.
func (e *Engine) Resume() (model.TimerStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status.State != model.StatePaused {
		return e.status.Clone(), ErrNotPaused
	}

	next := model.StateWorking
	if e.status.PreviousState != nil {
		next = *e.status.PreviousState
	}
	e.status.State = next
	e.status.PreviousState = nil
	e.paused.Store(false)
	metrics.PhaseTransition(string(model.StatePaused), string(next))

	e.log.Info().Str("state", string(next)).Msg("Timer resumed")
	return e.status.Clone(), nil
}

// Stop ends the session unconditionally.
func (e *Engine) Stop() model.TimerStatus {
	e.ticker.Stop()
	e.paused.Store(false)

	status := e.teardown("stop")
	e.log.Info().Msg("Focus session stopped")
	return status
}

// Cancel ends the session early, spending one emergency override.
func (e *Engine) Cancel() (model.TimerStatus, error) {
	e.mu.Lock()
	if e.status.State == model.StateIdle {
		status := e.status.Clone()
		e.mu.Unlock()
		return status, ErrNotRunning
	}
	if e.status.EmergencyRemaining <= 0 {
		status := e.status.Clone()
		e.mu.Unlock()
		return status, ErrNoOverrides
	}
	e.status.EmergencyRemaining--
	remaining := e.status.EmergencyRemaining
	e.mu.Unlock()

	e.emergency.Store(int32(remaining))
	if _, err := e.settings.UpdatePomodoro(func(p *config.Pomodoro) {
		p.RecordEmergencyUse(e.now())
	}); err != nil {
		e.log.Warn().Err(err).Msg("Persist emergency override use failed")
	}

	e.ticker.Stop()
	e.paused.Store(false)

	status := e.teardown("cancel")
	e.log.Info().Int("emergency_remaining", remaining).Msg("Focus session cancelled with override")
	return status, nil
}

// Restore resumes a persisted session after a restart. It reports whether a
// session was restored. An expired session is deleted and residual block
// state is cleaned up.
func (e *Engine) Restore(ctx context.Context) (bool, error) {
	s, err := e.store.Load()
	if errors.Is(err, session.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "load session")
	}

	now := e.now()
	phase, remaining, ok := s.PhaseAt(now)
	if !ok {
		e.log.Info().Int64("break_end", s.BreakEndTime).Msg("Session expired, cleaning up")
		if err := e.store.Delete(); err != nil {
			e.log.Warn().Err(err).Msg("Delete expired session failed")
		}
		if err := e.sites.CleanupIfNeeded(ctx); err != nil {
			e.log.Warn().Err(err).Msg("Residual block cleanup failed")
		}
		return false, nil
	}

	state, total := model.StateWorking, s.WorkMinutes*60
	if phase == session.PhaseBreaking {
		state, total = model.StateBreaking, s.BreakMinutes*60
	}
	if remaining > total {
		total = remaining
	}

	e.ticker.Stop()
	e.paused.Store(false)

	e.mu.Lock()
	e.status = model.TimerStatus{
		State:              state,
		RemainingSeconds:   remaining,
		TotalSeconds:       total,
		EmergencyRemaining: s.EmergencyRemaining,
		WorkMinutes:        s.WorkMinutes,
		BreakMinutes:       s.BreakMinutes,
	}
	status := e.status.Clone()
	e.mu.Unlock()

	e.running.Store(true)
	e.emergency.Store(int32(s.EmergencyRemaining))
	metrics.PhaseTransition(string(model.StateIdle), string(state))

	if !e.sites.IsBlockingActive() {
		e.log.Info().Msg("Block markers missing, re-blocking in background")
		e.goBackground(func() {
			if err := e.sites.Block(context.Background()); err != nil {
				e.log.Warn().Err(err).Msg("Re-block after restore failed")
			}
		})
	}

	e.startTicking(now.Add(time.Duration(remaining) * time.Second))
	e.apps.Start()

	e.log.Info().Str("state", string(state)).Int("remaining", remaining).Msg("Focus session restored")
	e.emitter.Emit(events.StatusEvent(status))
	return true, nil
}

// Shutdown stops the tick worker and process polling without touching
// the session or the network block.
func (e *Engine) Shutdown() {
	e.ticker.Stop()
	e.paused.Store(false)
	e.apps.Stop()
}

// Wait blocks until background unblock and re-block calls have finished.
func (e *Engine) Wait() {
	e.background.Wait()
}

// teardown returns the engine to idle after stop, cancel or natural completion.
// The tick worker must already be stopped, or be the caller.
func (e *Engine) teardown(reason string) model.TimerStatus {
	unblock := e.reserveBackground()

	if err := e.store.Delete(); err != nil {
		e.log.Warn().Err(err).Msg("Delete session failed")
	}

	e.mu.Lock()
	from := e.status.State
	e.status.Reset()
	status := e.status.Clone()
	e.mu.Unlock()

	e.running.Store(false)
	e.apps.Stop()
	metrics.PhaseTransition(string(from), string(model.StateIdle))
	metrics.TimerRemaining(0)

	e.emitter.Emit(events.StatusEvent(status))
	e.emitter.Emit(events.Event{Type: events.TypeOverlayClose})

	unblock(func() {
		if err := e.sites.Unblock(context.Background()); err != nil {
			e.log.Warn().Err(err).Str("reason", reason).Msg("Unblock after session end failed")
		}
	})
	return status
}

func (e *Engine) goBackground(fn func()) {
	e.reserveBackground()(fn)
}

// reserveBackground registers a background task before any state it follows
// becomes visible, so Wait never misses it. The returned func runs the task.
func (e *Engine) reserveBackground() func(fn func()) {
	e.background.Add(1)
	return func(fn func()) {
		go func() {
			defer e.background.Done()
			fn()
		}()
	}
}
