package focus

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
	"github.com/focuslock/focuslock/internal/model"
	"github.com/focuslock/focuslock/internal/network"
	"github.com/focuslock/focuslock/internal/process"
	"github.com/focuslock/focuslock/internal/schedule"
	"github.com/focuslock/focuslock/internal/session"
	"github.com/focuslock/focuslock/internal/timer"
	"github.com/focuslock/focuslock/internal/worker"
)

// SuppressWindow is how long overlay requests stay withheld after a hide.
const SuppressWindow = 5 * time.Second

// Options configures a Coordinator. Zero values select the system defaults.
type Options struct {
	ConfigDir string
	Config    *config.Config

	// Persist writes the config; defaults to config.Save(ConfigDir, cfg).
	Persist func(*config.Config) error

	HostsPaths   network.Paths
	Runner       network.Runner
	DNS          network.Resolver
	ProcessTable process.Table
	Executables  process.ExecutableResolver

	Clock          func() time.Time
	TimerInterval  time.Duration
	PollInterval   time.Duration
	SuppressWindow time.Duration
}

// Coordinator owns the shared focus state and the lifecycles of every
// background worker. All public operations are safe for concurrent use.
type Coordinator struct {
	configDir string

	cfgMu   sync.Mutex
	cfg     *config.Config
	saveMu  sync.Mutex
	persist func(*config.Config) error

	bus       *events.Bus
	store     *session.Store
	sites     *network.Blocker
	apps      *process.Blocker
	engine    *timer.Engine
	scheduler *schedule.Scheduler

	overlaySuppressed atomic.Bool
	suppressGen       worker.Generation
	suppressWindow    time.Duration
	scheduledActive   atomic.Bool

	now func() time.Time
	log zerolog.Logger
}

// New wires the session store, both blockers, the timer engine and the scheduler.
func New(opts Options) (*Coordinator, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.HostsPaths.Hosts == "" {
		opts.HostsPaths = network.DefaultPaths(opts.ConfigDir)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SuppressWindow <= 0 {
		opts.SuppressWindow = SuppressWindow
	}
	if opts.Persist == nil {
		dir := opts.ConfigDir
		opts.Persist = func(cfg *config.Config) error { return config.Save(dir, cfg) }
	}

	store, err := session.NewStore(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	cfg := opts.Config.Clone()
	c := &Coordinator{
		configDir:      opts.ConfigDir,
		cfg:            cfg,
		persist:        opts.Persist,
		bus:            events.NewBus(),
		store:          store,
		suppressWindow: opts.SuppressWindow,
		scheduler:      schedule.New(cfg.Schedules),
		now:            opts.Clock,
		log:            logging.Component("focus"),
	}
	c.scheduler.SetClock(opts.Clock)

	c.sites = network.NewBlocker(opts.HostsPaths, opts.Runner, opts.DNS)
	c.sites.SetSites(cfg.BlockedSites)

	c.apps = process.NewBlocker(process.Options{
		Table:      opts.ProcessTable,
		Resolver:   opts.Executables,
		Emitter:    c.bus,
		Suppressed: c.OverlaySuppressed,
		Interval:   opts.PollInterval,
	})
	c.apps.SetApps(cfg.BlockedApps)

	c.engine = timer.New(timer.Options{
		Store:    store,
		Sites:    c.sites,
		Apps:     c.apps,
		Settings: c,
		Emitter:  c.bus,
		Clock:    opts.Clock,
		Interval: opts.TimerInterval,
	})

	return c, nil
}

// Events returns the bus carrying status and overlay events.
func (c *Coordinator) Events() *events.Bus {
	return c.bus
}

// Config returns a copy of the current configuration.
func (c *Coordinator) Config() *config.Config {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	return c.cfg.Clone()
}

// Pomodoro implements timer.Settings.
func (c *Coordinator) Pomodoro() config.Pomodoro {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	return c.cfg.Pomodoro
}

// UpdatePomodoro implements timer.Settings. The config is copied out under
// the lock and written without holding it.
func (c *Coordinator) UpdatePomodoro(fn func(*config.Pomodoro)) (config.Pomodoro, error) {
	c.cfgMu.Lock()
	fn(&c.cfg.Pomodoro)
	p := c.cfg.Pomodoro
	snapshot := c.cfg.Clone()
	c.cfgMu.Unlock()

	return p, c.save(snapshot)
}

// SaveConfig validates, persists and applies a new configuration.
func (c *Coordinator) SaveConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := c.save(cfg); err != nil {
		return err
	}
	return c.UpdateConfig(cfg)
}

// UpdateConfig applies a configuration already on disk, fanning the lists
// out to the blockers and the scheduler.
func (c *Coordinator) UpdateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.Clone()

	c.cfgMu.Lock()
	wasScheduled := c.cfg.IsScheduled()
	c.cfg = cfg
	c.cfgMu.Unlock()

	c.sites.SetSites(cfg.BlockedSites)
	c.apps.SetApps(cfg.BlockedApps)
	c.scheduler.SetSchedules(cfg.Schedules)
	c.engine.SetDurations(cfg.Pomodoro.WorkMinutes, cfg.Pomodoro.BreakMinutes)

	switch {
	case cfg.IsScheduled() && !wasScheduled:
		c.startScheduler()
	case !cfg.IsScheduled() && wasScheduled:
		c.scheduler.Stop()
		c.scheduledActive.Store(false)
	}

	c.log.Info().Int("apps", len(cfg.BlockedApps)).Int("sites", len(cfg.BlockedSites)).Str("mode", cfg.Mode).Msg("Configuration applied")
	return nil
}

// ReloadConfig re-reads the config file and applies it.
func (c *Coordinator) ReloadConfig() error {
	cfg, err := config.Load(c.configDir)
	if err != nil {
		return err
	}
	return c.UpdateConfig(cfg)
}

func (c *Coordinator) save(cfg *config.Config) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if err := c.persist(cfg); err != nil {
		return errors.Wrap(err, "save config")
	}
	return nil
}

// Startup restores a persisted session. When none can be restored, including
// an unreadable session file, residual block state is removed. The scheduler
// is then started in scheduled mode.
func (c *Coordinator) Startup(ctx context.Context) error {
	restored := false
	if c.store.Exists() {
		var err error
		if restored, err = c.engine.Restore(ctx); err != nil {
			c.log.Warn().Err(err).Msg("Session restore failed, discarding session")
			if err := c.store.Delete(); err != nil {
				c.log.Warn().Err(err).Msg("Delete unreadable session failed")
			}
		} else if restored {
			c.log.Info().Msg("Resumed focus session")
		}
	}
	if !restored {
		if err := c.sites.CleanupIfNeeded(ctx); err != nil {
			c.log.Warn().Err(err).Msg("Startup cleanup incomplete")
		}
	}

	if c.Config().IsScheduled() {
		c.startScheduler()
	}
	return nil
}

// CleanupOnExit stops every worker. The network block is removed only when
// idle; an active session keeps it so a restart can resume.
func (c *Coordinator) CleanupOnExit(ctx context.Context) {
	state := c.engine.Status().State

	c.scheduler.Stop()
	c.engine.Shutdown()
	c.engine.Wait()

	if state != model.StateIdle {
		c.log.Info().Str("state", string(state)).Msg("Session in progress, keeping site block")
		return
	}
	if err := c.sites.Unblock(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Exit unblock incomplete")
	}
}

// Wait blocks until background block and unblock calls have finished.
func (c *Coordinator) Wait() {
	c.engine.Wait()
}
