package process

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/focuslock/focuslock/internal/events"
	"github.com/focuslock/focuslock/internal/logging"
	"github.com/focuslock/focuslock/internal/metrics"
	"github.com/focuslock/focuslock/internal/worker"
)

const (
	// PollInterval is the delay between process table scans.
	PollInterval = 3 * time.Second
	// MaxKillAttempts caps failed kills per process before it is left alone.
	MaxKillAttempts = 3
)

// Options configures a Blocker.
type Options struct {
	Table    Table
	Resolver ExecutableResolver
	Emitter  events.Emitter
	// Suppressed reports whether overlay requests are currently withheld.
	Suppressed func() bool
	Interval   time.Duration
}

// Blocker terminates block list apps while polling is active.
type Blocker struct {
	table      Table
	resolver   ExecutableResolver
	emitter    events.Emitter
	suppressed func() bool
	interval   time.Duration
	log        zerolog.Logger

	mu      sync.Mutex
	apps    []string
	entries []Entry

	poller *worker.Worker
}

// NewBlocker creates a process blocker.
func NewBlocker(opts Options) *Blocker {
	if opts.Table == nil {
		opts.Table = SystemTable{}
	}
	if opts.Resolver == nil {
		opts.Resolver = DefaultBundleResolver()
	}
	if opts.Suppressed == nil {
		opts.Suppressed = func() bool { return false }
	}
	if opts.Interval <= 0 {
		opts.Interval = PollInterval
	}
	return &Blocker{
		table:      opts.Table,
		resolver:   opts.Resolver,
		emitter:    opts.Emitter,
		suppressed: opts.Suppressed,
		interval:   opts.Interval,
		log:        logging.Component("process"),
		poller:     worker.New("process-poller"),
	}
}

// SetApps replaces the block list. A running poller picks it up on its next
// cycle and keeps its kill attempt counters.
func (b *Blocker) SetApps(apps []string) {
	apps = append([]string(nil), apps...)
	entries := Entries(apps, b.resolver)
	for _, e := range entries {
		b.log.Debug().Str("app", e.Name).Strs("candidates", e.Candidates).Msg("Watching app")
	}

	b.mu.Lock()
	b.apps = apps
	b.entries = entries
	b.mu.Unlock()
}

// Apps returns a copy of the block list.
func (b *Blocker) Apps() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.apps...)
}

func (b *Blocker) watched() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries
}

// Start begins polling, replacing any running poller.
func (b *Blocker) Start() {
	b.poller.Start(func(ctx context.Context) {
		b.log.Info().Int("apps", len(b.watched())).Msg("App polling started")
		defer b.log.Info().Msg("App polling stopped")

		failures := newFailureTracker()
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			if killed := b.cycle(ctx, b.watched(), failures); len(killed) > 0 {
				b.log.Info().Strs("killed", killed).Msg("Closed blocked apps")
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	})
}

// Stop halts polling and waits for the poller to exit.
func (b *Blocker) Stop() {
	b.poller.Stop()
}

// Polling reports whether the poller is running.
func (b *Blocker) Polling() bool {
	return b.poller.Running()
}

// cycle performs one scan. The first sighting of a process requests the
// overlay unless suppressed; failed kills are retried up to MaxKillAttempts.
func (b *Blocker) cycle(ctx context.Context, entries []Entry, failures *failureTracker) []string {
	procs, err := b.table.List(ctx)
	if err != nil {
		b.log.Warn().Err(err).Msg("Process scan failed")
		return nil
	}

	seen := make(map[int32]struct{}, len(procs))
	var killed []string

	for _, p := range procs {
		seen[p.PID] = struct{}{}
		if IsProtected(p.Name) {
			continue
		}
		entry, ok := match(entries, p.Name)
		if !ok {
			continue
		}

		attempts := failures.attempts(p.PID)
		if attempts >= MaxKillAttempts {
			continue
		}
		if attempts == 0 {
			b.log.Info().Str("app", entry.Name).Int32("pid", p.PID).Str("process", p.Name).Msg("Blocked app detected")
			if b.emitter != nil && !b.suppressed() {
				b.emitter.Emit(events.Event{Type: events.TypeBlockedAppDetected, App: entry.Name})
			}
		}

		if err := b.table.Kill(ctx, p.PID); err != nil {
			n := failures.fail(p.PID)
			if n >= MaxKillAttempts {
				metrics.ProcessKill("abandoned")
				b.log.Warn().Err(err).Int32("pid", p.PID).Str("process", p.Name).Msg("Kill attempts exhausted, leaving process alone")
			} else {
				metrics.ProcessKill("failed")
				b.log.Debug().Err(err).Int32("pid", p.PID).Int("attempt", n).Msg("Kill failed")
			}
			continue
		}

		metrics.ProcessKill("killed")
		failures.forget(p.PID)
		killed = append(killed, describe(p))
	}

	failures.prune(seen)
	return killed
}

// CheckOnce scans the process table once and kills every match.
// No events are emitted and failures are not tracked.
func (b *Blocker) CheckOnce(ctx context.Context) ([]string, error) {
	entries := b.watched()

	procs, err := b.table.List(ctx)
	if err != nil {
		return nil, err
	}

	var killed []string
	for _, p := range procs {
		if IsProtected(p.Name) {
			continue
		}
		if _, ok := match(entries, p.Name); !ok {
			continue
		}
		if err := b.table.Kill(ctx, p.PID); err != nil {
			b.log.Debug().Err(err).Int32("pid", p.PID).Msg("Kill failed")
			continue
		}
		killed = append(killed, describe(p))
	}
	return killed, nil
}

// IsRunning reports whether any process name contains the app's display or executable name.
func (b *Blocker) IsRunning(ctx context.Context, app string) (bool, error) {
	entry := NewEntry(app, b.resolver)

	procs, err := b.table.List(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range procs {
		lower := strings.ToLower(p.Name)
		for _, c := range entry.Candidates {
			if strings.Contains(lower, c) {
				return true, nil
			}
		}
	}
	return false, nil
}

func match(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Matches(name) {
			return e, true
		}
	}
	return Entry{}, false
}

func describe(p Process) string {
	return fmt.Sprintf("%s (PID: %d)", strings.ToLower(p.Name), p.PID)
}
