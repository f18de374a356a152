package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/focuslock/focuslock/internal/config"
	"github.com/focuslock/focuslock/internal/logging"
	"github.com/focuslock/focuslock/internal/worker"
)

// CheckInterval is how often the scheduler re-evaluates the windows.
const CheckInterval = 30 * time.Second

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, errors.Errorf("invalid time %q, want HH:MM", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, errors.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, errors.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

type window struct {
	start, end int
	raw        config.Schedule
}

// Scheduler evaluates daily focus windows.
type Scheduler struct {
	mu      sync.Mutex
	windows []window

	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
	poller   *worker.Worker
}

// New creates a scheduler over the given schedules. Disabled and malformed
// entries never match.
func New(schedules []config.Schedule) *Scheduler {
	s := &Scheduler{
		interval: CheckInterval,
		now:      time.Now,
		log:      logging.Component("schedule"),
		poller:   worker.New("scheduler"),
	}
	s.SetSchedules(schedules)
	return s
}

// SetClock replaces the time source. It must be called before Start.
func (s *Scheduler) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SetSchedules replaces the window list.
func (s *Scheduler) SetSchedules(schedules []config.Schedule) {
	var windows []window
	for _, sc := range schedules {
		if !sc.Enabled {
			continue
		}
		start, err := ParseClock(sc.Start)
		if err != nil {
			s.log.Warn().Err(err).Msg("Skipping schedule")
			continue
		}
		end, err := ParseClock(sc.End)
		if err != nil {
			s.log.Warn().Err(err).Msg("Skipping schedule")
			continue
		}
		windows = append(windows, window{start: start, end: end, raw: sc})
	}

	s.mu.Lock()
	s.windows = windows
	s.mu.Unlock()
}

func (s *Scheduler) snapshot() []window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]window(nil), s.windows...)
}

// InSchedule reports whether t falls inside any enabled window (start <= t < end).
func (s *Scheduler) InSchedule(t time.Time) bool {
	_, ok := s.CurrentEnd(t)
	return ok
}

// CurrentEnd returns the end of the window containing t.
func (s *Scheduler) CurrentEnd(t time.Time) (string, bool) {
	m := minuteOfDay(t)
	for _, w := range s.snapshot() {
		if m >= w.start && m < w.end {
			return formatClock(w.end), true
		}
	}
	return "", false
}

// NextStart returns the earliest window start later today than t.
func (s *Scheduler) NextStart(t time.Time) (string, bool) {
	m := minuteOfDay(t)
	next := -1
	for _, w := range s.snapshot() {
		if w.start > m && (next < 0 || w.start < next) {
			next = w.start
		}
	}
	if next < 0 {
		return "", false
	}
	return formatClock(next), true
}

// Start polls the windows and calls onChange(inSchedule) on every transition.
// The first evaluation reports true immediately if already inside a window.
func (s *Scheduler) Start(onChange func(inSchedule bool)) {
	s.poller.Start(func(ctx context.Context) {
		s.log.Info().Msg("Scheduler started")
		defer s.log.Info().Msg("Scheduler stopped")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		was := false
		for {
			is := s.InSchedule(s.now())
			if is != was {
				s.log.Info().Bool("in_schedule", is).Msg("Schedule state changed")
				onChange(is)
				was = is
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	})
}

// Stop halts polling.
func (s *Scheduler) Stop() {
	s.poller.Stop()
}

// Running reports whether the poller is active.
func (s *Scheduler) Running() bool {
	return s.poller.Running()
}
