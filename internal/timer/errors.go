package timer

import "github.com/pkg/errors"

var (
	// ErrNotRunning is returned when an operation needs an active session.
	ErrNotRunning = errors.New("timer is not running")
	// ErrAlreadyPaused is returned by Pause while paused.
	ErrAlreadyPaused = errors.New("timer is already paused")
	// ErrNotPaused is returned by Resume unless paused.
	ErrNotPaused = errors.New("timer is not paused")
	// ErrNoOverrides is returned by Cancel once the monthly quota is spent.
	ErrNoOverrides = errors.New("no emergency overrides left this month")
	// ErrInvalidDuration is returned by Start for a non-positive work duration.
	ErrInvalidDuration = errors.New("focus duration must be positive")
)
