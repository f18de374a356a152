package model

// TimerState is the focus timer mode.
type TimerState string

const (
	StateIdle     TimerState = "idle"
	StateWorking  TimerState = "working"
	StateBreaking TimerState = "breaking"
	StatePaused   TimerState = "paused"
)

// TimerStatus is the in-memory snapshot of the focus timer.
// PreviousState is set only while State is StatePaused.
type TimerStatus struct {
	State              TimerState  `json:"state"`
	RemainingSeconds   int         `json:"remaining_seconds"`
	TotalSeconds       int         `json:"total_seconds"`
	EmergencyRemaining int         `json:"emergency_remaining"`
	PreviousState      *TimerState `json:"previous_state,omitempty"`
	WorkMinutes        int         `json:"work_minutes"`
	BreakMinutes       int         `json:"break_minutes"`
}

// NewTimerStatus returns an idle status carrying the configured durations.
func NewTimerStatus(workMinutes, breakMinutes, emergencyRemaining int) TimerStatus {
	return TimerStatus{
		State:              StateIdle,
		EmergencyRemaining: emergencyRemaining,
		WorkMinutes:        workMinutes,
		BreakMinutes:       breakMinutes,
	}
}

// Active reports whether a session is in progress (working, breaking or paused).
func (s TimerStatus) Active() bool {
	return s.State != StateIdle
}

// Clone returns a copy that shares nothing with s.
func (s TimerStatus) Clone() TimerStatus {
	if s.PreviousState != nil {
		prev := *s.PreviousState
		s.PreviousState = &prev
	}
	return s
}

// Reset puts the status back to idle, keeping durations and quota.
func (s *TimerStatus) Reset() {
	s.State = StateIdle
	s.RemainingSeconds = 0
	s.TotalSeconds = 0
	s.PreviousState = nil
}
