package session

import (
	"time"

	"github.com/google/uuid"
)

// Phase names as persisted in the session file
const (
	PhaseWorking  = "working"
	PhaseBreaking = "breaking"
)

// FocusSession is the durable record of an in-progress focus session.
// End times are absolute Unix epoch seconds
type FocusSession struct {
	ID                 string `json:"id,omitempty"`
	Phase              string `json:"phase"`
	WorkEndTime        int64  `json:"work_end_time"`
	BreakEndTime       int64  `json:"break_end_time"`
	WorkMinutes        int    `json:"work_minutes"`
	BreakMinutes       int    `json:"break_minutes"`
	EmergencyRemaining int    `json:"emergency_remaining"`
}

// New builds a session whose work phase lasts workSeconds from now,
// followed by breakMinutes of break
func New(now time.Time, workSeconds, workMinutes, breakMinutes, emergencyRemaining int) *FocusSession {
	workEnd := now.Unix() + int64(workSeconds)
	return &FocusSession{
		ID:                 uuid.NewString(),
		Phase:              PhaseWorking,
		WorkEndTime:        workEnd,
		BreakEndTime:       workEnd + int64(breakMinutes*60),
		WorkMinutes:        workMinutes,
		BreakMinutes:       breakMinutes,
		EmergencyRemaining: emergencyRemaining,
	}
}

// Expired reports whether the whole session (work and break) is over at now
func (s *FocusSession) Expired(now time.Time) bool {
	return now.Unix() >= s.BreakEndTime
}

// PhaseAt returns the phase now falls into and the seconds left in it.
// ok is false once the session has expired
func (s *FocusSession) PhaseAt(now time.Time) (phase string, remaining int, ok bool) {
	ts := now.Unix()
	switch {
	case ts < s.WorkEndTime:
		return PhaseWorking, int(s.WorkEndTime - ts), true
	case ts < s.BreakEndTime:
		return PhaseBreaking, int(s.BreakEndTime - ts), true
	default:
		return "", 0, false
	}
}
