package timer

import (
	"context"
	"time"

	"github.com/focuslock/focuslock/internal/events"
	"github.com/focuslock/focuslock/internal/metrics"
	"github.com/focuslock/focuslock/internal/model"
)

// startTicking launches the tick worker counting down to endTime.
func (e *Engine) startTicking(endTime time.Time) {
	e.ticker.Start(func(ctx context.Context) {
		e.tickLoop(ctx, endTime)
	})
}

// tickLoop recomputes the remaining time from the wall clock on every tick.
// While paused it records when the pause began; on resume the end time is
// shifted by the paused duration so a pause never costs or grants time.
func (e *Engine) tickLoop(ctx context.Context, endTime time.Time) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	var pausedAt time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if e.paused.Load() {
			if pausedAt.IsZero() {
				pausedAt = e.now()
			}
			continue
		}
		if !pausedAt.IsZero() {
			endTime = endTime.Add(e.now().Sub(pausedAt))
			pausedAt = time.Time{}
		}

		if done := e.tick(&endTime); done {
			return
		}
	}
}

// tick advances the state machine once. It returns true when the session has
// completed and the loop must exit.
func (e *Engine) tick(endTime *time.Time) bool {
	e.mu.Lock()

	switch e.status.State {
	case model.StateIdle:
		e.mu.Unlock()
		return true
	case model.StatePaused:
		e.mu.Unlock()
		return false
	}

	now := e.now()
	remaining := int(endTime.Sub(now) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	e.status.RemainingSeconds = remaining
	snapshot := e.status.Clone()

	if remaining > 0 {
		e.mu.Unlock()
		metrics.TimerRemaining(remaining)
		e.emitter.Emit(events.StatusEvent(snapshot))
		return false
	}

	if e.status.State == model.StateWorking {
		breakSeconds := e.status.BreakMinutes * 60
		e.status.State = model.StateBreaking
		e.status.RemainingSeconds = breakSeconds
		e.status.TotalSeconds = breakSeconds
		next := e.status.Clone()
		e.mu.Unlock()

		*endTime = now.Add(time.Duration(breakSeconds) * time.Second)
		metrics.PhaseTransition(string(model.StateWorking), string(model.StateBreaking))
		e.log.Info().Int("break_seconds", breakSeconds).Msg("Work phase complete")

		e.emitter.Emit(events.StatusEvent(snapshot))
		e.emitter.Emit(events.Event{Type: events.TypeWorkComplete})
		e.emitter.Emit(events.StatusEvent(next))
		return false
	}

	// Breaking reached zero
	e.mu.Unlock()
	e.emitter.Emit(events.StatusEvent(snapshot))
	e.emitter.Emit(events.Event{Type: events.TypeBreakComplete})
	e.log.Info().Msg("Break complete, session finished")

	e.teardown("complete")
	return true
}
