package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	processKills       *prometheus.CounterVec
	blockOperations    *prometheus.CounterVec
	phaseTransitions   *prometheus.CounterVec
	timerRemainingSecs prometheus.Gauge
)

func ensureMetrics() {
	metricsOnce.Do(func() {
		processKills = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "focuslock",
			Subsystem: "process",
			Name:      "kills_total",
			Help:      "Kill attempts against blocked processes by result",
		}, []string{"result"})

		blockOperations = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "focuslock",
			Subsystem: "network",
			Name:      "block_operations_total",
			Help:      "Network block and unblock operations by result",
		}, []string{"op", "result"})

		phaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "focuslock",
			Subsystem: "timer",
			Name:      "phase_transitions_total",
			Help:      "Timer state transitions",
		}, []string{"from", "to"})

		timerRemainingSecs = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "focuslock",
			Subsystem: "timer",
			Name:      "remaining_seconds",
			Help:      "Seconds left in the current phase",
		})
	})
}

// ProcessKill records the outcome of a single kill attempt ("killed", "failed", "abandoned").
func ProcessKill(result string) {
	ensureMetrics()
	processKills.WithLabelValues(result).Inc()
}

// BlockOperation records a network block/unblock attempt.
func BlockOperation(op string, err error) {
	ensureMetrics()
	result := "ok"
	if err != nil {
		result = "error"
	}
	blockOperations.WithLabelValues(op, result).Inc()
}

// PhaseTransition records a timer state change.
func PhaseTransition(from, to string) {
	ensureMetrics()
	phaseTransitions.WithLabelValues(from, to).Inc()
}

// TimerRemaining sets the remaining-seconds gauge.
func TimerRemaining(seconds int) {
	ensureMetrics()
	timerRemainingSecs.Set(float64(seconds))
}
