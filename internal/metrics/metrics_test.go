package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBlockOperation_LabelsByResult(t *testing.T) {
	before := testutil.ToFloat64(blockOperationsCounter("block", "error"))
	BlockOperation("block", errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(blockOperationsCounter("block", "error")))

	before = testutil.ToFloat64(blockOperationsCounter("unblock", "ok"))
	BlockOperation("unblock", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(blockOperationsCounter("unblock", "ok")))
}

func TestTimerRemaining_SetsGauge(t *testing.T) {
	TimerRemaining(42)
	ensureMetrics()
	assert.Equal(t, float64(42), testutil.ToFloat64(timerRemainingSecs))
}

func TestProcessKill_Increments(t *testing.T) {
	ensureMetrics()
	before := testutil.ToFloat64(processKills.WithLabelValues("killed"))
	ProcessKill("killed")
	assert.Equal(t, before+1, testutil.ToFloat64(processKills.WithLabelValues("killed")))
}

func blockOperationsCounter(op, result string) prometheus.Counter {
	ensureMetrics()
	return blockOperations.WithLabelValues(op, result)
}
