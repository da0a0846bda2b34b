package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllVariablesNonNil(t *testing.T) {
	t.Parallel()

	vars := []struct {
		name string
		val  any
	}{
		{"TicksTotal", TicksTotal},
		{"TickLatency", TickLatency},
		{"VerdictsTotal", VerdictsTotal},
		{"HeadHeight", HeadHeight},
		{"SyncedHeight", SyncedHeight},
		{"Lag", Lag},
		{"SyncRate", SyncRate},
		{"CatchUpETA", CatchUpETA},
		{"Syncing", Syncing},
		{"Producing", Producing},
		{"Stalled", Stalled},
		{"FallingBehind", FallingBehind},
		{"SignalFailures", SignalFailures},
		{"RestartsTotal", RestartsTotal},
		{"LastRestartTimestamp", LastRestartTimestamp},
		{"RPCCallsTotal", RPCCallsTotal},
		{"RPCRateLimitWaits", RPCRateLimitWaits},
		{"CircuitBreakerState", CircuitBreakerState},
		{"JournalPublishErrors", JournalPublishErrors},
		{"AlertsSentTotal", AlertsSentTotal},
		{"AlertsCooldownSkipped", AlertsCooldownSkipped},
	}

	for _, v := range vars {
		assert.NotNilf(t, v.val, "%s should not be nil", v.name)
	}
}

func TestMetrics_VerdictCounter(t *testing.T) {
	c := VerdictsTotal.WithLabelValues("metrics-test", "RESTART", "severe-lag")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestBoolGauge(t *testing.T) {
	assert.Equal(t, 1.0, BoolGauge(true))
	assert.Equal(t, 0.0, BoolGauge(false))
}
