package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/emperorhan/node-watchdog/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter(t *testing.T) {
	l := NewLimiter(10.0, 5, "public-rpc")

	require.NotNil(t, l)
	assert.Equal(t, "public-rpc", l.endpoint)
	assert.InDelta(t, 10.0, float64(l.limiter.Limit()), 0.001)
	assert.Equal(t, 5, l.limiter.Burst())
}

func TestNewLimiter_NonPositiveDisables(t *testing.T) {
	l := NewLimiter(0, 0, "public-rpc")
	assert.Equal(t, 1, l.limiter.Burst())

	for i := 0; i < 20; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
}

func TestLimiter_AllowWithinBurst(t *testing.T) {
	const burst = 3
	l := NewLimiter(100, burst, "burst")

	for i := 0; i < burst; i++ {
		start := time.Now()
		require.NoError(t, l.Wait(context.Background()))
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	}
}

func TestLimiter_WaitWhenExhausted(t *testing.T) {
	l := NewLimiter(10, 1, "exhausted")
	before := testutil.ToFloat64(metrics.RPCRateLimitWaits.WithLabelValues("exhausted"))

	require.NoError(t, l.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RPCRateLimitWaits.WithLabelValues("exhausted")))
}

func TestLimiter_ContextCancellation(t *testing.T) {
	l := NewLimiter(1, 1, "cancel")
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestClassifyRPCError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{context.DeadlineExceeded, "timeout"},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), "timeout"},
		{errors.New("circuit breaker is open"), "circuit_open"},
		{errors.New("http status 429: too many requests"), "rate_limited"},
		{errors.New("http status 503: unavailable"), "server_error"},
		{errors.New("dial tcp: connection refused"), "network_error"},
		{errors.New("invalid hex \"zz\""), "malformed"},
		{errors.New("rpc error -32601: method not found"), "client_error"},
	}
	for _, tc := range tests {
		name := "nil"
		if tc.err != nil {
			name = tc.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyRPCError(tc.err))
		})
	}
}

func TestRecordRPCCall(t *testing.T) {
	counter := metrics.RPCCallsTotal.WithLabelValues("chain_getHeader", "ok")
	before := testutil.ToFloat64(counter)

	RecordRPCCall("chain_getHeader", nil)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
