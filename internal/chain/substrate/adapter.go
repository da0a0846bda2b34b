// Package substrate reads the reference head height from a Substrate
// JSON-RPC endpoint.
package substrate

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/emperorhan/node-watchdog/internal/chain"
	"github.com/emperorhan/node-watchdog/internal/chain/ratelimit"
	"github.com/emperorhan/node-watchdog/internal/chain/substrate/rpc"
	"github.com/emperorhan/node-watchdog/internal/circuitbreaker"
	"github.com/emperorhan/node-watchdog/internal/metrics"
	"github.com/emperorhan/node-watchdog/internal/signalerr"
)

type Options struct {
	Timeout          time.Duration
	RateLimitRPS     float64
	RateLimitBurst   int
	BreakerFailures  int
	BreakerOpenAfter time.Duration
}

type Adapter struct {
	client   rpc.RPCClient
	endpoint string
	timeout  time.Duration
	limiter  *ratelimit.Limiter
	breaker  *circuitbreaker.Breaker
	logger   *slog.Logger
}

var _ chain.HeadSource = (*Adapter)(nil)

func NewAdapter(rpcURL string, opts Options, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return newAdapter(rpc.NewClient(rpcURL, opts.Timeout, logger), endpointLabel(rpcURL), opts, logger)
}

func newAdapter(client rpc.RPCClient, endpoint string, opts Options, logger *slog.Logger) *Adapter {
	log := logger.With("component", "head_source", "endpoint", endpoint)
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:             "head_rpc",
		FailureThreshold: opts.BreakerFailures,
		OpenTimeout:      opts.BreakerOpenAfter,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(breaker.Name()).Set(float64(circuitbreaker.StateClosed))

	return &Adapter{
		client:   client,
		endpoint: endpoint,
		timeout:  opts.Timeout,
		limiter:  ratelimit.NewLimiter(opts.RateLimitRPS, opts.RateLimitBurst, endpoint),
		breaker:  breaker,
		logger:   log,
	}
}

func (a *Adapter) Endpoint() string { return a.endpoint }

// HeadHeight returns the best block number reported by chain_getHeader.
func (a *Adapter) HeadHeight(ctx context.Context) (uint64, error) {
	if err := a.breaker.Allow(); err != nil {
		ratelimit.RecordRPCCall(rpc.MethodGetHeader, err)
		return 0, signalerr.Transport(fmt.Errorf("head rpc %s: %w", a.endpoint, err))
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, signalerr.Transport(fmt.Errorf("rate limiter wait: %w", err))
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	height, err := a.client.GetBlockNumber(callCtx)
	ratelimit.RecordRPCCall(rpc.MethodGetHeader, err)
	// Only transport failures count against the endpoint's health.
	if err != nil && signalerr.KindOf(err) != signalerr.KindParse {
		a.breaker.RecordFailure()
	} else {
		a.breaker.RecordSuccess()
	}
	if err != nil {
		return 0, fmt.Errorf("head rpc %s: %w", a.endpoint, err)
	}
	a.logger.Debug("head height fetched", "height", height)
	return height, nil
}

// endpointLabel keeps metric labels free of credentials and query tokens.
func endpointLabel(rpcURL string) string {
	u, err := url.Parse(rpcURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
