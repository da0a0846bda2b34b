package docker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/emperorhan/node-watchdog/internal/node"
	"github.com/emperorhan/node-watchdog/internal/signalerr"
)

type Restarter struct {
	api       dockerAPI
	container string
	stopGrace time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

var _ node.Restarter = (*Restarter)(nil)

func NewRestarter(api dockerAPI, containerName string, stopGrace, timeout time.Duration, logger *slog.Logger) *Restarter {
	return &Restarter{
		api:       api,
		container: containerName,
		stopGrace: stopGrace,
		timeout:   timeout,
		logger:    logger.With("component", "restarter", "container", containerName),
	}
}

// Restart stops the container, waiting up to the stop grace before killing
// it, and starts it again.
func (r *Restarter) Restart(ctx context.Context) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var opts container.StopOptions
	if r.stopGrace > 0 {
		secs := int(r.stopGrace.Seconds())
		opts.Timeout = &secs
	}

	start := time.Now()
	if err := r.api.ContainerRestart(ctx, r.container, opts); err != nil {
		return signalerr.Actuation(fmt.Errorf("docker restart %s: %w", r.container, err))
	}
	r.logger.Info("container restarted", "elapsed", time.Since(start))
	return nil
}
