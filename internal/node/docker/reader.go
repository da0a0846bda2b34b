// Package docker reads node output from, and restarts, a container through
// the Docker Engine API.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/emperorhan/node-watchdog/internal/node/logscan"
	"github.com/emperorhan/node-watchdog/internal/signalerr"
)

// dockerAPI is the subset of the Docker client the watchdog uses.
type dockerAPI interface {
	ContainerLogs(ctx context.Context, container string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error
}

// NewClient connects to the daemon described by DOCKER_HOST and friends.
func NewClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return cli, nil
}

// LogReader retrieves the supervised container's output in count-bounded
// or time-bounded windows.
type LogReader struct {
	api       dockerAPI
	container string
	timeout   time.Duration

	mu       sync.Mutex
	ttyKnown bool
	tty      bool
}

func NewLogReader(api dockerAPI, containerName string, timeout time.Duration) *LogReader {
	return &LogReader{api: api, container: containerName, timeout: timeout}
}

func (r *LogReader) Container() string { return r.container }

// CheckContainer fails when the container does not exist.
func (r *LogReader) CheckContainer(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if _, err := r.api.ContainerInspect(ctx, r.container); err != nil {
		return r.transportErr("inspect", err)
	}
	return nil
}

// Tail returns the last n lines of output.
func (r *LogReader) Tail(ctx context.Context, n int) ([]logscan.Line, error) {
	return r.fetch(ctx, container.LogsOptions{Tail: strconv.Itoa(n)})
}

// Since returns all output written at or after t.
func (r *LogReader) Since(ctx context.Context, t time.Time) ([]logscan.Line, error) {
	return r.fetch(ctx, container.LogsOptions{Since: t.UTC().Format(time.RFC3339Nano)})
}

func (r *LogReader) fetch(ctx context.Context, opts container.LogsOptions) ([]logscan.Line, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tty, err := r.isTTY(ctx)
	if err != nil {
		return nil, err
	}

	opts.ShowStdout = true
	opts.ShowStderr = true
	opts.Timestamps = true
	rc, err := r.api.ContainerLogs(ctx, r.container, opts)
	if err != nil {
		return nil, r.transportErr("logs", err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if tty {
		_, err = io.Copy(&buf, rc)
	} else {
		_, err = stdcopy.StdCopy(&buf, &buf, rc)
	}
	if err != nil {
		return nil, r.transportErr("read logs", err)
	}
	return logscan.ParseLines(buf.Bytes()), nil
}

// isTTY inspects the container once. TTY containers stream raw output
// instead of the multiplexed stdout/stderr framing.
func (r *LogReader) isTTY(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ttyKnown {
		return r.tty, nil
	}
	info, err := r.api.ContainerInspect(ctx, r.container)
	if err != nil {
		return false, r.transportErr("inspect", err)
	}
	r.tty = info.Config != nil && info.Config.Tty
	r.ttyKnown = true
	return r.tty, nil
}

func (r *LogReader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *LogReader) transportErr(op string, err error) error {
	return signalerr.Transport(fmt.Errorf("docker %s %s: %w", op, r.container, err))
}

// IsNotFound reports whether err means the container does not exist.
func IsNotFound(err error) bool {
	return errdefs.IsNotFound(err)
}
