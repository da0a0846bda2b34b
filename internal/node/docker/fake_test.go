package docker

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

type fakeDocker struct {
	tty        bool
	inspectErr error
	logs       map[string]string // keyed by Tail or Since option
	logsErr    error
	restartErr error

	inspectCalls int
	logOpts      []container.LogsOptions
	restartOpts  []container.StopOptions
}

func (f *fakeDocker) ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error) {
	f.inspectCalls++
	if f.inspectErr != nil {
		return types.ContainerJSON{}, f.inspectErr
	}
	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{Name: "/" + containerID},
		Config:            &container.Config{Tty: f.tty},
	}, nil
}

func (f *fakeDocker) ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error) {
	f.logOpts = append(f.logOpts, options)
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	key := options.Tail
	if options.Since != "" {
		key = "since"
	}
	payload := f.logs[key]
	if f.tty {
		return io.NopCloser(strings.NewReader(payload)), nil
	}
	return io.NopCloser(multiplex(payload)), nil
}

func (f *fakeDocker) ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error {
	f.restartOpts = append(f.restartOpts, options)
	return f.restartErr
}

// multiplex frames even lines as stdout and odd lines as stderr.
func multiplex(payload string) io.Reader {
	var buf bytes.Buffer
	stdout := stdcopy.NewStdWriter(&buf, stdcopy.Stdout)
	stderr := stdcopy.NewStdWriter(&buf, stdcopy.Stderr)
	for i, line := range strings.SplitAfter(payload, "\n") {
		if line == "" {
			continue
		}
		w := stdout
		if i%2 == 1 {
			w = stderr
		}
		if _, err := w.Write([]byte(line)); err != nil {
			panic(err)
		}
	}
	return &buf
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

