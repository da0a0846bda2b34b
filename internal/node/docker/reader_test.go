package docker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docker/docker/errdefs"
	"github.com/emperorhan/node-watchdog/internal/signalerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = "2026-03-01T10:00:00Z Imported #10 (0x1)\n" +
	"2026-03-01T10:00:01Z Running session 4\n" +
	"2026-03-01T10:00:02Z Imported #11 (0x2)\n"

func TestLogReader_TailDemultiplexes(t *testing.T) {
	api := &fakeDocker{logs: map[string]string{"500": sampleOutput}}
	r := NewLogReader(api, "aleph-node", time.Second)

	lines, err := r.Tail(context.Background(), 500)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "Imported #10 (0x1)", lines[0].Text)
	assert.Equal(t, "Running session 4", lines[1].Text)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 2, 0, time.UTC), lines[2].At)

	require.Len(t, api.logOpts, 1)
	opts := api.logOpts[0]
	assert.Equal(t, "500", opts.Tail)
	assert.True(t, opts.ShowStdout)
	assert.True(t, opts.ShowStderr)
	assert.True(t, opts.Timestamps)
}

func TestLogReader_TTYReadsRawStream(t *testing.T) {
	api := &fakeDocker{tty: true, logs: map[string]string{"10": sampleOutput}}
	r := NewLogReader(api, "aleph-node", 0)

	lines, err := r.Tail(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, lines, 3)

	_, err = r.Tail(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, api.inspectCalls, "tty mode is inspected once")
}

func TestLogReader_Since(t *testing.T) {
	api := &fakeDocker{logs: map[string]string{"since": sampleOutput}}
	r := NewLogReader(api, "aleph-node", time.Second)

	since := time.Date(2026, 3, 1, 10, 0, 0, 500, time.UTC)
	_, err := r.Since(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T10:00:00.0000005Z", api.logOpts[0].Since)
}

func TestLogReader_Errors(t *testing.T) {
	api := &fakeDocker{inspectErr: errors.New("Cannot connect to the Docker daemon")}
	r := NewLogReader(api, "aleph-node", time.Second)

	_, err := r.Tail(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, signalerr.KindTransport, signalerr.KindOf(err))

	api.inspectErr = nil
	api.logsErr = errors.New("logs unavailable")
	_, err = r.Tail(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, signalerr.KindTransport, signalerr.KindOf(err))
	assert.Equal(t, 2, api.inspectCalls, "failed inspect is retried")
}

func TestLogReader_CheckContainer(t *testing.T) {
	api := &fakeDocker{}
	r := NewLogReader(api, "aleph-node", time.Second)
	require.NoError(t, r.CheckContainer(context.Background()))

	api.inspectErr = errdefs.NotFound(errors.New("No such container: aleph-node"))
	err := r.CheckContainer(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
