package docker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emperorhan/node-watchdog/internal/domain/model"
	"github.com/emperorhan/node-watchdog/internal/node/logscan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(api *fakeDocker, cfg SourceConfig) *Source {
	return NewSource(NewLogReader(api, "aleph-node", time.Second), logscan.NewDefaultScanner(), cfg, discardLogger())
}

func TestSource_Observe(t *testing.T) {
	api := &fakeDocker{logs: map[string]string{"5000": "2026-03-01T10:00:00Z Switched to major sync state\n" +
		"2026-03-01T10:00:01Z Imported #990 (0x1)\n" +
		"2026-03-01T10:00:02Z Running session 12\n"}}
	src := newTestSource(api, SourceConfig{})

	obs, err := src.Observe(context.Background())
	require.NoError(t, err)
	assert.True(t, obs.HasSyncedHeight)
	assert.Equal(t, uint64(990), obs.SyncedHeight)
	assert.Equal(t, model.SyncStateSyncing, obs.SyncState)
	require.NotNil(t, obs.Session)
	assert.Equal(t, "12", obs.Session.ID)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 2, 0, time.UTC), obs.Session.StartedAt)
}

func TestSource_ObserveAbsentMarkers(t *testing.T) {
	api := &fakeDocker{logs: map[string]string{"5000": "2026-03-01T10:00:00Z Idle (3 peers)\n"}}
	src := newTestSource(api, SourceConfig{})

	obs, err := src.Observe(context.Background())
	require.NoError(t, err)
	assert.False(t, obs.HasSyncedHeight)
	assert.Equal(t, model.SyncStateUnknown, obs.SyncState)
	assert.Nil(t, obs.Session)
}

func TestSource_ObserveTimeWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	api := &fakeDocker{logs: map[string]string{"since": "Imported #5 (0x5)\n"}}
	src := newTestSource(api, SourceConfig{Window: 10 * time.Minute, Now: func() time.Time { return now }})

	_, err := src.Observe(context.Background())
	require.NoError(t, err)
	require.Len(t, api.logOpts, 1)
	assert.Equal(t, "2026-03-01T10:20:00Z", api.logOpts[0].Since)
}

func TestSource_ObserveTransportError(t *testing.T) {
	api := &fakeDocker{logsErr: errors.New("daemon gone")}
	src := newTestSource(api, SourceConfig{})

	_, err := src.Observe(context.Background())
	require.Error(t, err)
}

func TestSource_ProducedBlocksSinceSessionStart(t *testing.T) {
	api := &fakeDocker{logs: map[string]string{"since": "2026-03-01T10:00:03Z Prepared block for proposing at 100\n" +
		"2026-03-01T10:00:04Z Pre-sealed block for proposal at #100\n"}}
	src := newTestSource(api, SourceConfig{})

	start := time.Date(2026, 3, 1, 10, 0, 2, 0, time.UTC)
	produced, err := src.ProducedBlocksSince(context.Background(), model.Session{ID: "12", StartedAt: start})
	require.NoError(t, err)
	assert.True(t, produced)
	assert.Equal(t, "2026-03-01T10:00:02Z", api.logOpts[0].Since)
}

func TestSource_ProducedBlocksFallsBackToSessionTail(t *testing.T) {
	api := &fakeDocker{tty: true, logs: map[string]string{"5000": "Prepared block for proposing at 90\n" +
		"Running session 12\n" +
		"Prepared block for proposing at 100\n" +
		"Pre-sealed block for proposal at #100\n"}}
	src := newTestSource(api, SourceConfig{})

	obs, err := src.Observe(context.Background())
	require.NoError(t, err)
	require.NotNil(t, obs.Session)
	assert.False(t, obs.Session.HasStart())

	produced, err := src.ProducedBlocksSince(context.Background(), *obs.Session)
	require.NoError(t, err)
	assert.True(t, produced)
	assert.Len(t, api.logOpts, 1, "fallback must not query the runtime again")

	produced, err = src.ProducedBlocksSince(context.Background(), model.Session{ID: "13"})
	require.NoError(t, err)
	assert.False(t, produced)
}

func TestSource_FallbackOnlyCountsLinesAfterMarker(t *testing.T) {
	api := &fakeDocker{tty: true, logs: map[string]string{"5000": "Prepared block for proposing at 90\n" +
		"Pre-sealed block for proposal at #90\n" +
		"Running session 12\n"}}
	src := newTestSource(api, SourceConfig{})

	obs, err := src.Observe(context.Background())
	require.NoError(t, err)

	produced, err := src.ProducedBlocksSince(context.Background(), *obs.Session)
	require.NoError(t, err)
	assert.False(t, produced)
}
