package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emperorhan/node-watchdog/internal/config"
	"github.com/emperorhan/node-watchdog/internal/journal"
	"github.com/emperorhan/node-watchdog/internal/node/logscan"
	"github.com/emperorhan/node-watchdog/internal/watchdog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestEngineConfig_MapsWatchdogSettings(t *testing.T) {
	cfg := &config.Config{Watchdog: config.WatchdogConfig{
		Interval:       30 * time.Second,
		ModerateLag:    10,
		SevereLag:      50,
		Cooldown:       10 * time.Minute,
		CooldownPolicy: config.CooldownPolicySkip,
		TrendWindow:    5 * time.Minute,
		StallDuration:  2 * time.Minute,
	}}

	got := engineConfig(cfg)
	assert.Equal(t, watchdog.Config{
		ModerateLag:    10,
		SevereLag:      50,
		Cooldown:       10 * time.Minute,
		CooldownPolicy: watchdog.CooldownPolicySkip,
		TrendWindow:    5 * time.Minute,
		StallDuration:  2 * time.Minute,
		CheckInterval:  30 * time.Second,
	}, got)
}

func TestLoadScanner_DefaultProfile(t *testing.T) {
	scanner, err := loadScanner("")
	require.NoError(t, err)
	assert.Equal(t, logscan.DefaultProfile(), scanner.Profile())
}

func TestLoadScanner_CustomProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("synced_height: 'best: #(\\d+)'\n"), 0o600))

	scanner, err := loadScanner(path)
	require.NoError(t, err)

	height, ok := scanner.LatestSyncedHeight([]logscan.Line{{Text: "Idle (3 peers), best: #812 (0xab)"}})
	require.True(t, ok)
	assert.Equal(t, uint64(812), height)
}

func TestLoadScanner_MissingFile(t *testing.T) {
	_, err := loadScanner(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestResolveJournal_EmptyURLUsesMemory(t *testing.T) {
	j := resolveJournal(context.Background(), config.JournalConfig{}, discardLogger())
	assert.Equal(t, "memory", j.Backend())
}

func TestResolveJournal_RedisConfigured(t *testing.T) {
	orig := newRedisJournal
	t.Cleanup(func() { newRedisJournal = orig })

	var got config.JournalConfig
	newRedisJournal = func(_ context.Context, cfg config.JournalConfig) (journal.Transport, error) {
		got = cfg
		return journal.NewMemory(4), nil
	}

	cfg := config.JournalConfig{RedisURL: "redis://redis:6379", Stream: "watchdog:decisions", MaxLen: 50}
	j := resolveJournal(context.Background(), cfg, discardLogger())
	require.NotNil(t, j)
	assert.Equal(t, cfg, got)
}

func TestResolveJournal_RedisFailureFallsBackToMemory(t *testing.T) {
	orig := newRedisJournal
	t.Cleanup(func() { newRedisJournal = orig })

	newRedisJournal = func(context.Context, config.JournalConfig) (journal.Transport, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	j := resolveJournal(context.Background(), config.JournalConfig{RedisURL: "redis://down:6379"}, discardLogger())
	assert.Equal(t, "memory", j.Backend())
}

func TestIsGracefulShutdown(t *testing.T) {
	assert.True(t, isGracefulShutdown(nil))
	assert.True(t, isGracefulShutdown(context.Canceled))
	assert.True(t, isGracefulShutdown(fmt.Errorf("scheduler: %w", context.Canceled)))
	assert.False(t, isGracefulShutdown(errors.New("admin server: bind: address already in use")))
}
