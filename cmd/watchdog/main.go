package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/emperorhan/node-watchdog/internal/admin"
	"github.com/emperorhan/node-watchdog/internal/alert"
	"github.com/emperorhan/node-watchdog/internal/chain/substrate"
	"github.com/emperorhan/node-watchdog/internal/config"
	"github.com/emperorhan/node-watchdog/internal/domain/model"
	"github.com/emperorhan/node-watchdog/internal/journal"
	"github.com/emperorhan/node-watchdog/internal/node/docker"
	"github.com/emperorhan/node-watchdog/internal/node/logscan"
	"github.com/emperorhan/node-watchdog/internal/supervisor"
	"github.com/emperorhan/node-watchdog/internal/tracing"
	"github.com/emperorhan/node-watchdog/internal/watchdog"
	"golang.org/x/sync/errgroup"
)

const serviceName = "node-watchdog"

var (
	newRedisJournal = func(ctx context.Context, cfg config.JournalConfig) (journal.Transport, error) {
		stream, err := journal.NewRedisStream(ctx, cfg.RedisURL, cfg.Stream, cfg.MaxLen)
		if err != nil {
			return nil, err
		}
		return stream, nil
	}
	newMemoryJournal = func() journal.Transport { return journal.NewMemory(journal.DefaultMemoryCapacity) }
)

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func engineConfig(cfg *config.Config) watchdog.Config {
	return watchdog.Config{
		ModerateLag:    cfg.Watchdog.ModerateLag,
		SevereLag:      cfg.Watchdog.SevereLag,
		Cooldown:       cfg.Watchdog.Cooldown,
		CooldownPolicy: watchdog.CooldownPolicy(cfg.Watchdog.CooldownPolicy),
		TrendWindow:    cfg.Watchdog.TrendWindow,
		StallDuration:  cfg.Watchdog.StallDuration,
		CheckInterval:  cfg.Watchdog.Interval,
	}
}

// loadScanner compiles the marker profile. An empty path keeps the built-in
// Substrate markers.
func loadScanner(path string) (*logscan.Scanner, error) {
	profile, err := logscan.LoadProfile(path)
	if err != nil {
		return nil, err
	}
	return profile.Compile()
}

// resolveJournal picks the Redis stream when configured. A Redis that cannot
// be reached at startup degrades to the in-memory journal.
func resolveJournal(ctx context.Context, cfg config.JournalConfig, logger *slog.Logger) journal.Transport {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return newMemoryJournal()
	}
	j, err := newRedisJournal(ctx, cfg)
	if err != nil {
		logger.Warn("redis journal unavailable, using in-memory journal", "error", err)
		return newMemoryJournal()
	}
	logger.Info("redis decision journal enabled", "stream", cfg.Stream, "max_len", cfg.MaxLen)
	return j
}

func isGracefulShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}))
	slog.SetDefault(logger)

	logger.Info("starting node watchdog",
		"container", cfg.Target.Container,
		"rpc_url", cfg.RPC.URL,
		"check_interval", cfg.Watchdog.Interval,
		"moderate_lag", cfg.Watchdog.ModerateLag,
		"severe_lag", cfg.Watchdog.SevereLag,
		"cooldown", cfg.Watchdog.Cooldown,
		"cooldown_policy", cfg.Watchdog.CooldownPolicy,
		"dry_run", cfg.Watchdog.DryRun,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("watchdog exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("watchdog shut down gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	shutdownTracing, err := tracing.Init(context.Background(), tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: serviceName,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()
	if cfg.Tracing.Enabled {
		logger.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint)
	}

	scanner, err := loadScanner(cfg.Signal.ProfilePath)
	if err != nil {
		return fmt.Errorf("load log profile: %w", err)
	}

	dockerClient, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer dockerClient.Close()

	reader := docker.NewLogReader(dockerClient, cfg.Target.Container, cfg.Signal.Timeout)
	if err := reader.CheckContainer(context.Background()); err != nil {
		if docker.IsNotFound(err) {
			return fmt.Errorf("container %q not found: %w", cfg.Target.Container, err)
		}
		return fmt.Errorf("check container %q: %w", cfg.Target.Container, err)
	}

	source := docker.NewSource(reader, scanner, docker.SourceConfig{
		TailLines: cfg.Signal.TailLines,
		Window:    cfg.Signal.Since,
	}, logger)
	restarter := docker.NewRestarter(dockerClient, cfg.Target.Container, cfg.Restart.StopGrace, cfg.Restart.Timeout, logger)
	head := substrate.NewAdapter(cfg.RPC.URL, substrate.Options{
		Timeout:          cfg.RPC.Timeout,
		RateLimitRPS:     cfg.RPC.RateLimitRPS,
		RateLimitBurst:   cfg.RPC.RateLimitBurst,
		BreakerFailures:  cfg.RPC.BreakerFailures,
		BreakerOpenAfter: cfg.RPC.BreakerOpen,
	}, logger)
	alerter := alert.New(alert.Config{
		SlackWebhookURL: cfg.Alert.SlackWebhookURL,
		WebhookURL:      cfg.Alert.WebhookURL,
		Cooldown:        cfg.Alert.Cooldown,
	}, logger)

	journ := resolveJournal(context.Background(), cfg.Journal, logger)
	defer func() {
		if err := journ.Close(); err != nil {
			logger.Warn("journal close error", "error", err)
		}
	}()

	sched := supervisor.New(supervisor.Config{
		Target:             model.Target(cfg.Target.Container),
		Interval:           cfg.Watchdog.Interval,
		DryRun:             cfg.Watchdog.DryRun,
		UnhealthyThreshold: cfg.Watchdog.UnhealthyThreshold,
	}, supervisor.Deps{
		Engine:    watchdog.NewEngine(engineConfig(cfg)),
		Head:      head,
		Signals:   source,
		Restarter: restarter,
		Alerter:   alerter,
		Journal:   journ,
		Logger:    logger,
	})

	adminServer := admin.NewServer(cfg.Server.HealthPort, sched, logger,
		admin.WithJournal(journ),
		admin.WithStatusLimit(admin.NewStatusLimiter(logger)),
		admin.WithRequestLogging(),
	)

	// Context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return adminServer.Run(gCtx)
	})

	g.Go(func() error {
		return sched.Run(gCtx)
	})

	// Signal handler
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); !isGracefulShutdown(err) {
		return err
	}
	return nil
}
