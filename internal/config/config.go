package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Target   TargetConfig
	RPC      RPCConfig
	Watchdog WatchdogConfig
	Signal   SignalConfig
	Restart  RestartConfig
	Alert    AlertConfig
	Journal  JournalConfig
	Tracing  TracingConfig
	Server   ServerConfig
	Log      LogConfig
}

type TargetConfig struct {
	Container string
}

type RPCConfig struct {
	URL             string
	Timeout         time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	BreakerFailures int
	BreakerOpen     time.Duration
}

type WatchdogConfig struct {
	Interval           time.Duration
	ModerateLag        int64
	SevereLag          int64
	Cooldown           time.Duration
	CooldownPolicy     string
	TrendWindow        time.Duration
	StallDuration      time.Duration
	DryRun             bool
	UnhealthyThreshold int
}

type SignalConfig struct {
	TailLines   int
	Since       time.Duration
	Timeout     time.Duration
	ProfilePath string
}

type RestartConfig struct {
	Timeout   time.Duration
	StopGrace time.Duration
}

type AlertConfig struct {
	SlackWebhookURL string
	WebhookURL      string
	Cooldown        time.Duration
}

type JournalConfig struct {
	RedisURL string
	Stream   string
	MaxLen   int64
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

type ServerConfig struct {
	HealthPort int
}

type LogConfig struct {
	Level string
}

const (
	CooldownPolicyObserve = "observe"
	CooldownPolicySkip    = "skip"

	defaultRPCURL = "https://aleph-zero.api.onfinality.io/public"
)

func Load() (*Config, error) {
	cfg := &Config{
		Target: TargetConfig{
			Container: strings.TrimSpace(getEnv("CONTAINER_NAME", "")),
		},
		RPC: RPCConfig{
			URL:             strings.TrimSpace(getEnv("RPC_URL", defaultRPCURL)),
			Timeout:         seconds(getEnvInt("RPC_TIMEOUT_SEC", 10)),
			RateLimitRPS:    getEnvFloat("RPC_RATE_LIMIT_RPS", 2),
			RateLimitBurst:  getEnvInt("RPC_RATE_LIMIT_BURST", 2),
			BreakerFailures: getEnvInt("RPC_BREAKER_FAILURES", 5),
			BreakerOpen:     seconds(getEnvInt("RPC_BREAKER_OPEN_SEC", 60)),
		},
		Watchdog: WatchdogConfig{
			Interval:           seconds(getEnvInt("CHECK_INTERVAL", 60)),
			ModerateLag:        int64(getEnvInt("BLOCK_LAG_20", getEnvInt("MODERATE_LAG_THRESHOLD", 20))),
			SevereLag:          int64(getEnvInt("BLOCK_LAG_100", getEnvInt("SEVERE_LAG_THRESHOLD", 100))),
			Cooldown:           seconds(getEnvInt("COOLDOWN_PERIOD", 300)),
			CooldownPolicy:     strings.ToLower(strings.TrimSpace(getEnv("COOLDOWN_POLICY", CooldownPolicyObserve))),
			TrendWindow:        seconds(getEnvInt("TREND_WINDOW", 300)),
			StallDuration:      seconds(getEnvInt("STALL_DURATION", 180)),
			DryRun:             getEnvBool("DRY_RUN", false),
			UnhealthyThreshold: getEnvInt("UNHEALTHY_THRESHOLD", 5),
		},
		Signal: SignalConfig{
			TailLines:   getEnvInt("SIGNAL_TAIL_LINES", 5000),
			Since:       seconds(getEnvInt("SIGNAL_SINCE_SEC", 0)),
			Timeout:     seconds(getEnvInt("SIGNAL_TIMEOUT_SEC", 15)),
			ProfilePath: getEnv("LOG_PROFILE_PATH", ""),
		},
		Restart: RestartConfig{
			Timeout:   seconds(getEnvInt("RESTART_TIMEOUT_SEC", 60)),
			StopGrace: seconds(getEnvInt("RESTART_STOP_GRACE_SEC", 30)),
		},
		Alert: AlertConfig{
			SlackWebhookURL: getEnv("ALERT_SLACK_WEBHOOK_URL", ""),
			WebhookURL:      getEnv("ALERT_WEBHOOK_URL", ""),
			Cooldown:        seconds(getEnvInt("ALERT_COOLDOWN_SEC", 1800)),
		},
		Journal: JournalConfig{
			RedisURL: getEnv("JOURNAL_REDIS_URL", ""),
			Stream:   getEnv("JOURNAL_STREAM", "watchdog:decisions"),
			MaxLen:   int64(getEnvInt("JOURNAL_MAX_LEN", 10000)),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    getEnvBool("TRACING_INSECURE", true),
			SampleRatio: getEnvFloat("TRACING_SAMPLE_RATIO", 1),
		},
		Server: ServerConfig{
			HealthPort: getEnvInt("HEALTH_PORT", 8080),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Target.Container == "" {
		return fmt.Errorf("CONTAINER_NAME is required")
	}
	if c.RPC.URL == "" {
		return fmt.Errorf("RPC_URL must not be empty")
	}
	if c.Watchdog.Interval <= 0 {
		return fmt.Errorf("CHECK_INTERVAL must be positive, got %s", c.Watchdog.Interval)
	}
	if c.Watchdog.ModerateLag <= 0 {
		return fmt.Errorf("moderate lag threshold must be positive, got %d", c.Watchdog.ModerateLag)
	}
	if c.Watchdog.SevereLag <= c.Watchdog.ModerateLag {
		return fmt.Errorf("severe lag threshold (%d) must be greater than moderate lag threshold (%d)",
			c.Watchdog.SevereLag, c.Watchdog.ModerateLag)
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"COOLDOWN_PERIOD", c.Watchdog.Cooldown},
		{"TREND_WINDOW", c.Watchdog.TrendWindow},
		{"STALL_DURATION", c.Watchdog.StallDuration},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
		switch c.Watchdog.CooldownPolicy {
	case CooldownPolicyObserve, CooldownPolicySkip:
	default:
		return fmt.Errorf("COOLDOWN_POLICY must be %q or %q, got %q",
			CooldownPolicyObserve, CooldownPolicySkip, c.Watchdog.CooldownPolicy)
	}
	if c.Server.HealthPort < 0 || c.Server.HealthPort > 65535 {
		return fmt.Errorf("HEALTH_PORT out of range: %d", c.Server.HealthPort)
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
