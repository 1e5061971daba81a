// Package config loads chartdeck settings from the environment, an optional
// .env file and an optional YAML dashboard file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SurfaceRelay = "relay"
	SurfaceCDP   = "cdp"
)

// Config holds process-level settings.
type Config struct {
	BindAddr string
	// BindFallback lets the API move to the first free port in BindPorts
	// when BindAddr is taken.
	BindFallback bool
	BindPorts    string

	// Backtest backend
	BackendURL       string
	BackendTimeoutMS int
	BackendRetries   int

	// Surface mode and browser settings for the cdp mode
	Surface       string
	CDPAddress    string
	CDPPort       int
	LaunchBrowser bool
	ProfileDir    string
	EvalTimeoutMS int

	// Engine timing
	FrameIntervalMS int
	SettleDelayMS   int

	NotificationTTLMS int
	NtfyEndpoint      string

	LogLevel string
	LogFile  string

	// JournalDir enables the relay event journal when set.
	JournalDir        string
	JournalMaxMB      int
	JournalMaxPayload int

	DashboardPath string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:          getEnvOrDefault("CHARTDECK_BIND_ADDR", "127.0.0.1:8190"),
		BindFallback:      getEnvBoolOrDefault("CHARTDECK_BIND_FALLBACK", true),
		BindPorts:         getEnvOrDefault("CHARTDECK_BIND_PORTS", "8191-8199"),
		BackendURL:        getEnvOrDefault("CHARTDECK_BACKEND_URL", "http://localhost:8800/api"),
		BackendTimeoutMS:  getEnvIntOrDefault("CHARTDECK_BACKEND_TIMEOUT_MS", 30000),
		BackendRetries:    getEnvIntOrDefault("CHARTDECK_BACKEND_RETRIES", 2),
		Surface:           strings.ToLower(getEnvOrDefault("CHARTDECK_SURFACE", SurfaceRelay)),
		CDPAddress:        getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:           getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		LaunchBrowser:     getEnvBoolOrDefault("CHARTDECK_LAUNCH_BROWSER", true),
		ProfileDir:        getEnvOrDefault("CHARTDECK_BROWSER_PROFILE_DIR", "./browser_profile"),
		EvalTimeoutMS:     getEnvIntOrDefault("CHARTDECK_EVAL_TIMEOUT_MS", 5000),
		FrameIntervalMS:   getEnvIntOrDefault("CHARTDECK_FRAME_INTERVAL_MS", 16),
		SettleDelayMS:     getEnvIntOrDefault("CHARTDECK_SETTLE_DELAY_MS", 200),
		NotificationTTLMS: getEnvIntOrDefault("CHARTDECK_NOTIFICATION_TTL_MS", 3000),
		NtfyEndpoint:      getEnvOrDefault("CHARTDECK_NTFY_ENDPOINT", ""),
		LogLevel:          strings.ToLower(getEnvOrDefault("CHARTDECK_LOG_LEVEL", "info")),
		LogFile:           getEnvOrDefault("CHARTDECK_LOG_FILE", "logs/chartdeck.log"),
		JournalDir:        getEnvOrDefault("CHARTDECK_JOURNAL_DIR", ""),
		JournalMaxMB:      getEnvIntOrDefault("CHARTDECK_JOURNAL_MAX_MB", 50),
		JournalMaxPayload: getEnvIntOrDefault("CHARTDECK_JOURNAL_MAX_PAYLOAD", 64<<10),
		DashboardPath:     getEnvOrDefault("CHARTDECK_DASHBOARD_CONFIG", "./config/dashboard.yaml"),
	}
	if cfg.EvalTimeoutMS < 1000 {
		cfg.EvalTimeoutMS = 1000
	}
	if cfg.FrameIntervalMS < 1 {
		cfg.FrameIntervalMS = 16
	}
	if cfg.Surface != SurfaceRelay && cfg.Surface != SurfaceCDP {
		return nil, fmt.Errorf("CHARTDECK_SURFACE must be %q or %q, got %q", SurfaceRelay, SurfaceCDP, cfg.Surface)
	}
	if cfg.SettleDelayMS <= cfg.FrameIntervalMS {
		return nil, fmt.Errorf("CHARTDECK_SETTLE_DELAY_MS (%d) must exceed CHARTDECK_FRAME_INTERVAL_MS (%d)",
			cfg.SettleDelayMS, cfg.FrameIntervalMS)
	}
	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint used by the chromedp remote allocator.
func (c *Config) CDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

// DeckURL is the address the browser tab loads the deck page from.
func (c *Config) DeckURL(path string) string {
	host := c.BindAddr
	if strings.HasPrefix(host, ":") || strings.HasPrefix(host, "0.0.0.0:") {
		host = "127.0.0.1" + host[strings.Index(host, ":"):]
	}
	return "http://" + host + path
}

func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}

func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutMS) * time.Millisecond
}

func (c *Config) EvalTimeout() time.Duration {
	return time.Duration(c.EvalTimeoutMS) * time.Millisecond
}

func (c *Config) NotificationTTL() time.Duration {
	return time.Duration(c.NotificationTTLMS) * time.Millisecond
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
