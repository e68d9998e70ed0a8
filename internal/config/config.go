package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	LogLevel        string
	ShutdownTimeout time.Duration

	StoreDriver     string
	DatabaseURI     string
	SQLitePath      string
	StoreQuotaBytes int

	ResyncInterval     time.Duration
	RepeatSchedule     []time.Duration
	LegacySignals      bool
	SettleDelay        time.Duration
	ActionLatency      time.Duration
	CancellationWindow time.Duration
	PenaltyFee         float64

	Views           []string
	OrdersSeedFile  string
	OrdersSourceURL string

	TokenSecret string
	TokenTTL    time.Duration
	ActorKey    string
}

const (
	defaultRunAddress         = ":8080"
	defaultLogLevel           = "info"
	defaultShutdownTimeout    = 10 * time.Second
	defaultStoreDriver        = DriverMemory
	defaultSQLitePath         = "ordersync.db"
	defaultStoreQuotaBytes    = 5 << 20
	defaultResyncInterval     = 10 * time.Second
	defaultRepeatSchedule     = "0s"
	defaultSettleDelay        = 300 * time.Millisecond
	defaultCancellationWindow = 10 * time.Minute
	defaultPenaltyFee         = 5.0
	defaultViews              = "admin,vendor,rider,customer"
	defaultTokenSecret        = "change-me-in-production"
	defaultTokenTTL           = 24 * time.Hour
	defaultActorKey           = "change-me"
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:         getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		LogLevel:           getString(lookup, "LOG_LEVEL", defaultLogLevel),
		ShutdownTimeout:    getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		StoreDriver:        getString(lookup, "STORE_DRIVER", defaultStoreDriver),
		DatabaseURI:        getString(lookup, "DATABASE_URI", ""),
		SQLitePath:         getString(lookup, "SQLITE_PATH", defaultSQLitePath),
		StoreQuotaBytes:    getInt(lookup, "STORE_QUOTA_BYTES", defaultStoreQuotaBytes),
		ResyncInterval:     getDuration(lookup, "RESYNC_INTERVAL", defaultResyncInterval),
		LegacySignals:      getBool(lookup, "LEGACY_SIGNALS", true),
		SettleDelay:        getDuration(lookup, "SETTLE_DELAY", defaultSettleDelay),
		ActionLatency:      getDuration(lookup, "ACTION_LATENCY", 0),
		CancellationWindow: getDuration(lookup, "CANCELLATION_WINDOW", defaultCancellationWindow),
		PenaltyFee:         getFloat(lookup, "PENALTY_FEE", defaultPenaltyFee),
		OrdersSeedFile:     getString(lookup, "ORDERS_SEED_FILE", ""),
		OrdersSourceURL:    getString(lookup, "ORDERS_SOURCE_URL", ""),
		TokenSecret:        getString(lookup, "TOKEN_SECRET", defaultTokenSecret),
		TokenTTL:           getDuration(lookup, "TOKEN_TTL", defaultTokenTTL),
		ActorKey:           getString(lookup, "ACTOR_KEY", defaultActorKey),
	}

	fs := flag.NewFlagSet("ordersync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		resyncIntervalStr  = cfg.ResyncInterval.String()
		settleDelayStr     = cfg.SettleDelay.String()
		latencyStr         = cfg.ActionLatency.String()
		windowStr          = cfg.CancellationWindow.String()
		scheduleStr        = getString(lookup, "REPEAT_SCHEDULE", defaultRepeatSchedule)
		viewsStr           = getString(lookup, "VIEWS", defaultViews)
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "Durable store driver: memory, postgres or sqlite")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "SQLite database file")
	fs.IntVar(&cfg.StoreQuotaBytes, "store-quota", cfg.StoreQuotaBytes, "In-memory store quota in bytes")
	fs.StringVar(&resyncIntervalStr, "resync-interval", resyncIntervalStr, "Interval between background view resyncs")
	fs.StringVar(&scheduleStr, "repeat-schedule", scheduleStr, "Comma separated publish delay offsets")
	fs.BoolVar(&cfg.LegacySignals, "legacy-signals", cfg.LegacySignals, "Also emit the generic storage signal")
	fs.StringVar(&settleDelayStr, "settle-delay", settleDelayStr, "Delay before mutation completion callbacks")
	fs.StringVar(&latencyStr, "action-latency", latencyStr, "Simulated latency of mutator actions")
	fs.StringVar(&windowStr, "cancel-window", windowStr, "Free cancellation window after placement")
	fs.Float64Var(&cfg.PenaltyFee, "penalty-fee", cfg.PenaltyFee, "Late cancellation fee")
	fs.StringVar(&viewsStr, "views", viewsStr, "Comma separated view names")
	fs.StringVar(&cfg.OrdersSeedFile, "seed", cfg.OrdersSeedFile, "JSON file with base orders")
	fs.StringVar(&cfg.OrdersSourceURL, "orders-url", cfg.OrdersSourceURL, "Base URL of a remote order list provider")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "Secret for signing actor tokens")
	fs.StringVar(&cfg.ActorKey, "actor-key", cfg.ActorKey, "Access key required to open an actor session")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.ResyncInterval, err = time.ParseDuration(resyncIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid resync interval: %w", err)
	}

	if cfg.SettleDelay, err = time.ParseDuration(settleDelayStr); err != nil {
		return nil, fmt.Errorf("invalid settle delay: %w", err)
	}

	if cfg.ActionLatency, err = time.ParseDuration(latencyStr); err != nil {
		return nil, fmt.Errorf("invalid action latency: %w", err)
	}

	if cfg.CancellationWindow, err = time.ParseDuration(windowStr); err != nil {
		return nil, fmt.Errorf("invalid cancellation window: %w", err)
	}

	if cfg.RepeatSchedule, err = ParseSchedule(scheduleStr); err != nil {
		return nil, fmt.Errorf("invalid repeat schedule: %w", err)
	}

	if secretFile, ok := lookup("TOKEN_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read token secret file: %w", err)
		}
		cfg.TokenSecret = strings.TrimSpace(string(content))
	}

	cfg.Views = splitList(viewsStr)
	if len(cfg.Views) == 0 {
		cfg.Views = splitList(defaultViews)
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = defaultResyncInterval
	}

	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}

	if cfg.ActionLatency < 0 {
		cfg.ActionLatency = 0
	}

	if cfg.CancellationWindow <= 0 {
		cfg.CancellationWindow = defaultCancellationWindow
	}

	if cfg.StoreQuotaBytes < 0 {
		cfg.StoreQuotaBytes = 0
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	if cfg.PenaltyFee < 0 {
		return nil, fmt.Errorf("penalty fee must not be negative")
	}

	if cfg.ActorKey == "" {
		return nil, fmt.Errorf("actor key must be provided")
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	switch cfg.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURI == "" {
			return nil, fmt.Errorf("database URI must be provided for postgres store")
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path must be provided for sqlite store")
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// ParseSchedule parses a comma separated list of non-negative durations.
// An empty list means a single immediate publish.
func ParseSchedule(s string) ([]time.Duration, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return []time.Duration{0}, nil
	}
	schedule := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		d, err := time.ParseDuration(p)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, fmt.Errorf("negative offset %s", p)
		}
		schedule = append(schedule, d)
	}
	slices.Sort(schedule)
	return schedule, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(lookup envLookup, key string, def float64) float64 {
	if v, ok := lookup(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
