package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	RosterPath     string
	LogLevel       string
	DryRun         bool

	// Simulation pacing and caching.
	SnapshotTTL  time.Duration
	OrderbookTTL time.Duration

	// Provisioning.
	AdminUsername string
	AdminPassword string
	RetailBots    int
	BandarBots    int
	BotPassword   string
	RetailCashMin int64
	RetailCashMax int64
	BandarCashMin int64
	BandarCashMax int64
	RetailLotsMin int64
	RetailLotsMax int64
	BandarLotsMin int64
	BandarLotsMax int64

	// Optional telemetry sinks; empty means disabled.
	RedisAddr   string
	EventStream string
	PostgresURL string
}

func Load() *Config {
	return &Config{
		APIBaseURL:     getEnv("BOTSIM_API_URL", "http://localhost:3000/api"),
		RequestTimeout: getEnvDuration("BOTSIM_REQUEST_TIMEOUT", 10*time.Second),
		RosterPath:     getEnv("BOTSIM_ROSTER_PATH", "bots.yaml"),
		LogLevel:       getEnv("BOTSIM_LOG_LEVEL", "info"),
		DryRun:         getEnvBool("BOTSIM_DRY_RUN", false),

		SnapshotTTL:  getEnvDuration("BOTSIM_SNAPSHOT_TTL", 10*time.Second),
		OrderbookTTL: getEnvDuration("BOTSIM_ORDERBOOK_TTL", 500*time.Millisecond),

		AdminUsername: getEnv("BOTSIM_ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("BOTSIM_ADMIN_PASSWORD", "admin123"),
		RetailBots:    getEnvInt("BOTSIM_RETAIL_BOTS", 10),
		BandarBots:    getEnvInt("BOTSIM_BANDAR_BOTS", 2),
		BotPassword:   getEnv("BOTSIM_BOT_PASSWORD", "password123"),
		RetailCashMin: getEnvInt64("BOTSIM_RETAIL_CASH_MIN", 50_000_000),
		RetailCashMax: getEnvInt64("BOTSIM_RETAIL_CASH_MAX", 100_000_000),
		BandarCashMin: getEnvInt64("BOTSIM_BANDAR_CASH_MIN", 50_000_000_000),
		BandarCashMax: getEnvInt64("BOTSIM_BANDAR_CASH_MAX", 100_000_000_000),
		RetailLotsMin: getEnvInt64("BOTSIM_RETAIL_LOTS_MIN", 10),
		RetailLotsMax: getEnvInt64("BOTSIM_RETAIL_LOTS_MAX", 50),
		BandarLotsMin: getEnvInt64("BOTSIM_BANDAR_LOTS_MIN", 5000),
		BandarLotsMax: getEnvInt64("BOTSIM_BANDAR_LOTS_MAX", 20000),

		RedisAddr:   getEnv("BOTSIM_REDIS_ADDR", ""),
		EventStream: getEnv("BOTSIM_EVENT_STREAM", "sim_events"),
		PostgresURL: getEnv("BOTSIM_POSTGRES_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
