package config

import (
	"fmt"
	"time"
)

const (
	// BotModePolling receives updates through telegram long polling.
	BotModePolling = "polling"
	// BotModeWebhook receives updates through a telegram webhook.
	BotModeWebhook = "webhook"

	// DriverMemory keeps data in process memory.
	DriverMemory = "memory"
	// DriverRedis keeps data in Redis.
	DriverRedis = "redis"
)

// Config holds runtime configuration for the number bot.
type Config struct {
	AppEnv string `mapstructure:"-"`

	Bot       BotConfig       `mapstructure:"bot"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Server    ServerConfig    `mapstructure:"server"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Session   SessionConfig   `mapstructure:"session"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
}

// BotConfig configures the telegram transport.
type BotConfig struct {
	Token        string        `mapstructure:"token" validate:"required"`
	Mode         string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
	WebhookURL   string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	Language     string        `mapstructure:"language" validate:"required"`
	FileTimeout  time.Duration `mapstructure:"file_timeout" validate:"gt=0"`
	MaxFileBytes int64         `mapstructure:"max_file_bytes" validate:"gt=0"`
}

// AdminConfig identifies the single administrator.
type AdminConfig struct {
	ID       int64  `mapstructure:"id" validate:"required,gt=0"`
	Username string `mapstructure:"username" validate:"required"`
}

// ServerConfig configures the liveness HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"gt=0,lte=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// InventoryConfig selects the inventory backend.
type InventoryConfig struct {
	Driver          string `mapstructure:"driver" validate:"oneof=memory redis"`
	DefaultPageSize int    `mapstructure:"default_page_size" validate:"gt=0,lte=50"`
	KeyPrefix       string `mapstructure:"key_prefix"`
}

// SessionConfig selects the session storage backend.
type SessionConfig struct {
	Driver string        `mapstructure:"driver" validate:"oneof=memory redis"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// RedisConfig defines connection parameters for Redis-backed components.
type RedisConfig struct {
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

// LogConfig configures the slog pipeline.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=text json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DSN         string `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string `mapstructure:"environment"`
}

// RateLimitConfig configures the per-user update limit.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Limit     int           `mapstructure:"limit" validate:"gte=0"`
	Window    time.Duration `mapstructure:"window"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

// DedupConfig controls dropping of redelivered updates.
type DedupConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Inventory.Driver == DriverRedis || c.Session.Driver == DriverRedis
}
