// Package config provides configuration loading and validation utilities.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings maps config keys onto the environment names operators already use.
var envBindings = map[string][]string{
	"bot.token":      {"BOT_TOKEN"},
	"admin.id":       {"ADMIN_ID"},
	"admin.username": {"ADMIN_USERNAME"},
	"server.port":    {"PORT", "SERVER_PORT"},
}

// Load reads configuration from an optional YAML file and environment variables,
// validates it, and returns the resulting Config together with the viper instance.
func Load() (*Config, *viper.Viper, error) {
	// .env files are optional; real deployments set the environment directly.
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(env)
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Admin.Username = strings.TrimPrefix(strings.TrimSpace(cfg.Admin.Username), "@")
	cfg.Bot.Mode = strings.ToLower(strings.TrimSpace(cfg.Bot.Mode))

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.mode", BotModePolling)
	v.SetDefault("bot.poll_timeout", 10*time.Second)
	v.SetDefault("bot.webhook_url", "")
	v.SetDefault("bot.language", "en")
	v.SetDefault("bot.file_timeout", 15*time.Second)
	v.SetDefault("bot.max_file_bytes", 1<<20)

	v.SetDefault("admin.id", 0)
	v.SetDefault("admin.username", "")

	v.SetDefault("server.port", 10000)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("inventory.driver", DriverMemory)
	v.SetDefault("inventory.default_page_size", 7)
	v.SetDefault("inventory.key_prefix", "numbot")

	v.SetDefault("session.driver", DriverMemory)
	v.SetDefault("session.ttl", time.Duration(0))

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.pool_timeout", 4*time.Second)
	v.SetDefault("redis.idle_timeout", 5*time.Minute)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.min_retry_backoff", 8*time.Millisecond)
	v.SetDefault("redis.max_retry_backoff", 512*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.limit", 30)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.whitelist", []int64{})

	v.SetDefault("dedup.enabled", true)
	v.SetDefault("dedup.ttl", 10*time.Minute)
}

// Watch re-reads the config file whenever it changes and hands the freshly
// validated config to onChange. It is a no-op when no config file was found.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if v == nil || onChange == nil || v.ConfigFileUsed() == "" {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			log.Warn("ignoring invalid config change", slog.String("file", event.Name), slog.Any("error", err))
			return
		}

		log.Info("config file changed", slog.String("file", event.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}
