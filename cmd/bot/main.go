package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	goredis "github.com/redis/go-redis/v9"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/number-bot/internal/bot"
	"github.com/Proton-105/number-bot/internal/health"
	"github.com/Proton-105/number-bot/internal/i18n"
	"github.com/Proton-105/number-bot/internal/idempotency"
	"github.com/Proton-105/number-bot/internal/inventory"
	"github.com/Proton-105/number-bot/internal/lifecycle"
	"github.com/Proton-105/number-bot/internal/middleware"
	"github.com/Proton-105/number-bot/internal/ratelimit"
	"github.com/Proton-105/number-bot/internal/screen"
	"github.com/Proton-105/number-bot/internal/state"
	"github.com/Proton-105/number-bot/pkg/config"
	"github.com/Proton-105/number-bot/pkg/graceful"
	"github.com/Proton-105/number-bot/pkg/logger"
	"github.com/Proton-105/number-bot/pkg/metrics"
	appredis "github.com/Proton-105/number-bot/pkg/redis"
)

const (
	stateCollectInterval = 15 * time.Second
	limiterSweepInterval = time.Minute
	limiterIdleAge       = 10 * time.Minute
	dedupSweepInterval   = time.Minute
)

func main() {
	cfg, v, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "failed to init sentry: %v\n", err)
			cfg.Sentry.Enabled = false
		}
		defer sentry.Flush(2 * time.Second)
	}

	log, logCloser := logger.New(cfg.Log, cfg.Sentry.Enabled)
	defer logCloser.Close()
	slog.SetDefault(log)

	config.Watch(v, log, func(next *config.Config) {
		logger.SetLevel(next.Log.Level)
		log.Info("log level reloaded", slog.String("level", next.Log.Level))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("number bot stopped with error", slog.Any("error", err))
		sentry.Flush(2 * time.Second)
		_ = logCloser.Close()
		os.Exit(1)
	}
	log.Info("number bot stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("starting number bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("inventory", cfg.Inventory.Driver),
		slog.String("sessions", cfg.Session.Driver),
		slog.Int("http_port", cfg.Server.Port),
	)

	catalogues, err := i18n.Load(cfg.Bot.Language)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}
	screens := screen.NewRenderer(catalogues.Translator(cfg.Bot.Language))

	var rdb *goredis.Client
	if cfg.UsesRedis() {
		rdb, err = appredis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
	}

	store, storage := buildStores(cfg, rdb, log)
	fsm := state.NewStateMachine(storage, log)

	memLimiter := ratelimit.NewMemoryLimiter(log)
	var limiter ratelimit.Limiter = memLimiter
	if rdb != nil {
		limiter = ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rdb, cfg.Inventory.KeyPrefix, log), memLimiter, log)
	}
	rateLimitMw := middleware.NewRateLimitMiddleware(
		limiter,
		ratelimit.NewRules(cfg.RateLimit, cfg.Admin.ID),
		screens.Label("notice.rate_limited"),
		log,
	)

	updateMw := []telebot.MiddlewareFunc{rateLimitMw.Handle}

	memClaims := idempotency.NewMemoryStore()
	if cfg.Dedup.Enabled {
		var claims idempotency.Store = memClaims
		if rdb != nil {
			claims = idempotency.NewRedisStore(rdb, cfg.Inventory.KeyPrefix, log)
		}
		dedup := middleware.NewDedupMiddleware(idempotency.NewGuard(claims, idempotency.BotIDFromToken(cfg.Bot.Token), cfg.Dedup.TTL, log), log)
		updateMw = append([]telebot.MiddlewareFunc{dedup.Handle}, updateMw...)
	}

	b, err := bot.New(*cfg, log, store, fsm, screens, updateMw...)
	if err != nil {
		return err
	}

	checker := health.NewChecker(log)
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	checker.AddCheck("inventory", health.CheckFunc(func(ctx context.Context) error {
		_, err := store.PageSize(ctx)
		return err
	}))
	if rdb != nil {
		checker.AddCheck("redis", health.NewRedisChecker(rdb))
	}

	srv := graceful.NewServer(log, cfg.Server.Addr(), health.NewMux(checker, b.WebhookHandler(), log), cfg.Server.ShutdownTimeout)

	go memLimiter.Run(ctx, limiterSweepInterval, limiterIdleAge)
	go memClaims.Run(ctx, dedupSweepInterval)
	go metrics.NewStateCollector(fsm, stateCollectInterval).Run(ctx)
	go b.Start()

	serveErr := srv.ListenAndServe(ctx)
	if serveErr != nil {
		log.Error("liveness server failed", slog.Any("error", serveErr))
	}

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("telegram", lifecycle.Func(b.Stop))
	if rdb != nil {
		shutdown.Register("redis", lifecycle.Closer(rdb))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return errors.Join(serveErr, shutdown.Execute(shutdownCtx))
}

func buildStores(cfg *config.Config, rdb *goredis.Client, log *slog.Logger) (inventory.Store, state.Storage) {
	var store inventory.Store
	if cfg.Inventory.Driver == config.DriverRedis {
		store = inventory.NewRedisStore(rdb, cfg.Inventory.KeyPrefix, cfg.Inventory.DefaultPageSize, log)
	} else {
		store = inventory.NewMemoryStore(cfg.Inventory.DefaultPageSize)
	}

	var storage state.Storage
	if cfg.Session.Driver == config.DriverRedis {
		storage = state.NewRedisStorage(rdb, cfg.Inventory.KeyPrefix, cfg.Session.TTL, log)
	} else {
		storage = state.NewMemoryStorage()
	}

	return store, storage
}
