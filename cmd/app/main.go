package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"gymflow/internal/config"
	"gymflow/internal/db"
	"gymflow/internal/logger"
	"gymflow/internal/notify"
	"gymflow/internal/server"
)

func main() {
	logger.Init()
	logger.Info("Starting GymFlow scheduling service")

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.L()}
		}),
		fx.Provide(
			config.Load,
			newDatabase,
			newRedis,
			newCache,
			newNotifier,
		),
		domainModule,
		fx.Provide(
			newRateLimiter,
			newSystemHandler,
			server.NewRouter,
			server.New,
		),
		fx.Invoke(registerLifecycle),
	)

	app.Run()
}

func newDatabase(lc fx.Lifecycle, cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		database.Close()
		return nil, err
	}
	logger.Info("Migrations completed", "path", cfg.MigrationsPath)

	lc.Append(fx.StopHook(database.Close))
	return database, nil
}

// newRedis returns nil when neither the cache nor notices need redis.
func newRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	if !cfg.CacheEnabled && !cfg.NotifyEnabled {
		logger.Info("Redis disabled")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				logger.Warn("Redis unreachable, cache reads will fall through", "addr", cfg.RedisAddr, "error", err)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return rdb.Close()
		},
	})
	return rdb, nil
}

func newNotifier(cfg *config.Config, rdb *redis.Client) *notify.Service {
	smtp := notify.SMTPConfig{
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Pass:     cfg.SMTPPass,
	}
	if rdb == nil {
		return notify.New(nil, false, smtp)
	}
	return notify.New(rdb, cfg.NotifyEnabled, smtp)
}

func newRateLimiter(lc fx.Lifecycle, cfg *config.Config) *server.RateLimiter {
	limiter := server.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, rateLimitTTL)
	lc.Append(fx.StopHook(limiter.Stop))
	return limiter
}

func newSystemHandler(database *sqlx.DB, rdb *redis.Client) *server.SystemHandler {
	checks := map[string]server.Pinger{"database": database}
	if rdb != nil {
		checks["redis"] = server.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	return server.NewSystemHandler(checks)
}

func registerLifecycle(lc fx.Lifecycle, srv *server.Server, notices *notify.Service) {
	workerCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				notices.Start(workerCtx)
			}()
			srv.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := srv.Shutdown(ctx)
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
				return fmt.Errorf("notice worker did not stop: %w", ctx.Err())
			}
			logger.Info("Server stopped")
			return err
		},
	})
}
