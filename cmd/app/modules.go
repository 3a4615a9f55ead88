package main

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"gymflow/internal/cache"
	"gymflow/internal/checkin"
	"gymflow/internal/class"
	"gymflow/internal/config"
	"gymflow/internal/gym"
	"gymflow/internal/hours"
	"gymflow/internal/notify"
	"gymflow/internal/participation"
	"gymflow/internal/report"
	"gymflow/internal/schedule"
	"gymflow/internal/server"
)

const rateLimitTTL = 3 * time.Minute

// domainModule wires repositories, services and handlers for every domain.
var domainModule = fx.Module("domain",
	fx.Provide(
		func(d *sqlx.DB) gym.Service { return gym.NewService(gym.NewRepository(d)) },
		func(d *sqlx.DB, gyms gym.Service, c *cache.Cache, cfg *config.Config) hours.Service {
			return hours.NewService(hours.NewRepository(d), gyms, c, cfg.CacheTTL)
		},
		func(d *sqlx.DB, c *cache.Cache, cfg *config.Config) class.Service {
			return class.NewService(class.NewRepository(d), c, cfg.CacheTTL)
		},
		func(d *sqlx.DB, classes class.Service, gyms gym.Service, hrs hours.Service, c *cache.Cache, cfg *config.Config) schedule.Service {
			return schedule.NewService(schedule.NewRepository(d), classes, gyms, hrs, c, cfg.CacheTTL)
		},
		func(d *sqlx.DB, gyms gym.Service, sessions schedule.Service, notices *notify.Service, c *cache.Cache, cfg *config.Config) participation.Service {
			return participation.NewService(participation.NewRepository(d), gyms, sessions, notices, c, cfg.CacheTTL)
		},
		func(cfg *config.Config, gyms gym.Service, sessions schedule.Service, attendance participation.Service) checkin.Service {
			return checkin.NewService(checkin.NewCodec(cfg.CheckInSecret), gyms, sessions, attendance, cfg.CheckInWindow)
		},
		func(sessions schedule.Service, rosters participation.Service, gyms gym.Service) report.Service {
			return report.NewService(sessions, rosters, gyms)
		},
	),
	fx.Provide(
		gym.NewHandler,
		hours.NewHandler,
		class.NewHandler,
		schedule.NewHandler,
		participation.NewHandler,
		checkin.NewHandler,
		report.NewHandler,
		newHandlers,
	),
)

func newCache(cfg *config.Config, rdb *redis.Client) *cache.Cache {
	if !cfg.CacheEnabled || rdb == nil {
		return nil
	}
	return cache.New(rdb, cfg.CacheTrackingTTL)
}

type handlerParams struct {
	fx.In

	Gym           *gym.Handler
	Hours         *hours.Handler
	Class         *class.Handler
	Schedule      *schedule.Handler
	Participation *participation.Handler
	CheckIn       *checkin.Handler
	Report        *report.Handler
	System        *server.SystemHandler
}

func newHandlers(p handlerParams) server.Handlers {
	return server.Handlers{
		Gym:           p.Gym,
		Hours:         p.Hours,
		Class:         p.Class,
		Schedule:      p.Schedule,
		Participation: p.Participation,
		CheckIn:       p.CheckIn,
		Report:        p.Report,
		System:        p.System,
	}
}
