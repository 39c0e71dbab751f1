package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/pediatric-clinic/internal/adapters/cache"
	"github.com/zatekoja/pediatric-clinic/internal/adapters/database"
	"github.com/zatekoja/pediatric-clinic/internal/adapters/events"
	"github.com/zatekoja/pediatric-clinic/internal/adapters/memory"
	"github.com/zatekoja/pediatric-clinic/internal/adapters/report"
	"github.com/zatekoja/pediatric-clinic/internal/application/services"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/clients/redis"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/observability"
	"github.com/zatekoja/pediatric-clinic/pkg/config"
)

// application wires stores, caches and services for one process
type application struct {
	clock  providers.Clock
	pg     *postgres.Client
	redis  *redis.Client
	events providers.EventBus

	auth     *services.AuthService
	users    *services.UserService
	clinic   *services.ClinicConfigService
	patients *services.PatientService
	hall     *services.HallService
	stats    *services.StatisticsService
}

func newApplication(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*application, error) {
	loc, err := cfg.Clinic.Location()
	if err != nil {
		return nil, err
	}
	app := &application{clock: providers.NewSystemClock(loc)}

	var (
		patientRepo repositories.PatientRepository
		userRepo    repositories.UserRepository
		configRepo  repositories.ClinicConfigRepository
	)
	switch cfg.Store.Driver {
	case "postgres":
		app.pg, err = postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
		}
		patientRepo = database.NewPatientAdapter(app.pg, metrics)
		userRepo = database.NewUserAdapter(app.pg)
		configRepo = database.NewClinicConfigAdapter(app.pg)
	default:
		log.Warn().Msg("using in-memory store; records are lost on restart")
		patientRepo = memory.NewPatientStore()
		userRepo = memory.NewUserStore()
		configRepo = memory.NewClinicConfigStore()
	}

	var sessions providers.CacheProvider
	if cfg.Redis.Enabled {
		app.redis, err = redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
		}
		sessions = cache.NewRedisAdapter(app.redis, "clinic:")
		app.events = events.NewRedisEventBus(app.redis)
	} else {
		log.Warn().Msg("Redis disabled; sessions and hall events are process-local")
		sessions = cache.NewMemoryAdapter()
		app.events = events.NewMemoryEventBus()
	}

	configRepo = database.NewCachedClinicConfigAdapter(configRepo, sessions, metrics)

	app.auth = services.NewAuthService(userRepo, sessions, app.clock, cfg.Auth.SessionTTL)
	app.users = services.NewUserService(userRepo, app.clock)
	app.clinic = services.NewClinicConfigService(configRepo, app.clock)
	app.patients = services.NewPatientService(patientRepo, app.clinic, report.NewPDFGenerator(), app.clock, app.events)
	app.hall = services.NewHallService(patientRepo, app.clock, app.events, metrics)
	app.stats = services.NewStatisticsService(patientRepo, app.clock)
	return app, nil
}

// Close releases the event bus and store connections
func (a *application) Close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Error().Err(err).Msg("error closing Redis connection")
		}
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			log.Error().Err(err).Msg("error closing database connection")
		}
	}
}
