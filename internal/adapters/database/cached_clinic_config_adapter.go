package database

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/observability"
)

const (
	clinicConfigCacheKey = "clinic:config"
	clinicConfigTTL      = 10 * time.Minute
)

// CachedClinicConfigAdapter wraps a ClinicConfigRepository with caching.
// Save invalidates the cached copy.
type CachedClinicConfigAdapter struct {
	adapter repositories.ClinicConfigRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewCachedClinicConfigAdapter creates a new cached clinic configuration adapter
func NewCachedClinicConfigAdapter(adapter repositories.ClinicConfigRepository, cache providers.CacheProvider, metrics *observability.Metrics) repositories.ClinicConfigRepository {
	return &CachedClinicConfigAdapter{
		adapter: adapter,
		cache:   cache,
		metrics: metrics,
	}
}

// Get retrieves the configuration, from cache when possible
func (a *CachedClinicConfigAdapter) Get(ctx context.Context) (*entities.ClinicConfig, error) {
	logger := observability.LoggerFromContext(ctx)

	if cached, err := a.cache.Get(ctx, clinicConfigCacheKey); err == nil {
		var cfg entities.ClinicConfig
		if err := json.Unmarshal(cached, &cfg); err == nil {
			observability.RecordCacheLookup(ctx, a.metrics, clinicConfigCacheKey, true)
			return &cfg, nil
		}
		logger.Warn().Err(err).Msg("failed to unmarshal cached clinic configuration")
	}
	observability.RecordCacheLookup(ctx, a.metrics, clinicConfigCacheKey, false)

	cfg, err := a.adapter.Get(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(cfg); err == nil {
		if err := a.cache.Set(ctx, clinicConfigCacheKey, data, clinicConfigTTL); err != nil {
			logger.Warn().Err(err).Msg("failed to cache clinic configuration")
		}
	}
	return cfg, nil
}

// Save stores the configuration and drops the cached copy
func (a *CachedClinicConfigAdapter) Save(ctx context.Context, cfg *entities.ClinicConfig) error {
	if err := a.adapter.Save(ctx, cfg); err != nil {
		return err
	}
	if err := a.cache.Delete(ctx, clinicConfigCacheKey); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to invalidate clinic configuration cache")
	}
	return nil
}
