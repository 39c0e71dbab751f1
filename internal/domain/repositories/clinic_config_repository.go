package repositories

import (
	"context"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
)

// ClinicConfigRepository stores the singleton clinic configuration
type ClinicConfigRepository interface {
	// Get returns the stored configuration or a NotFound error
	Get(ctx context.Context) (*entities.ClinicConfig, error)

	// Save inserts or replaces the configuration
	Save(ctx context.Context, config *entities.ClinicConfig) error
}
