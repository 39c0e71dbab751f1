package memory

import (
	"context"
	"sync"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

// ClinicConfigStore keeps the clinic configuration in memory
type ClinicConfigStore struct {
	mu     sync.RWMutex
	config *entities.ClinicConfig
}

// NewClinicConfigStore creates an empty configuration store
func NewClinicConfigStore() *ClinicConfigStore {
	return &ClinicConfigStore{}
}

var _ repositories.ClinicConfigRepository = (*ClinicConfigStore)(nil)

// Get returns the stored configuration
func (s *ClinicConfigStore) Get(ctx context.Context) (*entities.ClinicConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, apperrors.NewNotFoundError("clinic configuration not found")
	}
	cfg := *s.config
	return &cfg, nil
}

// Save replaces the configuration
func (s *ClinicConfigStore) Save(ctx context.Context, cfg *entities.ClinicConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *cfg
	if s.config != nil {
		stored.CreatedAt = s.config.CreatedAt
	}
	s.config = &stored
	return nil
}
