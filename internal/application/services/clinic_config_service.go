package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	"github.com/zatekoja/pediatric-clinic/internal/domain/visit"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

// ClinicConfigUpdate carries the editable clinic profile fields. Nil fields
// are left unchanged.
type ClinicConfigUpdate struct {
	DoctorName    *string `json:"doctor_name"`
	ClinicName    *string `json:"clinic_name"`
	ClinicPhone   *string `json:"clinic_phone"`
	ClinicAddress *string `json:"clinic_address"`
	LogoPath      *string `json:"logo_path"`
}

// ClinicConfigService manages the singleton clinic profile
type ClinicConfigService struct {
	repo  repositories.ClinicConfigRepository
	clock providers.Clock
	mu    sync.Mutex
}

// NewClinicConfigService creates a new clinic config service
func NewClinicConfigService(repo repositories.ClinicConfigRepository, clock providers.Clock) *ClinicConfigService {
	return &ClinicConfigService{repo: repo, clock: clock}
}

// Get returns the clinic configuration, creating the default one on first read
func (s *ClinicConfigService) Get(ctx context.Context) (*entities.ClinicConfig, error) {
	cfg, err := s.repo.Get(ctx)
	if err == nil {
		return cfg, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// another request may have created it meanwhile
	if cfg, err := s.repo.Get(ctx); err == nil {
		return cfg, nil
	}
	cfg = entities.NewDefaultClinicConfig(uuid.New().String(), s.clock.Now())
	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Update edits the clinic profile. Admin only.
func (s *ClinicConfigService) Update(ctx context.Context, actor entities.Identity, req ClinicConfigUpdate) (*entities.ClinicConfig, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		name  string
		value *string
		dst   *string
		max   int
	}{
		{"doctor_name", req.DoctorName, &cfg.DoctorName, 200},
		{"clinic_name", req.ClinicName, &cfg.ClinicName, 200},
		{"clinic_phone", req.ClinicPhone, &cfg.ClinicPhone, 50},
		{"clinic_address", req.ClinicAddress, &cfg.ClinicAddress, 0},
		{"logo_path", req.LogoPath, &cfg.LogoPath, 500},
	} {
		if f.value == nil {
			continue
		}
		value := visit.Clean(*f.value)
		if f.max > 0 {
			if err := checkMaxLength(f.name, value, f.max); err != nil {
				return nil, err
			}
		}
		*f.dst = value
	}
	cfg.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
