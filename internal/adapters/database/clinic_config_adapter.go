package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

const clinicConfigTable = "clinic_config"

// ClinicConfigAdapter implements the ClinicConfigRepository interface. The
// table holds at most one row; the oldest row wins if more exist.
type ClinicConfigAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewClinicConfigAdapter creates a new clinic configuration adapter
func NewClinicConfigAdapter(client *postgres.Client) repositories.ClinicConfigRepository {
	return &ClinicConfigAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Get retrieves the clinic configuration
func (a *ClinicConfigAdapter) Get(ctx context.Context) (*entities.ClinicConfig, error) {
	query, args, err := a.db.Select(
		"id", "doctor_name", "clinic_name", "clinic_phone", "clinic_address",
		"logo_path", "created_at", "updated_at",
	).From(clinicConfigTable).
		Order(goqu.I("created_at").Asc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	cfg := &entities.ClinicConfig{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&cfg.ID, &cfg.DoctorName, &cfg.ClinicName, &cfg.ClinicPhone,
		&cfg.ClinicAddress, &cfg.LogoPath, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("clinic configuration not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get clinic configuration", err)
	}
	return cfg, nil
}

// Save inserts the configuration or updates it when the row already exists
func (a *ClinicConfigAdapter) Save(ctx context.Context, cfg *entities.ClinicConfig) error {
	query, args, err := a.db.Insert(clinicConfigTable).
		Rows(goqu.Record{
			"id":             cfg.ID,
			"doctor_name":    cfg.DoctorName,
			"clinic_name":    cfg.ClinicName,
			"clinic_phone":   cfg.ClinicPhone,
			"clinic_address": cfg.ClinicAddress,
			"logo_path":      cfg.LogoPath,
			"created_at":     cfg.CreatedAt,
			"updated_at":     cfg.UpdatedAt,
		}).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"doctor_name":    goqu.L("EXCLUDED.doctor_name"),
			"clinic_name":    goqu.L("EXCLUDED.clinic_name"),
			"clinic_phone":   goqu.L("EXCLUDED.clinic_phone"),
			"clinic_address": goqu.L("EXCLUDED.clinic_address"),
			"logo_path":      goqu.L("EXCLUDED.logo_path"),
			"updated_at":     goqu.L("EXCLUDED.updated_at"),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to save clinic configuration", err)
	}
	return nil
}
