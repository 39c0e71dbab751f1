package database

import (
	"context"
	"embed"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the embedded schema migrations
func Migrations() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFiles,
		Root:       "migrations",
	}
}

// Migrate applies pending migrations in the given direction and returns how
// many were applied
func Migrate(ctx context.Context, client *postgres.Client, direction migrate.MigrationDirection) (int, error) {
	n, err := migrate.ExecContext(ctx, client.DB(), "postgres", Migrations(), direction)
	if err != nil {
		return n, apperrors.NewInternalError("failed to apply migrations", err)
	}
	return n, nil
}
