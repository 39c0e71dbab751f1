package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/pediatric-clinic/internal/adapters/database"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

var userColumnNames = []string{"id", "username", "email", "password_hash", "role", "is_active", "last_login", "created_at"}

func TestUserAdapter_GetByUsername(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewUserAdapter(client)

	rows := sqlmock.NewRows(userColumnNames).
		AddRow("6a0d4c3b-1f2e-4d5c-8b7a-9e0f1a2b3c4d", "admin", "admin@clinic.local", "hash", "admin", true, nil, created)
	mock.ExpectQuery(sqlPattern(`FROM "users" WHERE ("username" = 'admin')`)).WillReturnRows(rows)

	user, err := adapter.GetByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, entities.RoleAdmin, user.Role)
	assert.True(t, user.IsActive)
	assert.Nil(t, user.LastLogin)
}

func TestUserAdapter_CreateDuplicateIsConflict(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewUserAdapter(client)

	mock.ExpectExec(sqlPattern(`INSERT INTO "users"`)).WillReturnError(&pq.Error{Code: "23505"})

	err := adapter.Create(context.Background(), &entities.User{
		ID: "6a0d4c3b-1f2e-4d5c-8b7a-9e0f1a2b3c4e", Username: "admin", Email: "a@b.c", Role: entities.RoleUser, IsActive: true, CreatedAt: time.Now(),
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestUserAdapter_CountActiveAdmins(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewUserAdapter(client)

	mock.ExpectQuery(sqlPattern(`SELECT COUNT(*) FROM "users"`, `"is_active" IS TRUE`, `"role" = 'admin'`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := adapter.CountActiveAdmins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestClinicConfigAdapter(t *testing.T) {
	t.Run("missing row is not found", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewClinicConfigAdapter(client)

		mock.ExpectQuery(sqlPattern(`FROM "clinic_config"`, `LIMIT 1`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "doctor_name", "clinic_name", "clinic_phone", "clinic_address", "logo_path", "created_at", "updated_at"}))

		_, err := adapter.Get(context.Background())
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("save upserts on id", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewClinicConfigAdapter(client)

		mock.ExpectExec(sqlPattern(`INSERT INTO "clinic_config"`, `ON CONFLICT (id) DO UPDATE SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		cfg := entities.NewDefaultClinicConfig("c1", created)
		require.NoError(t, adapter.Save(context.Background(), cfg))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserAdapter_NonUUIDKeys(t *testing.T) {
	ctx := context.Background()
	client, mock := setupMockDB(t)
	adapter := database.NewUserAdapter(client)

	_, err := adapter.GetByID(ctx, "42")
	assert.True(t, apperrors.IsNotFound(err))
	err = adapter.Update(ctx, &entities.User{ID: "42", Username: "nurse", Role: entities.RoleUser})
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsNotFound(adapter.Delete(ctx, "42")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
