package database_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/pediatric-clinic/internal/adapters/database"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

var patientColumnNames = []string{
	"id", "first_name", "last_name", "date_of_birth", "gender",
	"parent_name", "phone", "patient_phone",
	"city", "area", "street", "apartment",
	"blood_type", "allergies", "medical_history", "doctor_comments",
	"visit_datetime", "visit_type", "hall_status", "status",
	"created_at", "updated_at",
}

var created = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

const (
	patientA       = "3f1c2a9e-5b7d-4e0a-9c61-2d8f4b7a1e01"
	patientMissing = "3f1c2a9e-5b7d-4e0a-9c61-2d8f4b7a1e09"
)

func setupMockDB(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return postgres.NewClientFromDB(mockDB), mock
}

// sqlPattern matches the given fragments in order
func sqlPattern(fragments ...string) string {
	quoted := make([]string, len(fragments))
	for i, f := range fragments {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return strings.Join(quoted, ".*")
}

func addPatientRow(rows *sqlmock.Rows, id string, status string, hall string, visitAt interface{}, visitType interface{}) *sqlmock.Rows {
	return rows.AddRow(
		id, "Sara", "Adel", time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC), "female",
		"Mona Adel", "0100", nil,
		"Cairo", "", "Tahrir", "",
		"A+", `["peanuts"]`, nil, nil,
		visitAt, visitType, hall, status,
		created, created,
	)
}

func TestPatientAdapter_GetByID(t *testing.T) {
	t.Run("maps a stored row", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewPatientAdapter(client, nil)
		visitAt := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

		rows := addPatientRow(sqlmock.NewRows(patientColumnNames), patientA, "scheduled", "In", visitAt, "consultation")
		mock.ExpectQuery(sqlPattern(`FROM "patients" WHERE ("id" = '` + patientA + `')`)).WillReturnRows(rows)

		patient, err := adapter.GetByID(context.Background(), patientA)
		require.NoError(t, err)
		assert.Equal(t, patientA, patient.ID)
		assert.Equal(t, entities.VisitStatusScheduled, patient.Status)
		assert.Equal(t, entities.HallStatusIn, patient.HallStatus)
		require.NotNil(t, patient.VisitType)
		assert.Equal(t, entities.VisitTypeConsultation, *patient.VisitType)
		require.NotNil(t, patient.VisitDateTime)
		assert.True(t, visitAt.Equal(*patient.VisitDateTime))
		assert.Nil(t, patient.PatientPhone)
		assert.Equal(t, `["peanuts"]`, *patient.Allergies)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for a missing row", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewPatientAdapter(client, nil)

		mock.ExpectQuery(sqlPattern(`FROM "patients"`)).WillReturnRows(sqlmock.NewRows(patientColumnNames))

		patient, err := adapter.GetByID(context.Background(), patientMissing)
		assert.Nil(t, patient)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("rejects values outside the closed enums", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewPatientAdapter(client, nil)

		rows := addPatientRow(sqlmock.NewRows(patientColumnNames), patientA, "waiting_room", "In", nil, nil)
		mock.ExpectQuery(sqlPattern(`FROM "patients"`)).WillReturnRows(rows)

		_, err := adapter.GetByID(context.Background(), patientA)
		assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))
	})
}

func TestPatientAdapter_Create(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewPatientAdapter(client, nil)

	mock.ExpectExec(sqlPattern(`INSERT INTO "patients"`, `'registered'`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Create(context.Background(), &entities.Patient{
		ID:          patientA,
		FirstName:   "Sara",
		LastName:    "Adel",
		DateOfBirth: time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
		HallStatus:  entities.HallStatusOut,
		Status:      entities.VisitStatusRegistered,
		CreatedAt:   created,
		UpdatedAt:   created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientAdapter_UpdateAndDelete(t *testing.T) {
	t.Run("update of a missing row is not found", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewPatientAdapter(client, nil)

		mock.ExpectExec(sqlPattern(`UPDATE "patients" SET`, `WHERE ("id" = '`+patientMissing+`')`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := adapter.Update(context.Background(), &entities.Patient{ID: patientMissing, Status: entities.VisitStatusRegistered, HallStatus: entities.HallStatusOut})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("clearing visit fields writes NULL", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewPatientAdapter(client, nil)

		mock.ExpectExec(sqlPattern(`UPDATE "patients" SET`, `"visit_datetime"=NULL`, `"visit_type"=NULL`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := adapter.Update(context.Background(), &entities.Patient{ID: patientA, Status: entities.VisitStatusRegistered, HallStatus: entities.HallStatusOut})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete surfaces driver errors as internal", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewPatientAdapter(client, nil)

		mock.ExpectExec(sqlPattern(`DELETE FROM "patients"`)).WillReturnError(errors.New("connection reset"))

		err := adapter.Delete(context.Background(), patientA)
		assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))
	})
}

func TestPatientAdapter_List(t *testing.T) {
	t.Run("hall selection", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewPatientAdapter(client, nil)
		start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 0, 1)

		mock.ExpectQuery(sqlPattern(
			`FROM "patients"`,
			`"status" NOT IN ('in_hall', 'finished')`,
			`"hall_status" = 'In'`,
			`"visit_datetime" >= `,
			`"visit_datetime" < `,
			`ORDER BY "visit_datetime" ASC NULLS LAST`,
		)).WillReturnRows(addPatientRow(sqlmock.NewRows(patientColumnNames), patientA, "scheduled", "In", start.Add(10*time.Hour), "examination"))

		filter := repositories.PatientFilter{
			ExcludeStatuses: []entities.VisitStatus{entities.VisitStatusInHall, entities.VisitStatusFinished},
			HallStatus:      entities.HallStatusIn,
			OrderBy:         repositories.OrderVisitAsc,
		}.OnDay(start, end)

		patients, err := adapter.List(context.Background(), filter)
		require.NoError(t, err)
		require.Len(t, patients, 1)
		assert.Equal(t, patientA, patients[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("name search includes parent and escapes wildcards", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewPatientAdapter(client, nil)

		mock.ExpectQuery(sqlPattern(
			`"first_name" ILIKE '%50\%%'`,
			`"last_name" ILIKE`,
			`"parent_name" ILIKE`,
			`ORDER BY "created_at" DESC`,
		)).WillReturnRows(sqlmock.NewRows(patientColumnNames))

		patients, err := adapter.List(context.Background(), repositories.PatientFilter{NameQuery: "50%", MatchParentName: true})
		require.NoError(t, err)
		assert.Empty(t, patients)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPatientAdapter_WithinTx(t *testing.T) {
	t.Run("commits and locks selected rows", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewPatientAdapter(client, nil)

		mock.ExpectBegin()
		mock.ExpectQuery(sqlPattern(`FROM "patients"`, `"id" IN ('`+patientA+`')`, `FOR UPDATE`)).
			WillReturnRows(addPatientRow(sqlmock.NewRows(patientColumnNames), patientA, "in_hall", "In", created, nil))
		mock.ExpectExec(sqlPattern(`UPDATE "patients"`, `'finished'`)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := adapter.WithinTx(context.Background(), func(ctx context.Context, tx repositories.PatientRepository) error {
			patients, err := tx.List(ctx, repositories.PatientFilter{IDs: []string{patientA}, ForUpdate: true})
			if err != nil {
				return err
			}
			patients[0].Status = entities.VisitStatusFinished
			patients[0].HallStatus = entities.HallStatusOut
			return tx.Update(ctx, patients[0])
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the callback fails", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewPatientAdapter(client, nil)

		mock.ExpectBegin()
		mock.ExpectExec(sqlPattern(`UPDATE "patients"`)).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := adapter.WithinTx(context.Background(), func(ctx context.Context, tx repositories.PatientRepository) error {
			return tx.Update(ctx, &entities.Patient{ID: patientA, Status: entities.VisitStatusRegistered, HallStatus: entities.HallStatusOut})
		})
		assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPatientAdapter_NonUUIDKeys(t *testing.T) {
	ctx := context.Background()

	t.Run("single-row operations are not found without a query", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewPatientAdapter(client, nil)

		_, err := adapter.GetByID(ctx, "123")
		assert.True(t, apperrors.IsNotFound(err))
		err = adapter.Update(ctx, &entities.Patient{ID: "123", Status: entities.VisitStatusRegistered, HallStatus: entities.HallStatusOut})
		assert.True(t, apperrors.IsNotFound(err))
		assert.True(t, apperrors.IsNotFound(adapter.Delete(ctx, "not-a-uuid")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("batch selection ignores them", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewPatientAdapter(client, nil)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := adapter.WithinTx(ctx, func(ctx context.Context, tx repositories.PatientRepository) error {
			patients, err := tx.List(ctx, repositories.PatientFilter{IDs: []string{"123", "abc"}, ForUpdate: true})
			require.NoError(t, err)
			assert.Empty(t, patients)
			assert.NotNil(t, patients)
			return nil
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("valid ids are still selected", func(t *testing.T) {
		client, mock := setupMockDB(t)
		adapter := database.NewPatientAdapter(client, nil)

		mock.ExpectQuery(sqlPattern(`"id" IN ('` + patientA + `')`)).
			WillReturnRows(addPatientRow(sqlmock.NewRows(patientColumnNames), patientA, "in_hall", "In", created, nil))

		patients, err := adapter.List(ctx, repositories.PatientFilter{IDs: []string{"123", strings.ToUpper(patientA)}})
		require.NoError(t, err)
		require.Len(t, patients, 1)
		assert.Equal(t, patientA, patients[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
