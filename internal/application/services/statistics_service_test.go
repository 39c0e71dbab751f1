package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/pediatric-clinic/internal/adapters/memory"
	"github.com/zatekoja/pediatric-clinic/internal/application/services"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
)

func TestStatisticsService_Compute(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewPatientStore()

	create := func(id string, dob time.Time, created time.Time, status entities.VisitStatus, hall entities.HallStatus, visitAt *time.Time, vt *entities.VisitType) {
		require.NoError(t, store.Create(ctx, &entities.Patient{
			ID:            id,
			FirstName:     id,
			DateOfBirth:   dob,
			Status:        status,
			HallStatus:    hall,
			VisitDateTime: visitAt,
			VisitType:     vt,
			CreatedAt:     created,
			UpdatedAt:     created,
		}))
	}

	create("three", now.AddDate(-3, 0, 0), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		entities.VisitStatusInHall, entities.HallStatusIn, at(10, 9), visitType(entities.VisitTypeExamination))
	create("five", now.AddDate(-5, 0, 0), time.Date(2024, 5, 31, 23, 59, 0, 0, time.UTC),
		entities.VisitStatusFinished, entities.HallStatusOut, at(10, 8), visitType(entities.VisitTypeFastExamination))

	stats, err := services.NewStatisticsService(store, providers.FixedClock{At: now}).Compute(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalPatients)
	assert.Equal(t, 1, stats.NewThisMonth)
	assert.Equal(t, 2, stats.TodayPatients)
	assert.Equal(t, 4, stats.AverageAge)
	assert.Equal(t, entities.VisitTypeBreakdown{Examination: 1, FastExamination: 1}, stats.VisitTypes)
	assert.Equal(t, entities.HallStatusBreakdown{InHall: 1, Finished: 1}, stats.HallStatus)
}

func TestStatisticsService_Empty(t *testing.T) {
	stats, err := services.NewStatisticsService(memory.NewPatientStore(), providers.FixedClock{At: clinicDay}).Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &entities.Statistics{}, stats)
}
