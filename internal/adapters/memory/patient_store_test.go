package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/pediatric-clinic/internal/adapters/memory"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

var base = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, store *memory.PatientStore, id, first, parent string, status entities.VisitStatus, hall entities.HallStatus, visitAt *time.Time, createdOffset time.Duration) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), &entities.Patient{
		ID:            id,
		FirstName:     first,
		LastName:      "Test",
		ParentName:    parent,
		Status:        status,
		HallStatus:    hall,
		VisitDateTime: visitAt,
		CreatedAt:     base.Add(createdOffset),
		UpdatedAt:     base.Add(createdOffset),
	}))
}

func hourOf(h int) *time.Time {
	t := base.Add(time.Duration(h) * time.Hour)
	return &t
}

func ids(patients []*entities.Patient) []string {
	out := make([]string, len(patients))
	for i, p := range patients {
		out[i] = p.ID
	}
	return out
}

func TestPatientStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPatientStore()
	seed(t, store, "p1", "Omar", "Hoda", entities.VisitStatusRegistered, entities.HallStatusOut, nil, 0)

	got, err := store.GetByID(ctx, "p1")
	require.NoError(t, err)
	got.FirstName = "Changed"

	again, err := store.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Omar", again.FirstName, "returned records must not alias stored ones")

	again.FirstName = "Omar Ali"
	require.NoError(t, store.Update(ctx, again))
	updated, _ := store.GetByID(ctx, "p1")
	assert.Equal(t, "Omar Ali", updated.FirstName)

	require.NoError(t, store.Delete(ctx, "p1"))
	_, err = store.GetByID(ctx, "p1")
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsNotFound(store.Delete(ctx, "p1")))
	assert.True(t, apperrors.IsNotFound(store.Update(ctx, &entities.Patient{ID: "nope"})))
}

func TestPatientStore_List(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPatientStore()
	yesterday := base.Add(-2 * time.Hour)
	seed(t, store, "a", "Ali", "Samir", entities.VisitStatusScheduled, entities.HallStatusIn, hourOf(11), 1*time.Minute)
	seed(t, store, "b", "Bassem", "Alia", entities.VisitStatusInHall, entities.HallStatusIn, hourOf(9), 2*time.Minute)
	seed(t, store, "c", "Carma", "Noha", entities.VisitStatusFinished, entities.HallStatusOut, hourOf(10), 3*time.Minute)
	seed(t, store, "d", "Dina", "Rami", entities.VisitStatusScheduled, entities.HallStatusIn, &yesterday, 4*time.Minute)
	seed(t, store, "e", "Eman", "Ola", entities.VisitStatusRegistered, entities.HallStatusOut, nil, 5*time.Minute)

	t.Run("default order is newest first", func(t *testing.T) {
		all, err := store.List(ctx, repositories.PatientFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"e", "d", "c", "b", "a"}, ids(all))
	})

	t.Run("day range with visit order", func(t *testing.T) {
		today, err := store.List(ctx, repositories.PatientFilter{OrderBy: repositories.OrderVisitAsc}.OnDay(base, base.AddDate(0, 0, 1)))
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "a"}, ids(today))
	})

	t.Run("hall selection", func(t *testing.T) {
		eligible, err := store.List(ctx, repositories.PatientFilter{
			HallStatus:      entities.HallStatusIn,
			ExcludeStatuses: []entities.VisitStatus{entities.VisitStatusInHall, entities.VisitStatusFinished},
		}.OnDay(base, base.AddDate(0, 0, 1)))
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids(eligible))
	})

	t.Run("ids and statuses", func(t *testing.T) {
		got, err := store.List(ctx, repositories.PatientFilter{
			IDs:      []string{"a", "b", "zzz"},
			Statuses: []entities.VisitStatus{entities.VisitStatusInHall},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ids(got))
	})

	t.Run("name search", func(t *testing.T) {
		byName, err := store.List(ctx, repositories.PatientFilter{NameQuery: "ALI"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids(byName))

		withParent, err := store.List(ctx, repositories.PatientFilter{NameQuery: "ali", MatchParentName: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, ids(withParent))
	})
}

func TestPatientStore_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		store := memory.NewPatientStore()
		seed(t, store, "p1", "Omar", "Hoda", entities.VisitStatusInHall, entities.HallStatusIn, hourOf(9), 0)

		err := store.WithinTx(ctx, func(ctx context.Context, tx repositories.PatientRepository) error {
			p, err := tx.GetByID(ctx, "p1")
			if err != nil {
				return err
			}
			p.Status = entities.VisitStatusFinished
			return tx.Update(ctx, p)
		})
		require.NoError(t, err)

		p, _ := store.GetByID(ctx, "p1")
		assert.Equal(t, entities.VisitStatusFinished, p.Status)
	})

	t.Run("discards every write on failure", func(t *testing.T) {
		store := memory.NewPatientStore()
		seed(t, store, "p1", "Omar", "Hoda", entities.VisitStatusInHall, entities.HallStatusIn, hourOf(9), 0)
		seed(t, store, "p2", "Lina", "Hoda", entities.VisitStatusInHall, entities.HallStatusIn, hourOf(9), 0)
		boom := errors.New("boom")

		err := store.WithinTx(ctx, func(ctx context.Context, tx repositories.PatientRepository) error {
			p, _ := tx.GetByID(ctx, "p1")
			p.Status = entities.VisitStatusFinished
			if err := tx.Update(ctx, p); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		p, _ := store.GetByID(ctx, "p1")
		assert.Equal(t, entities.VisitStatusInHall, p.Status)
	})

	t.Run("serializes concurrent batches", func(t *testing.T) {
		store := memory.NewPatientStore()
		seed(t, store, "p1", "Omar", "Hoda", entities.VisitStatusRegistered, entities.HallStatusOut, nil, 0)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = store.WithinTx(ctx, func(ctx context.Context, tx repositories.PatientRepository) error {
					p, err := tx.GetByID(ctx, "p1")
					if err != nil {
						return err
					}
					p.Gender += "x"
					return tx.Update(ctx, p)
				})
			}()
		}
		wg.Wait()

		p, _ := store.GetByID(ctx, "p1")
		assert.Len(t, p.Gender, 20)
	})

	t.Run("honours a cancelled context", func(t *testing.T) {
		store := memory.NewPatientStore()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		called := false
		err := store.WithinTx(cancelled, func(ctx context.Context, tx repositories.PatientRepository) error {
			called = true
			return nil
		})
		assert.Error(t, err)
		assert.False(t, called)
	})
}
