// Package memory provides process-local repositories used when no database
// is configured and by tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

type patientTable map[string]*entities.Patient

// PatientStore implements the PatientRepository interface in memory.
// Records are cloned on the way in and out.
type PatientStore struct {
	mu       sync.Mutex
	patients patientTable
}

// NewPatientStore creates an empty patient store
func NewPatientStore() *PatientStore {
	return &PatientStore{patients: make(patientTable)}
}

var _ repositories.PatientRepository = (*PatientStore)(nil)

// Create stores a new patient
func (s *PatientStore) Create(ctx context.Context, patient *entities.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patients.create(ctx, patient)
}

// GetByID retrieves a patient by ID
func (s *PatientStore) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patients.get(ctx, id)
}

// Update overwrites a stored patient
func (s *PatientStore) Update(ctx context.Context, patient *entities.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patients.update(ctx, patient)
}

// Delete removes a patient
func (s *PatientStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patients.delete(ctx, id)
}

// List retrieves patients matching the filter
func (s *PatientStore) List(ctx context.Context, filter repositories.PatientFilter) ([]*entities.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patients.list(ctx, filter)
}

// WithinTx holds the store lock for the whole callback and works on a copy
// of the table that replaces the live one only when fn succeeds.
func (s *PatientStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.PatientRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return apperrors.NewInternalError("transaction not started", err)
	}

	snapshot := make(patientTable, len(s.patients))
	for id, p := range s.patients {
		snapshot[id] = p.Clone()
	}

	if err := fn(ctx, &patientTx{table: snapshot}); err != nil {
		return err
	}
	s.patients = snapshot
	return nil
}

// patientTx is the repository handed to WithinTx callbacks. The store lock is
// already held.
type patientTx struct {
	table patientTable
}

func (t *patientTx) Create(ctx context.Context, patient *entities.Patient) error {
	return t.table.create(ctx, patient)
}

func (t *patientTx) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	return t.table.get(ctx, id)
}

func (t *patientTx) Update(ctx context.Context, patient *entities.Patient) error {
	return t.table.update(ctx, patient)
}

func (t *patientTx) Delete(ctx context.Context, id string) error {
	return t.table.delete(ctx, id)
}

func (t *patientTx) List(ctx context.Context, filter repositories.PatientFilter) ([]*entities.Patient, error) {
	return t.table.list(ctx, filter)
}

func (t *patientTx) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.PatientRepository) error) error {
	return fn(ctx, t)
}

func (t patientTable) create(ctx context.Context, patient *entities.Patient) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewInternalError("failed to create patient", err)
	}
	if _, exists := t[patient.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("patient with id %s already exists", patient.ID))
	}
	t[patient.ID] = patient.Clone()
	return nil
}

func (t patientTable) get(ctx context.Context, id string) (*entities.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to get patient", err)
	}
	p, ok := t[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
	}
	return p.Clone(), nil
}

func (t patientTable) update(ctx context.Context, patient *entities.Patient) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewInternalError("failed to update patient", err)
	}
	existing, ok := t[patient.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", patient.ID))
	}
	updated := patient.Clone()
	updated.CreatedAt = existing.CreatedAt
	t[patient.ID] = updated
	return nil
}

func (t patientTable) delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewInternalError("failed to delete patient", err)
	}
	if _, ok := t[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
	}
	delete(t, id)
	return nil
}

func (t patientTable) list(ctx context.Context, filter repositories.PatientFilter) ([]*entities.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to list patients", err)
	}
	m := newMatcher(filter)
	patients := make([]*entities.Patient, 0)
	for _, p := range t {
		if m.match(p) {
			patients = append(patients, p.Clone())
		}
	}
	sortPatients(patients, filter.OrderBy)
	return patients, nil
}

type matcher struct {
	filter   repositories.PatientFilter
	ids      map[string]bool
	statuses map[entities.VisitStatus]bool
	excluded map[entities.VisitStatus]bool
	query    string
}

func newMatcher(filter repositories.PatientFilter) matcher {
	m := matcher{filter: filter, query: strings.ToLower(strings.TrimSpace(filter.NameQuery))}
	if len(filter.IDs) > 0 {
		m.ids = make(map[string]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			m.ids[id] = true
		}
	}
	if len(filter.Statuses) > 0 {
		m.statuses = make(map[entities.VisitStatus]bool, len(filter.Statuses))
		for _, s := range filter.Statuses {
			m.statuses[s] = true
		}
	}
	m.excluded = make(map[entities.VisitStatus]bool, len(filter.ExcludeStatuses))
	for _, s := range filter.ExcludeStatuses {
		m.excluded[s] = true
	}
	return m
}

func (m matcher) match(p *entities.Patient) bool {
	f := m.filter
	if m.ids != nil && !m.ids[p.ID] {
		return false
	}
	if m.statuses != nil && !m.statuses[p.Status] {
		return false
	}
	if m.excluded[p.Status] {
		return false
	}
	if f.HallStatus != "" && p.HallStatus != f.HallStatus {
		return false
	}
	if f.VisitFrom != nil || f.VisitBefore != nil {
		if p.VisitDateTime == nil {
			return false
		}
		if f.VisitFrom != nil && p.VisitDateTime.Before(*f.VisitFrom) {
			return false
		}
		if f.VisitBefore != nil && !p.VisitDateTime.Before(*f.VisitBefore) {
			return false
		}
	}
	if m.query != "" {
		names := []string{p.FirstName, p.LastName}
		if f.MatchParentName {
			names = append(names, p.ParentName)
		}
		found := false
		for _, name := range names {
			if strings.Contains(strings.ToLower(name), m.query) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortPatients(patients []*entities.Patient, order repositories.PatientOrder) {
	sort.SliceStable(patients, func(i, j int) bool {
		a, b := patients[i], patients[j]
		switch order {
		case repositories.OrderVisitAsc, repositories.OrderVisitDesc:
			if (a.VisitDateTime == nil) != (b.VisitDateTime == nil) {
				return b.VisitDateTime == nil
			}
			if a.VisitDateTime != nil && !a.VisitDateTime.Equal(*b.VisitDateTime) {
				if order == repositories.OrderVisitAsc {
					return a.VisitDateTime.Before(*b.VisitDateTime)
				}
				return a.VisitDateTime.After(*b.VisitDateTime)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}
