package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
)

// PatientRepository defines the interface for patient record operations
type PatientRepository interface {
	// Create stores a new patient
	Create(ctx context.Context, patient *entities.Patient) error

	// GetByID retrieves a patient by ID
	GetByID(ctx context.Context, id string) (*entities.Patient, error)

	// Update overwrites a stored patient
	Update(ctx context.Context, patient *entities.Patient) error

	// Delete removes a patient
	Delete(ctx context.Context, id string) error

	// List retrieves patients matching the filter
	List(ctx context.Context, filter PatientFilter) ([]*entities.Patient, error)

	// WithinTx runs fn against a repository bound to a single atomic scope.
	// Writes made through it are discarded when fn returns an error.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx PatientRepository) error) error
}

// PatientOrder selects the ordering of List results
type PatientOrder int

const (
	// OrderCreatedDesc lists newest registrations first
	OrderCreatedDesc PatientOrder = iota
	// OrderVisitAsc lists earliest visits first
	OrderVisitAsc
	// OrderVisitDesc lists latest visits first
	OrderVisitDesc
)

// PatientFilter defines filters for listing patients. Empty fields do not
// constrain the result.
type PatientFilter struct {
	IDs             []string
	Statuses        []entities.VisitStatus
	ExcludeStatuses []entities.VisitStatus
	HallStatus      entities.HallStatus

	// VisitFrom and VisitBefore bound visit_datetime as [VisitFrom, VisitBefore)
	VisitFrom   *time.Time
	VisitBefore *time.Time

	// NameQuery matches first or last name case-insensitively, and the
	// parent's name when MatchParentName is set
	NameQuery       string
	MatchParentName bool

	OrderBy PatientOrder

	// ForUpdate locks the selected rows until the surrounding WithinTx ends
	ForUpdate bool
}

// OnDay restricts the filter to visits within [start, end)
func (f PatientFilter) OnDay(start, end time.Time) PatientFilter {
	f.VisitFrom = &start
	f.VisitBefore = &end
	return f
}
