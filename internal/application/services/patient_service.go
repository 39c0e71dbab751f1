package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	"github.com/zatekoja/pediatric-clinic/internal/domain/visit"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

// RegisterPatientRequest is the registration form of a new patient
type RegisterPatientRequest struct {
	FirstName      string          `json:"first_name" validate:"required,max=100"`
	LastName       string          `json:"last_name" validate:"required,max=100"`
	DateOfBirth    string          `json:"date_of_birth" validate:"required,date_ymd"`
	Gender         string          `json:"gender" validate:"required,max=10"`
	ParentName     string          `json:"parent_name" validate:"required,max=200"`
	Phone          string          `json:"phone" validate:"required,max=20"`
	PatientPhone   *string         `json:"patient_phone" validate:"omitempty,max=20"`
	City           string          `json:"city" validate:"max=100"`
	Area           string          `json:"area" validate:"max=100"`
	Street         string          `json:"street" validate:"max=200"`
	Apartment      string          `json:"apartment" validate:"max=50"`
	BloodType      string          `json:"blood_type" validate:"max=5"`
	Allergies      visit.Allergies `json:"allergies"`
	MedicalHistory *string         `json:"medical_history"`
}

func (r *RegisterPatientRequest) trim() {
	r.FirstName = visit.Clean(r.FirstName)
	r.LastName = visit.Clean(r.LastName)
	r.DateOfBirth = visit.Clean(r.DateOfBirth)
	r.Gender = visit.Clean(r.Gender)
	r.ParentName = visit.Clean(r.ParentName)
	r.Phone = visit.Clean(r.Phone)
	r.City = visit.Clean(r.City)
	r.Area = visit.Clean(r.Area)
	r.Street = visit.Clean(r.Street)
	r.Apartment = visit.Clean(r.Apartment)
	r.BloodType = visit.Clean(r.BloodType)
	r.PatientPhone = visit.CleanPtr(r.PatientPhone)
}

// UpdatePatientRequest is a partial update. An unspecified field is left
// unchanged and an explicit null clears an optional field. The visit type is
// only ever set through a reservation.
type UpdatePatientRequest struct {
	FirstName      nullable.Nullable[string]          `json:"first_name"`
	LastName       nullable.Nullable[string]          `json:"last_name"`
	DateOfBirth    nullable.Nullable[string]          `json:"date_of_birth"`
	Gender         nullable.Nullable[string]          `json:"gender"`
	ParentName     nullable.Nullable[string]          `json:"parent_name"`
	Phone          nullable.Nullable[string]          `json:"phone"`
	PatientPhone   nullable.Nullable[string]          `json:"patient_phone"`
	City           nullable.Nullable[string]          `json:"city"`
	Area           nullable.Nullable[string]          `json:"area"`
	Street         nullable.Nullable[string]          `json:"street"`
	Apartment      nullable.Nullable[string]          `json:"apartment"`
	BloodType      nullable.Nullable[string]          `json:"blood_type"`
	Allergies      nullable.Nullable[visit.Allergies] `json:"allergies"`
	MedicalHistory nullable.Nullable[string]          `json:"medical_history"`
	DoctorComments nullable.Nullable[string]          `json:"doctor_comments"`
	VisitDateTime  nullable.Nullable[string]          `json:"visit_datetime"`
	HallStatus     nullable.Nullable[string]          `json:"hall_status"`
	Status         nullable.Nullable[string]          `json:"status"`
}

// VisitRecord is one entry of a patient's visit history
type VisitRecord struct {
	VisitDate      *time.Time           `json:"visit_date"`
	VisitType      *entities.VisitType  `json:"visit_type"`
	DoctorComments *string              `json:"doctor_comments"`
	Status         entities.VisitStatus `json:"status"`
	HallStatus     entities.HallStatus  `json:"hall_status"`
}

// PatientHistory pairs a patient with its visit history
type PatientHistory struct {
	Patient      *entities.Patient `json:"patient_info"`
	VisitHistory []VisitRecord     `json:"visit_history"`
}

// PatientService manages the patient registry
type PatientService struct {
	repo    repositories.PatientRepository
	clinic  *ClinicConfigService
	reports providers.ReportGenerator
	clock   providers.Clock
	events  providers.EventBus
}

// NewPatientService creates a new patient service
func NewPatientService(
	repo repositories.PatientRepository,
	clinic *ClinicConfigService,
	reports providers.ReportGenerator,
	clock providers.Clock,
	events providers.EventBus,
) *PatientService {
	return &PatientService{
		repo:    repo,
		clinic:  clinic,
		reports: reports,
		clock:   clock,
		events:  events,
	}
}

// Register creates a patient with no visit, registered and Out of the hall
func (s *PatientService) Register(ctx context.Context, actor entities.Identity, req RegisterPatientRequest) (*entities.Patient, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	req.trim()
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	dob, err := visit.ParseDateOfBirth(req.DateOfBirth)
	if err == nil {
		err = visit.CheckDateOfBirth(dob, now)
	}
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	allergies, err := visit.EncodeAllergies(req.Allergies)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	patient := &entities.Patient{
		ID:             uuid.New().String(),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		DateOfBirth:    dob,
		Gender:         req.Gender,
		ParentName:     req.ParentName,
		Phone:          req.Phone,
		PatientPhone:   visit.CleanPtr(req.PatientPhone),
		City:           req.City,
		Area:           req.Area,
		Street:         req.Street,
		Apartment:      req.Apartment,
		BloodType:      req.BloodType,
		Allergies:      allergies,
		MedicalHistory: visit.CleanPtr(req.MedicalHistory),
		HallStatus:     entities.HallStatusOut,
		Status:         entities.VisitStatusRegistered,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// Get returns a single patient
func (s *PatientService) Get(ctx context.Context, id string) (*entities.Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every patient, newest registration first
func (s *PatientService) List(ctx context.Context) ([]*entities.Patient, error) {
	return s.repo.List(ctx, repositories.PatientFilter{OrderBy: repositories.OrderCreatedDesc})
}

// Search matches the query against first, last and parent names. A blank
// query matches nothing.
func (s *PatientService) Search(ctx context.Context, query string) ([]*entities.Patient, error) {
	query = visit.Clean(query)
	if query == "" {
		return []*entities.Patient{}, nil
	}
	return s.repo.List(ctx, repositories.PatientFilter{
		NameQuery:       query,
		MatchParentName: true,
		OrderBy:         repositories.OrderCreatedDesc,
	})
}

// Update applies a partial update to a patient
func (s *PatientService) Update(ctx context.Context, actor entities.Identity, id string, req UpdatePatientRequest) (*entities.Patient, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var updated *entities.Patient
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx repositories.PatientRepository) error {
		p, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := applyPatientUpdate(p, req, now); err != nil {
			return err
		}
		p.UpdatedAt = now
		if err := tx.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, entities.HallEventPatientEdits, id, actor, now)
	return updated, nil
}

// SaveComments stores the doctor's comments of the current visit
func (s *PatientService) SaveComments(ctx context.Context, actor entities.Identity, id string, comments string) (*entities.Patient, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var updated *entities.Patient
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx repositories.PatientRepository) error {
		p, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		p.DoctorComments = visit.CleanPtr(&comments)
		p.UpdatedAt = now
		if err := tx.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a patient
func (s *PatientService) Delete(ctx context.Context, actor entities.Identity, id string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, entities.HallEventPatientEdits, id, actor, s.clock.Now())
	return nil
}

// SearchHistory returns the visit history of every patient whose first or
// last name matches
func (s *PatientService) SearchHistory(ctx context.Context, name string) ([]PatientHistory, error) {
	name = visit.Clean(name)
	if name == "" {
		return nil, apperrors.NewValidationError("patient name is required")
	}

	patients, err := s.repo.List(ctx, repositories.PatientFilter{
		NameQuery: name,
		OrderBy:   repositories.OrderCreatedDesc,
	})
	if err != nil {
		return nil, err
	}
	if len(patients) == 0 {
		return nil, apperrors.NewNotFoundError("No patients found with that name")
	}

	histories := make([]PatientHistory, 0, len(patients))
	for _, p := range patients {
		histories = append(histories, PatientHistory{
			Patient:      p,
			VisitHistory: visitHistory(p),
		})
	}
	return histories, nil
}

// GenerateReport renders the medical report of a patient into w and returns
// the suggested file name
func (s *PatientService) GenerateReport(ctx context.Context, id string, w io.Writer) (string, error) {
	return s.generate(ctx, providers.ReportKindPatient, id, w)
}

// GenerateHistoryReport renders the visit history report of a patient into w
func (s *PatientService) GenerateHistoryReport(ctx context.Context, id string, w io.Writer) (string, error) {
	return s.generate(ctx, providers.ReportKindHistory, id, w)
}

// ReportContentType is the MIME type of generated reports
func (s *PatientService) ReportContentType() string {
	return s.reports.ContentType()
}

func (s *PatientService) generate(ctx context.Context, kind providers.ReportKind, id string, w io.Writer) (string, error) {
	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	clinic, err := s.clinic.Get(ctx)
	if err != nil {
		return "", err
	}

	req := providers.ReportRequest{
		Kind:        kind,
		Patient:     patient,
		Clinic:      clinic,
		GeneratedAt: s.clock.Now(),
	}
	if err := s.reports.Generate(ctx, req, w); err != nil {
		return "", apperrors.NewInternalError("failed to generate report", err)
	}

	prefix := "patient_report"
	if kind == providers.ReportKindHistory {
		prefix = "patient_history"
	}
	return fmt.Sprintf("%s_%s_%s.pdf", prefix, patient.FirstName, patient.LastName), nil
}

func (s *PatientService) publish(ctx context.Context, eventType entities.HallEventType, id string, actor entities.Identity, at time.Time) {
	publishHallEvent(ctx, s.events, entities.NewHallEvent(eventType, []string{id}, actor.Username, at))
}

func visitHistory(p *entities.Patient) []VisitRecord {
	if p.VisitDateTime == nil {
		return []VisitRecord{}
	}
	return []VisitRecord{{
		VisitDate:      p.VisitDateTime,
		VisitType:      p.VisitType,
		DoctorComments: p.DoctorComments,
		Status:         p.Status,
		HallStatus:     p.HallStatus,
	}}
}

func applyPatientUpdate(p *entities.Patient, req UpdatePatientRequest, now time.Time) error {
	required := []struct {
		name  string
		field nullable.Nullable[string]
		dst   *string
		max   int
	}{
		{"first_name", req.FirstName, &p.FirstName, 100},
		{"last_name", req.LastName, &p.LastName, 100},
		{"gender", req.Gender, &p.Gender, 10},
		{"parent_name", req.ParentName, &p.ParentName, 200},
		{"phone", req.Phone, &p.Phone, 20},
	}
	for _, f := range required {
		if !f.field.IsSpecified() {
			continue
		}
		value, err := f.field.Get()
		if err != nil || visit.Clean(value) == "" {
			return apperrors.NewValidationError(f.name + " is required")
		}
		value = visit.Clean(value)
		if err := checkMaxLength(f.name, value, f.max); err != nil {
			return err
		}
		*f.dst = value
	}

	if req.DateOfBirth.IsSpecified() {
		raw, err := req.DateOfBirth.Get()
		if err != nil {
			return apperrors.NewValidationError("date_of_birth is required")
		}
		dob, err := visit.ParseDateOfBirth(raw)
		if err == nil {
			err = visit.CheckDateOfBirth(dob, now)
		}
		if err != nil {
			return apperrors.NewValidationError(err.Error())
		}
		p.DateOfBirth = dob
	}

	optional := []struct {
		name  string
		field nullable.Nullable[string]
		dst   *string
		max   int
	}{
		{"city", req.City, &p.City, 100},
		{"area", req.Area, &p.Area, 100},
		{"street", req.Street, &p.Street, 200},
		{"apartment", req.Apartment, &p.Apartment, 50},
		{"blood_type", req.BloodType, &p.BloodType, 5},
	}
	for _, f := range optional {
		if !f.field.IsSpecified() {
			continue
		}
		value, _ := f.field.Get()
		value = visit.Clean(value)
		if err := checkMaxLength(f.name, value, f.max); err != nil {
			return err
		}
		*f.dst = value
	}

	for _, f := range []struct {
		field nullable.Nullable[string]
		dst   **string
	}{
		{req.PatientPhone, &p.PatientPhone},
		{req.MedicalHistory, &p.MedicalHistory},
		{req.DoctorComments, &p.DoctorComments},
	} {
		if f.field.IsSpecified() {
			*f.dst = nullableText(f.field)
		}
	}
	if req.PatientPhone.IsSpecified() && p.PatientPhone != nil {
		if err := checkMaxLength("patient_phone", *p.PatientPhone, 20); err != nil {
			return err
		}
	}

	if req.Allergies.IsSpecified() {
		var allergies visit.Allergies
		if !req.Allergies.IsNull() {
			allergies = req.Allergies.MustGet()
		}
		encoded, err := visit.EncodeAllergies(allergies)
		if err != nil {
			return apperrors.NewValidationError(err.Error())
		}
		p.Allergies = encoded
	}

	if req.VisitDateTime.IsSpecified() {
		raw := nullableText(req.VisitDateTime)
		if raw == nil {
			p.VisitDateTime = nil
		} else {
			at, err := visit.ParseVisitDateTime(*raw, now.Location())
			if err != nil {
				return apperrors.NewValidationError(err.Error())
			}
			p.VisitDateTime = &at
		}
	}

	if req.HallStatus.IsSpecified() {
		raw, err := req.HallStatus.Get()
		if err != nil {
			return apperrors.NewValidationError("hall_status cannot be null")
		}
		hall, err := entities.ParseHallStatus(raw)
		if err != nil {
			return apperrors.NewValidationError(err.Error())
		}
		p.HallStatus = hall
	}

	if req.Status.IsSpecified() {
		raw, err := req.Status.Get()
		if err != nil {
			return apperrors.NewValidationError("status cannot be null")
		}
		status, err := entities.ParseVisitStatus(raw)
		if err != nil {
			return apperrors.NewValidationError(err.Error())
		}
		p.Status = status
	}

	visit.Normalize(p)
	return nil
}

// nullableText returns the trimmed value, or nil for null and blank input
func nullableText(n nullable.Nullable[string]) *string {
	if n.IsNull() {
		return nil
	}
	value, err := n.Get()
	if err != nil {
		return nil
	}
	return visit.CleanPtr(&value)
}
