package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

const patientsTable = "patients"

var patientColumns = []interface{}{
	"id", "first_name", "last_name", "date_of_birth", "gender",
	"parent_name", "phone", "patient_phone",
	"city", "area", "street", "apartment",
	"blood_type", "allergies", "medical_history", "doctor_comments",
	"visit_datetime", "visit_type", "hall_status", "status",
	"created_at", "updated_at",
}

// executor is satisfied by both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// PatientAdapter implements the PatientRepository interface
type PatientAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	exec    executor
	tx      *sql.Tx
	metrics *observability.Metrics
}

// NewPatientAdapter creates a new patient adapter
func NewPatientAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.PatientRepository {
	return &PatientAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		exec:    client.DB(),
		metrics: metrics,
	}
}

// Create creates a new patient
func (a *PatientAdapter) Create(ctx context.Context, patient *entities.Patient) error {
	record := patientRecord(patient)
	record["id"] = patient.ID
	record["created_at"] = patient.CreatedAt

	query, args, err := a.db.Insert(patientsTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	defer a.observe(ctx, "patients.insert", time.Now())
	if _, err := a.exec.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create patient", err)
	}
	return nil
}

// GetByID retrieves a patient by ID
func (a *PatientAdapter) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	key, ok := canonicalID(id)
	if !ok {
		return nil, patientNotFound(id)
	}
	ds := a.db.Select(patientColumns...).From(patientsTable).Where(goqu.Ex{"id": key})
	if a.tx != nil {
		ds = ds.ForUpdate(exp.Wait)
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	defer a.observe(ctx, "patients.get", time.Now())
	patient, err := scanPatient(a.exec.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, patientNotFound(id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get patient", err)
	}
	return patient, nil
}

// Update overwrites every mutable column of a patient
func (a *PatientAdapter) Update(ctx context.Context, patient *entities.Patient) error {
	key, ok := canonicalID(patient.ID)
	if !ok {
		return patientNotFound(patient.ID)
	}
	query, args, err := a.db.Update(patientsTable).
		Set(patientRecord(patient)).
		Where(goqu.Ex{"id": key}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	defer a.observe(ctx, "patients.update", time.Now())
	result, err := a.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update patient", err)
	}
	return expectRow(result, patientNotFound(patient.ID).Message)
}

// Delete deletes a patient
func (a *PatientAdapter) Delete(ctx context.Context, id string) error {
	key, ok := canonicalID(id)
	if !ok {
		return patientNotFound(id)
	}
	query, args, err := a.db.Delete(patientsTable).Where(goqu.Ex{"id": key}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	defer a.observe(ctx, "patients.delete", time.Now())
	result, err := a.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete patient", err)
	}
	return expectRow(result, patientNotFound(id).Message)
}

// List retrieves patients matching the filter. Ids that are not UUIDs match
// nothing.
func (a *PatientAdapter) List(ctx context.Context, filter repositories.PatientFilter) ([]*entities.Patient, error) {
	if len(filter.IDs) > 0 {
		filter.IDs = canonicalIDs(filter.IDs)
		if len(filter.IDs) == 0 {
			return make([]*entities.Patient, 0), nil
		}
	}

	query, args, err := a.listQuery(filter).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	defer a.observe(ctx, "patients.list", time.Now())
	rows, err := a.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list patients", err)
	}
	defer rows.Close()

	patients := make([]*entities.Patient, 0)
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan patient", err)
		}
		patients = append(patients, patient)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate patients", err)
	}
	return patients, nil
}

// WithinTx runs fn inside a database transaction. Nested calls join the
// outer transaction.
func (a *PatientAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.PatientRepository) error) error {
	if a.tx != nil {
		return fn(ctx, a)
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	scoped := &PatientAdapter{client: a.client, db: a.db, exec: tx, tx: tx, metrics: a.metrics}
	if err := fn(ctx, scoped); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			observability.LoggerFromContext(ctx).Error().Err(rbErr).Msg("failed to roll back patient transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit transaction", err)
	}
	return nil
}

func (a *PatientAdapter) listQuery(filter repositories.PatientFilter) *goqu.SelectDataset {
	ds := a.db.Select(patientColumns...).From(patientsTable)

	if len(filter.IDs) > 0 {
		ds = ds.Where(goqu.C("id").In(filter.IDs))
	}
	if len(filter.Statuses) > 0 {
		ds = ds.Where(goqu.C("status").In(statusValues(filter.Statuses)))
	}
	if len(filter.ExcludeStatuses) > 0 {
		ds = ds.Where(goqu.C("status").NotIn(statusValues(filter.ExcludeStatuses)))
	}
	if filter.HallStatus != "" {
		ds = ds.Where(goqu.C("hall_status").Eq(string(filter.HallStatus)))
	}
	if filter.VisitFrom != nil {
		ds = ds.Where(goqu.C("visit_datetime").Gte(*filter.VisitFrom))
	}
	if filter.VisitBefore != nil {
		ds = ds.Where(goqu.C("visit_datetime").Lt(*filter.VisitBefore))
	}
	if q := strings.TrimSpace(filter.NameQuery); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		matches := []exp.Expression{
			goqu.C("first_name").ILike(pattern),
			goqu.C("last_name").ILike(pattern),
		}
		if filter.MatchParentName {
			matches = append(matches, goqu.C("parent_name").ILike(pattern))
		}
		ds = ds.Where(goqu.Or(matches...))
	}

	switch filter.OrderBy {
	case repositories.OrderVisitAsc:
		ds = ds.Order(goqu.I("visit_datetime").Asc().NullsLast(), goqu.I("id").Asc())
	case repositories.OrderVisitDesc:
		ds = ds.Order(goqu.I("visit_datetime").Desc().NullsLast(), goqu.I("id").Asc())
	default:
		ds = ds.Order(goqu.I("created_at").Desc(), goqu.I("id").Asc())
	}

	if filter.ForUpdate && a.tx != nil {
		ds = ds.ForUpdate(exp.Wait)
	}
	return ds
}

func patientNotFound(id string) *apperrors.AppError {
	return apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
}

// canonicalID normalizes a UUID key; anything else cannot name a row
func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func canonicalIDs(ids []string) []string {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if key, ok := canonicalID(id); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

func (a *PatientAdapter) observe(ctx context.Context, operation string, start time.Time) {
	observability.RecordDBMetric(ctx, a.metrics, operation, time.Since(start))
}

// patientRecord holds the columns written on both insert and update
func patientRecord(p *entities.Patient) goqu.Record {
	var visitType interface{}
	if p.VisitType != nil {
		visitType = string(*p.VisitType)
	}
	var visitAt interface{}
	if p.VisitDateTime != nil {
		visitAt = p.VisitDateTime.UTC()
	}
	return goqu.Record{
		"first_name":      p.FirstName,
		"last_name":       p.LastName,
		"date_of_birth":   p.DateOfBirth.Format("2006-01-02"),
		"gender":          p.Gender,
		"parent_name":     p.ParentName,
		"phone":           p.Phone,
		"patient_phone":   nullString(p.PatientPhone),
		"city":            p.City,
		"area":            p.Area,
		"street":          p.Street,
		"apartment":       p.Apartment,
		"blood_type":      p.BloodType,
		"allergies":       nullString(p.Allergies),
		"medical_history": nullString(p.MedicalHistory),
		"doctor_comments": nullString(p.DoctorComments),
		"visit_datetime":  visitAt,
		"visit_type":      visitType,
		"hall_status":     string(p.HallStatus),
		"status":          string(p.Status),
		"updated_at":      p.UpdatedAt,
	}
}

func scanPatient(row rowScanner) (*entities.Patient, error) {
	p := &entities.Patient{}
	var patientPhone, allergies, medicalHistory, doctorComments, visitType sql.NullString
	var visitAt sql.NullTime
	var hallStatus, status string

	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
		&p.ParentName, &p.Phone, &patientPhone,
		&p.City, &p.Area, &p.Street, &p.Apartment,
		&p.BloodType, &allergies, &medicalHistory, &doctorComments,
		&visitAt, &visitType, &hallStatus, &status,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.PatientPhone = stringPtr(patientPhone)
	p.Allergies = stringPtr(allergies)
	p.MedicalHistory = stringPtr(medicalHistory)
	p.DoctorComments = stringPtr(doctorComments)
	if visitAt.Valid {
		t := visitAt.Time
		p.VisitDateTime = &t
	}
	if visitType.Valid {
		vt, err := entities.ParseVisitType(visitType.String)
		if err != nil {
			return nil, err
		}
		p.VisitType = &vt
	}
	if p.HallStatus, err = entities.ParseHallStatus(hallStatus); err != nil {
		return nil, err
	}
	if p.Status, err = entities.ParseVisitStatus(status); err != nil {
		return nil, err
	}
	return p, nil
}

func expectRow(result sql.Result, notFound string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(notFound)
	}
	return nil
}

func statusValues(statuses []entities.VisitStatus) []string {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return values
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
