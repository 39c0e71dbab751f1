package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/pediatric-clinic/internal/adapters/memory"
	"github.com/zatekoja/pediatric-clinic/internal/application/services"
	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	"github.com/zatekoja/pediatric-clinic/internal/domain/visit"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

type MockReportGenerator struct {
	mock.Mock
}

func (m *MockReportGenerator) ContentType() string {
	return m.Called().String(0)
}

func (m *MockReportGenerator) Generate(ctx context.Context, req providers.ReportRequest, w io.Writer) error {
	args := m.Called(ctx, req, w)
	if args.Error(0) == nil {
		_, _ = w.Write([]byte("%PDF-1.3"))
	}
	return args.Error(0)
}

func newPatientService(store *memory.PatientStore, reports providers.ReportGenerator) *services.PatientService {
	clock := providers.FixedClock{At: clinicDay}
	configs := services.NewClinicConfigService(memory.NewClinicConfigStore(), clock)
	return services.NewPatientService(store, configs, reports, clock, nil)
}

func validRegistration() services.RegisterPatientRequest {
	return services.RegisterPatientRequest{
		FirstName:   "Youssef",
		LastName:    "Kamal",
		DateOfBirth: "2019-11-02",
		Gender:      "male",
		ParentName:  "Heba Kamal",
		Phone:       "  0111  ",
		City:        " Giza ",
		Allergies:   visit.AllergyList("penicillin", "eggs"),
	}
}

func TestPatientService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a trimmed registered patient", func(t *testing.T) {
		store := memory.NewPatientStore()
		p, err := newPatientService(store, nil).Register(ctx, staff, validRegistration())
		require.NoError(t, err)

		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "0111", p.Phone)
		assert.Equal(t, "Giza", p.City)
		assert.Equal(t, time.Date(2019, 11, 2, 0, 0, 0, 0, time.UTC), p.DateOfBirth)
		assert.Equal(t, entities.VisitStatusRegistered, p.Status)
		assert.Equal(t, entities.HallStatusOut, p.HallStatus)
		assert.Nil(t, p.VisitDateTime)
		require.NotNil(t, p.Allergies)
		assert.Equal(t, []string{"penicillin", "eggs"}, visit.DecodeAllergies(p.Allergies).List)

		stored := get(t, store, p.ID)
		assert.Equal(t, p, stored)
	})

	t.Run("reports missing required fields", func(t *testing.T) {
		req := validRegistration()
		req.ParentName = "   "
		req.Phone = ""

		_, err := newPatientService(memory.NewPatientStore(), nil).Register(ctx, staff, req)
		require.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "parent_name is required")
		assert.Contains(t, err.Error(), "phone is required")
	})

	t.Run("rejects a malformed date of birth", func(t *testing.T) {
		req := validRegistration()
		req.DateOfBirth = "02/11/2019"

		_, err := newPatientService(memory.NewPatientStore(), nil).Register(ctx, staff, req)
		require.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "date_of_birth")
	})

	t.Run("rejects a birth date in the future", func(t *testing.T) {
		req := validRegistration()
		req.DateOfBirth = clinicDay.AddDate(0, 0, 1).Format("2006-01-02")

		_, err := newPatientService(memory.NewPatientStore(), nil).Register(ctx, staff, req)
		require.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "in the future")
	})

	t.Run("rejects values wider than their columns", func(t *testing.T) {
		store := memory.NewPatientStore()
		req := validRegistration()
		req.Gender = "prefer not to say"
		req.BloodType = "AB+ve?"
		req.PatientPhone = strPtr(strings.Repeat("9", 21))

		_, err := newPatientService(store, nil).Register(ctx, staff, req)
		require.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "gender must be at most 10 characters")
		assert.Contains(t, err.Error(), "blood_type must be at most 5 characters")
		assert.Contains(t, err.Error(), "patient_phone must be at most 20 characters")

		all, err := store.List(ctx, repositories.PatientFilter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("limits count characters after trimming", func(t *testing.T) {
		req := validRegistration()
		req.Gender = "  أنثى  "
		req.FirstName = strings.Repeat("ي", 100)

		p, err := newPatientService(memory.NewPatientStore(), nil).Register(ctx, staff, req)
		require.NoError(t, err)
		assert.Equal(t, "أنثى", p.Gender)
	})

	t.Run("requires a signed-in user", func(t *testing.T) {
		_, err := newPatientService(memory.NewPatientStore(), nil).Register(ctx, anonymous, validRegistration())
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
	})
}

func TestPatientService_Update(t *testing.T) {
	ctx := context.Background()

	decode := func(t *testing.T, body string) services.UpdatePatientRequest {
		t.Helper()
		var req services.UpdatePatientRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		return req
	}

	t.Run("unspecified fields are kept and null clears", func(t *testing.T) {
		store := memory.NewPatientStore()
		addPatient(t, store, "p1", entities.VisitStatusScheduled, entities.HallStatusIn, at(10, 10))
		svc := newPatientService(store, nil)

		p, err := svc.Update(ctx, staff, "p1", decode(t, `{"first_name":" Nour ","doctor_comments":null,"allergies":"dust "}`))
		require.NoError(t, err)
		assert.Equal(t, "Nour", p.FirstName)
		assert.Equal(t, "Test", p.LastName)
		assert.Nil(t, p.DoctorComments)
		require.NotNil(t, p.VisitDateTime, "absent visit_datetime is left alone")
		assert.Equal(t, "dust", *p.Allergies)

		p, err = svc.Update(ctx, staff, "p1", decode(t, `{"visit_datetime":null}`))
		require.NoError(t, err)
		assert.Nil(t, p.VisitDateTime)
	})

	t.Run("status changes keep finished patients out of the hall", func(t *testing.T) {
		store := memory.NewPatientStore()
		addPatient(t, store, "p1", entities.VisitStatusInHall, entities.HallStatusIn, at(10, 10))

		p, err := newPatientService(store, nil).Update(ctx, staff, "p1", decode(t, `{"status":"finished"}`))
		require.NoError(t, err)
		assert.Equal(t, entities.VisitStatusFinished, p.Status)
		assert.Equal(t, entities.HallStatusOut, p.HallStatus)
	})

	t.Run("invalid values are rejected without changes", func(t *testing.T) {
		store := memory.NewPatientStore()
		addPatient(t, store, "p1", entities.VisitStatusScheduled, entities.HallStatusIn, at(10, 10))
		before := get(t, store, "p1")
		svc := newPatientService(store, nil)

		for _, body := range []string{
			`{"first_name":"Lina","status":"waiting_room"}`,
			`{"hall_status":"inside"}`,
			`{"hall_status":null}`,
			`{"date_of_birth":"yesterday"}`,
			`{"visit_datetime":"not a time"}`,
			`{"last_name":null}`,
			`{"phone":"  "}`,
			`{"gender":"prefer not to say"}`,
			`{"date_of_birth":"2030-01-01"}`,
			`{"street":"` + strings.Repeat("x", 201) + `"}`,
			`{"patient_phone":"` + strings.Repeat("1", 21) + `"}`,
		} {
			_, err := svc.Update(ctx, staff, "p1", decode(t, body))
			assert.True(t, apperrors.IsValidation(err), body)
		}
		assert.Equal(t, before, get(t, store, "p1"))
	})

	t.Run("unknown patient", func(t *testing.T) {
		_, err := newPatientService(memory.NewPatientStore(), nil).Update(ctx, staff, "nope", services.UpdatePatientRequest{})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestPatientService_SearchAndHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPatientStore()
	addPatient(t, store, "a", entities.VisitStatusScheduled, entities.HallStatusIn, at(10, 10))
	addPatient(t, store, "b", entities.VisitStatusRegistered, entities.HallStatusOut, nil)
	svc := newPatientService(store, nil)

	empty, err := svc.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	byParent, err := svc.Search(ctx, "parent b")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, patientIDs(byParent))

	histories, err := svc.SearchHistory(ctx, "child")
	require.NoError(t, err)
	require.Len(t, histories, 2)
	for _, h := range histories {
		if h.Patient.ID == "a" {
			require.Len(t, h.VisitHistory, 1)
			assert.Equal(t, entities.VisitStatusScheduled, h.VisitHistory[0].Status)
		} else {
			assert.Empty(t, h.VisitHistory)
		}
	}

	_, err = svc.SearchHistory(ctx, "parent")
	assert.True(t, apperrors.IsNotFound(err), "history search ignores parent names")
}

func TestPatientService_CommentsAndDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPatientStore()
	addPatient(t, store, "p1", entities.VisitStatusInHall, entities.HallStatusIn, at(10, 10))
	svc := newPatientService(store, nil)

	p, err := svc.SaveComments(ctx, staff, "p1", "  rest and fluids ")
	require.NoError(t, err)
	assert.Equal(t, "rest and fluids", *p.DoctorComments)
	assert.Equal(t, entities.VisitStatusInHall, p.Status)

	require.NoError(t, svc.Delete(ctx, staff, "p1"))
	assert.True(t, apperrors.IsNotFound(svc.Delete(ctx, staff, "p1")))
}

func TestPatientService_GenerateReport(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPatientStore()
	addPatient(t, store, "p1", entities.VisitStatusFinished, entities.HallStatusOut, at(10, 10))

	reports := new(MockReportGenerator)
	reports.On("Generate", ctx, mock.MatchedBy(func(req providers.ReportRequest) bool {
		return req.Kind == providers.ReportKindHistory &&
			req.Patient.ID == "p1" &&
			req.Clinic.ClinicName == entities.DefaultClinicName &&
			req.GeneratedAt.Equal(clinicDay)
	}), mock.Anything).Return(nil)

	var buf bytes.Buffer
	name, err := newPatientService(store, reports).GenerateHistoryReport(ctx, "p1", &buf)
	require.NoError(t, err)
	assert.Equal(t, "patient_history_Child p1_Test.pdf", name)
	assert.Equal(t, "%PDF-1.3", buf.String())
	reports.AssertExpectations(t)

	_, err = newPatientService(store, reports).GenerateReport(ctx, "missing", &buf)
	assert.True(t, apperrors.IsNotFound(err))
}
