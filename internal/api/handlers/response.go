package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

const maxBodyBytes = 1 << 20

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps an application error onto its HTTP status.
// Internal details are logged, never returned.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeValidation:
		respondWithError(w, http.StatusBadRequest, appErr.Message)
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, appErr.Message)
	case apperrors.ErrorTypeConflict:
		respondWithError(w, http.StatusConflict, appErr.Message)
	case apperrors.ErrorTypeUnauthorized:
		respondWithError(w, http.StatusUnauthorized, appErr.Message)
	case apperrors.ErrorTypeForbidden:
		respondWithError(w, http.StatusForbidden, appErr.Message)
	default:
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// PatientResponse is the wire form of a patient
type PatientResponse struct {
	ID             string               `json:"id"`
	FirstName      string               `json:"first_name"`
	LastName       string               `json:"last_name"`
	DateOfBirth    string               `json:"date_of_birth"`
	Gender         string               `json:"gender"`
	ParentName     string               `json:"parent_name"`
	Phone          string               `json:"phone"`
	PatientPhone   *string              `json:"patient_phone"`
	City           string               `json:"city"`
	Area           string               `json:"area"`
	Street         string               `json:"street"`
	Apartment      string               `json:"apartment"`
	FullAddress    string               `json:"full_address"`
	BloodType      string               `json:"blood_type"`
	Allergies      *string              `json:"allergies"`
	MedicalHistory *string              `json:"medical_history"`
	VisitDateTime  *time.Time           `json:"visit_datetime"`
	VisitType      *entities.VisitType  `json:"visit_type"`
	HallStatus     entities.HallStatus  `json:"hall_status"`
	DoctorComments *string              `json:"doctor_comments"`
	Status         entities.VisitStatus `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func toPatientResponse(p *entities.Patient) PatientResponse {
	return PatientResponse{
		ID:             p.ID,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		DateOfBirth:    p.DateOfBirth.Format("2006-01-02"),
		Gender:         p.Gender,
		ParentName:     p.ParentName,
		Phone:          p.Phone,
		PatientPhone:   p.PatientPhone,
		City:           p.City,
		Area:           p.Area,
		Street:         p.Street,
		Apartment:      p.Apartment,
		FullAddress:    p.FullAddress(),
		BloodType:      p.BloodType,
		Allergies:      p.Allergies,
		MedicalHistory: p.MedicalHistory,
		VisitDateTime:  p.VisitDateTime,
		VisitType:      p.VisitType,
		HallStatus:     p.HallStatus,
		DoctorComments: p.DoctorComments,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toPatientResponses(patients []*entities.Patient) []PatientResponse {
	out := make([]PatientResponse, 0, len(patients))
	for _, p := range patients {
		out = append(out, toPatientResponse(p))
	}
	return out
}
