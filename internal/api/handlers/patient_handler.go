package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/zatekoja/pediatric-clinic/internal/api/middleware"
	"github.com/zatekoja/pediatric-clinic/internal/application/services"
)

// PatientHandler handles the patient registry
type PatientHandler struct {
	patients *services.PatientService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(patients *services.PatientService) *PatientHandler {
	return &PatientHandler{patients: patients}
}

type commentsRequest struct {
	Comments string `json:"comments"`
}

// ListPatients handles GET /api/patients
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patients.List(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPatientResponses(patients))
}

// GetPatient handles GET /api/patients/{id}
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patient, err := h.patients.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPatientResponse(patient))
}

// CreatePatient handles POST /api/patients
func (h *PatientHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterPatientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patient, err := h.patients.Register(r.Context(), middleware.IdentityFromContext(r.Context()), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toPatientResponse(patient))
}

// UpdatePatient handles PUT /api/patients/{id}
func (h *PatientHandler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	var req services.UpdatePatientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patient, err := h.patients.Update(r.Context(), middleware.IdentityFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPatientResponse(patient))
}

// DeletePatient handles DELETE /api/patients/{id}
func (h *PatientHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	if err := h.patients.Delete(r.Context(), middleware.IdentityFromContext(r.Context()), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Patient deleted successfully"})
}

// SearchPatients handles GET /api/patients/search?q=
func (h *PatientHandler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patients.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPatientResponses(patients))
}

// SearchHistory handles GET /api/patients/search-history/{name}
func (h *PatientHandler) SearchHistory(w http.ResponseWriter, r *http.Request) {
	histories, err := h.patients.SearchHistory(r.Context(), r.PathValue("name"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	type historyResponse struct {
		Patient      PatientResponse        `json:"patient_info"`
		VisitHistory []services.VisitRecord `json:"visit_history"`
	}
	out := make([]historyResponse, 0, len(histories))
	for _, history := range histories {
		out = append(out, historyResponse{Patient: toPatientResponse(history.Patient), VisitHistory: history.VisitHistory})
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"patients_found":    len(out),
		"patient_histories": out,
	})
}

// SaveComments handles POST /api/patients/{id}/comments
func (h *PatientHandler) SaveComments(w http.ResponseWriter, r *http.Request) {
	var req commentsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patient, err := h.patients.SaveComments(r.Context(), middleware.IdentityFromContext(r.Context()), r.PathValue("id"), req.Comments)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Comments saved successfully",
		"patient_id": patient.ID,
	})
}

// GenerateReport handles POST /api/patients/{id}/report
func (h *PatientHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	h.sendReport(w, r, h.patients.GenerateReport)
}

// GenerateHistoryReport handles POST /api/patients/{id}/history-report
func (h *PatientHandler) GenerateHistoryReport(w http.ResponseWriter, r *http.Request) {
	h.sendReport(w, r, h.patients.GenerateHistoryReport)
}

type reportFunc func(ctx context.Context, id string, w io.Writer) (string, error)

// sendReport renders the whole document before writing any header so that a
// failure still produces a JSON error
func (h *PatientHandler) sendReport(w http.ResponseWriter, r *http.Request, generate reportFunc) {
	var buf bytes.Buffer
	filename, err := generate(r.Context(), r.PathValue("id"), &buf)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", h.patients.ReportContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
