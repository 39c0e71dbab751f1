package handlers

import (
	"fmt"
	"net/http"

	"github.com/zatekoja/pediatric-clinic/internal/api/middleware"
	"github.com/zatekoja/pediatric-clinic/internal/application/services"
)

// HallHandler handles the waiting-hall workflow and dashboard figures
type HallHandler struct {
	hall  *services.HallService
	stats *services.StatisticsService
}

// NewHallHandler creates a new hall handler
func NewHallHandler(hall *services.HallService, stats *services.StatisticsService) *HallHandler {
	return &HallHandler{hall: hall, stats: stats}
}

type patientIDsRequest struct {
	PatientIDs []string `json:"patient_ids"`
}

// CreateReservation handles POST /api/patients/{id}/reservation
func (h *HallHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req services.ReservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patient, err := h.hall.CreateReservation(r.Context(), middleware.IdentityFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Reservation created successfully",
		"patient": toPatientResponse(patient),
	})
}

// UpdateHallStatus handles POST /api/patients/{id}/hall-status
func (h *HallHandler) UpdateHallStatus(w http.ResponseWriter, r *http.Request) {
	var req services.HallStatusUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	patient, err := h.hall.UpdateHallStatus(r.Context(), middleware.IdentityFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Hall status updated successfully",
		"patient": toPatientResponse(patient),
	})
}

// SubmitToHall handles POST /api/patients/submit-to-hall
func (h *HallHandler) SubmitToHall(w http.ResponseWriter, r *http.Request) {
	count, err := h.hall.SubmitToHall(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	message := `No "In" patients to submit to hall`
	if count > 0 {
		message = fmt.Sprintf(`%d "In" patients submitted to awaiting hall successfully`, count)
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":         message,
		"submitted_count": count,
	})
}

// ReturnToToday handles POST /api/patients/return-to-today
func (h *HallHandler) ReturnToToday(w http.ResponseWriter, r *http.Request) {
	var req patientIDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	count, err := h.hall.ReturnToToday(r.Context(), middleware.IdentityFromContext(r.Context()), req.PatientIDs)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	message := "No patients found in awaiting hall"
	if count > 0 {
		message = fmt.Sprintf("%d patients returned to today's patients", count)
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":        message,
		"returned_count": count,
	})
}

// FinishSelected handles POST /api/patients/finish-selected
func (h *HallHandler) FinishSelected(w http.ResponseWriter, r *http.Request) {
	var req patientIDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	count, err := h.hall.FinishSelected(r.Context(), middleware.IdentityFromContext(r.Context()), req.PatientIDs)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	message := "No patients found in awaiting hall"
	if count > 0 {
		message = fmt.Sprintf("%d patients marked as finished", count)
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":        message,
		"finished_count": count,
	})
}

// DailyReset handles POST /api/patients/daily-reset
func (h *HallHandler) DailyReset(w http.ResponseWriter, r *http.Request) {
	result, err := h.hall.DailyReset(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Daily reset completed successfully",
		"reset_count":   result.ResetCount,
		"cleared_count": result.ClearedCount,
	})
}

// TodayPatients handles GET /api/patients/today
func (h *HallHandler) TodayPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.hall.TodayPatients(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPatientResponses(patients))
}

// AwaitingPatients handles GET /api/patients/awaiting
func (h *HallHandler) AwaitingPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.hall.AwaitingPatients(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPatientResponses(patients))
}

// FinishedPatients handles GET /api/patients/finished
func (h *HallHandler) FinishedPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.hall.FinishedPatients(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toPatientResponses(patients))
}

// Statistics handles GET /api/statistics
func (h *HallHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Compute(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
