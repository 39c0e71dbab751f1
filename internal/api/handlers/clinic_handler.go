package handlers

import (
	"net/http"

	"github.com/zatekoja/pediatric-clinic/internal/api/middleware"
	"github.com/zatekoja/pediatric-clinic/internal/application/services"
)

// ClinicHandler handles the clinic profile
type ClinicHandler struct {
	config *services.ClinicConfigService
}

// NewClinicHandler creates a new clinic handler
func NewClinicHandler(config *services.ClinicConfigService) *ClinicHandler {
	return &ClinicHandler{config: config}
}

// GetConfig handles GET /api/clinic/config
func (h *ClinicHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config.Get(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, cfg)
}

// UpdateConfig handles PUT /api/clinic/config
func (h *ClinicHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req services.ClinicConfigUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.config.Update(r.Context(), middleware.IdentityFromContext(r.Context()), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Clinic configuration updated successfully",
		"config":  cfg,
	})
}
