package handlers

import (
	"net/http"
	"time"

	"github.com/zatekoja/pediatric-clinic/internal/api/middleware"
	"github.com/zatekoja/pediatric-clinic/internal/application/services"
	"github.com/zatekoja/pediatric-clinic/pkg/config"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

// AuthHandler handles login sessions
type AuthHandler struct {
	auth    *services.AuthService
	session config.AuthConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *services.AuthService, session config.AuthConfig) *AuthHandler {
	return &AuthHandler{auth: auth, session: session}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.session.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.session.SessionTTL),
	})

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), middleware.TokenFromContext(r.Context())); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.session.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.session.CookieSecure,
		MaxAge:   -1,
	})
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// CurrentUser handles GET /api/auth/current-user
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	_, user, err := h.auth.Authenticate(r.Context(), middleware.TokenFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// CheckSession handles GET /api/auth/check-session. It never fails for an
// anonymous caller.
func (h *AuthHandler) CheckSession(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionToken(r, h.session.CookieName)
	_, user, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeUnauthorized) {
			respondWithJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
			return
		}
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          user,
	})
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	actor := middleware.IdentityFromContext(r.Context())
	if err := h.auth.ChangePassword(r.Context(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}
