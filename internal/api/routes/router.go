package routes

import (
	"net/http"

	"github.com/zatekoja/pediatric-clinic/internal/api/handlers"
	"github.com/zatekoja/pediatric-clinic/internal/api/middleware"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/observability"
)

// PublicPaths are the /api routes reachable without a session
var PublicPaths = []string{
	"/api/auth/login",
	"/api/auth/logout",
	"/api/auth/check-session",
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	authHandler    *handlers.AuthHandler
	userHandler    *handlers.UserHandler
	clinicHandler  *handlers.ClinicHandler
	patientHandler *handlers.PatientHandler
	hallHandler    *handlers.HallHandler
	sseHandler     *handlers.SSEHandler

	authenticator  middleware.Authenticator
	cookieName     string
	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	clinicHandler *handlers.ClinicHandler,
	patientHandler *handlers.PatientHandler,
	hallHandler *handlers.HallHandler,
	sseHandler *handlers.SSEHandler,
	authenticator middleware.Authenticator,
	cookieName string,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		authHandler:    authHandler,
		userHandler:    userHandler,
		clinicHandler:  clinicHandler,
		patientHandler: patientHandler,
		hallHandler:    hallHandler,
		sseHandler:     sseHandler,

		authenticator:  authenticator,
		cookieName:     cookieName,
		allowedOrigins: allowedOrigins,
		metrics:        metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Auth endpoints
	r.mux.HandleFunc("POST /api/auth/login", r.authHandler.Login)
	r.mux.HandleFunc("POST /api/auth/logout", r.authHandler.Logout)
	r.mux.HandleFunc("GET /api/auth/current-user", r.authHandler.CurrentUser)
	r.mux.HandleFunc("GET /api/auth/check-session", r.authHandler.CheckSession)
	r.mux.HandleFunc("POST /api/auth/change-password", r.authHandler.ChangePassword)

	// User management endpoints
	r.mux.HandleFunc("GET /api/users", r.userHandler.ListUsers)
	r.mux.HandleFunc("POST /api/users", r.userHandler.CreateUser)
	r.mux.HandleFunc("GET /api/users/{id}", r.userHandler.GetUser)
	r.mux.HandleFunc("PUT /api/users/{id}", r.userHandler.UpdateUser)
	r.mux.HandleFunc("DELETE /api/users/{id}", r.userHandler.DeleteUser)

	// Clinic configuration endpoints
	r.mux.HandleFunc("GET /api/clinic/config", r.clinicHandler.GetConfig)
	r.mux.HandleFunc("PUT /api/clinic/config", r.clinicHandler.UpdateConfig)

	// Patient registry endpoints
	r.mux.HandleFunc("GET /api/patients", r.patientHandler.ListPatients)
	r.mux.HandleFunc("POST /api/patients", r.patientHandler.CreatePatient)
	r.mux.HandleFunc("GET /api/patients/search", r.patientHandler.SearchPatients)
	r.mux.HandleFunc("GET /api/patients/search-history/{name}", r.patientHandler.SearchHistory)
	r.mux.HandleFunc("GET /api/patients/{id}", r.patientHandler.GetPatient)
	r.mux.HandleFunc("PUT /api/patients/{id}", r.patientHandler.UpdatePatient)
	r.mux.HandleFunc("DELETE /api/patients/{id}", r.patientHandler.DeletePatient)
	r.mux.HandleFunc("POST /api/patients/{id}/comments", r.patientHandler.SaveComments)
	r.mux.HandleFunc("POST /api/patients/{id}/report", r.patientHandler.GenerateReport)
	r.mux.HandleFunc("POST /api/patients/{id}/history-report", r.patientHandler.GenerateHistoryReport)

	// Hall workflow endpoints
	r.mux.HandleFunc("POST /api/patients/{id}/reservation", r.hallHandler.CreateReservation)
	r.mux.HandleFunc("POST /api/patients/{id}/hall-status", r.hallHandler.UpdateHallStatus)
	r.mux.HandleFunc("POST /api/patients/submit-to-hall", r.hallHandler.SubmitToHall)
	r.mux.HandleFunc("POST /api/patients/return-to-today", r.hallHandler.ReturnToToday)
	r.mux.HandleFunc("POST /api/patients/finish-selected", r.hallHandler.FinishSelected)
	r.mux.HandleFunc("POST /api/patients/daily-reset", r.hallHandler.DailyReset)
	r.mux.HandleFunc("GET /api/patients/today", r.hallHandler.TodayPatients)
	r.mux.HandleFunc("GET /api/patients/awaiting", r.hallHandler.AwaitingPatients)
	r.mux.HandleFunc("GET /api/patients/finished", r.hallHandler.FinishedPatients)
	r.mux.HandleFunc("GET /api/statistics", r.hallHandler.Statistics)

	// Hall board stream
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/hall", r.sseHandler.StreamHall)
	}

	// Apply middleware in reverse order (last middleware wraps first).
	// Auth wraps logging so access logs carry the caller.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.AuthMiddleware(r.authenticator, r.cookieName, PublicPaths...)(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// Compression and no-store headers for patient data
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so rejected requests still get CORS headers
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
