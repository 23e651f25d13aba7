package routes

import (
	"net/http"

	"github.com/zatekoja/facilityreservation/backend/internal/api/handlers"
	"github.com/zatekoja/facilityreservation/backend/internal/api/middleware"
	"github.com/zatekoja/facilityreservation/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	systemHandler      *handlers.SystemHandler
	userHandler        *handlers.UserHandler
	facilityHandler    *handlers.FacilityHandler
	reservationHandler *handlers.ReservationHandler

	metrics        *observability.Metrics
	allowedOrigins []string
}

// NewRouter creates a new router
func NewRouter(
	systemHandler *handlers.SystemHandler,
	userHandler *handlers.UserHandler,
	facilityHandler *handlers.FacilityHandler,
	reservationHandler *handlers.ReservationHandler,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		systemHandler:      systemHandler,
		userHandler:        userHandler,
		facilityHandler:    facilityHandler,
		reservationHandler: reservationHandler,
		metrics:            metrics,
		allowedOrigins:     allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /{$}", r.systemHandler.Root)
	r.mux.HandleFunc("GET /health", r.systemHandler.Health)

	// User endpoints
	r.mux.HandleFunc("GET /users/{user_id}", r.userHandler.GetUser)

	// Facility endpoints. Literal segments win over {facility_id}.
	r.mux.HandleFunc("GET /facilities", r.facilityHandler.ListFacilities)
	r.mux.HandleFunc("GET /facilities/search", r.facilityHandler.SearchFacilities)
	r.mux.HandleFunc("GET /facilities/all", r.facilityHandler.ListAllFacilities)
	r.mux.HandleFunc("GET /facilities/{facility_id}", r.facilityHandler.GetFacility)

	// Reservation endpoints
	r.mux.HandleFunc("POST /reservations", r.reservationHandler.CreateReservation)
	r.mux.HandleFunc("GET /reservations/{reservation_id}", r.reservationHandler.GetReservation)
	r.mux.HandleFunc("DELETE /reservations/{reservation_id}", r.reservationHandler.CancelReservation)

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS is outermost so error and preflight responses carry its headers.
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
