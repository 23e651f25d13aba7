package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

// ReservationService is the admission behaviour the handlers depend on
type ReservationService interface {
	Create(ctx context.Context, req entities.ReservationRequest) (*entities.ReservationConfirmation, error)
	Cancel(ctx context.Context, id int64) (*entities.ReservationConfirmation, error)
	Get(ctx context.Context, id int64) (*entities.Reservation, error)
}

// timestampLayouts are tried in order; layouts without a zone are read in the
// handler's configured location
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

type createReservationRequest struct {
	FacilityID    string `json:"facility_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	UserID        string `json:"user_id"`
	AttendeeCount int    `json:"attendee_count"`
}

// ReservationHandler handles reservation HTTP requests
type ReservationHandler struct {
	service  ReservationService
	location *time.Location
}

// NewReservationHandler creates a new reservation handler. Timestamps without
// an explicit offset are interpreted in loc.
func NewReservationHandler(service ReservationService, loc *time.Location) *ReservationHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReservationHandler{service: service, location: loc}
}

// CreateReservation handles POST /reservations
func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var body createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, apperrors.CodeValidation, invalidJSONBodyMessage)
		return
	}

	start, err := h.parseTimestamp("start_time", body.StartTime)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	end, err := h.parseTimestamp("end_time", body.EndTime)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	confirmation, err := h.service.Create(r.Context(), entities.ReservationRequest{
		FacilityID:    body.FacilityID,
		UserID:        body.UserID,
		StartTime:     start,
		EndTime:       end,
		AttendeeCount: body.AttendeeCount,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, confirmation)
}

// GetReservation handles GET /reservations/{reservation_id}
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}

	reservation, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toReservationResponse(reservation))
}

// CancelReservation handles DELETE /reservations/{reservation_id}
func (h *ReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}

	confirmation, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, confirmation)
}

func reservationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("reservation_id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, apperrors.CodeValidation, "reservation_id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *ReservationHandler) parseTimestamp(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperrors.NewValidationError(field + " is required")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, h.location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.NewValidationError(field + " must be an ISO-8601 timestamp")
}
