package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityreservation/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

const (
	statusSuccess          = "success"
	noFacilitiesMessage    = "No facilities matched the given conditions"
	internalErrorMessage   = "Internal server error"
	internalErrorCode      = "InternalServerError"
	invalidJSONBodyMessage = "Request body must be a valid JSON object"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FacilityResponse is the external form of a facility. Capacity is an integer.
type FacilityResponse struct {
	ID             string          `json:"facility_id"`
	Name           string          `json:"facility_name"`
	FacilityType   string          `json:"facility_type"`
	Capacity       int             `json:"capacity"`
	Location       string          `json:"location"`
	Equipment      json.RawMessage `json:"equipment"`
	ManagementType string          `json:"management_type"`
	ExternalID     *string         `json:"external_id,omitempty"`
}

// FacilityListItem is the legacy list-all form; capacity is rendered as a decimal string
type FacilityListItem struct {
	ID           string `json:"facility_id"`
	Name         string `json:"facility_name"`
	FacilityType string `json:"facility_type"`
	Capacity     string `json:"capacity"`
}

// FacilityPageResponse wraps one page of search results
type FacilityPageResponse struct {
	Status     string             `json:"status"`
	TotalCount int                `json:"total_count"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
	Data       []FacilityResponse `json:"data"`
	Message    string             `json:"message,omitempty"`
}

// UserResponse is the external form of a user. Credentials are never included.
type UserResponse struct {
	ID        string    `json:"user_id"`
	Name      string    `json:"user_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReservationResponse is the external form of a stored reservation
type ReservationResponse struct {
	ID            int64     `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	FacilityID    string    `json:"facility_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	AttendeeCount int       `json:"attendee_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func toFacilityResponse(f *entities.Facility) FacilityResponse {
	equipment := f.Equipment
	if len(equipment) == 0 {
		equipment = json.RawMessage("null")
	}
	return FacilityResponse{
		ID:             f.ID,
		Name:           f.Name,
		FacilityType:   f.FacilityType,
		Capacity:       f.Capacity,
		Location:       f.Location,
		Equipment:      equipment,
		ManagementType: string(f.ManagementType),
		ExternalID:     f.ExternalID,
	}
}

func toFacilityResponses(facilities []*entities.Facility) []FacilityResponse {
	out := make([]FacilityResponse, 0, len(facilities))
	for _, f := range facilities {
		out = append(out, toFacilityResponse(f))
	}
	return out
}

func toFacilityListItems(facilities []*entities.Facility) []FacilityListItem {
	out := make([]FacilityListItem, 0, len(facilities))
	for _, f := range facilities {
		out = append(out, FacilityListItem{
			ID:           f.ID,
			Name:         f.Name,
			FacilityType: f.FacilityType,
			Capacity:     strconv.Itoa(f.Capacity),
		})
	}
	return out
}

func toFacilityPageResponse(page *repositories.FacilityPage) FacilityPageResponse {
	resp := FacilityPageResponse{
		Status:     statusSuccess,
		TotalCount: page.TotalCount,
		Limit:      page.Limit,
		Offset:     page.Offset,
		Data:       toFacilityResponses(page.Facilities),
	}
	if len(resp.Data) == 0 {
		resp.Message = noFacilitiesMessage
	}
	return resp
}

func toUserResponse(u *entities.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toReservationResponse(r *entities.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		FacilityID:    r.FacilityID,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		AttendeeCount: r.AttendeeCount,
		CreatedAt:     r.CreatedAt,
	}
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, code apperrors.Code, message string) {
	respondWithJSON(w, statusCode, ErrorResponse{
		Error:   string(code),
		Message: message,
	})
}

// respondWithAppError maps an error to its status. Server-side failures are
// logged in full and answered with a generic body.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if ok {
		switch appErr.Type {
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Code, appErr.Message)
			return
		case apperrors.ErrorTypeValidation, apperrors.ErrorTypeConflict:
			respondWithError(w, http.StatusBadRequest, appErr.Code, appErr.Message)
			return
		}
	}

	observability.LoggerFromContext(r.Context()).Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	respondWithJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   internalErrorCode,
		Message: internalErrorMessage,
	})
}
