package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

// FacilityService is the facility behaviour the handlers depend on
type FacilityService interface {
	GetByID(ctx context.Context, id string) (*entities.Facility, error)
	Search(ctx context.Context, filter repositories.FacilityFilter) (*repositories.FacilityPage, error)
	SearchAll(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error)
	ListAll(ctx context.Context) ([]*entities.Facility, error)
}

// FacilityHandler handles facility-related HTTP requests
type FacilityHandler struct {
	service FacilityService
}

// NewFacilityHandler creates a new facility handler
func NewFacilityHandler(service FacilityService) *FacilityHandler {
	return &FacilityHandler{service: service}
}

// GetFacility handles GET /facilities/{facility_id}
func (h *FacilityHandler) GetFacility(w http.ResponseWriter, r *http.Request) {
	facilityID := r.PathValue("facility_id")
	if facilityID == "" {
		respondWithError(w, http.StatusBadRequest, apperrors.CodeValidation, "facility_id is required")
		return
	}

	facility, err := h.service.GetByID(r.Context(), facilityID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toFacilityResponse(facility))
}

// ListFacilities handles GET /facilities, the paginated filtered search
func (h *FacilityHandler) ListFacilities(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFacilityFilter(r.URL.Query())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	page, err := h.service.Search(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toFacilityPageResponse(page))
}

// SearchFacilities handles GET /facilities/search. It applies the same
// filters without pagination and returns a bare array.
func (h *FacilityHandler) SearchFacilities(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFacilityFilter(r.URL.Query())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	facilities, err := h.service.SearchAll(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toFacilityResponses(facilities))
}

// ListAllFacilities handles GET /facilities/all
func (h *FacilityHandler) ListAllFacilities(w http.ResponseWriter, r *http.Request) {
	facilities, err := h.service.ListAll(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toFacilityListItems(facilities))
}

func parseFacilityFilter(q url.Values) (repositories.FacilityFilter, error) {
	filter := repositories.FacilityFilter{
		Name:         q.Get("name"),
		FacilityType: q.Get("facility_type"),
		Location:     q.Get("location"),
	}

	if raw := q.Get("capacity"); raw != "" {
		capacity, err := parseNonNegative("capacity", raw)
		if err != nil {
			return filter, err
		}
		filter.MinCapacity = &capacity
	}

	var err error
	if filter.Limit, err = parseOptionalNonNegative(q, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseOptionalNonNegative(q, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseOptionalNonNegative(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	return parseNonNegative(name, raw)
}

func parseNonNegative(name, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.NewValidationError(name + " must be a non-negative integer")
	}
	return v, nil
}
