package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

// UserService is the user behaviour the handlers depend on
type UserService interface {
	GetByID(ctx context.Context, id string) (*entities.User, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

// GetUser handles GET /users/{user_id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, apperrors.CodeValidation, "user_id is required")
		return
	}

	user, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toUserResponse(user))
}
