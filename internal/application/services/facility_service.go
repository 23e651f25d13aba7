package services

import (
	"context"
	"strings"

	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

// FacilityService handles business logic for facilities
type FacilityService struct {
	repo repositories.FacilityRepository
}

// NewFacilityService creates a new facility service
func NewFacilityService(repo repositories.FacilityRepository) *FacilityService {
	return &FacilityService{repo: repo}
}

// Create validates and stores a new facility
func (s *FacilityService) Create(ctx context.Context, facility *entities.Facility) error {
	if err := validateFacility(facility); err != nil {
		return err
	}
	return s.repo.Create(ctx, facility)
}

// GetByID retrieves a facility by ID
func (s *FacilityService) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	return s.repo.GetByID(ctx, id)
}

// Search returns one page of facilities matching filter
func (s *FacilityService) Search(ctx context.Context, filter repositories.FacilityFilter) (*repositories.FacilityPage, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.Search(ctx, filter.Normalized())
}

// SearchAll returns every facility matching filter
func (s *FacilityService) SearchAll(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.SearchAll(ctx, filter.Normalized())
}

// ListAll returns every facility
func (s *FacilityService) ListAll(ctx context.Context) ([]*entities.Facility, error) {
	return s.repo.ListAll(ctx)
}

func validateFilter(filter repositories.FacilityFilter) error {
	if filter.MinCapacity != nil && *filter.MinCapacity < 0 {
		return apperrors.NewValidationError("capacity must not be negative")
	}
	if filter.Limit < 0 {
		return apperrors.NewValidationError("limit must not be negative")
	}
	if filter.Offset < 0 {
		return apperrors.NewValidationError("offset must not be negative")
	}
	return nil
}

func validateFacility(f *entities.Facility) error {
	var problems []string
	if strings.TrimSpace(f.ID) == "" {
		problems = append(problems, "facility_id is required")
	}
	if strings.TrimSpace(f.Name) == "" {
		problems = append(problems, "facility_name is required")
	}
	if f.Capacity <= 0 {
		problems = append(problems, "capacity must be positive")
	}
	if f.ManagementType == "" {
		f.ManagementType = entities.ManagementTypeInternal
	}
	if !f.ManagementType.Valid() {
		problems = append(problems, "management_type must be internal or external")
	}
	if f.ExternalID != nil && f.ManagementType != entities.ManagementTypeExternal {
		problems = append(problems, "external_id is only allowed for externally managed facilities")
	}
	if len(f.Equipment) > 0 {
		equipment, err := entities.ParseEquipment(f.Equipment)
		if err != nil {
			problems = append(problems, "equipment must be valid JSON")
		} else {
			f.Equipment = equipment
		}
	}
	if len(problems) > 0 {
		return apperrors.NewValidationError(strings.Join(problems, "; "))
	}
	return nil
}
