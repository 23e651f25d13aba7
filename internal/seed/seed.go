// Package seed loads demo users and facilities into a record store.
package seed

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilityreservation/backend/internal/application/services"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

// DefaultPassword is the demo secret given to every seeded user
const DefaultPassword = "change-me-please"

// Users returns the demo user accounts
func Users() []services.RegisterUserInput {
	return []services.RegisterUserInput{
		{ID: "U001", Name: "Sato Haruto", Email: "sato@m-fudosan.example", Role: "admin", Password: DefaultPassword},
		{ID: "U002", Name: "Suzuki Yui", Email: "suzuki@m-fudosan.example", Role: "member", Password: DefaultPassword},
		{ID: "U003", Name: "Takahashi Ren", Email: "takahashi@m-fudosan.example", Role: "member", Password: DefaultPassword},
	}
}

// Facilities returns the demo facility catalogue
func Facilities() []*entities.Facility {
	partnerID := "PX-2201"
	return []*entities.Facility{
		{
			ID: "F001", Name: "Conference Room A", FacilityType: "meeting_room", Capacity: 12,
			Location:       "Tokyo Marunouchi 5F",
			Equipment:      json.RawMessage(`{"projector":true,"whiteboard":true,"video_conference":true}`),
			ManagementType: entities.ManagementTypeInternal,
		},
		{
			ID: "F002", Name: "Conference Room B", FacilityType: "meeting_room", Capacity: 6,
			Location:       "Tokyo Marunouchi 5F",
			Equipment:      json.RawMessage(`["whiteboard"]`),
			ManagementType: entities.ManagementTypeInternal,
		},
		{
			ID: "F003", Name: "Main Hall", FacilityType: "hall", Capacity: 150,
			Location:       "Tokyo Shinagawa 1F",
			Equipment:      json.RawMessage(`{"microphones":4,"stage":true,"projector":true}`),
			ManagementType: entities.ManagementTypeInternal,
		},
		{
			ID: "F004", Name: "Model Room Umeda", FacilityType: "showroom", Capacity: 20,
			Location:       "Osaka Umeda Grand Front",
			Equipment:      json.RawMessage(`["sample_kitchen","catalogue_display"]`),
			ManagementType: entities.ManagementTypeExternal,
			ExternalID:     &partnerID,
		},
		{
			ID: "F005", Name: "Phone Booth 1", FacilityType: "booth", Capacity: 1,
			Location:       "Tokyo Marunouchi 3F",
			ManagementType: entities.ManagementTypeInternal,
		},
	}
}

// UserRegistrar stores new users with hashed credentials
type UserRegistrar interface {
	Register(ctx context.Context, in services.RegisterUserInput) (*entities.User, error)
}

// FacilityCreator stores new facilities
type FacilityCreator interface {
	Create(ctx context.Context, facility *entities.Facility) error
}

// Run loads the demo data. Records that already exist are skipped, so Run
// can be repeated against the same store.
func Run(ctx context.Context, users UserRegistrar, facilities FacilityCreator) error {
	for _, u := range Users() {
		if _, err := users.Register(ctx, u); err != nil {
			if skippable(err) {
				log.Info().Str("user_id", u.ID).Msg("seed user already present")
				continue
			}
			return err
		}
		log.Info().Str("user_id", u.ID).Msg("seeded user")
	}

	for _, f := range Facilities() {
		if err := facilities.Create(ctx, f); err != nil {
			if skippable(err) {
				log.Info().Str("facility_id", f.ID).Msg("seed facility already present")
				continue
			}
			return err
		}
		log.Info().Str("facility_id", f.ID).Msg("seeded facility")
	}
	return nil
}

func skippable(err error) bool {
	appErr, ok := apperrors.As(err)
	return ok && appErr.Type == apperrors.ErrorTypeValidation
}
