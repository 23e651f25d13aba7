package repositories

import (
	"context"
	"strings"
	"unicode"

	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
)

// Pagination defaults for facility searches
const (
	DefaultFacilityLimit = 10
	MaxFacilityLimit     = 100
)

// FacilityRepository defines the interface for facility data operations
type FacilityRepository interface {
	// Create stores a new facility
	Create(ctx context.Context, facility *entities.Facility) error

	// GetByID retrieves a facility by ID
	GetByID(ctx context.Context, id string) (*entities.Facility, error)

	// Search returns one page of facilities matching filter and the total match count
	Search(ctx context.Context, filter FacilityFilter) (*FacilityPage, error)

	// SearchAll returns every facility matching filter, ignoring pagination
	SearchAll(ctx context.Context, filter FacilityFilter) ([]*entities.Facility, error)

	// ListAll returns every facility
	ListAll(ctx context.Context) ([]*entities.Facility, error)
}

// FacilityFilter holds the optional search filters. Zero values impose no constraint.
type FacilityFilter struct {
	Name         string
	FacilityType string
	Location     string
	MinCapacity  *int
	Limit        int
	Offset       int
}

// FacilityPage is one page of a facility search
type FacilityPage struct {
	Facilities []*entities.Facility
	TotalCount int
	Limit      int
	Offset     int
}

// Normalized trims the text filters and clamps pagination to its defaults
func (f FacilityFilter) Normalized() FacilityFilter {
	f.Name = strings.TrimSpace(f.Name)
	f.FacilityType = strings.TrimSpace(f.FacilityType)
	f.Location = strings.TrimSpace(f.Location)
	if f.Limit <= 0 {
		f.Limit = DefaultFacilityLimit
	}
	if f.Limit > MaxFacilityLimit {
		f.Limit = MaxFacilityLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// LocationTokens splits a location query into lower-cased runs of letters and
// digits. Full-text operators and punctuation never survive tokenization.
func LocationTokens(query string) []string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}
