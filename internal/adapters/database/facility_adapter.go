package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityreservation/backend/internal/infrastructure/clients/sqldb"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

// FacilityAdapter implements the FacilityRepository interface
type FacilityAdapter struct {
	client *sqldb.Client
}

// NewFacilityAdapter creates a new facility adapter
func NewFacilityAdapter(client *sqldb.Client) repositories.FacilityRepository {
	return &FacilityAdapter{
		client: client,
	}
}

// facilityRow is the stored shape of a facility
type facilityRow struct {
	ID             string         `db:"facility_id"`
	Name           string         `db:"facility_name"`
	FacilityType   string         `db:"facility_type"`
	Capacity       int            `db:"capacity"`
	Location       string         `db:"location"`
	Equipment      sql.NullString `db:"equipment"`
	ManagementType string         `db:"management_type"`
	ExternalID     sql.NullString `db:"external_id"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r *facilityRow) toEntity() (*entities.Facility, error) {
	equipment, err := entities.ParseEquipment([]byte(r.Equipment.String))
	if err != nil {
		return nil, apperrors.NewDataIntegrityError("stored equipment for facility "+r.ID+" is not valid JSON", err)
	}

	facility := &entities.Facility{
		ID:             r.ID,
		Name:           r.Name,
		FacilityType:   r.FacilityType,
		Capacity:       r.Capacity,
		Location:       r.Location,
		Equipment:      equipment,
		ManagementType: entities.ManagementType(r.ManagementType),
		CreatedAt:      r.CreatedAt,
	}
	if r.ExternalID.Valid {
		externalID := r.ExternalID.String
		facility.ExternalID = &externalID
	}
	return facility, nil
}

func toEntities(rows []facilityRow) ([]*entities.Facility, error) {
	facilities := make([]*entities.Facility, 0, len(rows))
	for i := range rows {
		facility, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		facilities = append(facilities, facility)
	}
	return facilities, nil
}

// Create creates a new facility
func (a *FacilityAdapter) Create(ctx context.Context, facility *entities.Facility) error {
	if facility.CreatedAt.IsZero() {
		facility.CreatedAt = time.Now()
	}

	record := goqu.Record{
		"facility_id":     facility.ID,
		"facility_name":   facility.Name,
		"facility_type":   facility.FacilityType,
		"capacity":        facility.Capacity,
		"location":        facility.Location,
		"equipment":       nullString(string(facility.Equipment)),
		"management_type": string(facility.ManagementType),
		"external_id":     nullStringPtr(facility.ExternalID),
		"created_at":      facility.CreatedAt.UTC(),
	}

	query, args, err := a.client.Dialect().Insert(facilitiesTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build facility insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if sqldb.IsUniqueViolation(err) {
			return apperrors.NewValidationError("facility " + facility.ID + " already exists")
		}
		return apperrors.NewInternalError("failed to create facility", err)
	}
	return nil
}

// GetByID retrieves a facility by ID
func (a *FacilityAdapter) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	facility, err := getFacility(ctx, a.client.DB(), a.client.Dialect(), id)
	if err != nil {
		return nil, err
	}
	if facility == nil {
		return nil, apperrors.NewNotFoundError(apperrors.CodeFacilityNotFound, "Facility not found")
	}
	return facility, nil
}

// Search returns one page of matching facilities and the total match count
func (a *FacilityAdapter) Search(ctx context.Context, filter repositories.FacilityFilter) (*repositories.FacilityPage, error) {
	filter = filter.Normalized()
	q := FacilityQueryFromFilter(a.client.Driver(), filter, true)

	countQuery, countArgs, err := q.CountSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build facility count", err)
	}
	var total int
	if err := a.client.DB().GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, apperrors.NewInternalError("failed to count facilities", err)
	}

	facilities, err := a.selectFacilities(ctx, q)
	if err != nil {
		return nil, err
	}

	return &repositories.FacilityPage{
		Facilities: facilities,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

// SearchAll returns every matching facility without pagination
func (a *FacilityAdapter) SearchAll(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	return a.selectFacilities(ctx, FacilityQueryFromFilter(a.client.Driver(), filter.Normalized(), false))
}

// ListAll returns every facility ordered by ID
func (a *FacilityAdapter) ListAll(ctx context.Context) ([]*entities.Facility, error) {
	return a.selectFacilities(ctx, NewFacilityQuery(a.client.Driver()))
}

func (a *FacilityAdapter) selectFacilities(ctx context.Context, q *FacilityQuery) ([]*entities.Facility, error) {
	query, args, err := q.SelectSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build facility query", err)
	}

	var rows []facilityRow
	if err := a.client.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to search facilities", err)
	}
	return toEntities(rows)
}

// getFacility reads one facility row. It returns nil, nil when the row is absent.
func getFacility(ctx context.Context, q sqlx.QueryerContext, dialect goqu.DialectWrapper, id string) (*entities.Facility, error) {
	query, args, err := dialect.From(facilitiesTable).Prepared(true).
		Select(facilityColumns...).
		Where(goqu.Ex{"facility_id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build facility lookup", err)
	}

	var row facilityRow
	err = sqlx.GetContext(ctx, q, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get facility", err)
	}
	return row.toEntity()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
