package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityreservation/backend/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/facilityreservation/backend/pkg/config"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

const reservationsTable = "reservations"

var reservationColumns = []interface{}{
	"reservation_id", "user_id", "facility_id", "start_time", "end_time", "attendee_count", "created_at",
}

// ReservationAdapter implements the ReservationRepository interface
type ReservationAdapter struct {
	client *sqldb.Client
}

// NewReservationAdapter creates a new reservation adapter
func NewReservationAdapter(client *sqldb.Client) repositories.ReservationRepository {
	return &ReservationAdapter{client: client}
}

// GetByID retrieves a reservation by ID
func (a *ReservationAdapter) GetByID(ctx context.Context, id int64) (*entities.Reservation, error) {
	reservation, err := getReservation(ctx, a.client.DB(), a.client.Dialect(), id, false)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, apperrors.NewNotFoundError(apperrors.CodeReservationNotFound, "Reservation not found")
	}
	return reservation, nil
}

// WithinTx runs fn inside one read-committed transaction
func (a *ReservationAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.ReservationTx) error) error {
	err := a.client.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(ctx, &reservationTx{
			tx:      tx,
			driver:  a.client.Driver(),
			dialect: a.client.Dialect(),
		})
	})
	if err == nil {
		return nil
	}
	if sqldb.IsTransient(err) {
		log.Warn().Err(err).Msg("reservation transaction aborted by lock contention")
		return apperrors.NewInternalError("reservation transaction aborted by lock contention", err)
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if sqldb.IsExclusionViolation(err) {
		return apperrors.NewSlotConflictError("The requested time slot overlaps an existing reservation", err)
	}
	return apperrors.NewInternalError("reservation transaction failed", err)
}

type reservationTx struct {
	tx      *sqlx.Tx
	driver  string
	dialect goqu.DialectWrapper
}

// LockFacility takes the facility row lock. Only the identity columns are
// read so that admission never depends on the facility's other attributes.
func (t *reservationTx) LockFacility(ctx context.Context, facilityID string) (*entities.Facility, error) {
	query, args, err := t.dialect.From(facilitiesTable).Prepared(true).
		Select("facility_id", "facility_name").
		Where(goqu.Ex{"facility_id": facilityID}).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build facility lock", err)
	}

	var row struct {
		ID   string `db:"facility_id"`
		Name string `db:"facility_name"`
	}
	err = t.tx.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to lock facility", err)
	}
	return &entities.Facility{ID: row.ID, Name: row.Name}, nil
}

func (t *reservationTx) HasOverlap(ctx context.Context, facilityID string, start, end time.Time) (bool, error) {
	query, args, err := t.dialect.From(reservationsTable).Prepared(true).
		Select("reservation_id").
		Where(
			goqu.Ex{"facility_id": facilityID},
			goqu.C("start_time").Lt(end.UTC()),
			goqu.C("end_time").Gt(start.UTC()),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build overlap check", err)
	}

	var id int64
	err = t.tx.GetContext(ctx, &id, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to check reservation overlap", err)
	}
	return true, nil
}

func (t *reservationTx) Insert(ctx context.Context, reservation *entities.Reservation) error {
	ds := t.dialect.Insert(reservationsTable).Prepared(true).Rows(goqu.Record{
		"user_id":        reservation.UserID,
		"facility_id":    reservation.FacilityID,
		"start_time":     reservation.StartTime.UTC(),
		"end_time":       reservation.EndTime.UTC(),
		"attendee_count": reservation.AttendeeCount,
		"created_at":     reservation.CreatedAt.UTC(),
	})

	if t.driver == config.DriverPostgres {
		query, args, err := ds.Returning("reservation_id").ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build reservation insert", err)
		}
		if err := t.tx.QueryRowxContext(ctx, query, args...).Scan(&reservation.ID); err != nil {
			return t.insertError(err)
		}
		return nil
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build reservation insert", err)
	}
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return t.insertError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.NewInternalError("failed to read reservation id", err)
	}
	reservation.ID = id
	return nil
}

func (t *reservationTx) insertError(err error) error {
	switch {
	case sqldb.IsExclusionViolation(err):
		return apperrors.NewSlotConflictError("The requested time slot overlaps an existing reservation", err)
	case sqldb.IsCheckViolation(err):
		return apperrors.NewValidationError("reservation violates a store constraint")
	default:
		return apperrors.NewInternalError("failed to create reservation", err)
	}
}

func (t *reservationTx) GetForUpdate(ctx context.Context, id int64) (*entities.Reservation, error) {
	return getReservation(ctx, t.tx, t.dialect, id, true)
}

func (t *reservationTx) Delete(ctx context.Context, id int64) error {
	query, args, err := t.dialect.Delete(reservationsTable).Prepared(true).
		Where(goqu.Ex{"reservation_id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build reservation delete", err)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete reservation", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(apperrors.CodeReservationNotFound, "Reservation not found")
	}
	return nil
}

func getReservation(ctx context.Context, q sqlx.QueryerContext, dialect goqu.DialectWrapper, id int64, forUpdate bool) (*entities.Reservation, error) {
	ds := dialect.From(reservationsTable).Prepared(true).
		Select(reservationColumns...).
		Where(goqu.Ex{"reservation_id": id})
	if forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build reservation lookup", err)
	}

	reservation := &entities.Reservation{}
	err = sqlx.GetContext(ctx, q, reservation, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get reservation", err)
	}
	return reservation, nil
}
