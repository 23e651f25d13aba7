package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
)

// ReservationRepository defines the interface for reservation data operations
type ReservationRepository interface {
	// GetByID retrieves a reservation by ID
	GetByID(ctx context.Context, id int64) (*entities.Reservation, error)

	// WithinTx runs fn inside a single store transaction. The transaction
	// commits when fn returns nil and rolls back on error or panic.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx ReservationTx) error) error
}

// ReservationTx is the set of store operations available to the admission
// controller inside a transaction. Lookups return nil, nil when the row does
// not exist.
type ReservationTx interface {
	// LockFacility reads the facility's id and name and holds the row locked until the
	// transaction ends, serializing bookings for the facility
	LockFacility(ctx context.Context, facilityID string) (*entities.Facility, error)

	// HasOverlap reports whether any reservation of the facility intersects [start, end)
	HasOverlap(ctx context.Context, facilityID string, start, end time.Time) (bool, error)

	// Insert stores reservation and sets its generated ID
	Insert(ctx context.Context, reservation *entities.Reservation) error

	// GetForUpdate reads a reservation and locks it until the transaction ends
	GetForUpdate(ctx context.Context, id int64) (*entities.Reservation, error)

	// Delete removes a reservation permanently
	Delete(ctx context.Context, id int64) error
}
