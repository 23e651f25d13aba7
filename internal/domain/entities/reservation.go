package entities

import (
	"time"
)

// Reservation is a committed booking of a facility for a half-open [Start, End) interval
type Reservation struct {
	ID            int64     `json:"reservation_id" db:"reservation_id"`
	UserID        string    `json:"user_id" db:"user_id"`
	FacilityID    string    `json:"facility_id" db:"facility_id"`
	StartTime     time.Time `json:"start_time" db:"start_time"`
	EndTime       time.Time `json:"end_time" db:"end_time"`
	AttendeeCount int       `json:"attendee_count" db:"attendee_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Overlaps reports whether r intersects [start, end). Touching intervals do not overlap.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && r.EndTime.After(start)
}

// ReservationRequest is an inbound booking request
type ReservationRequest struct {
	FacilityID    string
	UserID        string
	StartTime     time.Time
	EndTime       time.Time
	AttendeeCount int
}

// ReservationStatusSuccess is the status reported for admitted bookings and cancellations
const ReservationStatusSuccess = "success"

// ReservationConfirmation is returned after a booking is committed or cancelled
type ReservationConfirmation struct {
	ReservationID   int64  `json:"reservation_id"`
	FacilityName    string `json:"facility_name"`
	ReservationDate string `json:"reservation_date"`
	TimeSlot        string `json:"time_slot"`
	Status          string `json:"status"`
	Message         string `json:"message"`
}
