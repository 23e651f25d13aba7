package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/providers"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityreservation/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

const (
	reservationDateLayout = "2006-01-02"
	timeSlotLayout        = "15:04"

	createdMessage   = "Reservation created successfully"
	cancelledMessage = "Reservation cancelled successfully"
)

// ReservationService admits, cancels and reads reservations. Every booking of
// a facility is serialized by a per-facility lock and a row lock on the
// facility inside the store transaction.
type ReservationService struct {
	repo     repositories.ReservationRepository
	locker   providers.Locker
	location *time.Location
	now      func() time.Time
	metrics  *observability.Metrics
}

// ReservationOption configures a ReservationService
type ReservationOption func(*ReservationService)

// WithClock replaces time.Now
func WithClock(now func() time.Time) ReservationOption {
	return func(s *ReservationService) { s.now = now }
}

// WithLocation sets the zone used for reservation_date and time_slot
func WithLocation(loc *time.Location) ReservationOption {
	return func(s *ReservationService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithMetrics records admission outcomes
func WithMetrics(metrics *observability.Metrics) ReservationOption {
	return func(s *ReservationService) { s.metrics = metrics }
}

// NewReservationService creates a new reservation service. locker may be nil
// when the store transaction alone serializes bookings.
func NewReservationService(repo repositories.ReservationRepository, locker providers.Locker, opts ...ReservationOption) *ReservationService {
	s := &ReservationService{
		repo:     repo,
		locker:   locker,
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create admits a booking. Checks run in a fixed order: the start time, then
// overlap with existing bookings, then the facility's existence.
func (s *ReservationService) Create(ctx context.Context, req entities.ReservationRequest) (*entities.ReservationConfirmation, error) {
	ctx, span := observability.StartSpan(ctx, "ReservationService.Create")
	defer span.End()

	confirmation, err := s.create(ctx, req)
	s.record(ctx, "create", err)
	observability.RecordError(span, err)
	return confirmation, err
}

func (s *ReservationService) create(ctx context.Context, req entities.ReservationRequest) (*entities.ReservationConfirmation, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := s.now()
	if req.StartTime.Before(now) {
		return nil, apperrors.NewInvalidTimeRangeError("Start time must not be in the past")
	}

	if s.locker != nil {
		release, err := s.locker.Lock(ctx, "facility:"+req.FacilityID)
		if err != nil {
			if errors.Is(err, providers.ErrLockTimeout) {
				return nil, apperrors.NewInternalError("timed out waiting for facility lock", err)
			}
			return nil, apperrors.NewInternalError("failed to lock facility", err)
		}
		defer release()
	}

	var (
		reservation *entities.Reservation
		facility    *entities.Facility
	)
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx repositories.ReservationTx) error {
		var err error
		facility, err = tx.LockFacility(ctx, req.FacilityID)
		if err != nil {
			return err
		}

		overlap, err := tx.HasOverlap(ctx, req.FacilityID, req.StartTime, req.EndTime)
		if err != nil {
			return err
		}
		if overlap {
			return apperrors.NewSlotConflictError("The requested time slot overlaps an existing reservation", nil)
		}

		if facility == nil {
			return apperrors.NewNotFoundError(apperrors.CodeFacilityNotFound, "Facility not found")
		}

		reservation = &entities.Reservation{
			UserID:        req.UserID,
			FacilityID:    req.FacilityID,
			StartTime:     req.StartTime,
			EndTime:       req.EndTime,
			AttendeeCount: req.AttendeeCount,
			CreatedAt:     now,
		}
		return tx.Insert(ctx, reservation)
	})
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Int64("reservation_id", reservation.ID).
		Str("facility_id", reservation.FacilityID).
		Str("user_id", reservation.UserID).
		Time("start_time", reservation.StartTime).
		Time("end_time", reservation.EndTime).
		Msg("reservation created")

	return s.confirmation(reservation, facility, createdMessage), nil
}

// Cancel permanently removes a reservation
func (s *ReservationService) Cancel(ctx context.Context, id int64) (*entities.ReservationConfirmation, error) {
	ctx, span := observability.StartSpan(ctx, "ReservationService.Cancel")
	defer span.End()

	var (
		reservation *entities.Reservation
		facility    *entities.Facility
	)
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx repositories.ReservationTx) error {
		var err error
		reservation, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if reservation == nil {
			return apperrors.NewNotFoundError(apperrors.CodeReservationNotFound, "Reservation not found")
		}

		facility, err = tx.LockFacility(ctx, reservation.FacilityID)
		if err != nil {
			return err
		}
		if facility == nil {
			return apperrors.NewNotFoundError(apperrors.CodeFacilityNotFound, "Facility not found")
		}

		return tx.Delete(ctx, id)
	})
	s.record(ctx, "cancel", err)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Int64("reservation_id", id).
		Str("facility_id", reservation.FacilityID).
		Msg("reservation cancelled")

	return s.confirmation(reservation, facility, cancelledMessage), nil
}

// Get retrieves a reservation by ID
func (s *ReservationService) Get(ctx context.Context, id int64) (*entities.Reservation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ReservationService) confirmation(r *entities.Reservation, f *entities.Facility, message string) *entities.ReservationConfirmation {
	start := r.StartTime.In(s.location)
	end := r.EndTime.In(s.location)
	return &entities.ReservationConfirmation{
		ReservationID:   r.ID,
		FacilityName:    f.Name,
		ReservationDate: start.Format(reservationDateLayout),
		TimeSlot:        start.Format(timeSlotLayout) + "-" + end.Format(timeSlotLayout),
		Status:          entities.ReservationStatusSuccess,
		Message:         message,
	}
}

func (s *ReservationService) record(ctx context.Context, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		if appErr, ok := apperrors.As(err); ok {
			outcome = string(appErr.Code)
		}
	}
	observability.RecordAdmission(ctx, s.metrics, operation, outcome)
}

func validateRequest(req entities.ReservationRequest) error {
	var problems []string
	if strings.TrimSpace(req.FacilityID) == "" {
		problems = append(problems, "facility_id is required")
	}
	if strings.TrimSpace(req.UserID) == "" {
		problems = append(problems, "user_id is required")
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		problems = append(problems, "start_time and end_time are required")
	} else if !req.EndTime.After(req.StartTime) {
		problems = append(problems, "end_time must be after start_time")
	}
	if req.AttendeeCount <= 0 {
		problems = append(problems, "attendee_count must be positive")
	}
	if len(problems) > 0 {
		return apperrors.NewValidationError(strings.Join(problems, "; "))
	}
	return nil
}
