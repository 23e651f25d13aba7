package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilityreservation/backend/internal/adapters/lock"
	"github.com/zatekoja/facilityreservation/backend/internal/adapters/memory"
	"github.com/zatekoja/facilityreservation/backend/internal/application/services"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

var testNow = time.Date(2030, 3, 10, 8, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2030, 3, 10, hour, minute, 0, 0, time.UTC)
}

func newReservationFixture(t *testing.T) (*services.ReservationService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Facilities().Create(context.Background(), &entities.Facility{
		ID: "F1", Name: "Main Hall", FacilityType: "hall", Capacity: 10, Location: "Tokyo",
	}))
	svc := services.NewReservationService(
		store.Reservations(),
		lock.NewKeyedMutex(time.Second),
		services.WithClock(func() time.Time { return testNow }),
	)
	return svc, store
}

func book(facilityID string, start, end time.Time) entities.ReservationRequest {
	return entities.ReservationRequest{
		FacilityID:    facilityID,
		UserID:        "u1",
		StartTime:     start,
		EndTime:       end,
		AttendeeCount: 4,
	}
}

func TestReservationService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("overlap rejected and back-to-back accepted", func(t *testing.T) {
		svc, _ := newReservationFixture(t)

		first, err := svc.Create(ctx, book("F1", at(9, 0), at(10, 0)))
		require.NoError(t, err)
		assert.Equal(t, "Main Hall", first.FacilityName)
		assert.Equal(t, "2030-03-10", first.ReservationDate)
		assert.Equal(t, "09:00-10:00", first.TimeSlot)
		assert.Equal(t, entities.ReservationStatusSuccess, first.Status)
		assert.NotEmpty(t, first.Message)

		_, err = svc.Create(ctx, book("F1", at(9, 30), at(10, 30)))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotConflict))

		second, err := svc.Create(ctx, book("F1", at(10, 0), at(11, 0)))
		require.NoError(t, err)
		assert.Greater(t, second.ReservationID, first.ReservationID)
	})

	t.Run("enclosing and enclosed intervals conflict", func(t *testing.T) {
		svc, _ := newReservationFixture(t)
		_, err := svc.Create(ctx, book("F1", at(12, 0), at(14, 0)))
		require.NoError(t, err)

		_, err = svc.Create(ctx, book("F1", at(12, 30), at(13, 0)))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotConflict))

		_, err = svc.Create(ctx, book("F1", at(11, 0), at(15, 0)))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotConflict))

		_, err = svc.Create(ctx, book("F1", at(11, 0), at(12, 0)))
		assert.NoError(t, err)
	})

	t.Run("start equal to now is accepted", func(t *testing.T) {
		svc, _ := newReservationFixture(t)
		_, err := svc.Create(ctx, book("F1", testNow, testNow.Add(time.Hour)))
		assert.NoError(t, err)
	})

	t.Run("start before now is InvalidTimeRange", func(t *testing.T) {
		svc, _ := newReservationFixture(t)
		_, err := svc.Create(ctx, book("F1", testNow.Add(-time.Minute), testNow.Add(time.Hour)))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTimeRange))
	})

	t.Run("past start is reported before a missing facility", func(t *testing.T) {
		svc, _ := newReservationFixture(t)
		_, err := svc.Create(ctx, book("nope", testNow.Add(-time.Hour), testNow))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTimeRange))
	})

	t.Run("unknown facility is FacilityNotFound", func(t *testing.T) {
		svc, _ := newReservationFixture(t)
		_, err := svc.Create(ctx, book("nope", at(9, 0), at(10, 0)))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeFacilityNotFound))
	})

	t.Run("malformed requests are validation errors", func(t *testing.T) {
		svc, _ := newReservationFixture(t)

		req := book("F1", at(10, 0), at(9, 0))
		_, err := svc.Create(ctx, req)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

		req = book("F1", at(9, 0), at(10, 0))
		req.AttendeeCount = 0
		_, err = svc.Create(ctx, req)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

		req = book("", at(9, 0), at(10, 0))
		_, err = svc.Create(ctx, req)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	})

	t.Run("attendee count is not checked against capacity", func(t *testing.T) {
		svc, _ := newReservationFixture(t)
		req := book("F1", at(9, 0), at(10, 0))
		req.AttendeeCount = 500
		_, err := svc.Create(ctx, req)
		assert.NoError(t, err)
	})

	t.Run("confirmation is rendered in the configured zone", func(t *testing.T) {
		store := memory.NewStore()
		require.NoError(t, store.Facilities().Create(ctx, &entities.Facility{ID: "F1", Name: "Main Hall", Capacity: 10}))
		tokyo := time.FixedZone("JST", 9*60*60)
		svc := services.NewReservationService(store.Reservations(), nil,
			services.WithClock(func() time.Time { return testNow }),
			services.WithLocation(tokyo),
		)

		confirmation, err := svc.Create(ctx, book("F1", at(15, 0), at(16, 30)))
		require.NoError(t, err)
		assert.Equal(t, "2030-03-11", confirmation.ReservationDate)
		assert.Equal(t, "00:00-01:30", confirmation.TimeSlot)
	})
}

func TestReservationService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel frees the slot", func(t *testing.T) {
		svc, _ := newReservationFixture(t)
		created, err := svc.Create(ctx, book("F1", at(9, 0), at(10, 0)))
		require.NoError(t, err)

		cancelled, err := svc.Cancel(ctx, created.ReservationID)
		require.NoError(t, err)
		assert.Equal(t, created.ReservationID, cancelled.ReservationID)
		assert.Equal(t, "09:00-10:00", cancelled.TimeSlot)
		assert.Equal(t, entities.ReservationStatusSuccess, cancelled.Status)
		assert.NotEqual(t, created.Message, cancelled.Message)

		_, err = svc.Get(ctx, created.ReservationID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeReservationNotFound))

		_, err = svc.Create(ctx, book("F1", at(9, 0), at(10, 0)))
		assert.NoError(t, err)
	})

	t.Run("unknown reservation is ReservationNotFound", func(t *testing.T) {
		svc, _ := newReservationFixture(t)
		_, err := svc.Cancel(ctx, 12345)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeReservationNotFound))
	})

	t.Run("second cancel is ReservationNotFound", func(t *testing.T) {
		svc, _ := newReservationFixture(t)
		created, err := svc.Create(ctx, book("F1", at(9, 0), at(10, 0)))
		require.NoError(t, err)
		_, err = svc.Cancel(ctx, created.ReservationID)
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, created.ReservationID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeReservationNotFound))
	})
}

func TestReservationService_ConcurrentOverlappingBookings(t *testing.T) {
	svc, _ := newReservationFixture(t)
	ctx := context.Background()

	const racers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		admitted  int
		conflicts int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := at(9, i%4*10)
			_, err := svc.Create(ctx, book("F1", start, start.Add(time.Hour)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case apperrors.HasCode(err, apperrors.CodeSlotConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, racers-1, conflicts)
}

// MockReservationRepository drives the transaction callback with a MockReservationTx
type MockReservationRepository struct {
	mock.Mock
	tx *MockReservationTx
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id int64) (*entities.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Reservation), args.Error(1)
}

func (m *MockReservationRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.ReservationTx) error) error {
	m.Called(ctx)
	return fn(ctx, m.tx)
}

type MockReservationTx struct {
	mock.Mock
}

func (m *MockReservationTx) LockFacility(ctx context.Context, facilityID string) (*entities.Facility, error) {
	args := m.Called(ctx, facilityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Facility), args.Error(1)
}

func (m *MockReservationTx) HasOverlap(ctx context.Context, facilityID string, start, end time.Time) (bool, error) {
	args := m.Called(ctx, facilityID, start, end)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationTx) Insert(ctx context.Context, reservation *entities.Reservation) error {
	args := m.Called(ctx, reservation)
	return args.Error(0)
}

func (m *MockReservationTx) GetForUpdate(ctx context.Context, id int64) (*entities.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Reservation), args.Error(1)
}

func (m *MockReservationTx) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Lock(ctx context.Context, key string) (func(), error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

func TestReservationService_CreateWithMocks(t *testing.T) {
	ctx := context.Background()

	t.Run("overlap is checked before the facility is resolved", func(t *testing.T) {
		tx := new(MockReservationTx)
		repo := &MockReservationRepository{tx: tx}
		repo.On("WithinTx", mock.Anything).Return()
		tx.On("LockFacility", mock.Anything, "ghost").Return(nil, nil)
		tx.On("HasOverlap", mock.Anything, "ghost", at(9, 0), at(10, 0)).Return(true, nil)

		svc := services.NewReservationService(repo, nil, services.WithClock(func() time.Time { return testNow }))
		_, err := svc.Create(ctx, book("ghost", at(9, 0), at(10, 0)))

		assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotConflict))
		tx.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("insert carries created_at of now and the request fields", func(t *testing.T) {
		tx := new(MockReservationTx)
		repo := &MockReservationRepository{tx: tx}
		repo.On("WithinTx", mock.Anything).Return()
		tx.On("LockFacility", mock.Anything, "F1").Return(&entities.Facility{ID: "F1", Name: "Main Hall"}, nil)
		tx.On("HasOverlap", mock.Anything, "F1", at(9, 0), at(10, 0)).Return(false, nil)
		tx.On("Insert", mock.Anything, mock.MatchedBy(func(r *entities.Reservation) bool {
			return r.CreatedAt.Equal(testNow) && r.UserID == "u1" && r.AttendeeCount == 4
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*entities.Reservation).ID = 77
		}).Return(nil)

		svc := services.NewReservationService(repo, nil, services.WithClock(func() time.Time { return testNow }))
		confirmation, err := svc.Create(ctx, book("F1", at(9, 0), at(10, 0)))

		require.NoError(t, err)
		assert.Equal(t, int64(77), confirmation.ReservationID)
		tx.AssertExpectations(t)
	})

	t.Run("store failures surface unchanged", func(t *testing.T) {
		tx := new(MockReservationTx)
		repo := &MockReservationRepository{tx: tx}
		repo.On("WithinTx", mock.Anything).Return()
		storeErr := apperrors.NewInternalError("failed to check reservation overlap", errors.New("connection reset"))
		tx.On("LockFacility", mock.Anything, "F1").Return(&entities.Facility{ID: "F1"}, nil)
		tx.On("HasOverlap", mock.Anything, "F1", mock.Anything, mock.Anything).Return(false, storeErr)

		svc := services.NewReservationService(repo, nil, services.WithClock(func() time.Time { return testNow }))
		_, err := svc.Create(ctx, book("F1", at(9, 0), at(10, 0)))

		assert.True(t, apperrors.HasCode(err, apperrors.CodeStoreError))
	})

	t.Run("lock is taken per facility and released", func(t *testing.T) {
		tx := new(MockReservationTx)
		repo := &MockReservationRepository{tx: tx}
		repo.On("WithinTx", mock.Anything).Return()
		tx.On("LockFacility", mock.Anything, "F1").Return(&entities.Facility{ID: "F1"}, nil)
		tx.On("HasOverlap", mock.Anything, "F1", mock.Anything, mock.Anything).Return(false, nil)
		tx.On("Insert", mock.Anything, mock.Anything).Return(nil)

		released := false
		locker := new(MockLocker)
		locker.On("Lock", mock.Anything, "facility:F1").Return(func() { released = true }, nil)

		svc := services.NewReservationService(repo, locker, services.WithClock(func() time.Time { return testNow }))
		_, err := svc.Create(ctx, book("F1", at(9, 0), at(10, 0)))

		require.NoError(t, err)
		assert.True(t, released)
		locker.AssertExpectations(t)
	})

	t.Run("lock failure aborts before the transaction", func(t *testing.T) {
		repo := &MockReservationRepository{tx: new(MockReservationTx)}
		locker := new(MockLocker)
		locker.On("Lock", mock.Anything, "facility:F1").Return(nil, errors.New("redis down"))

		svc := services.NewReservationService(repo, locker, services.WithClock(func() time.Time { return testNow }))
		_, err := svc.Create(ctx, book("F1", at(9, 0), at(10, 0)))

		assert.True(t, apperrors.HasCode(err, apperrors.CodeStoreError))
		repo.AssertNotCalled(t, "WithinTx", mock.Anything)
	})
}

func TestReservationService_CancelMissingFacility(t *testing.T) {
	tx := new(MockReservationTx)
	repo := &MockReservationRepository{tx: tx}
	repo.On("WithinTx", mock.Anything).Return()
	tx.On("GetForUpdate", mock.Anything, int64(3)).Return(&entities.Reservation{ID: 3, FacilityID: "gone"}, nil)
	tx.On("LockFacility", mock.Anything, "gone").Return(nil, nil)

	svc := services.NewReservationService(repo, nil)
	_, err := svc.Cancel(context.Background(), 3)

	assert.True(t, apperrors.HasCode(err, apperrors.CodeFacilityNotFound))
	tx.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
