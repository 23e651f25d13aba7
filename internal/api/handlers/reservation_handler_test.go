package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/facilityreservation/backend/internal/api/handlers"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/facilityreservation/backend/pkg/errors"
)

func TestReservationHandler_CreateReservation(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)

	t.Run("created with 201", func(t *testing.T) {
		svc := new(MockReservationService)
		svc.On("Create", mock.Anything, entities.ReservationRequest{
			FacilityID:    "F1",
			UserID:        "u1",
			StartTime:     time.Date(2030, 1, 5, 9, 0, 0, 0, jst),
			EndTime:       time.Date(2030, 1, 5, 10, 0, 0, 0, jst),
			AttendeeCount: 3,
		}).Return(&entities.ReservationConfirmation{
			ReservationID: 1, FacilityName: "Main Hall", ReservationDate: "2030-01-05",
			TimeSlot: "09:00-10:00", Status: "success", Message: "Reservation created successfully",
		}, nil)

		body := `{"facility_id":"F1","start_time":"2030-01-05T09:00:00","end_time":"2030-01-05 10:00","user_id":"u1","attendee_count":3}`
		req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(body))
		w := httptest.NewRecorder()
		handlers.NewReservationHandler(svc, jst).CreateReservation(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"reservation_id":1,"facility_name":"Main Hall","reservation_date":"2030-01-05","time_slot":"09:00-10:00","status":"success","message":"Reservation created successfully"}`, w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("explicit offsets are honoured", func(t *testing.T) {
		svc := new(MockReservationService)
		svc.On("Create", mock.Anything, mock.MatchedBy(func(req entities.ReservationRequest) bool {
			return req.StartTime.Equal(time.Date(2030, 1, 5, 0, 0, 0, 0, time.UTC))
		})).Return(&entities.ReservationConfirmation{ReservationID: 2}, nil)

		body := `{"facility_id":"F1","start_time":"2030-01-05T00:00:00Z","end_time":"2030-01-05T01:00:00Z","user_id":"u1","attendee_count":1}`
		req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(body))
		w := httptest.NewRecorder()
		handlers.NewReservationHandler(svc, jst).CreateReservation(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"past start", apperrors.NewInvalidTimeRangeError("Start time must not be in the past"), http.StatusBadRequest, "InvalidTimeRange"},
		{"overlap", apperrors.NewSlotConflictError("taken", nil), http.StatusBadRequest, "SlotConflict"},
		{"unknown facility", apperrors.NewNotFoundError(apperrors.CodeFacilityNotFound, "Facility not found"), http.StatusNotFound, "FacilityNotFound"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockReservationService)
			svc.On("Create", mock.Anything, mock.Anything).Return(nil, tc.err)

			body := `{"facility_id":"F1","start_time":"2030-01-05T09:00:00Z","end_time":"2030-01-05T10:00:00Z","user_id":"u1","attendee_count":1}`
			req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(body))
			w := httptest.NewRecorder()
			handlers.NewReservationHandler(svc, time.UTC).CreateReservation(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), `"error":"`+tc.code+`"`)
		})
	}

	t.Run("malformed body is 400", func(t *testing.T) {
		svc := new(MockReservationService)
		req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(`{"facility_id":`))
		w := httptest.NewRecorder()
		handlers.NewReservationHandler(svc, time.UTC).CreateReservation(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unparseable timestamp is 400", func(t *testing.T) {
		svc := new(MockReservationService)
		body := `{"facility_id":"F1","start_time":"tomorrow","end_time":"2030-01-05T10:00:00Z","user_id":"u1","attendee_count":1}`
		req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(body))
		w := httptest.NewRecorder()
		handlers.NewReservationHandler(svc, time.UTC).CreateReservation(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "start_time")
	})
}

func TestReservationHandler_CancelReservation(t *testing.T) {
	t.Run("returns the cancellation confirmation", func(t *testing.T) {
		svc := new(MockReservationService)
		svc.On("Cancel", mock.Anything, int64(7)).Return(&entities.ReservationConfirmation{
			ReservationID: 7, Status: "success", Message: "Reservation cancelled successfully",
		}, nil)

		req := httptest.NewRequest(http.MethodDelete, "/reservations/7", nil)
		req.SetPathValue("reservation_id", "7")
		w := httptest.NewRecorder()
		handlers.NewReservationHandler(svc, time.UTC).CancelReservation(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"reservation_id":7`)
	})

	t.Run("unknown reservation is 404", func(t *testing.T) {
		svc := new(MockReservationService)
		svc.On("Cancel", mock.Anything, int64(8)).
			Return(nil, apperrors.NewNotFoundError(apperrors.CodeReservationNotFound, "Reservation not found"))

		req := httptest.NewRequest(http.MethodDelete, "/reservations/8", nil)
		req.SetPathValue("reservation_id", "8")
		w := httptest.NewRecorder()
		handlers.NewReservationHandler(svc, time.UTC).CancelReservation(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"ReservationNotFound","message":"Reservation not found"}`, w.Body.String())
	})

	t.Run("non-numeric id is 400", func(t *testing.T) {
		svc := new(MockReservationService)
		req := httptest.NewRequest(http.MethodDelete, "/reservations/abc", nil)
		req.SetPathValue("reservation_id", "abc")
		w := httptest.NewRecorder()
		handlers.NewReservationHandler(svc, time.UTC).CancelReservation(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReservationHandler_GetReservation(t *testing.T) {
	svc := new(MockReservationService)
	start := time.Date(2030, 1, 5, 9, 0, 0, 0, time.UTC)
	svc.On("Get", mock.Anything, int64(3)).Return(&entities.Reservation{
		ID: 3, UserID: "u1", FacilityID: "F1", StartTime: start, EndTime: start.Add(time.Hour), AttendeeCount: 2, CreatedAt: start,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/reservations/3", nil)
	req.SetPathValue("reservation_id", "3")
	w := httptest.NewRecorder()
	handlers.NewReservationHandler(svc, time.UTC).GetReservation(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"facility_id":"F1"`)
	assert.Contains(t, w.Body.String(), `"start_time":"2030-01-05T09:00:00Z"`)
}
