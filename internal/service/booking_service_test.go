package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelone/internal/database"
	"travelone/internal/events"
	"travelone/internal/models"
	"travelone/internal/queue"
)

type scheduledJob struct {
	name  string
	key   string
	delay time.Duration
}

type fakeJobs struct {
	scheduled   []scheduledJob
	cancelled   []string
	scheduleErr error
}

func (f *fakeJobs) Schedule(_ context.Context, jobName, jobKey string, _ queue.Payload, delay time.Duration) (string, error) {
	if f.scheduleErr != nil {
		return "", f.scheduleErr
	}
	f.scheduled = append(f.scheduled, scheduledJob{name: jobName, key: jobKey, delay: delay})
	return "job-" + jobKey, nil
}

func (f *fakeJobs) CancelIfPresent(_ context.Context, jobKey string) (bool, error) {
	f.cancelled = append(f.cancelled, jobKey)
	for _, j := range f.scheduled {
		if j.key == jobKey {
			return true, nil
		}
	}
	return false, nil
}

type recordingNotifier struct {
	calls []string
}

func (r *recordingNotifier) BookingEvent(_ context.Context, _ *models.Booking, eventType string) {
	r.calls = append(r.calls, eventType)
}

func setup(t *testing.T) (*BookingService, *database.DB, *fakeJobs, *recordingNotifier) {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	jobs := &fakeJobs{}
	notifier := &recordingNotifier{}
	svc := NewBookingService(db, jobs, notifier, 15*time.Minute, &logger)
	return svc, db, jobs, notifier
}

func seedRoom(t *testing.T, db *database.DB) (hotelID, roomID, customerID string) {
	t.Helper()
	ctx := context.Background()

	hotel := &models.Hotel{Name: "Seaside"}
	require.NoError(t, db.CreateHotel(ctx, hotel))
	customer := &models.User{Name: "Alice"}
	require.NoError(t, db.CreateUser(ctx, customer))
	room := &models.Room{HotelID: hotel.ID, RoomNumber: "101", Type: "double"}
	require.NoError(t, db.CreateRoom(ctx, room))
	return hotel.ID, room.ID, customer.ID
}

func request(hotelID, roomID, customerID string) models.CreateBookingRequest {
	return models.CreateBookingRequest{
		HotelID:    hotelID,
		RoomID:     roomID,
		CustomerID: customerID,
		CheckIn:    time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		Guests:     2,
		Payment:    &models.PaymentRequest{TotalAmount: 500},
	}
}

func TestCreateBooking(t *testing.T) {
	t.Run("customer booking gets an expiry job", func(t *testing.T) {
		svc, db, jobs, notifier := setup(t)
		hotelID, roomID, customerID := seedRoom(t, db)

		detail, err := svc.CreateBooking(context.Background(), request(hotelID, roomID, customerID))
		require.NoError(t, err)

		require.Len(t, jobs.scheduled, 1)
		assert.Equal(t, detail.ID, jobs.scheduled[0].key)
		assert.Equal(t, 15*time.Minute, jobs.scheduled[0].delay)
		assert.Equal(t, []string{events.EventBookingCreated}, notifier.calls)
	})

	t.Run("manager booking skips the hold", func(t *testing.T) {
		svc, db, jobs, _ := setup(t)
		hotelID, roomID, customerID := seedRoom(t, db)

		req := request(hotelID, roomID, customerID)
		req.CreatedBy = models.CreatedByManager
		req.Status = models.BookingConfirmed

		detail, err := svc.CreateBooking(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, models.BookingConfirmed, detail.Status)
		assert.Empty(t, jobs.scheduled)
	})

	t.Run("scheduling failure fails the call", func(t *testing.T) {
		svc, db, jobs, _ := setup(t)
		hotelID, roomID, customerID := seedRoom(t, db)
		jobs.scheduleErr = errors.New("redis down")

		_, err := svc.CreateBooking(context.Background(), request(hotelID, roomID, customerID))
		require.Error(t, err)
		assert.ErrorContains(t, err, "schedule expiry")
	})

	t.Run("rejects inverted dates", func(t *testing.T) {
		svc, db, _, _ := setup(t)
		hotelID, roomID, customerID := seedRoom(t, db)

		req := request(hotelID, roomID, customerID)
		req.CheckOut = req.CheckIn
		_, err := svc.CreateBooking(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidDates)
	})

	t.Run("rejects zero guests", func(t *testing.T) {
		svc, db, _, _ := setup(t)
		hotelID, roomID, customerID := seedRoom(t, db)

		req := request(hotelID, roomID, customerID)
		req.Guests = 0
		_, err := svc.CreateBooking(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidGuests)
	})
}

func TestUpdateBookingDropsExpiryJob(t *testing.T) {
	svc, db, jobs, notifier := setup(t)
	hotelID, roomID, customerID := seedRoom(t, db)
	ctx := context.Background()

	detail, err := svc.CreateBooking(ctx, request(hotelID, roomID, customerID))
	require.NoError(t, err)

	status := models.BookingConfirmed
	updated, err := svc.UpdateBooking(ctx, detail.ID, models.BookingPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, updated.Status)
	assert.Equal(t, []string{detail.ID}, jobs.cancelled)
	assert.Contains(t, notifier.calls, events.EventBookingConfirmed)
}

func TestCancelBooking(t *testing.T) {
	svc, db, jobs, notifier := setup(t)
	hotelID, roomID, customerID := seedRoom(t, db)
	ctx := context.Background()

	detail, err := svc.CreateBooking(ctx, request(hotelID, roomID, customerID))
	require.NoError(t, err)

	updated, err := svc.CancelBooking(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, updated.Status)
	assert.Equal(t, []string{detail.ID}, jobs.cancelled)
	assert.Contains(t, notifier.calls, events.EventBookingCancelled)

	room, err := db.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomAvailable, room.RoomStatus)
}

func TestCheckout(t *testing.T) {
	svc, db, _, notifier := setup(t)
	hotelID, roomID, customerID := seedRoom(t, db)
	ctx := context.Background()

	detail, err := svc.CreateBooking(ctx, request(hotelID, roomID, customerID))
	require.NoError(t, err)

	t.Run("pending booking cannot check out", func(t *testing.T) {
		_, err := svc.Checkout(ctx, detail.ID)
		assert.ErrorIs(t, err, database.ErrInvalidState)
	})

	t.Run("confirmed booking completes", func(t *testing.T) {
		status := models.BookingConfirmed
		_, err := svc.UpdateBooking(ctx, detail.ID, models.BookingPatch{Status: &status})
		require.NoError(t, err)

		updated, err := svc.Checkout(ctx, detail.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingCompleted, updated.Status)
		assert.Contains(t, notifier.calls, events.EventBookingCompleted)
	})
}

func TestUpdatePaymentStatus(t *testing.T) {
	svc, db, jobs, notifier := setup(t)
	hotelID, roomID, customerID := seedRoom(t, db)
	ctx := context.Background()

	detail, err := svc.CreateBooking(ctx, request(hotelID, roomID, customerID))
	require.NoError(t, err)

	status := models.PaymentPaid
	amount := 500.0
	payment, err := svc.UpdatePaymentStatus(ctx, detail.ID, models.PaymentPatch{Status: &status, PaidAmount: &amount})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, payment.Status)

	booking, err := db.GetBooking(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, booking.Status)
	assert.Equal(t, []string{detail.ID}, jobs.cancelled)
	assert.Contains(t, notifier.calls, events.EventPaymentUpdated)
}

func TestListings(t *testing.T) {
	svc, db, _, _ := setup(t)
	hotelID, roomID, customerID := seedRoom(t, db)
	ctx := context.Background()

	detail, err := svc.CreateBooking(ctx, request(hotelID, roomID, customerID))
	require.NoError(t, err)

	byHotel, err := svc.GetHotelBookings(ctx, hotelID, "")
	require.NoError(t, err)
	assert.Len(t, byHotel, 1)

	pending, err := svc.GetHotelBookings(ctx, hotelID, models.BookingPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, detail.ID, pending[0].ID)

	byCustomer, err := svc.GetCustomerBookings(ctx, customerID)
	require.NoError(t, err)
	assert.Len(t, byCustomer, 1)

	inRange, err := svc.GetBookingsByDateRange(ctx, hotelID,
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, inRange, 1)
}
