package database

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelone/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fixtures struct {
	hotelID    string
	roomID     string
	customerID string
	managerID  string
}

func seed(t *testing.T, db *DB) fixtures {
	t.Helper()
	ctx := context.Background()

	hotel := &models.Hotel{Name: "Seaside"}
	require.NoError(t, db.CreateHotel(ctx, hotel))

	customer := &models.User{Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, db.CreateUser(ctx, customer))

	manager := &models.User{Name: "Bob", Email: "bob@example.com", Role: models.RoleManager}
	require.NoError(t, db.CreateUser(ctx, manager))
	require.NoError(t, db.AddManager(ctx, hotel.ID, manager.ID))

	room := &models.Room{HotelID: hotel.ID, RoomNumber: "101", Type: "double", Price: 120, MaxOccupancy: 2}
	require.NoError(t, db.CreateRoom(ctx, room))

	return fixtures{hotelID: hotel.ID, roomID: room.ID, customerID: customer.ID, managerID: manager.ID}
}

func date(day int) time.Time {
	return time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC)
}

func createBooking(t *testing.T, db *DB, f fixtures, checkIn, checkOut time.Time) *models.BookingDetail {
	t.Helper()
	detail, err := db.CreateBookingWithHold(context.Background(), models.CreateBookingRequest{
		HotelID:    f.hotelID,
		RoomID:     f.roomID,
		CustomerID: f.customerID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     2,
		Payment:    &models.PaymentRequest{TotalAmount: 600},
	})
	require.NoError(t, err)
	return detail
}

func confirm(t *testing.T, db *DB, id string) {
	t.Helper()
	status := models.BookingConfirmed
	_, err := db.UpdateBooking(context.Background(), id, models.BookingPatch{Status: &status})
	require.NoError(t, err)
}

func TestCreateBookingWithHold(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	ctx := context.Background()

	detail := createBooking(t, db, f, date(10), date(15))
	assert.Equal(t, models.BookingPending, detail.Status)
	assert.Equal(t, models.CreatedByCustomer, detail.CreatedBy)
	require.NotNil(t, detail.Payment)
	assert.Equal(t, models.PaymentPending, detail.Payment.Status)
	assert.Equal(t, 600.0, detail.Payment.TotalAmount)

	room, err := db.GetRoom(ctx, f.roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomBooked, room.RoomStatus)
}

func TestCreateBookingOverlap(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)

	first := createBooking(t, db, f, date(10), date(15))
	confirm(t, db, first.ID)

	t.Run("overlapping dates conflict", func(t *testing.T) {
		_, err := db.CreateBookingWithHold(context.Background(), models.CreateBookingRequest{
			HotelID: f.hotelID, RoomID: f.roomID, CustomerID: f.customerID,
			CheckIn: date(12), CheckOut: date(18), Guests: 1,
		})
		assert.ErrorIs(t, err, ErrRoomUnavailable)
	})

	t.Run("touching checkout day conflicts", func(t *testing.T) {
		_, err := db.CreateBookingWithHold(context.Background(), models.CreateBookingRequest{
			HotelID: f.hotelID, RoomID: f.roomID, CustomerID: f.customerID,
			CheckIn: date(15), CheckOut: date(20), Guests: 1,
		})
		assert.ErrorIs(t, err, ErrRoomUnavailable)
	})

	t.Run("surrounding stay conflicts", func(t *testing.T) {
		_, err := db.CreateBookingWithHold(context.Background(), models.CreateBookingRequest{
			HotelID: f.hotelID, RoomID: f.roomID, CustomerID: f.customerID,
			CheckIn: date(8), CheckOut: date(18), Guests: 1,
		})
		assert.ErrorIs(t, err, ErrRoomUnavailable)
	})

	t.Run("disjoint dates are fine", func(t *testing.T) {
		_, err := db.CreateBookingWithHold(context.Background(), models.CreateBookingRequest{
			HotelID: f.hotelID, RoomID: f.roomID, CustomerID: f.customerID,
			CheckIn: date(16), CheckOut: date(20), Guests: 1,
		})
		assert.NoError(t, err)
	})

	t.Run("only confirmed bookings block", func(t *testing.T) {
		db2 := newTestDB(t)
		f2 := seed(t, db2)
		createBooking(t, db2, f2, date(10), date(15)) // stays PENDING
		_, err := db2.CreateBookingWithHold(context.Background(), models.CreateBookingRequest{
			HotelID: f2.hotelID, RoomID: f2.roomID, CustomerID: f2.customerID,
			CheckIn: date(12), CheckOut: date(14), Guests: 1,
		})
		assert.NoError(t, err)
	})
}

func TestCreateBookingRoomChecks(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	ctx := context.Background()

	t.Run("unknown room", func(t *testing.T) {
		_, err := db.CreateBookingWithHold(ctx, models.CreateBookingRequest{
			HotelID: f.hotelID, RoomID: "nope", CustomerID: f.customerID,
			CheckIn: date(1), CheckOut: date(2), Guests: 1,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("room under maintenance", func(t *testing.T) {
		require.NoError(t, db.SetRoomMaintenance(ctx, f.roomID, true))
		_, err := db.CreateBookingWithHold(ctx, models.CreateBookingRequest{
			HotelID: f.hotelID, RoomID: f.roomID, CustomerID: f.customerID,
			CheckIn: date(1), CheckOut: date(2), Guests: 1,
		})
		assert.ErrorIs(t, err, ErrRoomUnavailable)
	})
}

func TestExpireBooking(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	ctx := context.Background()

	detail := createBooking(t, db, f, date(10), date(15))

	expired, err := db.ExpireBooking(ctx, detail.ID)
	require.NoError(t, err)
	assert.True(t, expired)

	booking, err := db.GetBooking(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, booking.Status)

	room, err := db.GetRoom(ctx, f.roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomAvailable, room.RoomStatus)

	payment, err := db.GetPaymentByBooking(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, payment.Status)
	assert.Equal(t, 0.0, payment.PaidAmount)

	t.Run("second expiry is a no-op", func(t *testing.T) {
		expired, err := db.ExpireBooking(ctx, detail.ID)
		require.NoError(t, err)
		assert.False(t, expired)
	})

	t.Run("confirmed booking is untouched", func(t *testing.T) {
		other := createBooking(t, db, f, date(20), date(25))
		confirm(t, db, other.ID)

		expired, err := db.ExpireBooking(ctx, other.ID)
		require.NoError(t, err)
		assert.False(t, expired)

		booking, err := db.GetBooking(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingConfirmed, booking.Status)
	})

	t.Run("missing booking", func(t *testing.T) {
		_, err := db.ExpireBooking(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateBooking(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	ctx := context.Background()

	t.Run("valid transition", func(t *testing.T) {
		detail := createBooking(t, db, f, date(1), date(3))
		status := models.BookingConfirmed
		updated, err := db.UpdateBooking(ctx, detail.ID, models.BookingPatch{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, models.BookingConfirmed, updated.Status)
	})

	t.Run("invalid transition", func(t *testing.T) {
		detail := createBooking(t, db, f, date(4), date(6))
		confirm(t, db, detail.ID)
		_, err := db.CheckoutBooking(ctx, detail.ID)
		require.NoError(t, err)

		status := models.BookingConfirmed
		_, err = db.UpdateBooking(ctx, detail.ID, models.BookingPatch{Status: &status})
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("cancellation frees room and fails payment", func(t *testing.T) {
		detail := createBooking(t, db, f, date(7), date(9))
		status := models.BookingCancelled
		_, err := db.UpdateBooking(ctx, detail.ID, models.BookingPatch{Status: &status})
		require.NoError(t, err)

		room, err := db.GetRoom(ctx, f.roomID)
		require.NoError(t, err)
		assert.Equal(t, models.RoomAvailable, room.RoomStatus)

		payment, err := db.GetPaymentByBooking(ctx, detail.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentFailed, payment.Status)
	})

	t.Run("date and guest patch", func(t *testing.T) {
		detail := createBooking(t, db, f, date(10), date(12))
		newOut := date(14)
		guests := 3
		updated, err := db.UpdateBooking(ctx, detail.ID, models.BookingPatch{CheckOut: &newOut, Guests: &guests})
		require.NoError(t, err)
		assert.Equal(t, newOut, updated.CheckOut)
		assert.Equal(t, 3, updated.Guests)
		assert.Equal(t, models.BookingPending, updated.Status)
	})

	t.Run("missing booking", func(t *testing.T) {
		guests := 1
		_, err := db.UpdateBooking(ctx, "nope", models.BookingPatch{Guests: &guests})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCheckoutBooking(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	ctx := context.Background()

	detail := createBooking(t, db, f, date(10), date(15))

	t.Run("pending cannot check out", func(t *testing.T) {
		_, err := db.CheckoutBooking(ctx, detail.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("confirmed checks out and frees room", func(t *testing.T) {
		confirm(t, db, detail.ID)
		updated, err := db.CheckoutBooking(ctx, detail.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingCompleted, updated.Status)

		room, err := db.GetRoom(ctx, f.roomID)
		require.NoError(t, err)
		assert.Equal(t, models.RoomAvailable, room.RoomStatus)
	})

	t.Run("completed stays completed", func(t *testing.T) {
		_, err := db.CheckoutBooking(ctx, detail.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestBookingQueries(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	ctx := context.Background()

	first := createBooking(t, db, f, date(1), date(5))
	confirm(t, db, first.ID)
	createBooking(t, db, f, date(10), date(12))

	t.Run("by hotel", func(t *testing.T) {
		bookings, err := db.GetHotelBookings(ctx, f.hotelID)
		require.NoError(t, err)
		assert.Len(t, bookings, 2)
	})

	t.Run("by hotel and status", func(t *testing.T) {
		bookings, err := db.GetHotelBookingsByStatus(ctx, f.hotelID, models.BookingConfirmed)
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, first.ID, bookings[0].ID)
	})

	t.Run("by customer", func(t *testing.T) {
		bookings, err := db.GetCustomerBookings(ctx, f.customerID)
		require.NoError(t, err)
		assert.Len(t, bookings, 2)
	})

	t.Run("by date range", func(t *testing.T) {
		bookings, err := db.GetBookingsByDateRange(ctx, f.hotelID, date(4), date(11))
		require.NoError(t, err)
		assert.Len(t, bookings, 2, "range touches both stays")

		bookings, err = db.GetBookingsByDateRange(ctx, f.hotelID, date(6), date(9))
		require.NoError(t, err)
		assert.Empty(t, bookings)
	})
}

func TestGetBookingDetail(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)

	detail := createBooking(t, db, f, date(10), date(15))

	loaded, err := db.GetBookingDetail(context.Background(), detail.ID)
	require.NoError(t, err)
	assert.Equal(t, detail.ID, loaded.ID)
	assert.Equal(t, f.roomID, loaded.Room.ID)
	require.NotNil(t, loaded.Payment)
	require.Len(t, loaded.Managers, 1)
	assert.Equal(t, f.managerID, loaded.Managers[0].ID)
}
