package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"travelone/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `id, hotel_id, room_id, customer_id, check_in, check_out,
                 guests, status, created_by, booking_time, updated_at`

// CreateBookingWithHold atomically checks the room for confirmed overlaps,
// marks the room BOOKED and inserts the booking with its optional payment.
// The overlap test is inclusive on both ends: a confirmed booking with
// check_in <= new check_out and check_out >= new check_in conflicts.
func (db *DB) CreateBookingWithHold(ctx context.Context, req models.CreateBookingRequest) (*models.BookingDetail, error) {
	booking := models.Booking{
		ID:         uuid.NewString(),
		HotelID:    req.HotelID,
		RoomID:     req.RoomID,
		CustomerID: req.CustomerID,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		Guests:     req.Guests,
		Status:     req.Status,
		CreatedBy:  req.CreatedBy,
	}
	if booking.Status == "" {
		booking.Status = models.BookingPending
	}
	if booking.CreatedBy == "" {
		booking.CreatedBy = models.CreatedByCustomer
	}

	var payment *models.Payment
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		var roomStatus string
		err := tx.QueryRowContext(ctx, `SELECT room_status FROM rooms WHERE id = ?`, req.RoomID).Scan(&roomStatus)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load room: %w", err)
		}
		if roomStatus == models.RoomMaintenance {
			return ErrRoomUnavailable
		}

		var conflicts int
		overlapQuery := `SELECT COUNT(*) FROM bookings
                         WHERE room_id = ? AND status = ?
                         AND check_in <= ? AND check_out >= ?`
		err = tx.QueryRowContext(ctx, overlapQuery,
			req.RoomID, models.BookingConfirmed,
			req.CheckOut.Format(dateLayout), req.CheckIn.Format(dateLayout),
		).Scan(&conflicts)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if conflicts > 0 {
			return ErrRoomUnavailable
		}

		if err := setRoomStatusTx(tx, ctx, req.RoomID, models.RoomBooked); err != nil {
			return err
		}

		now := time.Now()
		booking.BookingTime = now
		booking.UpdatedAt = now
		insert := `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err = tx.ExecContext(ctx, insert,
			booking.ID, booking.HotelID, booking.RoomID, booking.CustomerID,
			booking.CheckIn.Format(dateLayout), booking.CheckOut.Format(dateLayout),
			booking.Guests, booking.Status, booking.CreatedBy, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}

		if req.Payment != nil {
			status := req.Payment.Status
			if status == "" {
				status = models.PaymentPending
			}
			payment = &models.Payment{
				ID:            uuid.NewString(),
				BookingID:     booking.ID,
				TotalAmount:   req.Payment.TotalAmount,
				PaidAmount:    req.Payment.PaidAmount,
				Status:        status,
				TransactionID: req.Payment.TransactionID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO payments (id, booking_id, total_amount, paid_amount, status, transaction_id, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				payment.ID, payment.BookingID, payment.TotalAmount, payment.PaidAmount,
				payment.Status, payment.TransactionID, now, now,
			)
			if err != nil {
				return fmt.Errorf("insert payment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.BookingDetail{Booking: booking, Payment: payment}, nil
}

func scanBooking(row interface {
	Scan(dest ...any) error
}) (*models.Booking, error) {
	var b models.Booking
	var checkIn, checkOut string
	err := row.Scan(
		&b.ID, &b.HotelID, &b.RoomID, &b.CustomerID,
		&checkIn, &checkOut, &b.Guests, &b.Status, &b.CreatedBy,
		&b.BookingTime, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if b.CheckIn, err = time.Parse(dateLayout, checkIn); err != nil {
		return nil, fmt.Errorf("parse check_in %q: %w", checkIn, err)
	}
	if b.CheckOut, err = time.Parse(dateLayout, checkOut); err != nil {
		return nil, fmt.Errorf("parse check_out %q: %w", checkOut, err)
	}
	return &b, nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

// GetBookingDetail loads a booking with its room, payment and the hotel's
// manager set.
func (db *DB) GetBookingDetail(ctx context.Context, id string) (*models.BookingDetail, error) {
	booking, err := db.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &models.BookingDetail{Booking: *booking}

	room, err := db.GetRoom(ctx, booking.RoomID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if room != nil {
		detail.Room = *room
	}

	payment, err := db.GetPaymentByBooking(ctx, id)
	if err != nil && !errors.Is(err, ErrNoPayment) {
		return nil, err
	}
	detail.Payment = payment

	managers, err := db.GetHotelManagers(ctx, booking.HotelID)
	if err != nil {
		return nil, err
	}
	detail.Managers = managers

	return detail, nil
}

// UpdateBooking applies a partial update. Status changes are validated
// against the state machine; a move to CANCELLED also fails the payment
// (paid amount zeroed) and frees the room in the same transaction.
func (db *DB) UpdateBooking(ctx context.Context, id string, patch models.BookingPatch) (*models.Booking, error) {
	var updated *models.Booking
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
		current, err := scanBooking(tx.QueryRowContext(ctx, query, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}

		next := *current
		if patch.Status != nil {
			if !models.CanTransition(current.Status, *patch.Status) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidState, current.Status, *patch.Status)
			}
			next.Status = *patch.Status
		}
		if patch.CheckIn != nil {
			next.CheckIn = *patch.CheckIn
		}
		if patch.CheckOut != nil {
			next.CheckOut = *patch.CheckOut
		}
		if patch.Guests != nil {
			next.Guests = *patch.Guests
		}
		next.UpdatedAt = time.Now()

		// Guard on the previously read status so a concurrent transition
		// (e.g. the expiry worker) cannot be silently overwritten.
		result, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, check_in = ?, check_out = ?, guests = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			next.Status, next.CheckIn.Format(dateLayout), next.CheckOut.Format(dateLayout),
			next.Guests, next.UpdatedAt, id, current.Status,
		)
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return ErrConcurrentModification
		}

		if next.Status == models.BookingCancelled && current.Status != models.BookingCancelled {
			_, err = tx.ExecContext(ctx,
				`UPDATE payments SET status = ?, paid_amount = 0, updated_at = ? WHERE booking_id = ?`,
				models.PaymentFailed, time.Now(), id,
			)
			if err != nil {
				return fmt.Errorf("fail payment: %w", err)
			}
			if err := setRoomStatusTx(tx, ctx, current.RoomID, models.RoomAvailable); err != nil {
				return err
			}
		}

		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ExpireBooking is the worker-side transition: if (and only if) the booking
// is still PENDING, cancel it, free the room and fail the payment, all in
// one transaction. Returns false with no error when another path already
// moved the booking out of PENDING — the expected race, not a failure.
func (db *DB) ExpireBooking(ctx context.Context, id string) (bool, error) {
	expired := false
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		var status, roomID string
		err := tx.QueryRowContext(ctx, `SELECT status, room_id FROM bookings WHERE id = ?`, id).Scan(&status, &roomID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		if status != models.BookingPending {
			return nil
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			models.BookingCancelled, time.Now(), id, models.BookingPending,
		)
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return nil
		}

		if err := setRoomStatusTx(tx, ctx, roomID, models.RoomAvailable); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE payments SET status = ?, paid_amount = 0, updated_at = ? WHERE booking_id = ?`,
			models.PaymentFailed, time.Now(), id,
		)
		if err != nil {
			return fmt.Errorf("fail payment: %w", err)
		}

		expired = true
		return nil
	})
	return expired, err
}

// CheckoutBooking completes a CONFIRMED booking and frees its room.
func (db *DB) CheckoutBooking(ctx context.Context, id string) (*models.Booking, error) {
	var updated *models.Booking
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
		current, err := scanBooking(tx.QueryRowContext(ctx, query, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		if current.Status != models.BookingConfirmed {
			return fmt.Errorf("%w: only confirmed bookings can be checked out (got %s)", ErrInvalidState, current.Status)
		}

		now := time.Now()
		result, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			models.BookingCompleted, now, id, models.BookingConfirmed,
		)
		if err != nil {
			return fmt.Errorf("complete booking: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return ErrConcurrentModification
		}

		if err := setRoomStatusTx(tx, ctx, current.RoomID, models.RoomAvailable); err != nil {
			return err
		}

		next := *current
		next.Status = models.BookingCompleted
		next.UpdatedAt = now
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (db *DB) GetHotelBookings(ctx context.Context, hotelID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE hotel_id = ? ORDER BY check_in DESC`
	return db.queryBookings(ctx, query, hotelID)
}

func (db *DB) GetHotelBookingsByStatus(ctx context.Context, hotelID, status string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE hotel_id = ? AND status = ? ORDER BY check_in DESC`
	return db.queryBookings(ctx, query, hotelID, status)
}

func (db *DB) GetCustomerBookings(ctx context.Context, customerID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = ? ORDER BY check_in DESC`
	return db.queryBookings(ctx, query, customerID)
}

// GetBookingsByDateRange returns a hotel's bookings whose stay intersects
// [start, end], ordered by check-in. Feeds the operator export.
func (db *DB) GetBookingsByDateRange(ctx context.Context, hotelID string, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE hotel_id = ? AND check_in <= ? AND check_out >= ?
              ORDER BY check_in ASC`
	return db.queryBookings(ctx, query, hotelID, end.Format(dateLayout), start.Format(dateLayout))
}
