package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"travelone/internal/models"
)

func (db *DB) GetPaymentByBooking(ctx context.Context, bookingID string) (*models.Payment, error) {
	query := `SELECT id, booking_id, total_amount, paid_amount, status, transaction_id, created_at, updated_at
              FROM payments WHERE booking_id = ?`
	var p models.Payment
	var txID sql.NullString
	err := db.QueryRowContext(ctx, query, bookingID).Scan(
		&p.ID, &p.BookingID, &p.TotalAmount, &p.PaidAmount, &p.Status, &txID, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoPayment
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	p.TransactionID = txID.String
	return &p, nil
}

// UpdatePaymentStatus patches a booking's payment and keeps the booking
// consistent in the same transaction: a payment moved to PAID confirms a
// PENDING booking; a payment moved to FAILED cancels the booking and frees
// the room. Nothing can end up PAID on a still-PENDING booking.
func (db *DB) UpdatePaymentStatus(ctx context.Context, bookingID string, patch models.PaymentPatch) (*models.Payment, error) {
	var updated *models.Payment
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		var p models.Payment
		var txID sql.NullString
		var bookingStatus, roomID string
		query := `SELECT p.id, p.booking_id, p.total_amount, p.paid_amount, p.status, p.transaction_id,
                         p.created_at, p.updated_at, b.status, b.room_id
                  FROM payments p JOIN bookings b ON b.id = p.booking_id
                  WHERE p.booking_id = ?`
		err := tx.QueryRowContext(ctx, query, bookingID).Scan(
			&p.ID, &p.BookingID, &p.TotalAmount, &p.PaidAmount, &p.Status, &txID,
			&p.CreatedAt, &p.UpdatedAt, &bookingStatus, &roomID,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoPayment
		}
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		p.TransactionID = txID.String

		if patch.Status != nil {
			p.Status = *patch.Status
		}
		if patch.PaidAmount != nil {
			p.PaidAmount = *patch.PaidAmount
		}
		if patch.TransactionID != nil {
			p.TransactionID = *patch.TransactionID
		}
		p.UpdatedAt = time.Now()

		_, err = tx.ExecContext(ctx,
			`UPDATE payments SET status = ?, paid_amount = ?, transaction_id = ?, updated_at = ? WHERE id = ?`,
			p.Status, p.PaidAmount, p.TransactionID, p.UpdatedAt, p.ID,
		)
		if err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		if patch.Status == nil {
			updated = &p
			return nil
		}

		switch *patch.Status {
		case models.PaymentPaid:
			if bookingStatus == models.BookingPending {
				_, err = tx.ExecContext(ctx,
					`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
					models.BookingConfirmed, time.Now(), bookingID, models.BookingPending,
				)
				if err != nil {
					return fmt.Errorf("confirm booking: %w", err)
				}
			}
		case models.PaymentFailed:
			if !models.IsTerminal(bookingStatus) {
				_, err = tx.ExecContext(ctx,
					`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
					models.BookingCancelled, time.Now(), bookingID, bookingStatus,
				)
				if err != nil {
					return fmt.Errorf("cancel booking: %w", err)
				}
				if err := setRoomStatusTx(tx, ctx, roomID, models.RoomAvailable); err != nil {
					return err
				}
			}
		}

		updated = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
