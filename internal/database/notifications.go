package database

import (
	"context"
	"fmt"
	"time"

	"travelone/internal/models"

	"github.com/google/uuid"
)

func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	query := `INSERT INTO notifications (id, recipient_id, booking_id, event_type, created_at)
              VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	if _, err := db.ExecContext(ctx, query, n.ID, n.RecipientID, n.BookingID, n.EventType, now); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	n.CreatedAt = now
	return nil
}

func (db *DB) GetBookingNotifications(ctx context.Context, bookingID string) ([]models.Notification, error) {
	query := `SELECT id, recipient_id, booking_id, event_type, created_at
              FROM notifications WHERE booking_id = ? ORDER BY created_at ASC`
	rows, err := db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.BookingID, &n.EventType, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
