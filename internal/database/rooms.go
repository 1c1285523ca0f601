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

func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.RoomStatus == "" {
		room.RoomStatus = models.RoomAvailable
	}
	query := `INSERT INTO rooms (id, hotel_id, room_number, type, price, max_occupancy, room_status, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		room.ID, room.HotelID, room.RoomNumber, room.Type,
		room.Price, room.MaxOccupancy, room.RoomStatus, now, now,
	)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	room.CreatedAt = now
	room.UpdatedAt = now
	return nil
}

func (db *DB) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	query := `SELECT id, hotel_id, room_number, type, price, max_occupancy, room_status, created_at, updated_at
              FROM rooms WHERE id = ?`
	var room models.Room
	err := db.QueryRowContext(ctx, query, id).Scan(
		&room.ID, &room.HotelID, &room.RoomNumber, &room.Type,
		&room.Price, &room.MaxOccupancy, &room.RoomStatus,
		&room.CreatedAt, &room.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &room, nil
}

// SetRoomMaintenance flips a room in or out of maintenance. Rooms holding
// a non-terminal booking stay BOOKED; transitions between AVAILABLE and
// MAINTENANCE only.
func (db *DB) SetRoomMaintenance(ctx context.Context, id string, maintenance bool) error {
	from, to := models.RoomMaintenance, models.RoomAvailable
	if maintenance {
		from, to = models.RoomAvailable, models.RoomMaintenance
	}
	query := `UPDATE rooms SET room_status = ?, updated_at = ? WHERE id = ? AND room_status = ?`
	result, err := db.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return fmt.Errorf("set room maintenance: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrInvalidState
	}
	return nil
}

func setRoomStatusTx(tx *sql.Tx, ctx context.Context, roomID, status string) error {
	query := `UPDATE rooms SET room_status = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, query, status, time.Now(), roomID); err != nil {
		return fmt.Errorf("update room status: %w", err)
	}
	return nil
}
