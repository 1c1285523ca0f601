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

func (db *DB) CreateHotel(ctx context.Context, hotel *models.Hotel) error {
	if hotel.ID == "" {
		hotel.ID = uuid.NewString()
	}
	query := `INSERT INTO hotels (id, name, address, created_at) VALUES (?, ?, ?, ?)`
	now := time.Now()
	if _, err := db.ExecContext(ctx, query, hotel.ID, hotel.Name, hotel.Address, now); err != nil {
		return fmt.Errorf("create hotel: %w", err)
	}
	hotel.CreatedAt = now
	return nil
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	query := `INSERT INTO users (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	if _, err := db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.Role, now); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	user.CreatedAt = now
	return nil
}

func (db *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, name, email, role, created_at FROM users WHERE id = ?`
	var user models.User
	err := db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// AddManager attaches a user to a hotel's manager set.
func (db *DB) AddManager(ctx context.Context, hotelID, userID string) error {
	query := `INSERT OR IGNORE INTO hotel_managers (hotel_id, user_id) VALUES (?, ?)`
	if _, err := db.ExecContext(ctx, query, hotelID, userID); err != nil {
		return fmt.Errorf("add manager: %w", err)
	}
	return nil
}

// GetHotelManagers returns the manager users of a hotel.
func (db *DB) GetHotelManagers(ctx context.Context, hotelID string) ([]models.User, error) {
	query := `SELECT u.id, u.name, u.email, u.role, u.created_at
              FROM users u
              JOIN hotel_managers hm ON hm.user_id = u.id
              WHERE hm.hotel_id = ?
              ORDER BY u.name`
	rows, err := db.QueryContext(ctx, query, hotelID)
	if err != nil {
		return nil, fmt.Errorf("get hotel managers: %w", err)
	}
	defer rows.Close()

	var managers []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan manager: %w", err)
		}
		managers = append(managers, u)
	}
	return managers, rows.Err()
}
