package models

import "time"

type Hotel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"` // CUSTOMER, MANAGER
	CreatedAt time.Time `json:"created_at"`
}

// Notification is a persisted per-recipient record of a booking event.
// Delivery transport is outside this system; rows are what operators and
// the push layer consume.
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	BookingID   string    `json:"booking_id"`
	EventType   string    `json:"event_type"`
	CreatedAt   time.Time `json:"created_at"`
}
