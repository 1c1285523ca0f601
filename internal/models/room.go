package models

import "time"

type Room struct {
	ID           string    `json:"id"`
	HotelID      string    `json:"hotel_id"`
	RoomNumber   string    `json:"room_number"`
	Type         string    `json:"type"`
	Price        float64   `json:"price"`
	MaxOccupancy int       `json:"max_occupancy"`
	RoomStatus   string    `json:"room_status"` // AVAILABLE, BOOKED, MAINTENANCE
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
