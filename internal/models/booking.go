package models

import "time"

type Booking struct {
	ID          string    `json:"id"`
	HotelID     string    `json:"hotel_id"`
	RoomID      string    `json:"room_id"`
	CustomerID  string    `json:"customer_id"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out"`
	Guests      int       `json:"guests"`
	Status      string    `json:"status"` // PENDING, CONFIRMED, CANCELLED, COMPLETED
	CreatedBy   string    `json:"created_by"`
	BookingTime time.Time `json:"booking_time"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookingDetail is a booking with its room, payment and the hotel's
// manager set loaded alongside.
type BookingDetail struct {
	Booking
	Room     Room     `json:"room"`
	Payment  *Payment `json:"payment,omitempty"`
	Managers []User   `json:"managers,omitempty"`
}

// CreateBookingRequest carries everything the lifecycle controller needs
// to open a booking. Status defaults to PENDING, payment is optional.
type CreateBookingRequest struct {
	HotelID    string
	RoomID     string
	CustomerID string
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int
	Status     string
	CreatedBy  string
	Payment    *PaymentRequest
}

type PaymentRequest struct {
	TotalAmount   float64
	PaidAmount    float64
	Status        string
	TransactionID string
}

// BookingPatch is a partial booking update. Nil fields are left untouched.
type BookingPatch struct {
	Status   *string
	CheckIn  *time.Time
	CheckOut *time.Time
	Guests   *int
}
