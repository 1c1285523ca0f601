package models

import "time"

// Payment is owned 1:1 by its booking and shares its lifetime.
type Payment struct {
	ID            string    `json:"id"`
	BookingID     string    `json:"booking_id"`
	TotalAmount   float64   `json:"total_amount"`
	PaidAmount    float64   `json:"paid_amount"`
	Status        string    `json:"status"` // PENDING, PAID, REFUNDED, FAILED
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PaymentPatch is a partial payment update. Nil fields are left untouched.
type PaymentPatch struct {
	Status        *string
	PaidAmount    *float64
	TransactionID *string
}
