package models

// Booking statuses.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingCompleted = "COMPLETED"
)

// Room statuses.
const (
	RoomAvailable   = "AVAILABLE"
	RoomBooked      = "BOOKED"
	RoomMaintenance = "MAINTENANCE"
)

// Payment statuses.
const (
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentRefunded = "REFUNDED"
	PaymentFailed   = "FAILED"
)

// Booking origin.
const (
	CreatedByCustomer = "CUSTOMER"
	CreatedByManager  = "MANAGER"
)

// User roles.
const (
	RoleCustomer = "CUSTOMER"
	RoleManager  = "MANAGER"
)

// bookingTransitions lists the legal status moves. CANCELLED and
// COMPLETED are terminal.
var bookingTransitions = map[string][]string{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCancelled, BookingCompleted},
}

// CanTransition reports whether a booking may move from one status to
// another. Same-status moves are allowed (idempotent updates).
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a booking status admits no further moves.
func IsTerminal(status string) bool {
	return status == BookingCancelled || status == BookingCompleted
}
