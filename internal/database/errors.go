package database

import "errors"

var (
	// ErrNotFound: the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrRoomUnavailable: the room has a confirmed booking overlapping the
	// requested dates, or is not bookable.
	ErrRoomUnavailable = errors.New("room is not available for the selected dates")
	// ErrInvalidState: the requested transition is not legal from the
	// booking's current status.
	ErrInvalidState = errors.New("invalid booking state for this operation")
	// ErrNoPayment: the booking has no payment attached.
	ErrNoPayment = errors.New("no payment found for this booking")
	// ErrConcurrentModification: the row changed under us between read and
	// guarded write.
	ErrConcurrentModification = errors.New("booking was modified concurrently")
)
