package domain

import (
	"context"
	"time"

	"travelone/internal/models"
	"travelone/internal/queue"
)

type Store interface {
	CreateBookingWithHold(ctx context.Context, req models.CreateBookingRequest) (*models.BookingDetail, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetBookingDetail(ctx context.Context, id string) (*models.BookingDetail, error)
	UpdateBooking(ctx context.Context, id string, patch models.BookingPatch) (*models.Booking, error)
	ExpireBooking(ctx context.Context, id string) (bool, error)
	CheckoutBooking(ctx context.Context, id string) (*models.Booking, error)
	GetHotelBookings(ctx context.Context, hotelID string) ([]*models.Booking, error)
	GetHotelBookingsByStatus(ctx context.Context, hotelID, status string) ([]*models.Booking, error)
	GetCustomerBookings(ctx context.Context, customerID string) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, hotelID string, start, end time.Time) ([]*models.Booking, error)
	GetPaymentByBooking(ctx context.Context, bookingID string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, bookingID string, patch models.PaymentPatch) (*models.Payment, error)
	GetHotelManagers(ctx context.Context, hotelID string) ([]models.User, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
}

type JobQueue interface {
	Schedule(ctx context.Context, jobName, jobKey string, payload queue.Payload, delay time.Duration) (string, error)
	CancelIfPresent(ctx context.Context, jobKey string) (bool, error)
}

type Notifier interface {
	BookingEvent(ctx context.Context, booking *models.Booking, eventType string)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
