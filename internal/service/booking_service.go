package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"travelone/internal/domain"
	"travelone/internal/events"
	"travelone/internal/metrics"
	"travelone/internal/models"
	"travelone/internal/queue"
	"travelone/internal/worker"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidDates  = errors.New("check-out must be after check-in")
	ErrInvalidGuests = errors.New("guest count must be at least 1")
)

// BookingService drives the booking lifecycle: creation with a payment hold,
// status transitions, checkout and payment updates. Customer bookings get an
// expiry job; resolving the booking cancels the job best-effort, with the
// worker's own status check as the real guard.
type BookingService struct {
	store     domain.Store
	jobs      domain.JobQueue
	notifier  domain.Notifier
	holdDelay time.Duration
	logger    zerolog.Logger
}

func NewBookingService(store domain.Store, jobs domain.JobQueue, notifier domain.Notifier, holdDelay time.Duration, logger *zerolog.Logger) *BookingService {
	if holdDelay <= 0 {
		holdDelay = 15 * time.Minute
	}
	return &BookingService{
		store:     store,
		jobs:      jobs,
		notifier:  notifier,
		holdDelay: holdDelay,
		logger:    logger.With().Str("component", "booking_service").Logger(),
	}
}

func validateRequest(req models.CreateBookingRequest) error {
	if !req.CheckOut.After(req.CheckIn) {
		return ErrInvalidDates
	}
	if req.Guests < 1 {
		return ErrInvalidGuests
	}
	return nil
}

// CreateBooking places a hold on the room and, for customer-created
// bookings, schedules the expiry job. A booking that cannot get its expiry
// job would hold the room forever, so a scheduling failure fails the call.
func (s *BookingService) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.BookingDetail, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	detail, err := s.store.CreateBookingWithHold(ctx, req)
	if err != nil {
		return nil, err
	}

	if detail.CreatedBy == models.CreatedByCustomer {
		_, err := s.jobs.Schedule(ctx, worker.JobExpireBooking, detail.ID,
			queue.Payload{BookingID: detail.ID}, s.holdDelay)
		if err != nil {
			s.logger.Error().Err(err).Str("booking_id", detail.ID).Msg("expiry scheduling failed")
			return nil, fmt.Errorf("schedule expiry for booking %s: %w", detail.ID, err)
		}
	}

	s.logger.Info().
		Str("booking_id", detail.ID).
		Str("room_id", detail.RoomID).
		Str("created_by", detail.CreatedBy).
		Time("check_in", detail.CheckIn).
		Time("check_out", detail.CheckOut).
		Msg("booking created")
	metrics.IncBookingCreated(detail.CreatedBy)

	if s.notifier != nil {
		s.notifier.BookingEvent(ctx, &detail.Booking, events.EventBookingCreated)
	}
	return detail, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *BookingService) GetBookingDetail(ctx context.Context, id string) (*models.BookingDetail, error) {
	return s.store.GetBookingDetail(ctx, id)
}

// UpdateBooking applies a patch. Once the booking leaves PENDING the pending
// expiry job has nothing left to do, so it is dropped from the queue.
func (s *BookingService) UpdateBooking(ctx context.Context, id string, patch models.BookingPatch) (*models.Booking, error) {
	updated, err := s.store.UpdateBooking(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if updated.Status != models.BookingPending {
		s.dropExpiryJob(ctx, id)
	}

	if s.notifier != nil {
		switch updated.Status {
		case models.BookingConfirmed:
			s.notifier.BookingEvent(ctx, updated, events.EventBookingConfirmed)
		case models.BookingCancelled:
			s.notifier.BookingEvent(ctx, updated, events.EventBookingCancelled)
		}
	}
	return updated, nil
}

// CancelBooking is the manual cancellation path.
func (s *BookingService) CancelBooking(ctx context.Context, id string) (*models.Booking, error) {
	status := models.BookingCancelled
	return s.UpdateBooking(ctx, id, models.BookingPatch{Status: &status})
}

// Checkout completes a confirmed stay and releases the room.
func (s *BookingService) Checkout(ctx context.Context, id string) (*models.Booking, error) {
	updated, err := s.store.CheckoutBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("booking_id", id).Msg("booking checked out")
	if s.notifier != nil {
		s.notifier.BookingEvent(ctx, updated, events.EventBookingCompleted)
	}
	return updated, nil
}

// UpdatePaymentStatus records a payment result. The store resolves the
// booking in the same transaction; this layer only cleans up the queue and
// tells people about it.
func (s *BookingService) UpdatePaymentStatus(ctx context.Context, bookingID string, patch models.PaymentPatch) (*models.Payment, error) {
	payment, err := s.store.UpdatePaymentStatus(ctx, bookingID, patch)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && (*patch.Status == models.PaymentPaid || *patch.Status == models.PaymentFailed) {
		s.dropExpiryJob(ctx, bookingID)
	}

	s.logger.Info().
		Str("booking_id", bookingID).
		Str("payment_status", payment.Status).
		Msg("payment updated")

	if s.notifier != nil {
		if booking, err := s.store.GetBooking(ctx, bookingID); err == nil {
			s.notifier.BookingEvent(ctx, booking, events.EventPaymentUpdated)
		}
	}
	return payment, nil
}

func (s *BookingService) GetHotelBookings(ctx context.Context, hotelID, status string) ([]*models.Booking, error) {
	if status != "" {
		return s.store.GetHotelBookingsByStatus(ctx, hotelID, status)
	}
	return s.store.GetHotelBookings(ctx, hotelID)
}

func (s *BookingService) GetCustomerBookings(ctx context.Context, customerID string) ([]*models.Booking, error) {
	return s.store.GetCustomerBookings(ctx, customerID)
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, hotelID string, start, end time.Time) ([]*models.Booking, error) {
	return s.store.GetBookingsByDateRange(ctx, hotelID, start, end)
}

// dropExpiryJob is best-effort: a job that slips through is neutralized by
// the worker's status check.
func (s *BookingService) dropExpiryJob(ctx context.Context, bookingID string) {
	cancelled, err := s.jobs.CancelIfPresent(ctx, bookingID)
	if err != nil {
		s.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("expiry job cancellation failed")
		return
	}
	if cancelled {
		s.logger.Debug().Str("booking_id", bookingID).Msg("expiry job cancelled")
	}
}
