package notify

import (
	"context"

	"travelone/internal/database"
	"travelone/internal/events"
	"travelone/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Service fans a booking lifecycle change out to the people who care about
// it: a persisted notification row per recipient plus an in-process event
// for any attached consumers. Delivery is best-effort and rate limited so a
// burst of expiries cannot flood the store.
type Service struct {
	db      *database.DB
	bus     *events.EventBus
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func New(db *database.DB, bus *events.EventBus, ratePerSecond float64, burst int, logger *zerolog.Logger) *Service {
	if ratePerSecond <= 0 {
		ratePerSecond = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &Service{
		db:      db,
		bus:     bus,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// BookingEvent notifies the booking's customer and the hotel's managers.
// Failures are logged, never returned: notifications must not undo or block
// the state change they describe.
func (s *Service) BookingEvent(ctx context.Context, booking *models.Booking, eventType string) {
	recipients := []string{booking.CustomerID}

	managers, err := s.db.GetHotelManagers(ctx, booking.HotelID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("hotel_id", booking.HotelID).
			Str("booking_id", booking.ID).
			Msg("manager lookup failed, notifying customer only")
	}
	for _, m := range managers {
		if m.ID != booking.CustomerID {
			recipients = append(recipients, m.ID)
		}
	}

	for _, recipientID := range recipients {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("notification delivery interrupted")
			return
		}
		n := &models.Notification{
			RecipientID: recipientID,
			BookingID:   booking.ID,
			EventType:   eventType,
		}
		if err := s.db.CreateNotification(ctx, n); err != nil {
			s.logger.Error().Err(err).
				Str("recipient_id", recipientID).
				Str("booking_id", booking.ID).
				Str("event_type", eventType).
				Msg("persist notification failed")
		}
	}

	if err := s.bus.PublishJSON(eventType, events.BookingEventPayload{
		BookingID:  booking.ID,
		HotelID:    booking.HotelID,
		RoomID:     booking.RoomID,
		CustomerID: booking.CustomerID,
		Status:     booking.Status,
		CheckIn:    booking.CheckIn,
		CheckOut:   booking.CheckOut,
		ChangedBy:  booking.CreatedBy,
	}); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("publish event failed")
	}
}
