package worker

import (
	"context"
	"errors"

	"travelone/internal/database"
	"travelone/internal/domain"
	"travelone/internal/events"
	"travelone/internal/metrics"
	"travelone/internal/models"
	"travelone/internal/queue"

	"github.com/rs/zerolog"
)

// JobExpireBooking is the job name for hold-expiry tasks.
const JobExpireBooking = "expire-booking"

// ExpiryWorker cancels bookings whose payment hold ran out. The store's own
// status check inside the cancellation transaction is what makes redelivery
// safe; everything here may run any number of times.
type ExpiryWorker struct {
	db       *database.DB
	notifier domain.Notifier
	logger   zerolog.Logger
}

func NewExpiryWorker(db *database.DB, notifier domain.Notifier, logger *zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		db:       db,
		notifier: notifier,
		logger:   logger.With().Str("component", "expiry_worker").Logger(),
	}
}

// Handle processes one expiry job. A nil return acknowledges the job; only
// infrastructure errors are returned, so only those are retried.
func (w *ExpiryWorker) Handle(ctx context.Context, job *queue.Job) error {
	bookingID := job.Payload.BookingID
	if bookingID == "" {
		// Malformed payload; retrying cannot fix it.
		w.logger.Error().Str("job_id", job.ID).Msg("expiry job without booking id dropped")
		return nil
	}

	logger := w.logger.With().Str("booking_id", bookingID).Str("job_id", job.ID).Logger()

	booking, err := w.db.GetBooking(ctx, bookingID)
	if errors.Is(err, database.ErrNotFound) {
		logger.Warn().Msg("booking gone before expiry ran")
		metrics.IncBookingExpired("missing")
		return nil
	}
	if err != nil {
		return err
	}

	if booking.Status != models.BookingPending {
		logger.Info().Str("status", booking.Status).Msg("booking already resolved, expiry skipped")
		metrics.IncBookingExpired("already_resolved")
		return nil
	}

	expired, err := w.db.ExpireBooking(ctx, bookingID)
	if errors.Is(err, database.ErrNotFound) {
		metrics.IncBookingExpired("missing")
		return nil
	}
	if err != nil {
		return err
	}
	if !expired {
		// Lost the race to a confirmation or manual cancel between the
		// read above and the transaction.
		logger.Info().Msg("booking resolved concurrently, expiry skipped")
		metrics.IncBookingExpired("already_resolved")
		return nil
	}

	logger.Info().Msg("booking hold expired, cancelled")
	metrics.IncBookingExpired("cancelled")

	booking.Status = models.BookingCancelled
	if w.notifier != nil {
		w.notifier.BookingEvent(ctx, booking, events.EventBookingExpired)
	}
	return nil
}
