package queue

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// PollSchedule picks the idle sweep cadence by local hour: frequent during
// the day when most bookings happen, relaxed at night.
type PollSchedule struct {
	Day      time.Duration
	Night    time.Duration
	DayStart int
	DayEnd   int
}

func (p PollSchedule) Interval(t time.Time) time.Duration {
	hour := t.Hour()
	if hour >= p.DayStart && hour < p.DayEnd {
		return p.Day
	}
	return p.Night
}

// System owns the redis connection, the queue and its single consumer loop.
// Start spawns the loop; Shutdown stops intake, waits for the in-flight job
// and closes the connection, in that order.
type System struct {
	client  *redis.Client
	queue   *Queue
	handler Handler
	poll    PollSchedule
	logger  zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSystem(client *redis.Client, q *Queue, handler Handler, poll PollSchedule, logger *zerolog.Logger) *System {
	if poll.Day <= 0 {
		poll.Day = 12 * time.Minute
	}
	if poll.Night <= 0 {
		poll.Night = time.Hour
	}
	return &System{
		client:  client,
		queue:   q,
		handler: handler,
		poll:    poll,
		logger:  logger.With().Str("component", "queue_system").Logger(),
	}
}

// Queue exposes the underlying queue for scheduling and cancellation.
func (s *System) Queue() *Queue {
	return s.queue
}

func (s *System) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *System) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn().Msg("shutdown deadline hit while waiting for consumer")
	}

	return s.client.Close()
}

func (s *System) run(ctx context.Context) {
	defer s.wg.Done()
	s.logger.Info().Msg("consumer started")
	defer s.logger.Info().Msg("consumer stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		if _, err := s.queue.RecoverStalled(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("stalled recovery failed")
		}
		if _, err := s.queue.Promote(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("promotion failed")
			s.sleep(ctx, time.Second)
			continue
		}

		// Drain everything that became due before going back to sleep.
		for {
			job, err := s.queue.Next(ctx, time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Error().Err(err).Msg("fetch job failed")
				s.sleep(ctx, time.Second)
				break
			}
			if job == nil {
				break
			}
			s.process(ctx, job)
		}

		s.sleep(ctx, s.idleWait(ctx))
	}
}

func (s *System) process(ctx context.Context, job *Job) {
	if err := s.handler(ctx, job); err != nil {
		if rerr := s.queue.RetryOrFail(ctx, job, err); rerr != nil && ctx.Err() == nil {
			s.logger.Error().Err(rerr).Str("job_id", job.ID).Msg("retry bookkeeping failed")
		}
		return
	}
	if err := s.queue.Ack(ctx, job); err != nil && ctx.Err() == nil {
		// The work is done; a lost ack only means one redundant delivery
		// later, which the handler absorbs.
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("ack failed")
	}
}

func (s *System) idleWait(ctx context.Context) time.Duration {
	wait := s.poll.Interval(s.queue.now())
	if readyIn, ok := s.queue.nextReadyIn(ctx); ok && readyIn < wait {
		wait = readyIn
	}
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}

func (s *System) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
