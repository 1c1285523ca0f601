package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travelone/internal/config"
	"travelone/internal/database"
	"travelone/internal/events"
	"travelone/internal/logging"
	"travelone/internal/metrics"
	"travelone/internal/notify"
	"travelone/internal/queue"
	"travelone/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := queue.Connect(ctx, cfg.Redis, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("init redis")
		return err
	}

	bus := events.NewEventBus()
	notifier := notify.New(db, bus, cfg.Notifications.RatePerSecond, cfg.Notifications.Burst, &logger)

	expiryQueue := queue.New(redisClient, cfg.Queue.Name, queue.Options{
		MaxAttempts: cfg.Queue.MaxAttempts,
		Backoff: queue.Backoff{
			Type:  cfg.Queue.BackoffType,
			Delay: time.Duration(cfg.Queue.BackoffSeconds) * time.Second,
		},
		LockDuration:  time.Duration(cfg.Queue.LockSeconds) * time.Second,
		KeepCompleted: time.Duration(cfg.Queue.KeepCompleted) * time.Second,
		KeepFailed:    time.Duration(cfg.Queue.KeepFailed) * time.Second,
	}, &logger)

	expiryWorker := worker.NewExpiryWorker(db, notifier, &logger)
	system := queue.NewSystem(redisClient, expiryQueue, expiryWorker.Handle, queue.PollSchedule{
		Day:      time.Duration(cfg.Queue.DayPollMinutes) * time.Minute,
		Night:    time.Duration(cfg.Queue.NightPollMinutes) * time.Minute,
		DayStart: cfg.Queue.DayStartHour,
		DayEnd:   cfg.Queue.DayEndHour,
	}, &logger)

	startMetrics(ctx, cfg, &logger)
	if cfg.Monitoring.PrometheusEnabled {
		go sampleQueueDepth(ctx, expiryQueue, &logger)
	}

	system.Start()
	logger.Info().
		Str("queue", cfg.Queue.Name).
		Dur("hold_delay", cfg.Queue.HoldDelay()).
		Msg("server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := system.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("queue shutdown")
	}

	logger.Info().Msg("server stopped")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "server").Logger()

	return cfg, logger, closer, nil
}

func sampleQueueDepth(ctx context.Context, q *queue.Queue, logger *zerolog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counts, err := q.Counts(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn().Err(err).Msg("queue depth sample failed")
				}
				continue
			}
			for state, n := range counts {
				metrics.SetQueueDepth(state, n)
			}
		}
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
