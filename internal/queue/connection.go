package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"travelone/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// authoritative answers from the server that no amount of retrying will fix
var fatalReplyPrefixes = []string{
	"NOAUTH",
	"WRONGPASS",
	"READONLY",
	"ERR invalid password",
}

func isAuthoritativeFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, prefix := range fatalReplyPrefixes {
		if strings.Contains(msg, prefix) {
			return true
		}
	}
	return false
}

// Connect builds a redis client from config and verifies it with a bounded
// series of pings. Transient failures are retried with a short linear
// backoff; authoritative rejections (bad credentials, replica in read-only
// mode) abort immediately.
func Connect(ctx context.Context, cfg config.RedisConfig, logger *zerolog.Logger) (*redis.Client, error) {
	var options *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		options = parsed
	} else {
		options = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if cfg.PoolSize > 0 {
		options.PoolSize = cfg.PoolSize
	}
	if cfg.ConnectTimeout > 0 {
		options.DialTimeout = time.Duration(cfg.ConnectTimeout) * time.Second
	}
	if cfg.CommandTimeout > 0 {
		options.ReadTimeout = time.Duration(cfg.CommandTimeout) * time.Second
		options.WriteTimeout = time.Duration(cfg.CommandTimeout) * time.Second
	}

	client := redis.NewClient(options)

	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := client.Ping(ctx).Err(); err == nil {
			logger.Info().Str("addr", options.Addr).Int("attempt", attempt).Msg("redis connected")
			return client, nil
		} else {
			lastErr = err
			if isAuthoritativeFailure(err) {
				_ = client.Close()
				return nil, fmt.Errorf("redis rejected connection: %w", err)
			}
			logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", attempts).Msg("redis ping failed")
		}

		if attempt < attempts {
			delay := time.Duration(attempt) * 2 * time.Second
			if delay > 5*time.Second {
				delay = 5 * time.Second
			}
			select {
			case <-ctx.Done():
				_ = client.Close()
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("redis unreachable after %d attempts: %w", attempts, lastErr)
}
