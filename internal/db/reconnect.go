package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/unklstewy/opensky-utah/pkg/config"
)

// maxRetryDelay caps the exponential backoff between connection attempts.
const maxRetryDelay = 60 * time.Second

// ConnectWithRetry calls Connect until it succeeds, doubling the wait after
// each failure. maxRetries of 0 retries until ctx is done.
func ConnectWithRetry(ctx context.Context, cfg config.DatabaseConfig, maxRetries int, initialDelay time.Duration, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	delay := initialDelay

	for attempt := 1; ; attempt++ {
		db, err := Connect(ctx, cfg)
		if err == nil {
			if attempt > 1 {
				logger.Info("database connected", "attempt", attempt)
			}
			return db, nil
		}

		if maxRetries > 0 && attempt >= maxRetries {
			return nil, fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		logger.Warn("database connection failed", "attempt", attempt, "retry_in", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

// HealthCheck pings the database and runs a trivial query.
func HealthCheck(ctx context.Context, db *DB) error {
	if db == nil {
		return fmt.Errorf("no database connection")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("unexpected result %d", result)
	}
	return nil
}
