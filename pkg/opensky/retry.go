package opensky

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// RetryConfig configures retries of rate-limited requests.
type RetryConfig struct {
	// MaxRetries is the number of extra attempts after a 429 (0 disables retrying)
	MaxRetries int

	// InitialDelay is the wait used when the server sends no Retry-After
	InitialDelay time.Duration

	// MaxDelay caps any single wait. A Retry-After longer than this is not
	// waited out; the 429 is returned immediately.
	MaxDelay time.Duration

	// Multiplier grows InitialDelay between attempts
	Multiplier float64
}

// DefaultRetryConfig returns the retry behavior used by the tracker.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   1,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// StatesFetcher is anything that returns a raw states body.
type StatesFetcher interface {
	FetchStates(ctx context.Context) ([]byte, error)
}

// RetryingFetcher retries rate-limited fetches, honoring Retry-After.
// Every other error is returned on the first attempt.
type RetryingFetcher struct {
	next   StatesFetcher
	cfg    RetryConfig
	logger *slog.Logger
}

// NewRetryingFetcher wraps next. A nil logger uses slog.Default().
func NewRetryingFetcher(next StatesFetcher, cfg RetryConfig, logger *slog.Logger) *RetryingFetcher {
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingFetcher{next: next, cfg: cfg, logger: logger.With("component", "opensky")}
}

// FetchStates calls the wrapped fetcher, waiting and retrying on 429.
func (r *RetryingFetcher) FetchStates(ctx context.Context) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		body, err := r.next.FetchStates(ctx)
		if err == nil || attempt >= r.cfg.MaxRetries {
			return body, err
		}

		se, ok := IsStatusError(err)
		if !ok || !se.RateLimited() {
			return nil, err
		}

		delay := r.backoff(attempt)
		if se.RetryAfter > 0 {
			delay = se.RetryAfter
		}
		if delay > r.cfg.MaxDelay {
			return nil, err
		}

		r.logger.Warn("rate limited, retrying",
			"attempt", attempt+1,
			"retry_in", delay,
			"remaining", se.RateLimit.Remaining)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// backoff is InitialDelay * Multiplier^attempt.
func (r *RetryingFetcher) backoff(attempt int) time.Duration {
	return time.Duration(float64(r.cfg.InitialDelay) * math.Pow(r.cfg.Multiplier, float64(attempt)))
}
