package opensky

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/opensky-utah/pkg/region"
)

const (
	// DefaultBaseURL is the public OpenSky REST API
	DefaultBaseURL = "https://opensky-network.org/api"

	// DefaultTimeout for API requests
	DefaultTimeout = 30 * time.Second

	// maxBodyBytes caps how much of a response we are willing to buffer
	maxBodyBytes = 16 << 20
)

// Config contains configuration for the OpenSky client.
type Config struct {
	// BaseURL is the API base URL (default: DefaultBaseURL)
	BaseURL string

	// Bounds is the bounding box sent with every states request
	Bounds region.Bounds

	// Timeout for one request (default: DefaultTimeout)
	Timeout time.Duration

	// MinInterval is the minimum time between requests; 0 disables limiting.
	// Anonymous OpenSky users get new data every 10 seconds at most.
	MinInterval time.Duration

	// HTTPClient overrides the client built from Timeout, mainly for tests
	HTTPClient *http.Client
}

// Client fetches raw state vector snapshots for one region.
// It is safe for concurrent use.
type Client struct {
	statesURL   string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	maxBody     int64
}

// NewClient creates a client. It fails only if the base URL cannot be parsed.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	statesURL, err := cfg.Bounds.StatesURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &Client{
		statesURL:   statesURL,
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(limit, 1),
		maxBody:     maxBodyBytes,
	}, nil
}

// StatesURL returns the full request URL, query included.
func (c *Client) StatesURL() string {
	return c.statesURL
}

// FetchStates performs one GET against /states/all and returns the raw body.
// The body is returned undecoded so callers can cache exactly what was served.
//
// Errors are *StatusError for non-2xx responses and *TransportError for
// everything else, except that a cancelled ctx is returned as ctx.Err().
func (c *Client) FetchStates(ctx context.Context) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: "rate limit wait", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statesURL, nil)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: "fetch states", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
			RateLimit:  extractRateLimitHeaders(resp.Header),
			Body:       string(body),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: "read body", Err: fmt.Errorf("after %d bytes: %w", len(body), err)}
	}
	if int64(len(body)) > c.maxBody {
		return nil, &TransportError{Op: "read body", Err: fmt.Errorf("response larger than %d bytes", c.maxBody)}
	}

	return body, nil
}
