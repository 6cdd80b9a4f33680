package upstream

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Backoff controls optional retry behaviour for outbound requests.
// MaxRetries of 0 means every request is attempted exactly once.
type Backoff struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrServerError      = errors.New("server error")
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrCircuitOpen      = errors.New("circuit breaker open")

	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// Doer executes outbound HTTP requests against a single upstream,
// guarded by a circuit breaker and optional exponential backoff.
type Doer struct {
	client  *http.Client
	backoff Backoff
	circuit *gobreaker.CircuitBreaker
}

// NewDoer creates a Doer with a fresh circuit breaker named after the upstream.
func NewDoer(client *http.Client, name string, backoff Backoff) *Doer {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Doer{
		client:  client,
		backoff: backoff,
		circuit: cb,
	}
}

// Do executes the request produced by buildRequest, retrying with exponential
// backoff when configured. Rate limiting and 5xx responses count as failures
// toward the circuit breaker.
func (d *Doer) Do(ctx context.Context, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	if d.client == nil {
		return nil, errNoHTTPClient
	}
	if d.backoff.MaxRetries < 0 || (d.backoff.MaxRetries > 0 && d.backoff.InitialInterval <= 0) {
		return nil, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)

		result, err := d.circuit.Execute(func() (interface{}, error) {
			resp, execErr := d.client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				return nil, ErrRateLimited
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", ErrServerError, resp.StatusCode)
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
			}

			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		// If the circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}

		lastErr = err
		if attempt >= d.backoff.MaxRetries {
			return nil, lastErr
		}

		delay := d.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > d.backoff.MaxInterval && d.backoff.MaxInterval > 0 {
			delay = d.backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			// continue to next attempt
		}

		attempt++
	}
}
