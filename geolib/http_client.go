package geolib

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// StatusError is returned by HTTP client if a server has responded
// with 5xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (s *StatusError) Error() string {
	return "netloc has responded with " + s.Status
}

type httpClient struct {
	userAgent      string
	client         *http.Client
	rateLimiter    *rate.Limiter
	circuitBreaker *circuitBreaker
}

// Do executes a request. Responses with status below 500 are returned
// as is, it is up to the caller to decide what to do with 404 or 403.
// Server errors and transport errors are counted by circuit breaker.
func (h httpClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	req.Header.Set("User-Agent", h.userAgent)

	return h.circuitBreaker.Do(ctx, func(ctx context.Context) (*http.Response, error) {
		if err := h.rateLimiter.Wait(ctx); err != nil {
			return nil, ErrCircuitBreakerIgnore
		}

		resp, err := h.client.Do(req.WithContext(ctx))
		if err != nil {
			if resp != nil {
				flushResponse(resp)
			}

			return nil, err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			flushResponse(resp)

			return nil, &StatusError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
			}
		}

		return resp, nil
	})
}

func flushResponse(resp *http.Response) {
	io.Copy(io.Discard, resp.Body) // nolint: errcheck
	resp.Body.Close()
}

// NewHTTPClient wraps client with a user agent, a token bucket rate
// limiter (one token per rateLimiterInterval, up to rateLimitBurst) and
// a circuit breaker.
//
// The circuit breaker opens after more than circuitBreakerOpenThreshold
// failures which happened within circuitBreakerResetFailuresTimeout of
// each other. After circuitBreakerHalfOpenTimeout a single trial
// request is let through: its success closes the breaker, its failure
// opens it again.
func NewHTTPClient(client *http.Client,
	userAgent string,
	rateLimiterInterval time.Duration,
	rateLimitBurst int,
	circuitBreakerOpenThreshold uint32,
	circuitBreakerHalfOpenTimeout, circuitBreakerResetFailuresTimeout time.Duration) HTTPClient {
	if client == nil {
		client = &http.Client{}
	}

	return httpClient{
		userAgent:   userAgent,
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Every(rateLimiterInterval), rateLimitBurst),
		circuitBreaker: newCircuitBreaker(circuitBreakerOpenThreshold,
			circuitBreakerHalfOpenTimeout,
			circuitBreakerResetFailuresTimeout),
	}
}
