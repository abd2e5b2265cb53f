package geolib

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

type circuitBreakerCallback func(context.Context) (*http.Response, error)

type circuitBreakerState uint8

const (
	circuitBreakerStateClosed circuitBreakerState = iota
	circuitBreakerStateHalfOpened
	circuitBreakerStateOpened
)

// circuitBreaker protects CDN and download endpoints from a flood of
// requests when they are down. Errors wrapped with
// ErrCircuitBreakerIgnore are not counted as failures.
//
// State transitions are evaluated lazily on each call, so there are no
// background timers to stop.
type circuitBreaker struct {
	mutex sync.Mutex
	now   func() time.Time

	state         circuitBreakerState
	failuresCount uint32
	failuresSince time.Time
	openedAt      time.Time
	trialInFlight bool

	openThreshold        uint32
	halfOpenTimeout      time.Duration
	resetFailuresTimeout time.Duration
}

func (c *circuitBreaker) Do(ctx context.Context, callback circuitBreakerCallback) (*http.Response, error) {
	trial, ok := c.acquire()
	if !ok {
		return nil, ErrCircuitBreakerOpened
	}

	resp, err := callback(ctx)

	c.release(trial, err)

	return resp, err
}

// acquire checks if a call can be made. In half-opened state only a
// single trial call is allowed.
func (c *circuitBreaker) acquire() (trial bool, ok bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()

	if c.state == circuitBreakerStateOpened && now.Sub(c.openedAt) >= c.halfOpenTimeout {
		c.state = circuitBreakerStateHalfOpened
		c.trialInFlight = false
	}

	switch c.state {
	case circuitBreakerStateClosed:
		return false, true
	case circuitBreakerStateHalfOpened:
		if c.trialInFlight {
			return false, false
		}

		c.trialInFlight = true

		return true, true
	}

	return false, false
}

func (c *circuitBreaker) release(trial bool, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()

	if errors.Is(err, ErrCircuitBreakerIgnore) {
		if trial {
			c.trialInFlight = false
		}

		return
	}

	if trial {
		if c.state != circuitBreakerStateHalfOpened {
			return
		}

		if err != nil {
			c.switchState(circuitBreakerStateOpened, now)
		} else {
			c.switchState(circuitBreakerStateClosed, now)
		}

		return
	}

	if c.state != circuitBreakerStateClosed {
		return
	}

	if err == nil {
		c.switchState(circuitBreakerStateClosed, now)

		return
	}

	if now.Sub(c.failuresSince) >= c.resetFailuresTimeout {
		c.failuresCount = 0
		c.failuresSince = now
	}

	c.failuresCount++

	if c.failuresCount > c.openThreshold {
		c.switchState(circuitBreakerStateOpened, now)
	}
}

func (c *circuitBreaker) switchState(state circuitBreakerState, now time.Time) {
	c.state = state
	c.failuresCount = 0
	c.failuresSince = now
	c.trialInFlight = false

	if state == circuitBreakerStateOpened {
		c.openedAt = now
	}
}

func newCircuitBreaker(openThreshold uint32,
	halfOpenTimeout, resetFailuresTimeout time.Duration) *circuitBreaker {
	return &circuitBreaker{
		now:                  time.Now,
		failuresSince:        time.Now(),
		openThreshold:        openThreshold,
		halfOpenTimeout:      halfOpenTimeout,
		resetFailuresTimeout: resetFailuresTimeout,
	}
}
