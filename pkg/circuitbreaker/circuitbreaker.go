package circuitbreaker

import (
	"fmt"
	"sync"
	"time"
)

const (
	stateClosed   = "closed"
	stateOpen     = "open"
	stateHalfOpen = "half-open"
)

// Settings configures a breaker. MaxRequests is the consecutive failure
// count that trips it; Timeout is how long it stays open before a probe
// call is allowed through.
type Settings struct {
	Name        string
	MaxRequests int
	Interval    time.Duration
	Timeout     time.Duration
}

// CircuitBreaker stops hammering a failing dependency. Used in front of the
// Redis outcome publisher so a dead broker degrades to dropped summaries
// instead of a slow call on every dispatch.
type CircuitBreaker struct {
	name        string
	maxRequests int
	interval    time.Duration
	timeout     time.Duration
	failures    int
	lastFailure time.Time
	state       string
	mu          sync.RWMutex
}

func NewCircuitBreaker(settings Settings) *CircuitBreaker {
	return &CircuitBreaker{
		name:        settings.Name,
		maxRequests: settings.MaxRequests,
		interval:    settings.Interval,
		timeout:     settings.Timeout,
		state:       stateClosed,
	}
}

// Execute runs fn unless the breaker is open. A success closes a half-open
// breaker and clears the failure streak; reaching the failure threshold
// opens it until Timeout has passed.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.RLock()
	if cb.state == stateOpen {
		if time.Since(cb.lastFailure) > cb.timeout {
			cb.mu.RUnlock()
			cb.mu.Lock()
			cb.state = stateHalfOpen
			cb.mu.Unlock()
		} else {
			cb.mu.RUnlock()
			return fmt.Errorf("circuit breaker is open")
		}
	} else {
		cb.mu.RUnlock()
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.failures >= cb.maxRequests {
			cb.state = stateOpen
		}
		return err
	}

	if cb.state == stateHalfOpen {
		cb.state = stateClosed
	}
	cb.failures = 0
	return nil
}
