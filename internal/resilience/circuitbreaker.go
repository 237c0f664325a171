// Package resilience wraps a transportcore.Transport with retry, circuit
// breaking, health probing, and request deduplication (spec §6, "TurboMCP"
// resilience wrapper).
package resilience

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker's current state.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a CircuitBreaker's thresholds.
type BreakerConfig struct {
	// WindowSize is the number of most recent outcomes the rolling window
	// retains for the failure-rate calculation.
	WindowSize int

	// FailureThreshold is the fraction (0..1) of failures in the window
	// that trips the breaker from Closed to Open.
	FailureThreshold float64

	// MinimumRequests is the smallest window population the breaker will
	// evaluate FailureThreshold against; below this, Closed is assumed
	// regardless of failure rate, to avoid tripping on a handful of calls.
	MinimumRequests int

	// OpenTimeout is how long the breaker stays Open before allowing a
	// single HalfOpen probe request through.
	OpenTimeout time.Duration

	// SuccessThreshold is the number of consecutive HalfOpen successes
	// required to close the breaker again.
	SuccessThreshold int
}

// DefaultBreakerConfig matches the spec's default tuning: a 100-call
// rolling window, 60s open timeout.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		WindowSize:       100,
		FailureThreshold: 0.5,
		MinimumRequests:  10,
		OpenTimeout:      60 * time.Second,
		SuccessThreshold: 3,
	}
}

// CircuitBreaker implements the Closed/Open/HalfOpen state machine over a
// rolling window of call outcomes.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu               sync.Mutex
	state            BreakerState
	window           []bool // true = success
	openedAt         time.Time
	halfOpenSuccesses int
	halfOpenInFlight  bool
}

// NewCircuitBreaker constructs a breaker in the Closed state.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, state: BreakerClosed}
}

// Allow reports whether a call may proceed, transitioning Open->HalfOpen
// once OpenTimeout has elapsed. At most one HalfOpen probe is permitted in
// flight at a time.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Since(cb.openedAt) >= cb.cfg.OpenTimeout {
			cb.state = BreakerHalfOpen
			cb.halfOpenSuccesses = 0
			cb.halfOpenInFlight = true
			return true
		}
		return false
	case BreakerHalfOpen:
		if cb.halfOpenInFlight {
			return false
		}
		cb.halfOpenInFlight = true
		return true
	default:
		return false
	}
}

// RecordResult feeds back the outcome of a call that Allow permitted.
func (cb *CircuitBreaker) RecordResult(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerHalfOpen:
		cb.halfOpenInFlight = false
		if success {
			cb.halfOpenSuccesses++
			if cb.halfOpenSuccesses >= cb.cfg.SuccessThreshold {
				cb.state = BreakerClosed
				cb.window = nil
			}
			return
		}
		cb.trip()
		return
	case BreakerOpen:
		return
	}

	cb.window = append(cb.window, success)
	if len(cb.window) > cb.cfg.WindowSize {
		cb.window = cb.window[len(cb.window)-cb.cfg.WindowSize:]
	}
	if len(cb.window) < cb.cfg.MinimumRequests {
		return
	}

	failures := 0
	for _, ok := range cb.window {
		if !ok {
			failures++
		}
	}
	if float64(failures)/float64(len(cb.window)) >= cb.cfg.FailureThreshold {
		cb.trip()
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = BreakerOpen
	cb.openedAt = time.Now()
	cb.window = nil
	cb.halfOpenInFlight = false
}

// State reports the breaker's current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
