// Package resilience provides retry and circuit breaker patterns for
// fetches and model calls.
package resilience

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreakerConfig controls circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening
	// the circuit. Default: 5.
	FailureThreshold int

	// ShouldTrip optionally overrides the default check. If nil, every
	// non-nil error counts toward the threshold.
	ShouldTrip func(err error) bool

	// OnOpen is called once when the circuit opens.
	OnOpen func(consecutiveFailures int)
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{FailureThreshold: 5}
}

// CircuitBreaker stops work against a single target after repeated
// consecutive failures. Once open it stays open; a new breaker is created
// per target.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	mu  sync.Mutex

	open                bool
	consecutiveFailures int
}

// NewCircuitBreaker creates a circuit breaker with the given config.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	return &CircuitBreaker{cfg: cfg}
}

// ExecuteVal runs fn through the circuit breaker and returns its value.
// Returns ErrCircuitOpen without calling fn if the circuit is open.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if cb.Open() {
		return zero, ErrCircuitOpen
	}

	val, err := fn(ctx)
	cb.Record(err)
	return val, err
}

// Open reports whether the circuit has tripped.
func (cb *CircuitBreaker) Open() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.open
}

// Record counts the outcome of one call made outside ExecuteVal.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	shouldTrip := cb.cfg.ShouldTrip
	if shouldTrip == nil {
		shouldTrip = func(e error) bool { return e != nil }
	}

	if err == nil || !shouldTrip(err) {
		cb.consecutiveFailures = 0
		return
	}

	cb.consecutiveFailures++
	if !cb.open && cb.consecutiveFailures >= cb.cfg.FailureThreshold {
		cb.open = true
		if cb.cfg.OnOpen != nil {
			cb.cfg.OnOpen(cb.consecutiveFailures)
		}
	}
}
