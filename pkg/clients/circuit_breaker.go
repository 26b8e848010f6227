package clients

import (
	"sync"
	"time"

	"github.com/ajitpratap0/glidetables/pkg/errors"
	"go.uber.org/zap"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int32

const (
	// StateClosed allows all requests to pass through
	StateClosed CircuitState = iota
	// StateOpen blocks all requests
	StateOpen
	// StateHalfOpen allows a limited number of requests to test if the service has recovered
	StateHalfOpen
)

// String returns the state name used in logs
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig is the configuration for circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           // Consecutive failures before opening
	SuccessThreshold int           // Half-open successes before closing
	Timeout          time.Duration // Time spent open before probing
	HalfOpenLimit    int           // Requests allowed through while half-open
}

// ErrCircuitOpen is returned when the breaker rejects a request
var ErrCircuitOpen = errors.New(errors.ErrorTypeConnection, "circuit breaker is open")

// CircuitBreaker fails requests fast after the service keeps failing.
// A rejected request is not queued or retried.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	logger *zap.Logger
	now    func() time.Time

	state                CircuitState
	nextRetryTime        time.Time
	consecutiveFailures  int
	consecutiveSuccesses int
	halfOpenCounter      int

	mu sync.Mutex
}

// NewCircuitBreaker creates a circuit breaker in the closed state
func NewCircuitBreaker(config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreaker {
	if config.FailureThreshold < 1 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold < 1 {
		config.SuccessThreshold = 1
	}
	if config.HalfOpenLimit < 1 {
		config.HalfOpenLimit = config.SuccessThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreaker{
		config: config,
		logger: logger.With(zap.String("component", "circuit_breaker")),
		now:    time.Now,
		state:  StateClosed,
	}
}

// Execute runs fn if the circuit allows it and records the result.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	if err := fn(); err != nil {
		cb.RecordFailure()
		return err
	}

	cb.RecordSuccess()
	return nil
}

// Allow determines if a request should be allowed based on the current circuit state.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if cb.now().Before(cb.nextRetryTime) {
			return false
		}
		cb.transition(StateHalfOpen)
		fallthrough

	case StateHalfOpen:
		if cb.halfOpenCounter >= cb.config.HalfOpenLimit {
			return false
		}
		cb.halfOpenCounter++
		return true

	default:
		return false
	}
}

// RecordSuccess records a successful request.
// In half-open state, enough consecutive successes will close the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.consecutiveFailures = 0

	case StateHalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.config.SuccessThreshold {
			cb.transition(StateClosed)
		}
	}
}

// RecordFailure records a failed request.
// In half-open state, any failure will reopen the circuit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.config.FailureThreshold {
			cb.transition(StateOpen)
		}

	case StateHalfOpen:
		cb.transition(StateOpen)
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transition must be called with mu held
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	cb.halfOpenCounter = 0

	if to == StateOpen {
		cb.nextRetryTime = cb.now().Add(cb.config.Timeout)
	}

	cb.logger.Info("circuit breaker state changed",
		zap.Stringer("from", from),
		zap.Stringer("to", to))
}
