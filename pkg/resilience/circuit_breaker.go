// Package resilience wraps sony/gobreaker for calls to the remote inventory service.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Errors returned instead of running the call
var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("circuit breaker: too many requests")
)

// CircuitBreakerConfig holds the trip and recovery settings of one breaker
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests is the number of trial calls let through while half-open
	MaxRequests uint32
	// Interval clears the closed-state counts; 0 never clears them
	Interval time.Duration
	// Timeout is how long the breaker stays open before trying again
	Timeout time.Duration

	// The breaker trips after FailureThreshold consecutive failures, or once at least
	// MinRequestsToTrip calls were made and FailureRatioThreshold of them failed.
	FailureThreshold      uint32
	FailureRatioThreshold float64
	MinRequestsToTrip     uint32

	// IsSuccessful decides whether an error counts against the breaker. Nil counts every error.
	IsSuccessful func(err error) bool

	// OnStateChange is called after the transition has been logged
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultCircuitBreakerConfig suits a dependency polled every few seconds to minutes: three
// consecutive failed polls open the circuit and a single trial call tests recovery.
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:                  name,
		MaxRequests:           1,
		Interval:              2 * time.Minute,
		Timeout:               15 * time.Second,
		FailureThreshold:      3,
		FailureRatioThreshold: 0.5,
		MinRequestsToTrip:     10,
	}
}

func (c *CircuitBreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if counts.ConsecutiveFailures >= c.FailureThreshold {
		return true
	}
	if c.MinRequestsToTrip == 0 || counts.Requests < c.MinRequestsToTrip {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatioThreshold
}

// CircuitBreaker is a named gobreaker that logs its transitions
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker
	name   string
	logger *slog.Logger
}

// NewCircuitBreaker creates a closed breaker. logger may be nil.
func NewCircuitBreaker(config *CircuitBreakerConfig, logger *slog.Logger) *CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}

	b := &CircuitBreaker{name: config.Name, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         config.Name,
		MaxRequests:  config.MaxRequests,
		Interval:     config.Interval,
		Timeout:      config.Timeout,
		IsSuccessful: config.IsSuccessful,
		ReadyToTrip:  config.readyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			if config.OnStateChange != nil {
				config.OnStateChange(name, from, to)
			}
		},
	})
	return b
}

// Execute runs fn through the breaker. A call refused by an open or saturated breaker returns
// ErrCircuitOpen or ErrTooManyRequests, prefixed with the breaker name.
func Execute[T any](ctx context.Context, b *CircuitBreaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})

	if errors.Is(err, gobreaker.ErrOpenState) {
		b.logger.Warn("Call refused, circuit is open", "name", b.name)
		return zero, fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
	}
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.Warn("Call refused, half-open trial in progress", "name", b.name)
		return zero, fmt.Errorf("%s: %w", b.name, ErrTooManyRequests)
	}
	if err != nil {
		return zero, err
	}

	value, _ := result.(T)
	return value, nil
}

// State returns the current state
func (b *CircuitBreaker) State() gobreaker.State {
	return b.cb.State()
}

// Name returns the breaker name
func (b *CircuitBreaker) Name() string {
	return b.name
}

// Counts returns the counts of the current generation
func (b *CircuitBreaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

// CircuitBreakerStatus is the reported state of one breaker
type CircuitBreakerStatus struct {
	Name                 string `json:"name"`
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"totalSuccesses"`
	TotalFailures        uint32 `json:"totalFailures"`
	ConsecutiveSuccesses uint32 `json:"consecutiveSuccesses"`
	ConsecutiveFailures  uint32 `json:"consecutiveFailures"`
}

func (b *CircuitBreaker) status() CircuitBreakerStatus {
	counts := b.Counts()
	return CircuitBreakerStatus{
		Name:                 b.name,
		State:                b.State().String(),
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

// CircuitBreakerRegistry shares breakers by name so the API can report on them
type CircuitBreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	logger   *slog.Logger
}

// NewCircuitBreakerRegistry creates an empty registry. logger may be nil.
func NewCircuitBreakerRegistry(logger *slog.Logger) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		logger:   logger,
	}
}

// GetWithConfig returns the breaker named by config, creating it on first use. Later calls
// with the same name ignore config.
func (r *CircuitBreakerRegistry) GetWithConfig(config *CircuitBreakerConfig) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[config.Name]; ok {
		return b
	}
	b := NewCircuitBreaker(config, r.logger)
	r.breakers[config.Name] = b
	return b
}

// Status reports every registered breaker by name
func (r *CircuitBreakerRegistry) Status() map[string]CircuitBreakerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]CircuitBreakerStatus, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.status()
	}
	return out
}

// Open returns the sorted names of breakers currently refusing calls
func (r *CircuitBreakerRegistry) Open() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var open []string
	for name, b := range r.breakers {
		if b.State() == gobreaker.StateOpen {
			open = append(open, name)
		}
	}
	sort.Strings(open)
	return open
}
