// Package breaker implements a three-state circuit breaker for a
// repeatedly invoked risky operation. Transitions are computed lazily at
// call time from elapsed wall-clock time; there is no background timer.
package breaker

import (
	"errors"
	"time"
)

// State is the circuit position.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// ErrCircuitOpen is returned when the circuit rejects a call without
// invoking the wrapped operation. Callers distinguish it from operation
// failures with errors.Is.
var ErrCircuitOpen = errors.New("Circuit breaker is OPEN")

// Config holds breaker thresholds.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit from CLOSED.
	FailureThreshold int

	// SuccessThreshold is the consecutive-success count that closes the
	// circuit from HALF_OPEN.
	SuccessThreshold int

	// ResetTimeout is how long an open circuit waits before the next
	// call is allowed to probe.
	ResetTimeout time.Duration
}

// DefaultConfig mirrors the defaults expected by existing workspaces.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		ResetTimeout:     60 * time.Second,
	}
}

// Snapshot is a read-only view of breaker state.
type Snapshot struct {
	State           State      `json:"state"`
	FailureCount    int        `json:"failure_count"`
	SuccessCount    int        `json:"success_count"`
	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
	LastResetTime   *time.Time `json:"last_reset_time,omitempty"`
}

// Breaker guards a single operation. It assumes sequential callers; the
// surrounding workflow runs one task at a time.
type Breaker struct {
	cfg Config
	now func() time.Time

	state       State
	failures    int
	successes   int
	lastFailure *time.Time
	lastReset   *time.Time
}

// New creates a breaker in the CLOSED state.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	return &Breaker{
		cfg:   cfg,
		now:   time.Now,
		state: StateClosed,
	}
}

// NewWithClock creates a breaker with an injected time source (for tests).
func NewWithClock(cfg Config, now func() time.Time) *Breaker {
	b := New(cfg)
	b.now = now
	return b
}

// Execute runs op under the state machine. When the circuit is open and
// the reset timeout has not elapsed, op is never invoked and
// ErrCircuitOpen is returned. Errors from op propagate after the breaker
// records the outcome.
func (b *Breaker) Execute(op func() error) error {
	if b.state == StateOpen {
		if b.lastFailure == nil || b.now().Sub(*b.lastFailure) < b.cfg.ResetTimeout {
			return ErrCircuitOpen
		}
		// Cooldown elapsed: this call becomes the probe.
		b.state = StateHalfOpen
		b.successes = 0
	}

	err := op()
	if err != nil {
		b.onFailure()
		return err
	}

	b.onSuccess()
	return nil
}

func (b *Breaker) onFailure() {
	t := b.now()
	b.lastFailure = &t

	switch b.state {
	case StateHalfOpen:
		// Probe failed: reopen immediately.
		b.state = StateOpen
		b.successes = 0
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.state = StateOpen
		}
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			t := b.now()
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
			b.lastReset = &t
		}
	case StateClosed:
		b.failures = 0
	}
}

// State returns the current circuit position without side effects.
func (b *Breaker) State() State {
	return b.state
}

// GetSnapshot returns a copy of the full breaker state.
func (b *Breaker) GetSnapshot() Snapshot {
	return Snapshot{
		State:           b.state,
		FailureCount:    b.failures,
		SuccessCount:    b.successes,
		LastFailureTime: b.lastFailure,
		LastResetTime:   b.lastReset,
	}
}

// Reset returns the breaker to CLOSED with all counters zeroed.
func (b *Breaker) Reset() {
	t := b.now()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.lastFailure = nil
	b.lastReset = &t
}
