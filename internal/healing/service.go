// Package healing wraps the "try to fix a failed task" operation in a
// circuit breaker and keeps per-task attempt counters plus aggregate
// statistics for the whole service lifetime.
package healing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/joss/ralph/internal/breaker"
	"github.com/joss/ralph/internal/logging"
)

// HealOperation fixes a single failing task. The bool reports whether
// the fix took; an error means the operation itself blew up.
type HealOperation interface {
	Heal(ctx context.Context) (bool, error)
}

// HealFunc adapts a function to HealOperation.
type HealFunc func(ctx context.Context) (bool, error)

func (f HealFunc) Heal(ctx context.Context) (bool, error) { return f(ctx) }

// Result is the outcome of one healing attempt. Err is nil when the
// operation ran and reported failure; it is set when the breaker
// rejected the call or the operation errored.
type Result struct {
	Success       bool          `json:"success"`
	TaskID        string        `json:"task_id"`
	AttemptNumber int           `json:"attempt_number"`
	Err           error         `json:"-"`
	ErrMessage    string        `json:"error,omitempty"`
	CircuitState  breaker.State `json:"circuit_state"`
}

// Stats are the service-lifetime aggregates.
type Stats struct {
	TotalAttempts       int           `json:"total_attempts"`
	SuccessfulAttempts  int           `json:"successful_attempts"`
	FailedAttempts      int           `json:"failed_attempts"`
	CircuitOpenCount    int           `json:"circuit_open_count"`
	CurrentCircuitState breaker.State `json:"current_circuit_state"`
}

// Service runs heal operations through a circuit breaker. Attempt
// counters are per task and only ever grow; ResetCircuit replaces the
// breaker but leaves counters and stats alone.
type Service struct {
	mu       sync.Mutex
	cfg      breaker.Config
	breaker  *breaker.Breaker
	attempts map[string]int
	stats    Stats
	logger   *logging.Logger
	history  *History
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every attempt to a persistent store.
func WithHistory(h *History) Option {
	return func(s *Service) { s.history = h }
}

// WithLogger overrides the default logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a healing service with a fresh CLOSED breaker.
func NewService(cfg breaker.Config, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		breaker:  breaker.New(cfg),
		attempts: make(map[string]int),
		stats:    Stats{CurrentCircuitState: breaker.StateClosed},
		logger:   logging.New("healing"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// safeHeal invokes op, turning panics into errors so a misbehaving
// operation still produces a Result.
func safeHeal(ctx context.Context, op HealOperation) (healed bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			healed = false
			err = fmt.Errorf("%v", rec)
		}
	}()
	return op.Heal(ctx)
}

// AttemptHealing runs op through the circuit breaker for taskID. The
// attempt counter increments even when the breaker rejects the call.
func (s *Service) AttemptHealing(ctx context.Context, taskID string, op HealOperation) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[taskID]++
	attempt := s.attempts[taskID]
	s.stats.TotalAttempts++

	s.logger.Info("healing_attempt", map[string]interface{}{
		"task_id":       taskID,
		"attempt":       attempt,
		"circuit_state": string(s.breaker.State()),
	})

	var healed bool
	stateBefore := s.breaker.State()
	err := s.breaker.Execute(func() error {
		ok, healErr := safeHeal(ctx, op)
		healed = ok
		return healErr
	})
	stateAfter := s.breaker.State()

	// Opening is counted once per transition, not per rejected call. A
	// failed probe is a transition too: the breaker went through
	// HALF_OPEN and back to OPEN inside one call, so stateBefore equals
	// stateAfter and the tell is that the operation actually ran.
	if stateAfter == breaker.StateOpen &&
		(stateBefore != breaker.StateOpen || !errors.Is(err, breaker.ErrCircuitOpen)) {
		s.stats.CircuitOpenCount++
	}
	s.stats.CurrentCircuitState = stateAfter

	result := Result{
		TaskID:        taskID,
		AttemptNumber: attempt,
		CircuitState:  stateAfter,
	}

	switch {
	case err != nil:
		// Breaker rejection and operation errors both land here; the
		// caller tells them apart with errors.Is(err, breaker.ErrCircuitOpen).
		result.Err = err
		result.ErrMessage = err.Error()
		s.stats.FailedAttempts++
		s.logger.Warn("healing_failed", map[string]interface{}{
			"task_id":       taskID,
			"attempt":       attempt,
			"circuit_state": string(stateAfter),
		}, err)
	case !healed:
		// Ran and reported failure: no error, just not fixed.
		s.stats.FailedAttempts++
		s.logger.Warn("healing_unsuccessful", map[string]interface{}{
			"task_id":       taskID,
			"attempt":       attempt,
			"circuit_state": string(stateAfter),
		}, nil)
	default:
		result.Success = true
		s.stats.SuccessfulAttempts++
		s.logger.Info("healing_succeeded", map[string]interface{}{
			"task_id":       taskID,
			"attempt":       attempt,
			"circuit_state": string(stateAfter),
		})
	}

	if s.history != nil {
		rec := Attempt{
			TaskID:        taskID,
			AttemptNumber: attempt,
			Success:       result.Success,
			Error:         result.ErrMessage,
			CircuitState:  string(stateAfter),
			CreatedAt:     time.Now().UTC(),
		}
		if recErr := s.history.Record(ctx, rec); recErr != nil {
			s.logger.Warn("healing_history_write", map[string]interface{}{
				"task_id": taskID,
			}, recErr)
		}
	}

	return result
}

// GetCircuitState returns the breaker's current position.
func (s *Service) GetCircuitState() breaker.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breaker.State()
}

// GetCircuitSnapshot returns the full breaker state for display.
func (s *Service) GetCircuitSnapshot() breaker.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breaker.GetSnapshot()
}

// GetHealingStats returns a copy of the aggregates.
func (s *Service) GetHealingStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.stats
	stats.CurrentCircuitState = s.breaker.State()
	return stats
}

// AttemptCount returns how many attempts this service has made for a
// task. Counters survive circuit resets.
func (s *Service) AttemptCount(taskID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[taskID]
}

// ResetCircuit replaces the breaker with a fresh CLOSED one. Attempt
// counters and aggregate stats are deliberately untouched.
func (s *Service) ResetCircuit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breaker = breaker.New(s.cfg)
	s.stats.CurrentCircuitState = breaker.StateClosed
	s.logger.Info("circuit_reset", nil)
}
