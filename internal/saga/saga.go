// Package saga implements ordered multi-step execution with reverse-order
// compensation on failure and an append-only audit log for crash recovery.
package saga

import (
	"context"
	"errors"
	"fmt"
)

// Step is a named reversible unit of work. Execute performs the forward
// action; Compensate is its best-effort reverse. Both treat an absent
// precondition as a success no-op.
type Step interface {
	Name() string
	Description() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// funcStep adapts plain functions to the Step interface. Phase builders
// define steps as closures over the workspace.
type funcStep struct {
	name        string
	description string
	execute     func(ctx context.Context) error
	compensate  func(ctx context.Context) error
}

// NewStep creates a Step from functions. Nil execute or compensate
// behaves as a no-op.
func NewStep(name, description string, execute, compensate func(ctx context.Context) error) Step {
	return &funcStep{
		name:        name,
		description: description,
		execute:     execute,
		compensate:  compensate,
	}
}

func (s *funcStep) Name() string        { return s.name }
func (s *funcStep) Description() string { return s.description }

func (s *funcStep) Execute(ctx context.Context) error {
	if s.execute == nil {
		return nil
	}
	return s.execute(ctx)
}

func (s *funcStep) Compensate(ctx context.Context) error {
	if s.compensate == nil {
		return nil
	}
	return s.compensate(ctx)
}

// Result is the outcome of one saga run. Failures are reported here, not
// raised: the caller branches on Success without error handling.
type Result struct {
	Success            bool     `json:"success"`
	CompletedSteps     []string `json:"completed_steps"`
	FailedStep         string   `json:"failed_step,omitempty"`
	Err                error    `json:"-"`
	ErrMessage         string   `json:"error,omitempty"`
	RollbackPerformed  bool     `json:"rollback_performed"`
	RollbackSuccessful bool     `json:"rollback_successful,omitempty"`
}

// ErrStepExecution marks a failure raised by a step's forward action.
var ErrStepExecution = errors.New("step execution failed")

// StepExecutionError carries the failing step and its cause. Panics from
// a step are normalized into this type with the panic value as message.
type StepExecutionError struct {
	Step  string
	Cause error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Cause)
}

func (e *StepExecutionError) Unwrap() error {
	return ErrStepExecution
}

// CompensationError carries a failure from a step's reverse action. It is
// recorded in the result, never propagated as an exception.
type CompensationError struct {
	Step  string
	Cause error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensate %s: %v", e.Step, e.Cause)
}
