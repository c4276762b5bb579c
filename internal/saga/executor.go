package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joss/ralph/internal/config"
	"github.com/joss/ralph/internal/fsutil"
	"github.com/joss/ralph/internal/logging"
)

// Log event names. The saga.log file is the crash-recovery record; these
// values are part of the on-disk format.
const (
	EventSagaStarted       = "saga_started"
	EventStepFailed        = "step_failed"
	EventSagaCompleted     = "saga_completed"
	EventRollbackCompleted = "rollback_completed"
)

// LogRecord is one line of saga.log.
type LogRecord struct {
	Timestamp string         `json:"timestamp"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data"`
}

// Executor runs steps strictly in order, one at a time, and compensates
// completed steps in reverse order when one fails.
type Executor struct {
	paths     config.Paths
	logger    *logging.Logger
	completed []Step
}

// NewExecutor creates an executor writing its audit log to the
// workspace's saga.log.
func NewExecutor(paths config.Paths) *Executor {
	return &Executor{
		paths:  paths,
		logger: logging.New("saga").WithWorkspace(paths.Workspace),
	}
}

// appendEvent writes one audit record. A single line append with fsync
// keeps the log safe against mid-write crashes.
func (e *Executor) appendEvent(event string, data map[string]any) {
	rec := LogRecord{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Event:     event,
		Data:      data,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		e.logger.Error("saga_log_marshal", map[string]interface{}{"event": event}, err)
		return
	}
	if err := fsutil.AppendLine(e.paths.SagaLog, string(line)); err != nil {
		e.logger.Error("saga_log_append", map[string]interface{}{"event": event}, err)
	}
}

// runStep invokes a step's forward action, normalizing panics into a
// StepExecutionError.
func runStep(ctx context.Context, step Step) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &StepExecutionError{Step: step.Name(), Cause: fmt.Errorf("%v", rec)}
		}
	}()
	if execErr := step.Execute(ctx); execErr != nil {
		return &StepExecutionError{Step: step.Name(), Cause: execErr}
	}
	return nil
}

// runCompensate invokes a step's reverse action, normalizing panics.
func runCompensate(ctx context.Context, step Step) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &CompensationError{Step: step.Name(), Cause: fmt.Errorf("%v", rec)}
		}
	}()
	if compErr := step.Compensate(ctx); compErr != nil {
		return &CompensationError{Step: step.Name(), Cause: compErr}
	}
	return nil
}

// Execute runs the steps in order. On failure it compensates the
// completed prefix in reverse order and reports the whole outcome in the
// result; it never raises past this boundary.
func (e *Executor) Execute(ctx context.Context, steps []Step) Result {
	sagaID := uuid.New().String()
	e.completed = nil

	e.appendEvent(EventSagaStarted, map[string]any{
		"saga_id": sagaID,
		"steps":   len(steps),
	})

	completedNames := []string{}
	for _, step := range steps {
		if err := runStep(ctx, step); err != nil {
			e.appendEvent(EventStepFailed, map[string]any{
				"saga_id": sagaID,
				"step":    step.Name(),
				"error":   err.Error(),
			})
			e.logger.Error("step_failed", map[string]interface{}{
				"saga_id": sagaID,
				"step":    step.Name(),
			}, err)

			rollbackOK := e.rollback(ctx, sagaID)

			return Result{
				Success:            false,
				CompletedSteps:     completedNames,
				FailedStep:         step.Name(),
				Err:                err,
				ErrMessage:         err.Error(),
				RollbackPerformed:  true,
				RollbackSuccessful: rollbackOK,
			}
		}

		e.completed = append(e.completed, step)
		completedNames = append(completedNames, step.Name())
	}

	e.appendEvent(EventSagaCompleted, map[string]any{
		"saga_id":         sagaID,
		"completed_steps": completedNames,
	})
	e.logger.Info("saga_completed", map[string]interface{}{
		"saga_id": sagaID,
		"steps":   len(completedNames),
	})

	return Result{
		Success:           true,
		CompletedSteps:    completedNames,
		RollbackPerformed: false,
	}
}

// rollback compensates completed steps in reverse order. Every
// compensation is attempted regardless of earlier compensation failures.
func (e *Executor) rollback(ctx context.Context, sagaID string) bool {
	ok := true
	for i := len(e.completed) - 1; i >= 0; i-- {
		step := e.completed[i]
		if err := runCompensate(ctx, step); err != nil {
			ok = false
			e.logger.Error("compensation_failed", map[string]interface{}{
				"saga_id": sagaID,
				"step":    step.Name(),
			}, err)
		}
	}
	e.completed = nil

	e.appendEvent(EventRollbackCompleted, map[string]any{
		"saga_id": sagaID,
		"success": ok,
	})

	return ok
}

// Rollback compensates whatever the executor currently holds as
// completed steps, for manual or external triggering. Returns true iff
// no compensation failed; trivially true when there is nothing to undo.
func (e *Executor) Rollback(ctx context.Context) bool {
	if len(e.completed) == 0 {
		return true
	}
	return e.rollback(ctx, uuid.New().String())
}
