// Package workflow composes the task index, workflow state, phase
// sagas and healing service behind the operations the CLI exposes.
package workflow

import (
	"context"
	"fmt"

	"github.com/joss/ralph/internal/breaker"
	"github.com/joss/ralph/internal/config"
	"github.com/joss/ralph/internal/healing"
	"github.com/joss/ralph/internal/logging"
	"github.com/joss/ralph/internal/saga"
	"github.com/joss/ralph/internal/state"
	"github.com/joss/ralph/internal/task"
)

// Service is the orchestration facade for one workspace.
type Service struct {
	paths    config.Paths
	cfg      config.WorkspaceConfig
	tasks    *task.Store
	states   *state.Repository
	executor *saga.Executor
	factory  *saga.Factory
	healer   *healing.Service
	logger   *logging.Logger
}

// NewService wires a service for the given workspace root. Breaker
// thresholds come from .ralph.yaml, falling back to the environment
// defaults.
func NewService(workspace string) (*Service, error) {
	paths := config.PathsFor(workspace)

	cfg, err := config.LoadWorkspaceConfig(workspace)
	if err != nil {
		return nil, fmt.Errorf("load workspace config: %w", err)
	}

	logger := logging.New("workflow").WithWorkspace(workspace)

	breakerCfg := breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		ResetTimeout:     cfg.Breaker.ResetTimeout,
	}

	// Attempt history is best-effort: a workspace on a read-only mount
	// still gets healing, just without the audit trail.
	var healerOpts []healing.Option
	if history, err := healing.OpenHistory(paths.HistoryDB); err == nil {
		healerOpts = append(healerOpts, healing.WithHistory(history))
	} else {
		logger.Warn("healing_history_unavailable", map[string]interface{}{
			"path": paths.HistoryDB,
		}, err)
	}
	healer := healing.NewService(breakerCfg, healerOpts...)

	return &Service{
		paths:    paths,
		cfg:      cfg,
		tasks:    task.NewStore(paths),
		states:   state.NewRepository(paths),
		executor: saga.NewExecutor(paths),
		factory:  saga.NewFactory(cfg),
		healer:   healer,
		logger:   logger,
	}, nil
}

// Tasks exposes the task store for read-side commands.
func (s *Service) Tasks() *task.Store { return s.tasks }

// States exposes the workflow state repository.
func (s *Service) States() *state.Repository { return s.states }

// Healer exposes the healing service.
func (s *Service) Healer() *healing.Service { return s.healer }

// Initialize creates the workflow state if it does not exist. First
// write wins: an existing state is returned unchanged.
func (s *Service) Initialize(phase state.Phase) (*state.WorkflowState, error) {
	return s.states.Initialize(phase)
}

// EnterPhase validates the transition, runs the guarding saga and only
// then commits the phase change. A failed saga leaves the phase alone.
func (s *Service) EnterPhase(ctx context.Context, next state.Phase) (saga.Result, *state.WorkflowState, error) {
	current, err := s.states.Load()
	if err != nil {
		return saga.Result{}, nil, err
	}
	if !current.Phase.CanTransition(next) {
		return saga.Result{}, nil, &state.TransitionError{
			Current:   current.Phase,
			Requested: next,
			Allowed:   current.Phase.AllowedNext(),
		}
	}

	steps := s.factory.CreateForPhase(string(next), s.paths.Workspace)
	result := s.executor.Execute(ctx, steps)
	if !result.Success {
		s.logger.Error("phase_saga_failed", map[string]interface{}{
			"phase": string(next),
			"step":  result.FailedStep,
		}, result.Err)
		return result, nil, fmt.Errorf("phase %s setup failed at %s: %w", next, result.FailedStep, result.Err)
	}

	updated, err := s.states.Transition(next)
	if err != nil {
		return result, nil, err
	}

	s.logger.Info("phase_entered", map[string]interface{}{
		"phase": string(next),
		"steps": len(result.CompletedSteps),
	})
	return result, updated, nil
}

// NextTask returns the next eligible task id, or "" when none remains.
func (s *Service) NextTask() (string, error) {
	return s.tasks.GetNextTask()
}

// StartTask moves a pending task to in_progress and records it as the
// workflow's current task.
func (s *Service) StartTask(id string) (*task.Task, error) {
	t, err := s.tasks.GetTask(id)
	if err != nil {
		return nil, err
	}
	if err := t.Start(); err != nil {
		return nil, err
	}
	if err := s.tasks.UpdateTaskStatus(id, t.Status); err != nil {
		return nil, err
	}
	if err := s.states.SetCurrentTask(id); err != nil {
		s.logger.Warn("set_current_task", map[string]interface{}{"task_id": id}, err)
	}
	return t, nil
}

// CompleteTask moves an in_progress task to completed.
func (s *Service) CompleteTask(id string) (*task.Task, error) {
	t, err := s.tasks.GetTask(id)
	if err != nil {
		return nil, err
	}
	if err := t.Complete(); err != nil {
		return nil, err
	}
	if err := s.tasks.UpdateTaskStatus(id, t.Status); err != nil {
		return nil, err
	}
	s.clearCurrentTask(id)
	return t, nil
}

// FailTask moves an in_progress task to failed and records the reason
// on the workflow state.
func (s *Service) FailTask(id, reason string) (*task.Task, error) {
	t, err := s.tasks.GetTask(id)
	if err != nil {
		return nil, err
	}
	if err := t.Fail(); err != nil {
		return nil, err
	}
	if err := s.tasks.UpdateTaskStatus(id, t.Status); err != nil {
		return nil, err
	}
	if reason != "" {
		if err := s.states.AddError(reason, id); err != nil {
			s.logger.Warn("record_task_error", map[string]interface{}{"task_id": id}, err)
		}
	}
	s.clearCurrentTask(id)
	return t, nil
}

func (s *Service) clearCurrentTask(id string) {
	ws, err := s.states.Load()
	if err != nil || ws.CurrentTask != id {
		return
	}
	if err := s.states.SetCurrentTask(""); err != nil {
		s.logger.Warn("clear_current_task", map[string]interface{}{"task_id": id}, err)
	}
}

// HealTask runs op for a failed task through the circuit breaker. On a
// successful heal the task returns to pending so the driver can pick it
// up again.
func (s *Service) HealTask(ctx context.Context, id string, op healing.HealOperation) (healing.Result, error) {
	if _, err := s.tasks.GetTask(id); err != nil {
		return healing.Result{}, err
	}

	result := s.healer.AttemptHealing(ctx, id, op)
	if result.Success {
		if err := s.tasks.UpdateTaskStatus(id, task.StatusPending); err != nil {
			return result, err
		}
	}
	return result, nil
}

// StatusCounts tallies tasks by status for display.
func (s *Service) StatusCounts() (map[task.Status]int, error) {
	idx, err := s.tasks.ReadIndex()
	if err != nil {
		return nil, err
	}
	counts := make(map[task.Status]int)
	for _, rec := range idx.Tasks {
		counts[rec.Status]++
	}
	return counts, nil
}
