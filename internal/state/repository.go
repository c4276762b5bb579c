package state

import (
	"fmt"
	"time"

	"github.com/joss/ralph/internal/config"
	"github.com/joss/ralph/internal/fsutil"
	"github.com/joss/ralph/internal/logging"
)

// Repository persists the workflow state at state.json. It is an
// explicit object handed to services, never a process-wide singleton.
type Repository struct {
	paths  config.Paths
	logger *logging.Logger
}

// NewRepository creates a repository for the given workspace layout.
func NewRepository(paths config.Paths) *Repository {
	return &Repository{
		paths:  paths,
		logger: logging.New("state").WithWorkspace(paths.Workspace),
	}
}

// Exists reports whether a state record has been initialized.
func (r *Repository) Exists() bool {
	return fsutil.Exists(r.paths.StateFile)
}

// Load returns the persisted state. A missing file yields the sentinel
// uninitialized state rather than an error.
func (r *Repository) Load() (*WorkflowState, error) {
	if !r.Exists() {
		return &WorkflowState{Phase: PhaseNone}, nil
	}

	var w WorkflowState
	if err := fsutil.ReadJSON(r.paths.StateFile, &w); err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return &w, nil
}

// Save persists the state, stamping updatedAt.
func (r *Repository) Save(w *WorkflowState) error {
	w.UpdatedAt = time.Now().UTC()
	if err := fsutil.WriteJSON(r.paths.StateFile, w); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Initialize creates the state record in the given phase. First write
// wins: when a record already exists it is returned unchanged with a
// warning, never overwritten.
func (r *Repository) Initialize(phase Phase) (*WorkflowState, error) {
	if r.Exists() {
		existing, err := r.Load()
		if err != nil {
			return nil, err
		}
		r.logger.Warn("state_already_initialized", map[string]interface{}{
			"phase":     string(existing.Phase),
			"requested": string(phase),
		}, nil)
		return existing, nil
	}

	now := time.Now().UTC()
	w := &WorkflowState{
		Phase:     phase,
		StartedAt: now,
		UpdatedAt: now,
		Errors:    []ErrorRecord{},
	}
	if err := r.Save(w); err != nil {
		return nil, err
	}

	r.logger.Info("state_initialized", map[string]interface{}{"phase": string(phase)})
	return w, nil
}

// Transition loads, validates and persists a phase change.
func (r *Repository) Transition(next Phase) (*WorkflowState, error) {
	w, err := r.Load()
	if err != nil {
		return nil, err
	}

	if err := w.Transition(next); err != nil {
		return nil, err
	}
	if err := r.Save(w); err != nil {
		return nil, err
	}

	r.logger.Info("phase_transition", map[string]interface{}{"phase": string(next)})
	return w, nil
}

// SetCurrentTask records the task currently in flight ("" clears it).
func (r *Repository) SetCurrentTask(taskID string) error {
	w, err := r.Load()
	if err != nil {
		return err
	}
	w.CurrentTask = taskID
	return r.Save(w)
}

// SetPRD stores the product requirements document.
func (r *Repository) SetPRD(prd string) error {
	w, err := r.Load()
	if err != nil {
		return err
	}
	w.PRD = prd
	return r.Save(w)
}

// AddError appends an error record and persists.
func (r *Repository) AddError(message, taskID string) error {
	w, err := r.Load()
	if err != nil {
		return err
	}
	w.AddError(message, taskID)
	return r.Save(w)
}

// ClearErrors drops recorded errors and persists.
func (r *Repository) ClearErrors() error {
	w, err := r.Load()
	if err != nil {
		return err
	}
	w.ClearErrors()
	return r.Save(w)
}

// Clear removes the state record entirely.
func (r *Repository) Clear() error {
	if err := fsutil.RemoveTree(r.paths.StateFile); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	r.logger.Info("state_cleared", nil)
	return nil
}
