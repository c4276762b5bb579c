// Package task provides the task entity, its lifecycle state machine and
// the persisted task index.
package task

import "strings"

// Status represents the state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task represents a unit of work. The index owns the canonical status;
// a Task value is a transient view.
type Task struct {
	ID                 string   `json:"id"`
	Module             string   `json:"module"`
	Priority           int      `json:"priority"`
	Status             Status   `json:"status"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptanceCriteria,omitempty"`
	Dependencies       []string `json:"dependencies,omitempty"`
	EstimatedMinutes   int      `json:"estimatedMinutes,omitempty"`
	FilePath           string   `json:"filePath,omitempty"`
}

// New creates a pending task. The module grouping key defaults to the
// id's dot-prefix when left empty (e.g. "auth.login" -> "auth").
func New(id, description string, priority int) *Task {
	module := id
	if i := strings.Index(id, "."); i > 0 {
		module = id[:i]
	}
	return &Task{
		ID:          id,
		Module:      module,
		Priority:    priority,
		Status:      StatusPending,
		Description: description,
	}
}

// Start moves the task from pending to in_progress.
func (t *Task) Start() error {
	if t.Status != StatusPending {
		return &InvalidTransitionError{ID: t.ID, From: t.Status, To: StatusInProgress}
	}
	t.Status = StatusInProgress
	return nil
}

// Complete moves the task from in_progress to completed.
func (t *Task) Complete() error {
	if t.Status != StatusInProgress {
		return &InvalidTransitionError{ID: t.ID, From: t.Status, To: StatusCompleted}
	}
	t.Status = StatusCompleted
	return nil
}

// Fail moves the task from in_progress to failed.
func (t *Task) Fail() error {
	if t.Status != StatusInProgress {
		return &InvalidTransitionError{ID: t.ID, From: t.Status, To: StatusFailed}
	}
	t.Status = StatusFailed
	return nil
}

// IsBlocked reports whether any declared dependency is missing from the
// completed set. Selection does not consult this; the driver checks it
// before starting a task.
func (t *Task) IsBlocked(completed map[string]bool) bool {
	for _, dep := range t.Dependencies {
		if !completed[dep] {
			return true
		}
	}
	return false
}
