// Package state provides the workflow phase state machine and its
// file-backed repository.
package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Phase is one stage of the workflow.
type Phase string

const (
	// PhaseNone is the sentinel for an uninitialized workspace.
	PhaseNone      Phase = "none"
	PhaseClarify   Phase = "clarify"
	PhaseBreakdown Phase = "breakdown"
	PhaseImplement Phase = "implement"
	PhaseHeal      Phase = "heal"
	PhaseDeliver   Phase = "deliver"
	PhaseComplete  Phase = "complete"
)

// transitions is the directed phase graph.
var transitions = map[Phase][]Phase{
	PhaseClarify:   {PhaseBreakdown},
	PhaseBreakdown: {PhaseImplement},
	PhaseImplement: {PhaseHeal, PhaseDeliver},
	PhaseHeal:      {PhaseImplement},
	PhaseDeliver:   {PhaseComplete},
}

// Valid reports whether p is a known phase value.
func (p Phase) Valid() bool {
	switch p {
	case PhaseNone, PhaseClarify, PhaseBreakdown, PhaseImplement, PhaseHeal, PhaseDeliver, PhaseComplete:
		return true
	}
	return false
}

// AllowedNext returns the phases reachable from p.
func (p Phase) AllowedNext() []Phase {
	return transitions[p]
}

// CanTransition reports whether p -> next is a legal edge.
func (p Phase) CanTransition(next Phase) bool {
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ErrInvalidPhaseTransition indicates a phase change outside the graph.
var ErrInvalidPhaseTransition = errors.New("invalid phase transition")

// TransitionError carries the attempted edge and the legal alternatives.
type TransitionError struct {
	Current   Phase
	Requested Phase
	Allowed   []Phase
}

func (e *TransitionError) Error() string {
	names := make([]string, len(e.Allowed))
	for i, p := range e.Allowed {
		names[i] = string(p)
	}
	allowed := strings.Join(names, ", ")
	if allowed == "" {
		allowed = "none"
	}
	return fmt.Sprintf("cannot transition from %s to %s (allowed: %s)", e.Current, e.Requested, allowed)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidPhaseTransition
}

// ErrorRecord is one entry in the workflow error list.
type ErrorRecord struct {
	Message    string    `json:"message"`
	TaskID     string    `json:"task_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WorkflowState is the single global phase record for a workspace.
type WorkflowState struct {
	Phase       Phase         `json:"phase"`
	CurrentTask string        `json:"currentTask,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	PRD         string        `json:"prd,omitempty"`
	Errors      []ErrorRecord `json:"errors"`
}

// Transition moves the state along a legal phase edge.
func (w *WorkflowState) Transition(next Phase) error {
	if !w.Phase.CanTransition(next) {
		return &TransitionError{
			Current:   w.Phase,
			Requested: next,
			Allowed:   w.Phase.AllowedNext(),
		}
	}
	w.Phase = next
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// AddError appends to the error list; the list only grows until an
// explicit clear.
func (w *WorkflowState) AddError(message, taskID string) {
	w.Errors = append(w.Errors, ErrorRecord{
		Message:    message,
		TaskID:     taskID,
		OccurredAt: time.Now().UTC(),
	})
	w.UpdatedAt = time.Now().UTC()
}

// ClearErrors drops all recorded errors.
func (w *WorkflowState) ClearErrors() {
	w.Errors = nil
	w.UpdatedAt = time.Now().UTC()
}
