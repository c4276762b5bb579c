// Package render provides output formatting for terminal and log
// consumption.
package render

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/joss/ralph/internal/breaker"
	"github.com/joss/ralph/internal/healing"
	"github.com/joss/ralph/internal/saga"
	"github.com/joss/ralph/internal/state"
	"github.com/joss/ralph/internal/task"
)

// Renderer handles output formatting.
type Renderer struct {
	pretty bool
}

// New creates a new renderer. Pretty output uses color and box drawing;
// plain output stays grep-friendly.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

func statusGlyph(s task.Status) string {
	switch s {
	case task.StatusCompleted:
		return color.GreenString("✓")
	case task.StatusFailed:
		return color.RedString("✗")
	case task.StatusInProgress:
		return color.YellowString("▸")
	default:
		return "○"
	}
}

// TaskList formats the index's tasks in the given id order.
func (r *Renderer) TaskList(idx *task.Index, ids []string) string {
	if len(ids) == 0 {
		return "No tasks found"
	}

	var sb strings.Builder

	if r.pretty {
		sb.WriteString(color.CyanString("Tasks\n"))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}

	for _, id := range ids {
		rec, ok := idx.Tasks[id]
		if !ok {
			continue
		}
		if r.pretty {
			fmt.Fprintf(&sb, "%s %s %s p%d %s\n",
				statusGlyph(rec.Status), color.HiBlackString(id), rec.Status, rec.Priority, rec.Description)
			if len(rec.Dependencies) > 0 {
				fmt.Fprintf(&sb, "    deps: %s\n", strings.Join(rec.Dependencies, ", "))
			}
		} else {
			fmt.Fprintf(&sb, "[%s] p%d %s %s\n", rec.Status, rec.Priority, id, rec.Description)
		}
	}

	return sb.String()
}

// Status formats the workspace's workflow position.
func (r *Renderer) Status(ws *state.WorkflowState, nextTask string, counts map[task.Status]int) string {
	var sb strings.Builder

	phase := "none"
	if ws != nil && ws.Phase != state.PhaseNone {
		phase = string(ws.Phase)
	}

	if r.pretty {
		sb.WriteString(color.CyanString("Workflow\n"))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
		fmt.Fprintf(&sb, "Phase:        %s\n", color.YellowString(phase))
	} else {
		fmt.Fprintf(&sb, "phase: %s\n", phase)
	}

	if ws != nil && ws.CurrentTask != "" {
		fmt.Fprintf(&sb, "Current task: %s\n", ws.CurrentTask)
	}
	if nextTask != "" {
		fmt.Fprintf(&sb, "Next task:    %s\n", nextTask)
	}

	fmt.Fprintf(&sb, "Tasks:        %d pending, %d in progress, %d completed, %d failed\n",
		counts[task.StatusPending], counts[task.StatusInProgress],
		counts[task.StatusCompleted], counts[task.StatusFailed])

	if ws != nil && len(ws.Errors) > 0 {
		if r.pretty {
			fmt.Fprintf(&sb, "%s\n", color.RedString(fmt.Sprintf("Errors:       %d recorded", len(ws.Errors))))
		} else {
			fmt.Fprintf(&sb, "errors: %d\n", len(ws.Errors))
		}
	}

	return sb.String()
}

// HealingStats formats the healing service aggregates.
func (r *Renderer) HealingStats(stats healing.Stats) string {
	var sb strings.Builder

	if r.pretty {
		sb.WriteString(color.CyanString("Healing\n"))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}

	fmt.Fprintf(&sb, "Attempts:     %d total, %d succeeded, %d failed\n",
		stats.TotalAttempts, stats.SuccessfulAttempts, stats.FailedAttempts)
	fmt.Fprintf(&sb, "Circuit:      %s (opened %d times)\n",
		r.circuitState(stats.CurrentCircuitState), stats.CircuitOpenCount)

	return sb.String()
}

// CircuitSnapshot formats the breaker's full state.
func (r *Renderer) CircuitSnapshot(snap breaker.Snapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "State:        %s\n", r.circuitState(snap.State))
	fmt.Fprintf(&sb, "Failures:     %d\n", snap.FailureCount)
	fmt.Fprintf(&sb, "Successes:    %d\n", snap.SuccessCount)
	if snap.LastFailureTime != nil {
		fmt.Fprintf(&sb, "Last failure: %s\n", snap.LastFailureTime.Format("2006-01-02 15:04:05"))
	}
	if snap.LastResetTime != nil {
		fmt.Fprintf(&sb, "Last reset:   %s\n", snap.LastResetTime.Format("2006-01-02 15:04:05"))
	}

	return sb.String()
}

func (r *Renderer) circuitState(s breaker.State) string {
	if !r.pretty {
		return string(s)
	}
	switch s {
	case breaker.StateOpen:
		return color.RedString(string(s))
	case breaker.StateHalfOpen:
		return color.YellowString(string(s))
	default:
		return color.GreenString(string(s))
	}
}

// SagaResult formats the outcome of a saga run.
func (r *Renderer) SagaResult(res saga.Result) string {
	var sb strings.Builder

	if res.Success {
		status := "ok"
		if r.pretty {
			status = color.GreenString("✓")
		}
		fmt.Fprintf(&sb, "%s saga completed (%d steps)\n", status, len(res.CompletedSteps))
		return sb.String()
	}

	status := "failed"
	if r.pretty {
		status = color.RedString("✗")
	}
	fmt.Fprintf(&sb, "%s saga failed at %s: %s\n", status, res.FailedStep, res.ErrMessage)
	if res.RollbackPerformed {
		if res.RollbackSuccessful {
			fmt.Fprintf(&sb, "  rolled back %d steps\n", len(res.CompletedSteps))
		} else {
			fmt.Fprintf(&sb, "  rollback incomplete, inspect the workspace\n")
		}
	}

	return sb.String()
}

// RecoveryReport formats the saga log diagnostic.
func (r *Renderer) RecoveryReport(rep *saga.RecoveryReport) string {
	if !rep.Incomplete {
		return rep.Message + "\n"
	}

	msg := rep.Message
	if r.pretty {
		msg = color.YellowString(msg)
	}
	return fmt.Sprintf("%s (%d steps started)\n", msg, rep.StepCount)
}
