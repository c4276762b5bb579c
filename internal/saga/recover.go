package saga

import (
	"encoding/json"

	"github.com/joss/ralph/internal/config"
	"github.com/joss/ralph/internal/fsutil"
)

// RecoveryReport is the diagnostic result of scanning saga.log. It never
// triggers compensation itself; acting on an orphaned saga is an
// operator decision.
type RecoveryReport struct {
	Incomplete bool   `json:"incomplete"`
	Message    string `json:"message"`
	StepCount  int    `json:"step_count,omitempty"`
}

// Recover scans the workspace saga log for a saga that started but never
// reached a terminal event, as after a mid-saga crash.
func Recover(workspace string) (*RecoveryReport, error) {
	paths := config.PathsFor(workspace)

	if !fsutil.Exists(paths.SagaLog) {
		return &RecoveryReport{Message: "No saga recovery needed"}, nil
	}

	lines, err := fsutil.ReadLines(paths.SagaLog)
	if err != nil {
		return nil, err
	}

	open := false
	stepCount := 0
	for _, line := range lines {
		var rec LogRecord
		// A crash can leave one partial trailing line; skip what does
		// not parse.
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}

		switch rec.Event {
		case EventSagaStarted:
			open = true
			stepCount = 0
			if n, ok := rec.Data["steps"].(float64); ok {
				stepCount = int(n)
			}
		case EventSagaCompleted, EventRollbackCompleted:
			open = false
		}
	}

	if !open {
		return &RecoveryReport{Message: "No incomplete sagas found"}, nil
	}

	return &RecoveryReport{
		Incomplete: true,
		Message:    "Found incomplete saga",
		StepCount:  stepCount,
	}, nil
}
