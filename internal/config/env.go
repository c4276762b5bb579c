// Package config provides centralized configuration management.
// Eliminates scattered os.Getenv calls across the codebase.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// RalphEnv holds all ralph environment variables.
type RalphEnv struct {
	// Workspace is the workspace root directory (RALPH_WORKSPACE)
	Workspace string

	// SessionID is the current session identifier (RALPH_SESSION_ID)
	SessionID string

	// LogLevel controls structured log filtering (RALPH_LOG_LEVEL)
	LogLevel string

	// HealFailureThreshold opens the healing circuit after this many
	// consecutive failures (RALPH_HEAL_FAILURE_THRESHOLD)
	HealFailureThreshold int

	// HealSuccessThreshold closes a half-open circuit after this many
	// consecutive probe successes (RALPH_HEAL_SUCCESS_THRESHOLD)
	HealSuccessThreshold int

	// HealResetTimeoutMs is the open-circuit cooldown before the next
	// call may probe (RALPH_HEAL_RESET_TIMEOUT_MS)
	HealResetTimeoutMs int
}

var (
	env     *RalphEnv
	envOnce sync.Once
)

// Env returns the singleton environment configuration.
// Thread-safe, loads once on first call.
func Env() *RalphEnv {
	envOnce.Do(func() {
		env = &RalphEnv{
			Workspace:            getEnvDefault("RALPH_WORKSPACE", "."),
			SessionID:            os.Getenv("RALPH_SESSION_ID"),
			LogLevel:             getEnvDefault("RALPH_LOG_LEVEL", "info"),
			HealFailureThreshold: getEnvInt("RALPH_HEAL_FAILURE_THRESHOLD", 5),
			HealSuccessThreshold: getEnvInt("RALPH_HEAL_SUCCESS_THRESHOLD", 2),
			HealResetTimeoutMs:   getEnvInt("RALPH_HEAL_RESET_TIMEOUT_MS", 60000),
		}
	})
	return env
}

// ResetEnv resets the cached environment (for testing).
func ResetEnv() {
	envOnce = sync.Once{}
	env = nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// Paths holds the standard file layout inside a workspace.
type Paths struct {
	// Workspace is the workspace root
	Workspace string

	// TasksDir holds task detail documents and the index
	TasksDir string

	// IndexFile is the task index (tasks/index.json)
	IndexFile string

	// StateFile is the workflow state record (state.json)
	StateFile string

	// SagaLog is the append-only saga audit log (saga.log)
	SagaLog string

	// BackupsDir holds timestamped backup snapshots
	BackupsDir string

	// HistoryDB is the healing attempt history database
	HistoryDB string
}

// PathsFor returns the standard layout rooted at workspace.
func PathsFor(workspace string) Paths {
	return Paths{
		Workspace:  workspace,
		TasksDir:   filepath.Join(workspace, "tasks"),
		IndexFile:  filepath.Join(workspace, "tasks", "index.json"),
		StateFile:  filepath.Join(workspace, "state.json"),
		SagaLog:    filepath.Join(workspace, "saga.log"),
		BackupsDir: filepath.Join(workspace, "backups"),
		HistoryDB:  filepath.Join(workspace, "healing.db"),
	}
}
