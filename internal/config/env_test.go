package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnv(t *testing.T) {
	// Reset env for clean test
	ResetEnv()

	os.Setenv("RALPH_WORKSPACE", "/tmp/test-ws")
	os.Setenv("RALPH_SESSION_ID", "sess-123")
	os.Setenv("RALPH_HEAL_FAILURE_THRESHOLD", "3")
	defer func() {
		os.Unsetenv("RALPH_WORKSPACE")
		os.Unsetenv("RALPH_SESSION_ID")
		os.Unsetenv("RALPH_HEAL_FAILURE_THRESHOLD")
		ResetEnv()
	}()

	env := Env()

	assert.Equal(t, "/tmp/test-ws", env.Workspace)
	assert.Equal(t, "sess-123", env.SessionID)
	assert.Equal(t, 3, env.HealFailureThreshold)
}

func TestEnvDefaults(t *testing.T) {
	ResetEnv()

	os.Unsetenv("RALPH_WORKSPACE")
	os.Unsetenv("RALPH_HEAL_FAILURE_THRESHOLD")
	os.Unsetenv("RALPH_HEAL_SUCCESS_THRESHOLD")
	os.Unsetenv("RALPH_HEAL_RESET_TIMEOUT_MS")
	defer ResetEnv()

	env := Env()

	assert.Equal(t, ".", env.Workspace)
	assert.Equal(t, 5, env.HealFailureThreshold)
	assert.Equal(t, 2, env.HealSuccessThreshold)
	assert.Equal(t, 60000, env.HealResetTimeoutMs)
}

func TestEnvSingleton(t *testing.T) {
	ResetEnv()
	defer ResetEnv()

	env1 := Env()
	env2 := Env()

	assert.Same(t, env1, env2)
}

func TestEnvIgnoresInvalidInt(t *testing.T) {
	ResetEnv()
	os.Setenv("RALPH_HEAL_FAILURE_THRESHOLD", "not-a-number")
	defer func() {
		os.Unsetenv("RALPH_HEAL_FAILURE_THRESHOLD")
		ResetEnv()
	}()

	assert.Equal(t, 5, Env().HealFailureThreshold)
}

func TestPathsFor(t *testing.T) {
	p := PathsFor("/work/project")

	assert.Equal(t, filepath.Join("/work/project", "tasks", "index.json"), p.IndexFile)
	assert.Equal(t, filepath.Join("/work/project", "state.json"), p.StateFile)
	assert.Equal(t, filepath.Join("/work/project", "saga.log"), p.SagaLog)
	assert.Equal(t, filepath.Join("/work/project", "backups"), p.BackupsDir)
}

func TestLoadWorkspaceConfigMissingFile(t *testing.T) {
	ResetEnv()
	defer ResetEnv()

	cfg, err := LoadWorkspaceConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 2, cfg.Breaker.SuccessThreshold)
	assert.Equal(t, 60*time.Second, cfg.Breaker.ResetTimeout)
	assert.Contains(t, cfg.BackupExcludes, ".git/**")
}

func TestLoadWorkspaceConfigFile(t *testing.T) {
	ResetEnv()
	defer ResetEnv()

	dir := t.TempDir()
	content := `
breaker:
  failure_threshold: 2
  success_threshold: 1
  reset_timeout: 5s
backup_excludes:
  - "dist/**"
feature_branch_prefix: "feat/"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ralph.yaml"), []byte(content), 0644))

	cfg, err := LoadWorkspaceConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 1, cfg.Breaker.SuccessThreshold)
	assert.Equal(t, 5*time.Second, cfg.Breaker.ResetTimeout)
	assert.Equal(t, []string{"dist/**"}, cfg.BackupExcludes)
	assert.Equal(t, "feat/", cfg.FeatureBranchPrefix)
}

func TestLoadWorkspaceConfigInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ralph.yaml"), []byte("{not yaml"), 0644))

	_, err := LoadWorkspaceConfig(dir)
	assert.Error(t, err)
}
