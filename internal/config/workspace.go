package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkspaceConfig holds per-workspace tuning from .ralph.yaml.
// Missing file yields defaults; env vars still win for breaker settings.
type WorkspaceConfig struct {
	// Breaker tunes the healing circuit breaker
	Breaker BreakerConfig `yaml:"breaker"`

	// BackupExcludes are doublestar globs skipped when copying trees
	// into backup snapshots
	BackupExcludes []string `yaml:"backup_excludes"`

	// FeatureBranchPrefix is prepended to deliver-phase branch names
	FeatureBranchPrefix string `yaml:"feature_branch_prefix"`
}

// BreakerConfig mirrors the circuit breaker knobs.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
}

// DefaultWorkspaceConfig returns the built-in defaults.
func DefaultWorkspaceConfig() WorkspaceConfig {
	e := Env()
	return WorkspaceConfig{
		Breaker: BreakerConfig{
			FailureThreshold: e.HealFailureThreshold,
			SuccessThreshold: e.HealSuccessThreshold,
			ResetTimeout:     time.Duration(e.HealResetTimeoutMs) * time.Millisecond,
		},
		BackupExcludes: []string{
			".git/**",
			"node_modules/**",
			"backups/**",
		},
		FeatureBranchPrefix: "ralph/",
	}
}

// LoadWorkspaceConfig reads .ralph.yaml from the workspace root,
// falling back to defaults when the file is absent.
func LoadWorkspaceConfig(workspace string) (WorkspaceConfig, error) {
	cfg := DefaultWorkspaceConfig()

	path := filepath.Join(workspace, ".ralph.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Breaker.FailureThreshold <= 0 {
		cfg.Breaker.FailureThreshold = 5
	}
	if cfg.Breaker.SuccessThreshold <= 0 {
		cfg.Breaker.SuccessThreshold = 2
	}
	if cfg.Breaker.ResetTimeout <= 0 {
		cfg.Breaker.ResetTimeout = 60 * time.Second
	}

	return cfg, nil
}
