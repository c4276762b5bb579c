package saga

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joss/ralph/internal/config"
	"github.com/joss/ralph/internal/fsutil"
	"github.com/joss/ralph/internal/gitops"
)

// gitignore entries ralph needs in every workspace it manages.
var gitignoreEntries = []string{
	"backups/",
	"saga.log",
	"healing.db",
}

// Factory builds the saga step lists for phase transitions. Unknown
// phases get an empty list so the caller can run a trivially
// successful saga.
type Factory struct {
	cfg config.WorkspaceConfig
}

func NewFactory(cfg config.WorkspaceConfig) *Factory {
	return &Factory{cfg: cfg}
}

// CreateForPhase returns the steps guarding entry into the named
// phase. Phases without a saga return an empty slice, never an error.
func (f *Factory) CreateForPhase(phase, workspace string) []Step {
	switch phase {
	case "breakdown":
		return f.Phase2Saga(workspace)
	case "implement":
		return f.Phase3Saga(workspace)
	case "deliver":
		return f.Phase5Saga(workspace)
	default:
		return []Step{}
	}
}

// Phase2Saga prepares a workspace for task breakdown: snapshot whatever
// task state already exists, then create the tasks directory and an
// empty index. Backups are additive, so backup_existing_state does not
// roll back.
func (f *Factory) Phase2Saga(workspace string) []Step {
	paths := config.PathsFor(workspace)
	stamp := time.Now().UTC().Format("20060102-150405")
	backupDir := filepath.Join(paths.BackupsDir, stamp+"-before-breakdown")

	var createdTasksDir, createdIndex bool

	return []Step{
		NewStep("backup_existing_state",
			"snapshot existing tasks and state before breakdown",
			func(ctx context.Context) error {
				if fsutil.Exists(paths.TasksDir) {
					if err := fsutil.CopyTree(paths.TasksDir, filepath.Join(backupDir, "tasks"), f.cfg.BackupExcludes); err != nil {
						return err
					}
				}
				if fsutil.Exists(paths.StateFile) {
					if err := fsutil.EnsureDir(backupDir); err != nil {
						return err
					}
					return fsutil.CopyFile(paths.StateFile, filepath.Join(backupDir, "state.json"))
				}
				return nil
			},
			nil),

		NewStep("initialize_tasks_directory",
			"create the tasks directory",
			func(ctx context.Context) error {
				if fsutil.Exists(paths.TasksDir) {
					return nil
				}
				createdTasksDir = true
				return fsutil.EnsureDir(paths.TasksDir)
			},
			func(ctx context.Context) error {
				if !createdTasksDir {
					return nil
				}
				return fsutil.RemoveTree(paths.TasksDir)
			}),

		NewStep("create_task_index",
			"write an empty task index",
			func(ctx context.Context) error {
				if fsutil.Exists(paths.IndexFile) {
					return nil
				}
				createdIndex = true
				index := map[string]any{
					"version":   "1.0.0",
					"createdAt": time.Now().UTC().Format(time.RFC3339),
					"tasks":     map[string]any{},
				}
				return fsutil.WriteJSON(paths.IndexFile, index)
			},
			func(ctx context.Context) error {
				if !createdIndex {
					return nil
				}
				return fsutil.RemoveTree(paths.IndexFile)
			}),

		NewStep("verify_gitignore",
			"ensure ralph artifacts are gitignored",
			func(ctx context.Context) error {
				return ensureGitignore(workspace)
			},
			nil),
	}
}

// Phase3Saga is the implement-phase safety net: stash the working tree
// and snapshot the task index so a failed transition can restore both.
// Missing preconditions (no git repo, no index yet) are silent no-ops.
func (f *Factory) Phase3Saga(workspace string) []Step {
	paths := config.PathsFor(workspace)
	stamp := time.Now().UTC().Format("20060102-150405")
	indexBackup := filepath.Join(paths.BackupsDir, stamp+"-before-implement-index.json")

	var stashed, backedUp bool

	return []Step{
		NewStep("create_git_stash",
			"stash uncommitted changes before implementation",
			func(ctx context.Context) error {
				if !gitops.IsRepo(workspace) {
					return nil
				}
				repo, err := gitops.Open(workspace)
				if err != nil {
					return nil
				}
				created, err := repo.Stash("ralph-pre-implement-" + stamp)
				if err != nil {
					// best effort, the stash is a safety net
					return nil
				}
				stashed = created
				return nil
			},
			func(ctx context.Context) error {
				if !stashed {
					return nil
				}
				repo, err := gitops.Open(workspace)
				if err != nil {
					return nil
				}
				// best effort
				_ = repo.StashPop()
				return nil
			}),

		NewStep("backup_task_states",
			"snapshot the task index before mutation",
			func(ctx context.Context) error {
				if !fsutil.Exists(paths.IndexFile) {
					return nil
				}
				if err := fsutil.EnsureDir(paths.BackupsDir); err != nil {
					return err
				}
				if err := fsutil.CopyFile(paths.IndexFile, indexBackup); err != nil {
					return err
				}
				backedUp = true
				return nil
			},
			func(ctx context.Context) error {
				if !backedUp {
					return nil
				}
				return fsutil.CopyFile(indexBackup, paths.IndexFile)
			}),
	}
}

// Phase5Saga guards delivery: cut a feature branch and commit the
// working tree on it. Outside a git repo both steps succeed without
// doing anything.
func (f *Factory) Phase5Saga(workspace string) []Step {
	stamp := time.Now().UTC().Format("20060102-150405")
	branch := f.cfg.FeatureBranchPrefix + stamp

	var previousBranch string
	var branchCreated, committed bool

	return []Step{
		NewStep("create_feature_branch",
			"create and switch to a delivery branch",
			func(ctx context.Context) error {
				if !gitops.IsRepo(workspace) {
					return nil
				}
				repo, err := gitops.Open(workspace)
				if err != nil {
					return nil
				}
				previousBranch, err = repo.CurrentBranch()
				if err != nil {
					// No HEAD yet (repo without commits): nothing to
					// branch from.
					return nil
				}
				if err := repo.CreateBranch(branch); err != nil {
					return fmt.Errorf("create feature branch: %w", err)
				}
				branchCreated = true
				return nil
			},
			func(ctx context.Context) error {
				if !branchCreated {
					return nil
				}
				repo, err := gitops.Open(workspace)
				if err != nil {
					return nil
				}
				if previousBranch != "" {
					_ = repo.CheckoutBranch(previousBranch)
				}
				_ = repo.DeleteBranch(branch)
				return nil
			}),

		NewStep("create_git_commit",
			"commit the delivery on the feature branch",
			func(ctx context.Context) error {
				if !gitops.IsRepo(workspace) {
					return nil
				}
				repo, err := gitops.Open(workspace)
				if err != nil {
					return nil
				}
				dirty, err := repo.HasChanges()
				if err != nil || !dirty {
					return nil
				}
				if _, err := repo.Commit("ralph: deliver " + stamp); err != nil {
					return fmt.Errorf("create delivery commit: %w", err)
				}
				committed = true
				return nil
			},
			func(ctx context.Context) error {
				if !committed {
					return nil
				}
				repo, err := gitops.Open(workspace)
				if err != nil {
					return nil
				}
				// best effort
				_ = repo.SoftResetLast()
				return nil
			}),
	}
}

// ensureGitignore appends any missing ralph entries to the workspace's
// .gitignore, creating the file when absent. Existing content is never
// rewritten.
func ensureGitignore(workspace string) error {
	path := filepath.Join(workspace, ".gitignore")
	lines, err := fsutil.ReadLines(path)
	if err != nil {
		return err
	}

	present := make(map[string]bool, len(lines))
	for _, line := range lines {
		present[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, entry := range gitignoreEntries {
		if !present[entry] {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var b strings.Builder
	if len(lines) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("# ralph\n")
	for _, entry := range missing {
		b.WriteString(entry)
		b.WriteString("\n")
	}
	_, err = f.WriteString(b.String())
	return err
}
