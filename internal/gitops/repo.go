// Package gitops provides the git operations consumed by the phase
// sagas: stash safety nets, feature branches and delivery commits.
package gitops

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo wraps a git repository rooted at or above a working directory.
type Repo struct {
	repo    *git.Repository
	workDir string
}

// Open opens the repository containing workDir. Returns an error when
// workDir is not inside a git repository.
func Open(workDir string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(workDir, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open git repo at %s: %w", workDir, err)
	}
	return &Repo{repo: r, workDir: workDir}, nil
}

// IsRepo reports whether workDir is inside a git repository.
func IsRepo(workDir string) bool {
	_, err := git.PlainOpenWithOptions(workDir, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	return err == nil
}

// CurrentBranch returns the short name of the checked-out branch.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}
	return head.Name().Short(), nil
}

// BranchExists checks for a local branch.
func (r *Repo) BranchExists(branch string) (bool, error) {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("check branch %s: %w", branch, err)
}

// CreateBranch creates branch and switches to it. An existing branch is
// just checked out.
func (r *Repo) CreateBranch(branch string) error {
	exists, err := r.BranchExists(branch)
	if err != nil {
		return err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: !exists,
	})
	if err != nil {
		return fmt.Errorf("checkout branch %s: %w", branch, err)
	}
	return nil
}

// CheckoutBranch switches to an existing branch.
func (r *Repo) CheckoutBranch(branch string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
	})
	if err != nil {
		return fmt.Errorf("checkout branch %s: %w", branch, err)
	}
	return nil
}

// DeleteBranch removes a local branch reference.
func (r *Repo) DeleteBranch(branch string) error {
	err := r.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(branch))
	if err != nil {
		return fmt.Errorf("delete branch %s: %w", branch, err)
	}
	return nil
}

// HasChanges reports whether the working tree is dirty.
func (r *Repo) HasChanges() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("worktree status: %w", err)
	}
	return !status.IsClean(), nil
}

// Commit stages everything and commits with the given message. Returns
// the commit hash.
func (r *Repo) Commit(message string) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("get worktree: %w", err)
	}

	if err := wt.AddGlob("."); err != nil {
		return "", fmt.Errorf("stage changes: %w", err)
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "ralph",
			Email: "ralph@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}

// Stash pushes the working tree (including untracked files) onto the
// stash. go-git has no stash support, so this shells out like the rest
// of the ecosystem does. Returns false with nil error when there was
// nothing to stash.
func (r *Repo) Stash(label string) (bool, error) {
	out, err := r.git("stash", "push", "--include-untracked", "-m", label)
	if err != nil {
		return false, fmt.Errorf("git stash push: %w: %s", err, out)
	}
	if strings.Contains(out, "No local changes to save") {
		return false, nil
	}
	return true, nil
}

// StashPop restores the most recent stash entry.
func (r *Repo) StashPop() error {
	out, err := r.git("stash", "pop")
	if err != nil {
		return fmt.Errorf("git stash pop: %w: %s", err, out)
	}
	return nil
}

// SoftResetLast undoes the last commit keeping the working tree intact.
func (r *Repo) SoftResetLast() error {
	out, err := r.git("reset", "--soft", "HEAD~1")
	if err != nil {
		return fmt.Errorf("git reset --soft: %w: %s", err, out)
	}
	return nil
}

func (r *Repo) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.workDir
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}
