package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

// Checkout checks out commit as a detached HEAD in dir.
func (r *Repository) Checkout(ctx context.Context, dir string, commit vcs.CommitRef, force bool) error {
	args := []string{"checkout", "--quiet", "--detach"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, commit.String())

	if _, err := r.git.Run(ctx, dir, args...); err != nil {
		return fmt.Errorf("checking out %s in %s: %w", commit.Short(), dir, err)
	}
	return nil
}

// CleanUntracked removes untracked and ignored files in dir except keep.
func (r *Repository) CleanUntracked(ctx context.Context, dir string, keep []string) error {
	args := []string{"clean", "-ffdxq"}
	for _, k := range keep {
		// -e patterns survive -x; the leading slash anchors to dir.
		args = append(args, "-e", "/"+strings.Trim(k, "/"))
	}

	if _, err := r.git.Run(ctx, dir, args...); err != nil {
		return fmt.Errorf("cleaning %s: %w", dir, err)
	}
	return nil
}

// FastForwardBranch moves branch to commit by fetching from the repository
// itself. git only performs the update as a fast-forward and refuses to move
// a branch that is checked out.
func (r *Repository) FastForwardBranch(ctx context.Context, dir, branch string, to vcs.CommitRef) error {
	refspec := to.String() + ":refs/heads/" + branch
	if _, err := r.git.Run(ctx, dir, "fetch", "--quiet", ".", refspec); err != nil {
		return fmt.Errorf("fast-forwarding %s to %s: %w", branch, to.Short(), classifyUpdateError(err))
	}
	return nil
}

// Push publishes commit to refs/heads/branch on remote.
func (r *Repository) Push(ctx context.Context, dir, remote string, commit vcs.CommitRef, branch string, force bool) error {
	args := []string{"push", "--quiet"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, remote, commit.String()+":refs/heads/"+branch)

	if _, err := r.git.Run(ctx, dir, args...); err != nil {
		return fmt.Errorf("pushing %s to %s/%s: %w", commit.Short(), redactCredentials(remote), branch, classifyUpdateError(err))
	}
	return nil
}

// AddWorktree creates a linked worktree at dest detached at seed.
func (r *Repository) AddWorktree(ctx context.Context, repoDir, dest string, seed vcs.CommitRef) error {
	if _, err := r.git.Run(ctx, repoDir, "worktree", "add", "--quiet", "--detach", dest, seed.String()); err != nil {
		return fmt.Errorf("adding worktree %s: %w", dest, err)
	}
	return nil
}

// classifyUpdateError maps a failed push or ref update onto the vcs sentinels.
func classifyUpdateError(err error) error {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return err
	}

	stderr := cmdErr.Stderr
	switch {
	case strings.Contains(stderr, "non-fast-forward"),
		strings.Contains(stderr, "fetch first"),
		strings.Contains(stderr, "stale info"):
		return fmt.Errorf("%w: %w", vcs.ErrRemoteDiverged, err)
	case strings.Contains(stderr, "[remote rejected]"),
		strings.Contains(stderr, "[rejected]"),
		strings.Contains(stderr, "refusing to fetch into"):
		return fmt.Errorf("%w: %w", vcs.ErrPushRejected, err)
	default:
		return err
	}
}
