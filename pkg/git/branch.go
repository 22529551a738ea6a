package git

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

// localRemote is the remote name git records when a branch tracks another
// local branch (git branch --set-upstream-to=main).
const localRemote = "."

// CurrentBranch returns the short name of the checked out branch.
// Returns vcs.ErrDetachedHead if HEAD does not point at a branch.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return "", vcs.ErrDetachedHead
	}
	return head.Target().Short(), nil
}

// ResolveUpstream returns the upstream of the current branch, read from
// branch.<name>.remote and branch.<name>.merge, with its current commit.
func (r *Repository) ResolveUpstream(ctx context.Context) (vcs.UpstreamTarget, error) {
	branch, err := r.CurrentBranch()
	if err != nil {
		return vcs.UpstreamTarget{}, fmt.Errorf("%w: %w", vcs.ErrNoUpstreamConfigured, err)
	}

	cfg, err := r.repo.Config()
	if err != nil {
		return vcs.UpstreamTarget{}, fmt.Errorf("reading repository config: %w", err)
	}

	bc, ok := cfg.Branches[branch]
	if !ok || bc.Merge == "" {
		return vcs.UpstreamTarget{}, fmt.Errorf("%w: branch %s", vcs.ErrNoUpstreamConfigured, branch)
	}

	target := vcs.UpstreamTarget{Branch: bc.Merge.Short()}
	if bc.Remote != "" && bc.Remote != localRemote {
		target.Remote = bc.Remote
	}

	ref, err := r.repo.Reference(plumbing.ReferenceName(target.RefName()), true)
	if err != nil {
		return vcs.UpstreamTarget{}, fmt.Errorf("%w: upstream %s of branch %s: %w",
			vcs.ErrAmbiguousOrMissingRef, target.Name(), branch, err)
	}
	target.Commit = vcs.CommitRef(ref.Hash().String())

	return target, nil
}
