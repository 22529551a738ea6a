package vcs

import "context"

// Inspector answers questions about the original repository. Apart from
// Fetch, which updates remote-tracking refs, it never mutates anything.
type Inspector interface {
	// Root returns the top-level directory of the working copy.
	Root() string

	// ResolveCommit resolves a revision (branch, tag, hash, HEAD) to a commit.
	// Returns ErrAmbiguousOrMissingRef if it does not name exactly one commit.
	ResolveCommit(ctx context.Context, rev string) (CommitRef, error)

	// ResolveUpstream returns the upstream of the current branch with its
	// current commit. Returns ErrNoUpstreamConfigured if nothing is tracked.
	ResolveUpstream(ctx context.Context) (UpstreamTarget, error)

	// Fetch updates remote-tracking refs for remote. Failures wrap ErrNetwork.
	Fetch(ctx context.Context, remote string) error

	// MergeBase returns the best common ancestor of a and b.
	// Returns ErrNoMergeBase if the histories are unrelated.
	MergeBase(ctx context.Context, a, b CommitRef) (CommitRef, error)

	// CommitsBetween lists commits reachable from newer but not from older,
	// oldest first.
	CommitsBetween(ctx context.Context, older, newer CommitRef) ([]CommitRef, error)

	// HasChanges reports modified, staged or untracked files in the working
	// copy at dir, ignoring paths listed in exclude (relative to dir).
	HasChanges(ctx context.Context, dir string, exclude []string) (bool, error)

	// CommitPatch returns the unified diff a commit introduces against its
	// first parent (or the empty tree for a root commit).
	CommitPatch(ctx context.Context, commit CommitRef) (string, error)
}

// Operator performs the mutating version-control operations. Every method
// takes the directory it acts on explicitly; nothing depends on the process
// working directory.
type Operator interface {
	// Checkout checks out commit as a detached HEAD in dir. With force,
	// local modifications are discarded.
	Checkout(ctx context.Context, dir string, commit CommitRef, force bool) error

	// CleanUntracked removes untracked and ignored files in dir, except the
	// relative paths listed in keep.
	CleanUntracked(ctx context.Context, dir string, keep []string) error

	// FastForwardBranch moves local branch to commit in the repository at dir,
	// refusing anything that is not a fast-forward.
	FastForwardBranch(ctx context.Context, dir, branch string, to CommitRef) error

	// Push publishes commit to branch on remote. Without force a rejected
	// non-fast-forward update returns ErrRemoteDiverged.
	Push(ctx context.Context, dir, remote string, commit CommitRef, branch string, force bool) error

	// AddWorktree creates a linked working copy of the repository at repoDir
	// in dest, sharing its object database, detached at seed.
	AddWorktree(ctx context.Context, repoDir, dest string, seed CommitRef) error
}
