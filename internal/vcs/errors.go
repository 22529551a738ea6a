package vcs

import "errors"

var (
	// ErrAmbiguousOrMissingRef indicates a revision could not be resolved to a single commit.
	ErrAmbiguousOrMissingRef = errors.New("ambiguous or missing revision")

	// ErrNoUpstreamConfigured indicates the current branch tracks nothing.
	ErrNoUpstreamConfigured = errors.New("no upstream configured for current branch")

	// ErrDetachedHead indicates HEAD is not on a branch, so no upstream can be derived.
	ErrDetachedHead = errors.New("detached HEAD state")

	// ErrNoMergeBase indicates two commits share no history.
	ErrNoMergeBase = errors.New("no common ancestor")

	// ErrNetwork indicates a fetch from the remote failed.
	ErrNetwork = errors.New("network operation failed")

	// ErrRemoteDiverged indicates the remote branch moved since the pre-flight check
	// and a non-forced push was rejected.
	ErrRemoteDiverged = errors.New("remote branch has diverged")

	// ErrPushRejected indicates the remote refused a push for a reason other than divergence.
	ErrPushRejected = errors.New("push rejected")

	// ErrNotGitRepo indicates the directory is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")
)
