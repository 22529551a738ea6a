// Package vcs defines the version-control domain types and the ports the
// push orchestrator uses to talk to a repository.
package vcs

// CommitRef is a resolved, immutable commit hash.
type CommitRef string

// String returns the full hash.
func (c CommitRef) String() string {
	return string(c)
}

// Short returns the first 7 characters of the hash, or the full hash if shorter.
func (c CommitRef) Short() string {
	if len(c) > 7 {
		return string(c[:7])
	}
	return string(c)
}

// IsZero reports whether the ref is unset.
func (c CommitRef) IsZero() bool {
	return c == ""
}

// UpstreamTarget is the branch the current branch publishes to.
//
// An empty Remote means the upstream is itself a local branch; publishing to
// it moves a local ref and never touches the network.
type UpstreamTarget struct {
	Remote string    // e.g. "origin"; empty for a local upstream
	Branch string    // branch name on the remote, e.g. "main"
	Commit CommitRef // commit the upstream currently points at
}

// IsLocal reports whether the upstream is a local branch.
func (u UpstreamTarget) IsLocal() bool {
	return u.Remote == ""
}

// Name returns the short reference name: "origin/main" for a remote upstream,
// "main" for a local one.
func (u UpstreamTarget) Name() string {
	if u.IsLocal() {
		return u.Branch
	}
	return u.Remote + "/" + u.Branch
}

// RefName returns the full reference the upstream commit is read from.
func (u UpstreamTarget) RefName() string {
	if u.IsLocal() {
		return "refs/heads/" + u.Branch
	}
	return "refs/remotes/" + u.Name()
}
