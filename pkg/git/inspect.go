package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

// ResolveCommit resolves rev to a commit hash. Annotated tags are peeled.
func (r *Repository) ResolveCommit(ctx context.Context, rev string) (vcs.CommitRef, error) {
	if rev == "" {
		return "", fmt.Errorf("%w: empty revision", vcs.ErrAmbiguousOrMissingRef)
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", vcs.ErrAmbiguousOrMissingRef, rev, err)
	}

	commit, err := r.commitObject(*hash)
	if err != nil {
		return "", fmt.Errorf("%w: %s does not name a commit: %w", vcs.ErrAmbiguousOrMissingRef, rev, err)
	}

	return vcs.CommitRef(commit.Hash.String()), nil
}

func (r *Repository) commitObject(hash plumbing.Hash) (*object.Commit, error) {
	commit, err := r.repo.CommitObject(hash)
	if err == nil {
		return commit, nil
	}
	tag, tagErr := r.repo.TagObject(hash)
	if tagErr != nil {
		return nil, err
	}
	return tag.Commit()
}

// MergeBase returns the best common ancestor of a and b.
func (r *Repository) MergeBase(ctx context.Context, a, b vcs.CommitRef) (vcs.CommitRef, error) {
	ca, err := r.commitObject(plumbing.NewHash(a.String()))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", vcs.ErrAmbiguousOrMissingRef, a.Short(), err)
	}
	cb, err := r.commitObject(plumbing.NewHash(b.String()))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", vcs.ErrAmbiguousOrMissingRef, b.Short(), err)
	}

	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", fmt.Errorf("computing merge base of %s and %s: %w", a.Short(), b.Short(), err)
	}
	if len(bases) == 0 {
		return "", fmt.Errorf("%w: %s and %s", vcs.ErrNoMergeBase, a.Short(), b.Short())
	}

	return vcs.CommitRef(bases[0].Hash.String()), nil
}

// CommitsBetween lists older..newer, oldest first, in topological order.
func (r *Repository) CommitsBetween(ctx context.Context, older, newer vcs.CommitRef) ([]vcs.CommitRef, error) {
	out, err := r.git.Run(ctx, r.root, "rev-list", "--reverse", "--topo-order",
		older.String()+".."+newer.String())
	if err != nil {
		return nil, fmt.Errorf("listing commits %s..%s: %w", older.Short(), newer.Short(), err)
	}
	return parseRevList(out), nil
}

func parseRevList(out string) []vcs.CommitRef {
	var commits []vcs.CommitRef
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			commits = append(commits, vcs.CommitRef(line))
		}
	}
	return commits
}

// CommitPatch returns the diff commit introduces against its first parent.
func (r *Repository) CommitPatch(ctx context.Context, commit vcs.CommitRef) (string, error) {
	c, err := r.commitObject(plumbing.NewHash(commit.String()))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", vcs.ErrAmbiguousOrMissingRef, commit.Short(), err)
	}

	tree, err := c.Tree()
	if err != nil {
		return "", fmt.Errorf("reading tree of %s: %w", commit.Short(), err)
	}

	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return "", fmt.Errorf("reading parent of %s: %w", commit.Short(), err)
		}
		if parentTree, err = parent.Tree(); err != nil {
			return "", fmt.Errorf("reading parent tree of %s: %w", commit.Short(), err)
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return "", fmt.Errorf("diffing %s: %w", commit.Short(), err)
	}
	patch, err := changes.PatchContext(ctx)
	if err != nil {
		return "", fmt.Errorf("building patch for %s: %w", commit.Short(), err)
	}

	return patch.String(), nil
}
