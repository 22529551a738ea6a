// Package git provides the git adapter for safepush.
//
// Read-only questions about the original repository (revision resolution,
// upstream configuration, merge bases, patches) are answered in-process with
// go-git. Operations that git itself must perform to stay compatible with the
// user's setup (fetch and push credentials, linked worktrees, checkout, clean,
// status with the user's ignore rules) shell out to the git binary.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"

	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

// Repository implements vcs.Inspector and vcs.Operator for one working copy.
type Repository struct {
	root string
	repo *gogit.Repository
	git  *Runner
}

// Open opens the repository containing path. Linked worktrees are supported.
func Open(path string) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	repo, err := openRepo(abs)
	if err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		// Bare repositories have nothing to validate against.
		return nil, fmt.Errorf("%w: %s has no working copy", vcs.ErrNotGitRepo, abs)
	}

	return &Repository{
		root: wt.Filesystem.Root(),
		repo: repo,
		git:  NewRunner(),
	}, nil
}

func openRepo(path string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", vcs.ErrNotGitRepo, path)
		}
		return nil, fmt.Errorf("opening repository %s: %w", path, err)
	}
	return repo, nil
}

// Root returns the top-level directory of the working copy.
func (r *Repository) Root() string {
	return r.root
}

// reload reopens the go-git handle so objects and refs written by the git
// binary (fetch) are visible.
func (r *Repository) reload() error {
	repo, err := openRepo(r.root)
	if err != nil {
		return err
	}
	r.repo = repo
	return nil
}

// Fetch updates remote-tracking refs for remote.
func (r *Repository) Fetch(ctx context.Context, remote string) error {
	if _, err := r.git.Run(ctx, r.root, "fetch", "--quiet", remote); err != nil {
		return fmt.Errorf("%w: fetching %s: %w", vcs.ErrNetwork, redactCredentials(remote), err)
	}
	return r.reload()
}

// Compile-time checks that Repository implements the vcs ports.
var (
	_ vcs.Inspector = (*Repository)(nil)
	_ vcs.Operator  = (*Repository)(nil)
)
