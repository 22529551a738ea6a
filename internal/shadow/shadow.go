// Package shadow manages the shadow workspace: a linked worktree next to the
// original checkout in which every commit is built before publication.
//
// The workspace lives at a deterministic sibling path and is reused across
// runs. Heavy dependency directories (node_modules, .gradle, ...) are
// symlinked from the original so each commit does not re-download them.
package shadow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/safepush/internal/logging"
	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

// ErrWorkspaceSetup wraps every failure to create, link or prepare the
// workspace.
var ErrWorkspaceSetup = errors.New("shadow workspace setup failed")

// DefaultCaches are the dependency directories linked when configuration
// does not say otherwise.
var DefaultCaches = []string{"node_modules", ".gradle", ".venv", "bower_components"}

// Workspace is a shadow working copy.
type Workspace struct {
	Path     string
	Original string
	// Created is true when this run created the workspace.
	Created bool
	// Linked lists cache paths, relative to Path, that are symlinks into
	// Original. They are kept by clean and ignored by the residue check.
	Linked []string
}

// Manager creates and prepares shadow workspaces.
type Manager struct {
	fs     afero.Fs
	git    vcs.Operator
	caches []string
	logger *logging.Logger
}

// NewManager creates a manager. fsys must support symlinks (afero.OsFs) for
// cache linking. caches are the candidates checked by Ensure for links left
// by earlier runs.
func NewManager(fsys afero.Fs, git vcs.Operator, caches []string, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{fs: fsys, git: git, caches: caches, logger: logger}
}

// PathFor returns the workspace location for original: a hidden sibling
// named after it, e.g. /src/app -> /src/.app-shadow.
func PathFor(original string) string {
	clean := filepath.Clean(original)
	return filepath.Join(filepath.Dir(clean), "."+filepath.Base(clean)+"-shadow")
}

// Ensure returns the workspace for original, creating it as a linked
// worktree detached at seed if it does not exist.
func (m *Manager) Ensure(ctx context.Context, original string, seed vcs.CommitRef) (*Workspace, error) {
	ws := &Workspace{Path: PathFor(original), Original: original}

	info, err := m.fs.Stat(ws.Path)
	switch {
	case err == nil && info.IsDir():
		ws.Linked = m.existingLinks(ws)
		m.logger.Debug(ctx, "reusing shadow workspace",
			zap.String("path", ws.Path),
			zap.Strings("linked", ws.Linked),
		)
		return ws, nil
	case err == nil:
		return nil, fmt.Errorf("%w: %s exists and is not a directory", ErrWorkspaceSetup, ws.Path)
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %w", ErrWorkspaceSetup, err)
	}

	if err := m.git.AddWorktree(ctx, original, ws.Path, seed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkspaceSetup, err)
	}
	ws.Created = true

	m.logger.Info(ctx, "created shadow workspace",
		zap.String("path", ws.Path),
		zap.String("seed", seed.Short()),
	)
	return ws, nil
}

// Prepare force-checks out commit in the workspace, discarding local
// modifications. With cleanFirst, untracked and ignored files are removed
// except the linked caches, so no commit sees residue of the previous one.
func (m *Manager) Prepare(ctx context.Context, ws *Workspace, commit vcs.CommitRef, cleanFirst bool) error {
	if err := m.git.Checkout(ctx, ws.Path, commit, true); err != nil {
		return fmt.Errorf("%w: %w", ErrWorkspaceSetup, err)
	}
	if !cleanFirst {
		return nil
	}
	if err := m.git.CleanUntracked(ctx, ws.Path, ws.Linked); err != nil {
		return fmt.Errorf("%w: %w", ErrWorkspaceSetup, err)
	}
	return nil
}

// LinkSharedCaches symlinks each candidate that exists in the original but
// not yet in the workspace, and records it in ws.Linked. Paths already
// linked are left alone. Returns the paths linked by this call.
func (m *Manager) LinkSharedCaches(ctx context.Context, ws *Workspace, candidates []string) ([]string, error) {
	linker, ok := m.fs.(afero.Linker)
	if !ok {
		return nil, fmt.Errorf("%w: filesystem %s does not support symlinks", ErrWorkspaceSetup, m.fs.Name())
	}

	var linked []string
	for _, rel := range candidates {
		if slices.Contains(ws.Linked, rel) {
			continue
		}

		source := filepath.Join(ws.Original, rel)
		if _, err := m.fs.Stat(source); err != nil {
			continue
		}

		dest := filepath.Join(ws.Path, rel)
		if m.lexists(dest) {
			continue
		}

		if err := m.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return linked, fmt.Errorf("%w: %w", ErrWorkspaceSetup, err)
		}
		if err := linker.SymlinkIfPossible(source, dest); err != nil {
			return linked, fmt.Errorf("%w: linking %s: %w", ErrWorkspaceSetup, rel, err)
		}

		ws.Linked = append(ws.Linked, rel)
		linked = append(linked, rel)
		m.logger.Debug(ctx, "linked shared cache", zap.String("path", rel))
	}

	return linked, nil
}

// existingLinks returns the configured caches that are already symlinks
// in the workspace.
func (m *Manager) existingLinks(ws *Workspace) []string {
	lstater, ok := m.fs.(afero.Lstater)
	if !ok {
		return nil
	}
	var links []string
	for _, rel := range m.caches {
		info, _, err := lstater.LstatIfPossible(filepath.Join(ws.Path, rel))
		if err == nil && info.Mode()&os.ModeSymlink != 0 {
			links = append(links, rel)
		}
	}
	return links
}

// lexists reports whether path exists without following a final symlink.
func (m *Manager) lexists(path string) bool {
	if lstater, ok := m.fs.(afero.Lstater); ok {
		_, _, err := lstater.LstatIfPossible(path)
		return err == nil
	}
	_, err := m.fs.Stat(path)
	return err == nil
}
