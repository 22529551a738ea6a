package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

var testSignature = &object.Signature{
	Name:  "Safepush Test",
	Email: "test@example.com",
	When:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
}

// initRepo creates a repository on branch main in a temp dir.
func initRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	require.NoError(t, err)
	return dir, repo
}

// commitFile writes name=content and commits it, returning the new commit.
func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content string) vcs.CommitRef {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit("update "+name, &gogit.CommitOptions{Author: testSignature})
	require.NoError(t, err)
	return vcs.CommitRef(hash.String())
}

// trackRemote configures main to track origin/main pointing at commit.
func trackRemote(t *testing.T, repo *gogit.Repository, commit vcs.CommitRef) {
	t.Helper()
	cfg, err := repo.Config()
	require.NoError(t, err)
	cfg.Remotes["origin"] = &config.RemoteConfig{
		Name:  "origin",
		URLs:  []string{"https://example.com/repo.git"},
		Fetch: []config.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
	}
	cfg.Branches["main"] = &config.Branch{Name: "main", Remote: "origin", Merge: "refs/heads/main"}
	require.NoError(t, repo.SetConfig(cfg))

	ref := plumbing.NewHashReference("refs/remotes/origin/main", plumbing.NewHash(commit.String()))
	require.NoError(t, repo.Storer.SetReference(ref))
}

func openTestRepo(t *testing.T, dir string) *Repository {
	t.Helper()
	r, err := Open(dir)
	require.NoError(t, err)
	return r
}

// requireGit skips tests that need the git binary.
func requireGit(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping git binary test in short mode")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// gitCmd runs git in dir with a fixed identity.
func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	r := NewRunner()
	r.Env = []string{
		"GIT_AUTHOR_NAME=Safepush Test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Safepush Test", "GIT_COMMITTER_EMAIL=test@example.com",
	}
	out, err := r.Run(t.Context(), dir, args...)
	require.NoError(t, err)
	return out
}
