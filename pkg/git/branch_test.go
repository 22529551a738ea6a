package git

import (
	"testing"

	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

func TestCurrentBranch(t *testing.T) {
	dir, repo := initRepo(t)
	first := commitFile(t, repo, dir, "a.txt", "a")

	r := openTestRepo(t, dir)
	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	require.NoError(t, repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.HEAD, plumbing.NewHash(first.String()))))
	_, err = r.CurrentBranch()
	assert.ErrorIs(t, err, vcs.ErrDetachedHead)
}

func TestResolveUpstream(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) (string, vcs.UpstreamTarget)
		wantErr error
	}{
		{
			name: "remote tracking branch",
			setup: func(t *testing.T) (string, vcs.UpstreamTarget) {
				dir, repo := initRepo(t)
				base := commitFile(t, repo, dir, "a.txt", "a")
				commitFile(t, repo, dir, "b.txt", "b")
				trackRemote(t, repo, base)
				return dir, vcs.UpstreamTarget{Remote: "origin", Branch: "main", Commit: base}
			},
		},
		{
			name: "local upstream",
			setup: func(t *testing.T) (string, vcs.UpstreamTarget) {
				dir, repo := initRepo(t)
				base := commitFile(t, repo, dir, "a.txt", "a")
				require.NoError(t, repo.Storer.SetReference(
					plumbing.NewHashReference("refs/heads/trunk", plumbing.NewHash(base.String()))))
				commitFile(t, repo, dir, "b.txt", "b")

				cfg, err := repo.Config()
				require.NoError(t, err)
				cfg.Branches["main"] = &config.Branch{Name: "main", Remote: ".", Merge: "refs/heads/trunk"}
				require.NoError(t, repo.SetConfig(cfg))
				return dir, vcs.UpstreamTarget{Branch: "trunk", Commit: base}
			},
		},
		{
			name: "no upstream configured",
			setup: func(t *testing.T) (string, vcs.UpstreamTarget) {
				dir, repo := initRepo(t)
				commitFile(t, repo, dir, "a.txt", "a")
				return dir, vcs.UpstreamTarget{}
			},
			wantErr: vcs.ErrNoUpstreamConfigured,
		},
		{
			name: "detached head",
			setup: func(t *testing.T) (string, vcs.UpstreamTarget) {
				dir, repo := initRepo(t)
				c := commitFile(t, repo, dir, "a.txt", "a")
				trackRemote(t, repo, c)
				require.NoError(t, repo.Storer.SetReference(
					plumbing.NewHashReference(plumbing.HEAD, plumbing.NewHash(c.String()))))
				return dir, vcs.UpstreamTarget{}
			},
			wantErr: vcs.ErrDetachedHead,
		},
		{
			name: "tracking ref not fetched yet",
			setup: func(t *testing.T) (string, vcs.UpstreamTarget) {
				dir, repo := initRepo(t)
				c := commitFile(t, repo, dir, "a.txt", "a")
				trackRemote(t, repo, c)
				require.NoError(t, repo.Storer.RemoveReference("refs/remotes/origin/main"))
				return dir, vcs.UpstreamTarget{}
			},
			wantErr: vcs.ErrAmbiguousOrMissingRef,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, want := tt.setup(t)
			r := openTestRepo(t, dir)

			got, err := r.ResolveUpstream(t.Context())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}
