package git

import (
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

func TestOpen_NotARepository(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, vcs.ErrNotGitRepo)
}

func TestOpen_Subdirectory(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "src/main.go", "package main")

	r := openTestRepo(t, dir+"/src")
	assert.Equal(t, dir, r.Root())
}

func TestResolveCommit(t *testing.T) {
	dir, repo := initRepo(t)
	first := commitFile(t, repo, dir, "a.txt", "a")
	second := commitFile(t, repo, dir, "a.txt", "b")

	_, err := repo.CreateTag("v1", plumbing.NewHash(first.String()), &gogit.CreateTagOptions{
		Tagger:  testSignature,
		Message: "v1",
	})
	require.NoError(t, err)

	r := openTestRepo(t, dir)

	tests := []struct {
		rev     string
		want    vcs.CommitRef
		wantErr bool
	}{
		{rev: "HEAD", want: second},
		{rev: "main", want: second},
		{rev: "HEAD~1", want: first},
		{rev: second.String(), want: second},
		{rev: "v1", want: first},
		{rev: "does-not-exist", wantErr: true},
		{rev: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.rev, func(t *testing.T) {
			got, err := r.ResolveCommit(t.Context(), tt.rev)
			if tt.wantErr {
				assert.ErrorIs(t, err, vcs.ErrAmbiguousOrMissingRef)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeBase(t *testing.T) {
	dir, repo := initRepo(t)
	base := commitFile(t, repo, dir, "a.txt", "a")
	head := commitFile(t, repo, dir, "b.txt", "b")

	r := openTestRepo(t, dir)

	got, err := r.MergeBase(t.Context(), head, base)
	require.NoError(t, err)
	assert.Equal(t, base, got)

	got, err = r.MergeBase(t.Context(), head, head)
	require.NoError(t, err)
	assert.Equal(t, head, got)
}

func TestMergeBase_UnknownCommit(t *testing.T) {
	dir, repo := initRepo(t)
	head := commitFile(t, repo, dir, "a.txt", "a")

	r := openTestRepo(t, dir)
	_, err := r.MergeBase(t.Context(), head, vcs.CommitRef("0123456789012345678901234567890123456789"))
	assert.ErrorIs(t, err, vcs.ErrAmbiguousOrMissingRef)
}

func TestCommitPatch(t *testing.T) {
	dir, repo := initRepo(t)
	root := commitFile(t, repo, dir, "config.txt", "first line\n")
	next := commitFile(t, repo, dir, "config.txt", "first line\nsecond line\n")

	r := openTestRepo(t, dir)

	patch, err := r.CommitPatch(t.Context(), next)
	require.NoError(t, err)
	assert.Contains(t, patch, "+second line")
	assert.NotContains(t, patch, "+first line")

	patch, err = r.CommitPatch(t.Context(), root)
	require.NoError(t, err)
	assert.Contains(t, patch, "+first line")
}

func TestParseRevList(t *testing.T) {
	assert.Empty(t, parseRevList(""))
	assert.Equal(t,
		[]vcs.CommitRef{"aaa", "bbb"},
		parseRevList("aaa\nbbb\n"),
	)
}

func TestCommitsBetween(t *testing.T) {
	requireGit(t)

	dir, repo := initRepo(t)
	base := commitFile(t, repo, dir, "a.txt", "a")
	c1 := commitFile(t, repo, dir, "b.txt", "b")
	c2 := commitFile(t, repo, dir, "c.txt", "c")

	r := openTestRepo(t, dir)

	got, err := r.CommitsBetween(t.Context(), base, c2)
	require.NoError(t, err)
	assert.Equal(t, []vcs.CommitRef{c1, c2}, got)

	got, err = r.CommitsBetween(t.Context(), c2, c2)
	require.NoError(t, err)
	assert.Empty(t, got)
}
