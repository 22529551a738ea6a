// Package vcstest provides testify mocks of the vcs collaborator ports.
package vcstest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

// MockInspector is a mock implementation of vcs.Inspector.
type MockInspector struct {
	mock.Mock
	RootDir string
}

func (m *MockInspector) Root() string {
	return m.RootDir
}

func (m *MockInspector) ResolveCommit(ctx context.Context, rev string) (vcs.CommitRef, error) {
	args := m.Called(ctx, rev)
	return args.Get(0).(vcs.CommitRef), args.Error(1)
}

func (m *MockInspector) ResolveUpstream(ctx context.Context) (vcs.UpstreamTarget, error) {
	args := m.Called(ctx)
	return args.Get(0).(vcs.UpstreamTarget), args.Error(1)
}

func (m *MockInspector) Fetch(ctx context.Context, remote string) error {
	args := m.Called(ctx, remote)
	return args.Error(0)
}

func (m *MockInspector) MergeBase(ctx context.Context, a, b vcs.CommitRef) (vcs.CommitRef, error) {
	args := m.Called(ctx, a, b)
	return args.Get(0).(vcs.CommitRef), args.Error(1)
}

func (m *MockInspector) CommitsBetween(ctx context.Context, older, newer vcs.CommitRef) ([]vcs.CommitRef, error) {
	args := m.Called(ctx, older, newer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vcs.CommitRef), args.Error(1)
}

func (m *MockInspector) HasChanges(ctx context.Context, dir string, exclude []string) (bool, error) {
	args := m.Called(ctx, dir, exclude)
	return args.Bool(0), args.Error(1)
}

func (m *MockInspector) CommitPatch(ctx context.Context, commit vcs.CommitRef) (string, error) {
	args := m.Called(ctx, commit)
	return args.String(0), args.Error(1)
}

// MockOperator is a mock implementation of vcs.Operator.
type MockOperator struct {
	mock.Mock
}

func (m *MockOperator) Checkout(ctx context.Context, dir string, commit vcs.CommitRef, force bool) error {
	args := m.Called(ctx, dir, commit, force)
	return args.Error(0)
}

func (m *MockOperator) CleanUntracked(ctx context.Context, dir string, keep []string) error {
	args := m.Called(ctx, dir, keep)
	return args.Error(0)
}

func (m *MockOperator) FastForwardBranch(ctx context.Context, dir, branch string, to vcs.CommitRef) error {
	args := m.Called(ctx, dir, branch, to)
	return args.Error(0)
}

func (m *MockOperator) Push(ctx context.Context, dir, remote string, commit vcs.CommitRef, branch string, force bool) error {
	args := m.Called(ctx, dir, remote, commit, branch, force)
	return args.Error(0)
}

func (m *MockOperator) AddWorktree(ctx context.Context, repoDir, dest string, seed vcs.CommitRef) error {
	args := m.Called(ctx, repoDir, dest, seed)
	return args.Error(0)
}

var (
	_ vcs.Inspector = (*MockInspector)(nil)
	_ vcs.Operator  = (*MockOperator)(nil)
)
