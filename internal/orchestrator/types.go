package orchestrator

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/safepush/internal/buildrunner"
	"github.com/fyrsmithlabs/safepush/internal/publish"
	"github.com/fyrsmithlabs/safepush/internal/shadow"
	"github.com/fyrsmithlabs/safepush/internal/validate"
	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

// Options are the per-run flags.
type Options struct {
	// Revision to push; empty means HEAD.
	Revision string
	// BuildCommand, when set, is used for every commit instead of
	// resolving one from the workspace.
	BuildCommand buildrunner.Command
	// AllAtOnce validates and publishes only the revision itself.
	AllAtOnce bool
	DryRun    bool
	// Force allows a non-fast-forward and force-pushes to a remote upstream.
	Force bool
	// IfNeeded turns "nothing to push" into success.
	IfNeeded bool
	// NoFetch skips fetching the upstream's remote before checking.
	NoFetch bool
	// NoCleanShadow keeps untracked files in the workspace between commits.
	NoCleanShadow bool
}

// Plan is the ordered list of commits a run validates and publishes.
type Plan struct {
	Commits          []vcs.CommitRef
	AllAtOnce        bool
	DryRun           bool
	Force            bool
	FetchBeforeCheck bool
	CleanShadow      bool
}

// BuildPlan builds the plan for toPush. between lists the commits after
// the upstream up to toPush, oldest first; it is ignored in all-at-once
// mode. When between is empty (a forced rewind) the plan is toPush alone.
func BuildPlan(toPush vcs.CommitRef, between []vcs.CommitRef, opts Options) (Plan, error) {
	if toPush.IsZero() {
		return Plan{}, ErrNothingToPush
	}

	plan := Plan{
		AllAtOnce:        opts.AllAtOnce,
		DryRun:           opts.DryRun,
		Force:            opts.Force,
		FetchBeforeCheck: !opts.Force && !opts.NoFetch,
		CleanShadow:      !opts.NoCleanShadow,
	}

	switch {
	case opts.AllAtOnce || len(between) == 0:
		plan.Commits = []vcs.CommitRef{toPush}
	case between[len(between)-1] != toPush:
		return Plan{}, fmt.Errorf("commit range ends at %s, not %s", between[len(between)-1].Short(), toPush.Short())
	default:
		plan.Commits = append([]vcs.CommitRef(nil), between...)
	}
	return plan, nil
}

// Len returns the number of planned commits.
func (p Plan) Len() int {
	return len(p.Commits)
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Upstream vcs.UpstreamTarget
	Strategy publish.Strategy
	// Validated lists commits whose validation passed, in order.
	Validated []vcs.CommitRef
	// Published lists commits made visible upstream, in order. Always
	// empty for a dry run.
	Published     []vcs.CommitRef
	DryRun        bool
	NothingToPush bool
}

// Reporter receives the run's user-facing events. The orchestrator never
// formats terminal output itself.
type Reporter interface {
	Info(ctx context.Context, msg string)
	Warning(ctx context.Context, msg string)
	Fatal(ctx context.Context, msg string)
	Success(ctx context.Context, msg string)
}

// WorkspaceEnsurer finds or creates the shadow workspace.
type WorkspaceEnsurer interface {
	Ensure(ctx context.Context, original string, seed vcs.CommitRef) (*shadow.Workspace, error)
}

// CommitValidator validates one commit in the workspace.
type CommitValidator interface {
	Validate(ctx context.Context, ws *shadow.Workspace, commit vcs.CommitRef, cmd buildrunner.Command) (validate.Result, error)
}

// CommitPublisher publishes one validated commit.
type CommitPublisher interface {
	Publish(ctx context.Context, s publish.Strategy, commit vcs.CommitRef, upstream vcs.UpstreamTarget) (publish.Outcome, error)
}

// Interface assertions for the production implementations.
var (
	_ WorkspaceEnsurer = (*shadow.Manager)(nil)
	_ CommitValidator  = (*validate.Validator)(nil)
	_ CommitPublisher  = (*publish.Publisher)(nil)
)
