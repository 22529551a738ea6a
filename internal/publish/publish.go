// Package publish makes validated commits visible on the upstream.
//
// The strategy is chosen once per run from the upstream and the run flags,
// then applied to every validated commit in order.
package publish

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/safepush/internal/logging"
	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

// ErrUnknownStrategy is returned for a Strategy value outside the enum.
var ErrUnknownStrategy = errors.New("unknown publish strategy")

// Strategy is how a validated commit reaches the upstream.
type Strategy int

const (
	// StrategySkip publishes nothing (dry run).
	StrategySkip Strategy = iota
	// StrategyLocalFastForward moves a local upstream branch to the commit.
	// It never touches the network.
	StrategyLocalFastForward
	// StrategyForcePush overwrites the remote branch.
	StrategyForcePush
	// StrategyPush updates the remote branch, failing if it has diverged.
	StrategyPush
)

// String returns the strategy name used in logs and reports.
func (s Strategy) String() string {
	switch s {
	case StrategySkip:
		return "skip"
	case StrategyLocalFastForward:
		return "local-fast-forward"
	case StrategyForcePush:
		return "force-push"
	case StrategyPush:
		return "push"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ChooseStrategy picks the strategy for a run. Dry run wins over
// everything; a local upstream is always fast-forwarded, even with force.
func ChooseStrategy(upstream vcs.UpstreamTarget, dryRun, force bool) Strategy {
	switch {
	case dryRun:
		return StrategySkip
	case upstream.IsLocal():
		return StrategyLocalFastForward
	case force:
		return StrategyForcePush
	default:
		return StrategyPush
	}
}

// Outcome is the result of publishing one commit.
type Outcome struct {
	Strategy  Strategy
	Commit    vcs.CommitRef
	Upstream  vcs.UpstreamTarget
	Published bool // false for StrategySkip
}

// Publisher applies strategies against the original repository.
type Publisher struct {
	git     vcs.Operator
	repoDir string
	tracer  trace.Tracer
	logger  *logging.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithTracer sets the tracer for publish spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Publisher) { p.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// New creates a publisher acting on the repository at repoDir. Local
// fast-forwards run there so the original's branch is the one moved.
func New(git vcs.Operator, repoDir string, opts ...Option) *Publisher {
	p := &Publisher{
		git:     git,
		repoDir: repoDir,
		tracer:  noop.NewTracerProvider().Tracer("safepush"),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish applies s to commit. Errors from the version-control layer keep
// their sentinels (vcs.ErrRemoteDiverged, vcs.ErrPushRejected).
func (p *Publisher) Publish(ctx context.Context, s Strategy, commit vcs.CommitRef, upstream vcs.UpstreamTarget) (Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "safepush.publish", trace.WithAttributes(
		attribute.String("safepush.commit", commit.String()),
		attribute.String("safepush.strategy", s.String()),
		attribute.String("safepush.upstream", upstream.Name()),
	))
	defer span.End()

	out := Outcome{Strategy: s, Commit: commit, Upstream: upstream}

	var err error
	switch s {
	case StrategySkip:
		p.logger.Info(ctx, "dry run, not publishing", zap.String("upstream", upstream.Name()))
		return out, nil
	case StrategyLocalFastForward:
		err = p.git.FastForwardBranch(ctx, p.repoDir, upstream.Branch, commit)
	case StrategyForcePush:
		p.logger.Warn(ctx, "force-pushing", zap.String("upstream", upstream.Name()))
		err = p.git.Push(ctx, p.repoDir, upstream.Remote, commit, upstream.Branch, true)
	case StrategyPush:
		err = p.git.Push(ctx, p.repoDir, upstream.Remote, commit, upstream.Branch, false)
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}

	if err != nil {
		span.RecordError(err)
		return out, fmt.Errorf("publishing %s to %s (%s): %w", commit.Short(), upstream.Name(), s, err)
	}

	out.Published = true
	p.logger.Info(ctx, "published",
		zap.String("upstream", upstream.Name()),
		zap.Stringer("strategy", s),
	)
	return out, nil
}
