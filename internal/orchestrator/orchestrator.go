package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/safepush/internal/buildrunner"
	"github.com/fyrsmithlabs/safepush/internal/logging"
	"github.com/fyrsmithlabs/safepush/internal/metrics"
	"github.com/fyrsmithlabs/safepush/internal/publish"
	"github.com/fyrsmithlabs/safepush/internal/shadow"
	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

// Span names emitted by a run.
const (
	SpanRun    = "safepush.run"
	SpanCommit = "safepush.commit"
)

// Orchestrator runs the push protocol.
type Orchestrator struct {
	inspector  vcs.Inspector
	workspaces WorkspaceEnsurer
	validator  CommitValidator
	publisher  CommitPublisher
	reporter   Reporter

	tracer   trace.Tracer
	metrics  *metrics.Metrics
	logger   *logging.Logger
	newRunID func() string
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTracer sets the tracer for run and commit spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithRunIDFunc overrides run ID generation.
func WithRunIDFunc(f func() string) Option {
	return func(o *Orchestrator) { o.newRunID = f }
}

// New creates an orchestrator over the given collaborators.
func New(inspector vcs.Inspector, workspaces WorkspaceEnsurer, validator CommitValidator, publisher CommitPublisher, reporter Reporter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		inspector:  inspector,
		workspaces: workspaces,
		validator:  validator,
		publisher:  publisher,
		reporter:   reporter,
		tracer:     noop.NewTracerProvider().Tracer("safepush"),
		logger:     logging.NewNop(),
		newRunID:   uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one push. The returned summary is non-nil even on error and
// lists what was published before the failure.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (summary *Summary, err error) {
	summary = &Summary{RunID: o.newRunID(), DryRun: opts.DryRun}

	ctx = logging.WithRunID(ctx, summary.RunID)
	ctx, span := o.tracer.Start(ctx, SpanRun, trace.WithAttributes(
		attribute.Bool("safepush.dry_run", opts.DryRun),
		attribute.Bool("safepush.force", opts.Force),
		attribute.Bool("safepush.all_at_once", opts.AllAtOnce),
	))

	defer func() {
		span.SetAttributes(
			attribute.String("safepush.strategy", summary.Strategy.String()),
			attribute.Int("safepush.published", len(summary.Published)),
		)
		o.finish(ctx, summary, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if opts.DryRun {
		o.reporter.Warning(ctx, "dry run: nothing will be published")
	}

	plan, upstream, err := o.preflight(ctx, opts, summary)
	if err != nil || summary.NothingToPush {
		return summary, err
	}

	o.reporter.Info(ctx, fmt.Sprintf("%d commit(s) to validate before %s to %s",
		plan.Len(), summary.Strategy, upstream.Name()))

	ws, err := o.workspaces.Ensure(ctx, o.inspector.Root(), plan.Commits[0])
	if err != nil {
		return summary, newError("shadow workspace", KindResourceSetup, plan.Commits[0], "", err)
	}
	if ws.Created {
		o.reporter.Info(ctx, "created shadow workspace at "+ws.Path)
	}

	cmd := opts.BuildCommand
	for i, commit := range plan.Commits {
		if err := ctx.Err(); err != nil {
			return summary, newError("run", KindInternal, commit, "", err)
		}

		o.reporter.Info(ctx, fmt.Sprintf("validating %s (%d/%d)", commit.Short(), i+1, plan.Len()))

		if cmd, err = o.processCommit(ctx, ws, commit, cmd, upstream, summary); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// preflight resolves the revision and upstream and checks the push is
// allowed. It sets summary.NothingToPush for an IfNeeded no-op.
func (o *Orchestrator) preflight(ctx context.Context, opts Options, summary *Summary) (Plan, vcs.UpstreamTarget, error) {
	rev := opts.Revision
	if rev == "" {
		rev = "HEAD"
	}

	toPush, err := o.inspector.ResolveCommit(ctx, rev)
	if err != nil {
		return Plan{}, vcs.UpstreamTarget{}, newError("resolve", KindPrecondition, "", rev, err)
	}

	upstream, err := o.inspector.ResolveUpstream(ctx)
	if err != nil {
		return Plan{}, vcs.UpstreamTarget{}, newError("resolve upstream", KindPrecondition, "", "", err)
	}

	if !opts.Force && !opts.NoFetch && !upstream.IsLocal() {
		o.reporter.Info(ctx, "fetching "+upstream.Remote)
		if err := o.inspector.Fetch(ctx, upstream.Remote); err != nil {
			return Plan{}, upstream, newError("fetch", KindNetwork, "", upstream.Remote, err)
		}
		if upstream, err = o.inspector.ResolveUpstream(ctx); err != nil {
			return Plan{}, upstream, newError("resolve upstream", KindPrecondition, "", "", err)
		}
	}

	summary.Upstream = upstream
	summary.Strategy = publish.ChooseStrategy(upstream, opts.DryRun, opts.Force)

	if toPush == upstream.Commit {
		if opts.IfNeeded {
			summary.NothingToPush = true
			o.reporter.Success(ctx, fmt.Sprintf("nothing to push: %s is already at %s", upstream.Name(), toPush.Short()))
			return Plan{}, upstream, nil
		}
		return Plan{}, upstream, newError("check", KindPrecondition, toPush, upstream.Name(), ErrNothingToPush)
	}

	if err := o.checkFastForward(ctx, toPush, upstream, opts.Force); err != nil {
		return Plan{}, upstream, err
	}

	var between []vcs.CommitRef
	if !opts.AllAtOnce {
		if between, err = o.inspector.CommitsBetween(ctx, upstream.Commit, toPush); err != nil {
			return Plan{}, upstream, newError("list commits", KindPrecondition, toPush, upstream.Name(), err)
		}
	}

	plan, err := BuildPlan(toPush, between, opts)
	if err != nil {
		return Plan{}, upstream, newError("plan", KindPrecondition, toPush, upstream.Name(), err)
	}
	return plan, upstream, nil
}

// checkFastForward requires upstream to be an ancestor of toPush. With
// force the failure is reported as a warning and the run continues.
func (o *Orchestrator) checkFastForward(ctx context.Context, toPush vcs.CommitRef, upstream vcs.UpstreamTarget, force bool) error {
	base, err := o.inspector.MergeBase(ctx, toPush, upstream.Commit)
	if err != nil && !errors.Is(err, vcs.ErrNoMergeBase) {
		return newError("merge-base", KindPrecondition, toPush, upstream.Name(), err)
	}
	if base == upstream.Commit {
		return nil
	}

	if !force {
		return newError("check", KindPrecondition, toPush, upstream.Name(), ErrNotFastForward)
	}
	o.reporter.Warning(ctx, fmt.Sprintf("%s is not a fast-forward of %s; continuing because of --force",
		toPush.Short(), upstream.Name()))
	return nil
}

// processCommit validates and publishes one commit, returning the build
// command to reuse for the next one.
func (o *Orchestrator) processCommit(ctx context.Context, ws *shadow.Workspace, commit vcs.CommitRef, cmd buildrunner.Command, upstream vcs.UpstreamTarget, summary *Summary) (buildrunner.Command, error) {
	ctx = logging.WithCommit(ctx, commit.String())
	ctx, span := o.tracer.Start(ctx, SpanCommit, trace.WithAttributes(
		attribute.String("safepush.commit", commit.String()),
		attribute.String("safepush.strategy", summary.Strategy.String()),
		attribute.Bool("safepush.dry_run", summary.DryRun),
	))
	defer span.End()

	result, err := o.validator.Validate(ctx, ws, commit, cmd)
	if err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return cmd, newError("validate", KindValidation, commit, "", err)
	}
	summary.Validated = append(summary.Validated, commit)

	out, err := o.publisher.Publish(ctx, summary.Strategy, commit, upstream)
	if err != nil {
		span.SetStatus(codes.Error, "publish failed")
		return result.Command, newError("publish", KindPublish, commit, upstream.Name(), err)
	}
	if out.Published {
		summary.Published = append(summary.Published, commit)
		o.metrics.RecordPublished(1)
	}

	o.logger.Debug(ctx, "commit done",
		zap.Bool("published", out.Published),
		zap.Stringer("strategy", out.Strategy),
	)
	return result.Command, nil
}

// finish reports the outcome and records run metrics.
func (o *Orchestrator) finish(ctx context.Context, summary *Summary, err error) {
	result := metrics.ResultPublished
	switch {
	case err != nil:
		result = metrics.ResultFailed
		kind := KindOf(err)
		o.metrics.RecordFailure(string(kind))
		o.reporter.Fatal(ctx, err.Error())
		o.logger.Error(ctx, "run failed", zap.Error(err), zap.String("kind", string(kind)))
	case summary.NothingToPush:
		result = metrics.ResultNothingToPush
	case summary.DryRun:
		result = metrics.ResultDryRun
		o.reporter.Success(ctx, fmt.Sprintf("dry run (simulated): would have published %s to %s",
			shortList(summary.Validated), summary.Upstream.Name()))
	default:
		o.reporter.Success(ctx, fmt.Sprintf("published %s to %s",
			shortList(summary.Published), summary.Upstream.Name()))
	}
	o.metrics.RecordRun(summary.RunID, summary.Strategy.String(), result, o.now())
}

func shortList(commits []vcs.CommitRef) string {
	if len(commits) == 0 {
		return "nothing"
	}
	parts := make([]string, len(commits))
	for i, c := range commits {
		parts[i] = c.Short()
	}
	return strings.Join(parts, ", ")
}
