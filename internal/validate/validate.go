// Package validate builds one commit in the shadow workspace and decides
// whether it may be published.
//
// A commit passes when its build command exits zero, the build leaves no
// changes behind in the workspace, and, when a scanner is configured, the
// patch it introduces contains no secrets.
package validate

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/safepush/internal/buildrunner"
	"github.com/fyrsmithlabs/safepush/internal/logging"
	"github.com/fyrsmithlabs/safepush/internal/metrics"
	"github.com/fyrsmithlabs/safepush/internal/shadow"
	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

var (
	// ErrValidationFailed indicates the build failed or the secret gate
	// rejected the commit.
	ErrValidationFailed = errors.New("validation failed")

	// ErrResidualChanges indicates the build modified or created files in
	// the workspace that are not linked caches.
	ErrResidualChanges = errors.New("build left uncommitted changes")
)

// SpanBuild is the span emitted around each commit's validation.
const SpanBuild = "safepush.build"

// OpenTelemetry instruments recorded by the validator.
const (
	MetricBuildDuration    = "safepush.build.duration"
	MetricCommitsValidated = "safepush.commits.validated"
)

// Workspaces prepares the shadow workspace for a commit.
type Workspaces interface {
	Prepare(ctx context.Context, ws *shadow.Workspace, commit vcs.CommitRef, cleanFirst bool) error
	LinkSharedCaches(ctx context.Context, ws *shadow.Workspace, candidates []string) ([]string, error)
}

// CommandResolver picks the build command for a prepared workspace.
type CommandResolver interface {
	Resolve(explicit []string, dir string) (buildrunner.Command, error)
}

// Builder runs a build command in a directory.
type Builder interface {
	Run(ctx context.Context, dir string, cmd buildrunner.Command) (buildrunner.Result, error)
}

// PatchScanner rejects patches that introduce secrets.
type PatchScanner interface {
	ScanPatch(patch string) error
}

// Result is the outcome of validating one commit.
type Result struct {
	Commit          vcs.CommitRef
	Passed          bool
	ResidualChanges bool
	// Command is the command that ran. Callers pass it back to later
	// Validate calls so it is resolved once per run.
	Command buildrunner.Command
	Build   buildrunner.Result
	// Linked lists caches linked by this call.
	Linked []string
}

// Validator validates commits.
type Validator struct {
	workspaces Workspaces
	resolver   CommandResolver
	builder    Builder
	inspector  vcs.Inspector
	scanner    PatchScanner
	caches     []string
	clean      bool
	tracer     trace.Tracer
	meter      metric.Meter
	metrics    *metrics.Metrics
	logger     *logging.Logger

	buildDuration metric.Float64Histogram
	validated     metric.Int64Counter
}

// Option configures a Validator.
type Option func(*Validator)

// WithScanner enables the secret gate.
func WithScanner(s PatchScanner) Option {
	return func(v *Validator) { v.scanner = s }
}

// WithCaches sets the cache directories linked from the original.
func WithCaches(caches []string) Option {
	return func(v *Validator) { v.caches = caches }
}

// WithClean controls whether untracked files are removed before each build.
func WithClean(clean bool) Option {
	return func(v *Validator) { v.clean = clean }
}

// WithTracer sets the tracer for build spans.
func WithTracer(t trace.Tracer) Option {
	return func(v *Validator) { v.tracer = t }
}

// WithMeter sets the meter for the build duration histogram and the
// validated commit counter.
func WithMeter(m metric.Meter) Option {
	return func(v *Validator) { v.meter = m }
}

// WithMetrics records build durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Validator) { v.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New creates a validator. By default it links shadow.DefaultCaches and
// cleans the workspace before each build.
func New(workspaces Workspaces, resolver CommandResolver, builder Builder, inspector vcs.Inspector, opts ...Option) *Validator {
	v := &Validator{
		workspaces: workspaces,
		resolver:   resolver,
		builder:    builder,
		inspector:  inspector,
		caches:     shadow.DefaultCaches,
		clean:      true,
		tracer:     noop.NewTracerProvider().Tracer("safepush"),
		meter:      metricnoop.NewMeterProvider().Meter("safepush"),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.initInstruments()
	return v
}

// initInstruments creates the OpenTelemetry instruments, falling back to
// no-op instruments when the meter rejects them.
func (v *Validator) initInstruments() {
	var err error
	v.buildDuration, err = v.meter.Float64Histogram(MetricBuildDuration,
		metric.WithDescription("Duration of the build command per commit"),
		metric.WithUnit("s"),
	)
	if err != nil {
		v.logger.Warn(context.Background(), "failed to create build duration histogram", zap.Error(err))
		v.buildDuration = metricnoop.Float64Histogram{}
	}

	v.validated, err = v.meter.Int64Counter(MetricCommitsValidated,
		metric.WithDescription("Commits that passed build, residue and secret checks"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		v.logger.Warn(context.Background(), "failed to create validated commit counter", zap.Error(err))
		v.validated = metricnoop.Int64Counter{}
	}
}

// Validate checks out commit in ws, links caches, runs cmd and checks the
// outcome. A zero cmd is resolved against the workspace and returned in
// Result.Command. Any returned error means the commit must not be published.
func (v *Validator) Validate(ctx context.Context, ws *shadow.Workspace, commit vcs.CommitRef, cmd buildrunner.Command) (Result, error) {
	ctx, span := v.tracer.Start(ctx, SpanBuild, trace.WithAttributes(
		attribute.String("safepush.commit", commit.String()),
		attribute.String("safepush.workspace", ws.Path),
	))
	defer span.End()

	result, err := v.validate(ctx, ws, commit, cmd)
	span.SetAttributes(
		attribute.String("safepush.build.rule", result.Command.Rule),
		attribute.Int("safepush.build.exit_code", result.Build.ExitCode),
		attribute.Bool("safepush.passed", result.Passed),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (v *Validator) validate(ctx context.Context, ws *shadow.Workspace, commit vcs.CommitRef, cmd buildrunner.Command) (Result, error) {
	result := Result{Commit: commit, Command: cmd}

	if err := v.workspaces.Prepare(ctx, ws, commit, v.clean); err != nil {
		return result, err
	}

	linked, err := v.workspaces.LinkSharedCaches(ctx, ws, v.caches)
	result.Linked = linked
	if err != nil {
		return result, err
	}

	if result.Command.IsZero() {
		resolved, err := v.resolver.Resolve(nil, ws.Path)
		if err != nil {
			return result, err
		}
		result.Command = resolved
		v.logger.Info(ctx, "resolved build command",
			zap.String("rule", resolved.Rule),
			zap.Stringer("command", resolved),
		)
	}

	build, err := v.builder.Run(ctx, ws.Path, result.Command)
	result.Build = build
	v.recordBuild(ctx, build, err == nil)
	if err != nil {
		return result, fmt.Errorf("%w: commit %s: %w", ErrValidationFailed, commit.Short(), err)
	}

	dirty, err := v.inspector.HasChanges(ctx, ws.Path, ws.Linked)
	if err != nil {
		return result, fmt.Errorf("checking workspace after build of %s: %w", commit.Short(), err)
	}
	if dirty {
		result.ResidualChanges = true
		return result, fmt.Errorf("%w: commit %s in %s", ErrResidualChanges, commit.Short(), ws.Path)
	}

	if v.scanner != nil {
		patch, err := v.inspector.CommitPatch(ctx, commit)
		if err != nil {
			return result, fmt.Errorf("reading patch of %s: %w", commit.Short(), err)
		}
		if err := v.scanner.ScanPatch(patch); err != nil {
			return result, fmt.Errorf("%w: commit %s: %w", ErrValidationFailed, commit.Short(), err)
		}
	}

	result.Passed = true
	v.metrics.RecordValidated()
	v.validated.Add(ctx, 1)
	v.logger.Debug(ctx, "commit validated",
		zap.Duration("duration", build.Duration),
	)
	return result, nil
}

func (v *Validator) recordBuild(ctx context.Context, build buildrunner.Result, passed bool) {
	v.metrics.RecordBuild(build.Duration, passed)

	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	v.buildDuration.Record(ctx, build.Duration.Seconds(),
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

var (
	_ Workspaces      = (*shadow.Manager)(nil)
	_ CommandResolver = (*buildrunner.Resolver)(nil)
	_ Builder         = (*buildrunner.Runner)(nil)
)
