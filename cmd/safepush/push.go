package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/safepush/internal/buildrunner"
	"github.com/fyrsmithlabs/safepush/internal/config"
	"github.com/fyrsmithlabs/safepush/internal/logging"
	"github.com/fyrsmithlabs/safepush/internal/metrics"
	"github.com/fyrsmithlabs/safepush/internal/orchestrator"
	"github.com/fyrsmithlabs/safepush/internal/publish"
	"github.com/fyrsmithlabs/safepush/internal/report"
	"github.com/fyrsmithlabs/safepush/internal/shadow"
	"github.com/fyrsmithlabs/safepush/internal/telemetry"
	"github.com/fyrsmithlabs/safepush/internal/validate"
	"github.com/fyrsmithlabs/safepush/pkg/git"
	"github.com/fyrsmithlabs/safepush/pkg/secrets"
)

// runPush wires the components for one run and executes it.
func runPush(ctx context.Context, f flags, revision string, stdout, stderr io.Writer) error {
	repo, err := git.Open(f.repo)
	if err != nil {
		return &orchestrator.Error{Kind: orchestrator.KindPrecondition, Op: "open repository", Ref: f.repo, Err: err}
	}

	cfg, err := config.Load(config.LoadOptions{UserFile: f.configFile, RepoRoot: repo.Root()})
	if err != nil {
		return orchestrator.NewUsageError(err)
	}
	applyFlags(cfg, f)

	logger, err := newLogger(cfg.Logging, f.verbose, stderr)
	if err != nil {
		return orchestrator.NewUsageError(err)
	}
	defer func() { _ = logger.Sync() }()

	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
	if err != nil {
		return orchestrator.NewUsageError(err)
	}
	defer shutdownTelemetry(tel, logger)
	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("reasons", h.Reasons))
	}
	tracer := tel.Tracer("safepush")

	m := metrics.New()
	defer writeMetrics(m, cfg.Metrics.Textfile, logger)

	fsys := afero.NewOsFs()
	resolver := buildrunner.NewResolver(fsys, cfg.Build.ProjectDirs,
		buildrunner.WithIdleGuard(cfg.Build.IdleGuard),
		buildrunner.WithLogger(logger),
	)

	var explicit buildrunner.Command
	if cfg.Build.Command != "" {
		if explicit, err = resolver.Resolve([]string{"sh", "-c", cfg.Build.Command}, repo.Root()); err != nil {
			return orchestrator.NewUsageError(err)
		}
	}

	workspaces := shadow.NewManager(fsys, repo, cfg.Shadow.Caches, logger)

	validateOpts := []validate.Option{
		validate.WithCaches(cfg.Shadow.Caches),
		validate.WithClean(cfg.Shadow.Clean),
		validate.WithTracer(tracer),
		validate.WithMeter(tel.Meter("safepush")),
		validate.WithMetrics(m),
		validate.WithLogger(logger),
	}
	if cfg.Secrets.Scan {
		scanner, err := newScanner(repo.Root(), cfg.Secrets.Allowlist)
		if err != nil {
			return orchestrator.NewUsageError(err)
		}
		validateOpts = append(validateOpts, validate.WithScanner(scanner))
	}

	builder := buildrunner.NewRunner(stdout, stderr, logger)
	validator := validate.New(workspaces, resolver, builder, repo, validateOpts...)
	publisher := publish.New(repo, repo.Root(), publish.WithTracer(tracer), publish.WithLogger(logger))

	reporter := report.Multi{report.NewTerminal(stdout), report.NewLog(logger)}

	orch := orchestrator.New(repo, workspaces, validator, publisher, reporter,
		orchestrator.WithTracer(tracer),
		orchestrator.WithMetrics(m),
		orchestrator.WithLogger(logger),
	)

	_, err = orch.Run(ctx, orchestrator.Options{
		Revision:      revision,
		BuildCommand:  explicit,
		AllAtOnce:     f.allAtOnce,
		DryRun:        f.dryRun,
		Force:         f.force,
		IfNeeded:      f.ifNeeded,
		NoFetch:       !cfg.Push.Fetch,
		NoCleanShadow: !cfg.Shadow.Clean,
	})
	if err != nil {
		return &reportedError{err: err}
	}
	return nil
}

// applyFlags layers command-line flags over the loaded configuration.
func applyFlags(cfg *config.Config, f flags) {
	if f.buildCommand != "" {
		cfg.Build.Command = f.buildCommand
	}
	if f.noFetch {
		cfg.Push.Fetch = false
	}
	if f.noCleanShadow {
		cfg.Shadow.Clean = false
	}
	if f.scanSecrets {
		cfg.Secrets.Scan = true
	}
	if f.metricsTextfile != "" {
		cfg.Metrics.Textfile = f.metricsTextfile
	}
}

func newLogger(c config.LoggingConfig, verbose bool, w io.Writer) (*logging.Logger, error) {
	lc := logging.NewDefaultConfig()
	lc.Format = c.Format

	level, err := logging.LevelFromString(c.Level)
	if err != nil {
		return nil, err
	}
	if verbose && level > zapcore.DebugLevel {
		level = zapcore.DebugLevel
	}
	lc.Level = level

	return logging.NewLogger(lc, w)
}

func newScanner(repoRoot, userAllowlist string) (*secrets.Scanner, error) {
	path, err := config.ExpandHome(userAllowlist)
	if err != nil {
		return nil, err
	}
	allowlist, err := secrets.LoadAllowlists(repoRoot, path)
	if err != nil {
		return nil, fmt.Errorf("loading secret allowlists: %w", err)
	}
	return secrets.NewScanner(allowlist)
}

// shutdownTelemetry flushes exporters within the configured timeout.
func shutdownTelemetry(tel *telemetry.Telemetry, logger *logging.Logger) {
	ctx := context.Background()
	if err := tel.Shutdown(ctx); err != nil {
		logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
}

func writeMetrics(m *metrics.Metrics, path string, logger *logging.Logger) {
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		logger.Warn(context.Background(), "failed to write metrics textfile",
			zap.String("path", path), zap.Error(err))
	}
}
