// Package buildrunner decides how a commit is built and runs the build.
//
// Resolution walks an ordered list of rules over an injected filesystem and
// stops at the first match. An explicit command always wins. The resolved
// Command is computed once per run and passed by value to every validation.
package buildrunner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/safepush/internal/logging"
)

// ErrNoBuildRunnerFound is returned when no rule matches the workspace.
var ErrNoBuildRunnerFound = errors.New("no build runner found")

// RuleExplicit names commands supplied by the user.
const RuleExplicit = "explicit"

// Command is a resolved build invocation.
type Command struct {
	// Rule is the name of the rule that produced the command.
	Rule string
	Args []string
}

// String returns the command line for display.
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// IsZero reports whether the command is unset.
func (c Command) IsZero() bool {
	return len(c.Args) == 0
}

// Resolver picks the build command for a workspace.
type Resolver struct {
	fs        afero.Fs
	rules     []Rule
	goos      string
	idleGuard bool
	logger    *logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRules replaces the default detection rules.
func WithRules(rules ...Rule) Option {
	return func(r *Resolver) {
		r.rules = rules
	}
}

// WithGOOS overrides the platform used for the idle guard.
func WithGOOS(goos string) Option {
	return func(r *Resolver) {
		r.goos = goos
	}
}

// WithIdleGuard enables or disables the idle-sleep guard.
func WithIdleGuard(enabled bool) Option {
	return func(r *Resolver) {
		r.idleGuard = enabled
	}
}

// WithLogger sets the resolver logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver using DefaultRules(projectDirs).
func NewResolver(fsys afero.Fs, projectDirs []string, opts ...Option) *Resolver {
	r := &Resolver{
		fs:        fsys,
		rules:     DefaultRules(projectDirs),
		goos:      runtime.GOOS,
		idleGuard: true,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns explicit unchanged when non-empty, otherwise the command of
// the first matching rule for dir. Both are wrapped by the idle guard.
func (r *Resolver) Resolve(explicit []string, dir string) (Command, error) {
	ctx := context.Background()

	if len(explicit) > 0 {
		cmd := Command{Rule: RuleExplicit, Args: r.guard(explicit)}
		r.logger.Debug(ctx, "using explicit build command", zap.Stringer("command", cmd))
		return cmd, nil
	}

	for _, rule := range r.rules {
		args, ok := rule.Match(r.fs, dir)
		if !ok {
			r.logger.Trace(ctx, "build rule did not match", zap.String("rule", rule.Name()))
			continue
		}
		cmd := Command{Rule: rule.Name(), Args: r.guard(args)}
		r.logger.Debug(ctx, "resolved build command",
			zap.String("rule", rule.Name()),
			zap.Stringer("command", cmd),
		)
		return cmd, nil
	}

	return Command{}, fmt.Errorf("%w in %s", ErrNoBuildRunnerFound, dir)
}

// guard prevents macOS from idle-sleeping during long builds.
func (r *Resolver) guard(args []string) []string {
	if !r.idleGuard || r.goos != "darwin" {
		return args
	}
	return append([]string{"caffeinate", "-i"}, args...)
}
