package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/safepush/internal/orchestrator"
)

// flags are the command-line options of one invocation.
type flags struct {
	repo            string
	buildCommand    string
	allAtOnce       bool
	dryRun          bool
	force           bool
	ifNeeded        bool
	noFetch         bool
	noCleanShadow   bool
	scanSecrets     bool
	configFile      string
	verbose         bool
	metricsTextfile string
}

// reportedError marks an error the run already reported to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "safepush [revision]",
		Short: "Build every commit before pushing it upstream",
		Long: `safepush publishes commits to the upstream of the current branch only
after each one builds cleanly in a shadow workspace next to the repository.

The revision defaults to HEAD. Commits between the upstream and the revision
are checked out, built and published one at a time, oldest first, so a
failure leaves the upstream at the last good commit.

Exit status:
  0  success
  1  internal error or interrupted
  2  usage or configuration error
  3  precondition failed (nothing to push, not a fast-forward, no upstream)
  4  shadow workspace setup failed
  5  validation failed (build, residual changes, secrets)
  6  publish rejected
  7  network error

Examples:
  # Validate and push everything ahead of the upstream
  safepush

  # Validate the tip only and push it in one step
  safepush --all

  # See what would happen
  safepush --dry-run -b "make test"`,
		Version: version,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return orchestrator.NewUsageError(err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			revision := ""
			if len(args) == 1 {
				revision = args[0]
			}
			return runPush(cmd.Context(), f, revision, stdout, stderr)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return orchestrator.NewUsageError(err)
	})

	fl := cmd.Flags()
	fl.StringVarP(&f.repo, "repo", "C", ".", "run as if started in this directory")
	fl.StringVarP(&f.buildCommand, "build-command", "b", "", "shell command that validates a commit (default: detected)")
	fl.BoolVarP(&f.allAtOnce, "all", "a", false, "validate and push only the revision, not each commit")
	fl.BoolVarP(&f.dryRun, "dry-run", "n", false, "validate but do not publish")
	fl.BoolVarP(&f.force, "force", "f", false, "allow a non-fast-forward and force-push")
	fl.BoolVar(&f.ifNeeded, "if-needed", false, "succeed when there is nothing to push")
	fl.BoolVar(&f.noFetch, "no-fetch", false, "do not fetch the upstream before checking")
	fl.BoolVar(&f.noCleanShadow, "no-clean-shadow", false, "keep untracked files in the shadow workspace")
	fl.BoolVar(&f.scanSecrets, "scan-secrets", false, "reject commits that add secrets")
	fl.StringVar(&f.configFile, "config", "", "user config file (default ~/.config/safepush/config.yaml)")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "log diagnostics to stderr")
	fl.StringVar(&f.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file after the run")

	return cmd
}

// exitStatus prints errors the run has not reported yet and maps err to
// the process exit status.
func exitStatus(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}

	var reported *reportedError
	if !errors.As(err, &reported) {
		fmt.Fprintf(stderr, "safepush: %v\n", err)
	}
	return orchestrator.ExitCode(err)
}
