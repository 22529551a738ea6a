package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/safepush/internal/buildrunner"
	"github.com/fyrsmithlabs/safepush/internal/shadow"
	"github.com/fyrsmithlabs/safepush/internal/validate"
	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

var (
	// ErrNothingToPush indicates the revision already is the upstream commit.
	ErrNothingToPush = errors.New("nothing to push")

	// ErrNotFastForward indicates the upstream is not an ancestor of the
	// revision to push.
	ErrNotFastForward = errors.New("not a fast-forward")
)

// Kind classifies run failures. Each kind has its own exit status.
type Kind string

const (
	KindUsage         Kind = "usage"
	KindPrecondition  Kind = "precondition"
	KindResourceSetup Kind = "resource_setup"
	KindValidation    Kind = "validation"
	KindPublish       Kind = "publish"
	KindNetwork       Kind = "network"
	// KindInternal covers everything else, including cancellation.
	KindInternal Kind = "internal"
)

// ExitCode returns the process exit status for the kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindUsage:
		return 2
	case KindPrecondition:
		return 3
	case KindResourceSetup:
		return 4
	case KindValidation:
		return 5
	case KindPublish:
		return 6
	case KindNetwork:
		return 7
	default:
		return 1
	}
}

// Error is a terminal run failure.
type Error struct {
	Kind   Kind
	Op     string        // The step that failed (e.g., "fetch", "validate")
	Commit vcs.CommitRef // Offending commit, if any
	Ref    string        // Offending reference, if any
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Commit != "" {
		fmt.Fprintf(&b, " %s", e.Commit.Short())
	}
	if e.Ref != "" {
		fmt.Fprintf(&b, " (%s)", e.Ref)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewUsageError wraps a command-line error.
func NewUsageError(err error) *Error {
	return &Error{Kind: KindUsage, Op: "usage", Err: err}
}

// KindOf returns the kind of err, KindInternal if it carries none, or ""
// for a nil error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ExitCode returns the process exit status for err: 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).ExitCode()
}

// classify picks the kind for err from its sentinels, falling back to def.
func classify(err error, def Kind) Kind {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindInternal
	case errors.Is(err, vcs.ErrNetwork):
		return KindNetwork
	case errors.Is(err, vcs.ErrRemoteDiverged), errors.Is(err, vcs.ErrPushRejected):
		return KindPublish
	case errors.Is(err, shadow.ErrWorkspaceSetup):
		return KindResourceSetup
	case errors.Is(err, validate.ErrValidationFailed),
		errors.Is(err, validate.ErrResidualChanges),
		errors.Is(err, buildrunner.ErrNoBuildRunnerFound):
		return KindValidation
	case errors.Is(err, ErrNothingToPush),
		errors.Is(err, ErrNotFastForward),
		errors.Is(err, vcs.ErrNoUpstreamConfigured),
		errors.Is(err, vcs.ErrAmbiguousOrMissingRef),
		errors.Is(err, vcs.ErrDetachedHead),
		errors.Is(err, vcs.ErrNotGitRepo):
		return KindPrecondition
	default:
		return def
	}
}

func newError(op string, def Kind, commit vcs.CommitRef, ref string, err error) *Error {
	return &Error{Kind: classify(err, def), Op: op, Commit: commit, Ref: ref, Err: err}
}
