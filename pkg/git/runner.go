package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

// userinfoPattern matches credentials embedded in a URL.
var userinfoPattern = regexp.MustCompile(`://[^/\s:@]+:[^/\s@]+@`)

// redactCredentials strips userinfo from any URL in s.
func redactCredentials(s string) string {
	return userinfoPattern.ReplaceAllString(s, "://[REDACTED]@")
}

// CommandError describes a failed git invocation. Credentials embedded in
// remote URLs are removed from Args and Stderr.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: exit status %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Runner invokes the git binary.
type Runner struct {
	// Binary is the git executable, "git" by default.
	Binary string
	// Env is appended to the process environment.
	Env []string
}

// NewRunner creates a Runner using git from PATH.
func NewRunner() *Runner {
	return &Runner{Binary: "git"}
}

// Run executes git with args in dir and returns trimmed stdout.
// A non-zero exit is returned as *CommandError.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := r.RunRaw(ctx, dir, args...)
	return strings.TrimSpace(out), err
}

// RunRaw is Run without trimming, for output where leading whitespace is
// significant.
func (r *Runner) RunRaw(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			redacted := make([]string, len(args))
			for i, a := range args {
				redacted[i] = redactCredentials(a)
			}
			return "", &CommandError{
				Args:     redacted,
				ExitCode: exitErr.ExitCode(),
				Stderr:   redactCredentials(strings.TrimSpace(stderr.String())),
			}
		}
		return "", fmt.Errorf("running git %s: %w", redactCredentials(strings.Join(args, " ")), err)
	}

	return stdout.String(), nil
}
