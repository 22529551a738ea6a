package buildrunner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/safepush/internal/logging"
)

// tailSize bounds the stderr kept for diagnostics.
const tailSize = 4096

// Result describes a finished build.
type Result struct {
	Command  Command
	ExitCode int
	Duration time.Duration
}

// ExitError is returned when the build command exits non-zero.
type ExitError struct {
	Command  Command
	ExitCode int
	// Tail holds the last few KB of stderr.
	Tail string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("build command %q exited with status %d", e.Command.String(), e.ExitCode)
}

// Runner executes build commands. Output is streamed to Stdout and Stderr.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	// Env is appended to the process environment.
	Env    []string
	logger *logging.Logger
}

// NewRunner creates a runner streaming to the given writers. Nil writers
// discard output.
func NewRunner(stdout, stderr io.Writer, logger *logging.Logger) *Runner {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{Stdout: stdout, Stderr: stderr, logger: logger}
}

// Run executes cmd with dir as its working directory and blocks until it
// exits. A non-zero exit is returned as *ExitError alongside the Result.
func (r *Runner) Run(ctx context.Context, dir string, cmd Command) (Result, error) {
	if cmd.IsZero() {
		return Result{}, fmt.Errorf("empty build command")
	}

	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = dir
	c.Env = append(os.Environ(), r.Env...)

	tail := &tailBuffer{max: tailSize}
	c.Stdout = r.Stdout
	c.Stderr = io.MultiWriter(r.Stderr, tail)

	r.logger.Debug(ctx, "running build",
		zap.String("dir", dir),
		zap.Stringer("command", cmd),
	)

	start := time.Now()
	err := c.Run()
	result := Result{Command: cmd, Duration: time.Since(start)}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &ExitError{Command: cmd, ExitCode: result.ExitCode, Tail: tail.String()}
		}
		result.ExitCode = -1
		return result, fmt.Errorf("starting build command %q: %w", cmd.String(), err)
	}

	r.logger.Debug(ctx, "build finished", zap.Duration("duration", result.Duration))
	return result, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
