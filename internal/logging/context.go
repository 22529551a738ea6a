// internal/logging/context.go
package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)

	// Trace correlation (from OpenTelemetry)
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if runID := RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run.id", runID))
	}

	if commit := CommitFromContext(ctx); commit != "" {
		fields = append(fields, zap.String("commit", commit))
	}

	return fields
}

// Context key types
type runCtxKey struct{}
type commitCtxKey struct{}

const maxIDLen = 128

var (
	// idPattern allows alphanumeric, hyphen, underscore
	idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// commitPattern allows abbreviated or full hex object names
	commitPattern = regexp.MustCompile(`^[0-9a-f]{4,64}$`)
)

// validateID validates a run ID.
func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, hyphen, underscore)", name)
	}
	return nil
}

// RunIDFromContext extracts the run ID from context.
func RunIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(runCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithRunID adds the run ID to context.
// Panics if runID is empty or contains invalid characters.
func WithRunID(ctx context.Context, runID string) context.Context {
	if err := validateID(runID, "runID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, runCtxKey{}, runID)
}

// CommitFromContext extracts the commit being processed from context.
func CommitFromContext(ctx context.Context) string {
	if c, ok := ctx.Value(commitCtxKey{}).(string); ok {
		return c
	}
	return ""
}

// WithCommit adds the commit being processed to context.
// Panics if commit is not a hex object name.
func WithCommit(ctx context.Context, commit string) context.Context {
	if !commitPattern.MatchString(commit) {
		panic(fmt.Sprintf("logging: commit %q is not a hex object name", commit))
	}
	return context.WithValue(ctx, commitCtxKey{}, commit)
}
