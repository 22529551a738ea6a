// Package report renders orchestrator events for people and logs.
package report

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/safepush/internal/logging"
	"github.com/fyrsmithlabs/safepush/internal/orchestrator"
)

// Colors
var (
	infoColor    = lipgloss.Color("45")
	warningColor = lipgloss.Color("226")
	errorColor   = lipgloss.Color("196")
	successColor = lipgloss.Color("46")
)

// Terminal writes styled one-line events. Colors are only emitted when w
// is a terminal that supports them.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer

	info    lipgloss.Style
	warning lipgloss.Style
	fatal   lipgloss.Style
	success lipgloss.Style
}

// NewTerminal creates a terminal reporter writing to w.
func NewTerminal(w io.Writer) *Terminal {
	r := lipgloss.NewRenderer(w)
	return &Terminal{
		w:       w,
		info:    r.NewStyle().Foreground(infoColor),
		warning: r.NewStyle().Foreground(warningColor).Bold(true),
		fatal:   r.NewStyle().Foreground(errorColor).Bold(true),
		success: r.NewStyle().Foreground(successColor).Bold(true),
	}
}

func (t *Terminal) write(style lipgloss.Style, label, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "%s %s\n", style.Render(label), msg)
}

// Info reports progress.
func (t *Terminal) Info(_ context.Context, msg string) {
	t.write(t.info, "==>", msg)
}

// Warning reports a condition the run continues past.
func (t *Terminal) Warning(_ context.Context, msg string) {
	t.write(t.warning, "warning:", msg)
}

// Fatal reports the error that ended the run.
func (t *Terminal) Fatal(_ context.Context, msg string) {
	t.write(t.fatal, "error:", msg)
}

// Success reports the final outcome.
func (t *Terminal) Success(_ context.Context, msg string) {
	t.write(t.success, "ok:", msg)
}

// Log records events through the structured logger, so they carry the
// run ID and commit from the context.
type Log struct {
	logger *logging.Logger
}

// NewLog creates a reporter writing to logger.
func NewLog(logger *logging.Logger) *Log {
	return &Log{logger: logger.Named("report")}
}

func (l *Log) Info(ctx context.Context, msg string) {
	l.logger.Info(ctx, msg, zap.String("event", "info"))
}

func (l *Log) Warning(ctx context.Context, msg string) {
	l.logger.Warn(ctx, msg, zap.String("event", "warning"))
}

func (l *Log) Fatal(ctx context.Context, msg string) {
	l.logger.Error(ctx, msg, zap.String("event", "fatal"))
}

func (l *Log) Success(ctx context.Context, msg string) {
	l.logger.Info(ctx, msg, zap.String("event", "success"))
}

// Multi fans every event out to each reporter in order.
type Multi []orchestrator.Reporter

func (m Multi) Info(ctx context.Context, msg string) {
	for _, r := range m {
		r.Info(ctx, msg)
	}
}

func (m Multi) Warning(ctx context.Context, msg string) {
	for _, r := range m {
		r.Warning(ctx, msg)
	}
}

func (m Multi) Fatal(ctx context.Context, msg string) {
	for _, r := range m {
		r.Fatal(ctx, msg)
	}
}

func (m Multi) Success(ctx context.Context, msg string) {
	for _, r := range m {
		r.Success(ctx, msg)
	}
}

var (
	_ orchestrator.Reporter = (*Terminal)(nil)
	_ orchestrator.Reporter = (*Log)(nil)
	_ orchestrator.Reporter = Multi(nil)
)
