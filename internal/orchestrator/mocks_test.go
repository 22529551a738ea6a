package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/fyrsmithlabs/safepush/internal/buildrunner"
	"github.com/fyrsmithlabs/safepush/internal/shadow"
	"github.com/fyrsmithlabs/safepush/internal/validate"
	"github.com/fyrsmithlabs/safepush/internal/vcs"
)

// MockEnsurer is a mock implementation of WorkspaceEnsurer
type MockEnsurer struct {
	mock.Mock
}

func (m *MockEnsurer) Ensure(ctx context.Context, original string, seed vcs.CommitRef) (*shadow.Workspace, error) {
	args := m.Called(ctx, original, seed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shadow.Workspace), args.Error(1)
}

// MockValidator is a mock implementation of CommitValidator
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(ctx context.Context, ws *shadow.Workspace, commit vcs.CommitRef, cmd buildrunner.Command) (validate.Result, error) {
	args := m.Called(ctx, ws, commit, cmd)
	return args.Get(0).(validate.Result), args.Error(1)
}

type event struct {
	level string
	msg   string
}

// recordingReporter keeps every event for assertions.
type recordingReporter struct {
	mu     sync.Mutex
	events []event
}

func (r *recordingReporter) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{level, msg})
}

func (r *recordingReporter) Info(_ context.Context, msg string)    { r.add("info", msg) }
func (r *recordingReporter) Warning(_ context.Context, msg string) { r.add("warning", msg) }
func (r *recordingReporter) Fatal(_ context.Context, msg string)   { r.add("fatal", msg) }
func (r *recordingReporter) Success(_ context.Context, msg string) { r.add("success", msg) }

func (r *recordingReporter) byLevel(level string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}

func (r *recordingReporter) last() event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return event{}
	}
	return r.events[len(r.events)-1]
}

// hash returns a distinct full-length commit hash whose short form is
// prefix followed by n.
func hash(prefix string, n int) vcs.CommitRef {
	h := fmt.Sprintf("%s%06x", prefix, n)
	return vcs.CommitRef(h + strings.Repeat("0", 40-len(h)))
}

func commitRange(n int) []vcs.CommitRef {
	out := make([]vcs.CommitRef, n)
	for i := range out {
		out[i] = hash("c", i+1)
	}
	return out
}

// publishedCommits returns the commits passed to Push or FastForwardBranch,
// in call order. Both take the commit as their fourth argument.
func publishedCommits(m *mock.Mock) []vcs.CommitRef {
	var out []vcs.CommitRef
	for _, call := range m.Calls {
		if call.Method == "Push" || call.Method == "FastForwardBranch" {
			out = append(out, call.Arguments.Get(3).(vcs.CommitRef))
		}
	}
	return out
}

func countCalls(m *mock.Mock, method string) int {
	n := 0
	for _, call := range m.Calls {
		if call.Method == method {
			n++
		}
	}
	return n
}
