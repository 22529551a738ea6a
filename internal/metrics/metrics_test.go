package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordPublished(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(a.CommitsPublished))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CommitsPublished))
}

func TestRecordBuild(t *testing.T) {
	m := New()
	m.RecordBuild(3*time.Second, true)
	m.RecordBuild(time.Second, true)
	m.RecordBuild(2*time.Second, false)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.CommitsValidated), "a passing build is not yet a validated commit")
	assert.Equal(t, 2, testutil.CollectAndCount(m.BuildDuration, "safepush_build_duration_seconds"))

	m.RecordValidated()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommitsValidated))
}

func TestRecordPublished_IgnoresNonPositive(t *testing.T) {
	m := New()
	m.RecordPublished(0)
	m.RecordPublished(-1)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CommitsPublished))
}

func TestRecordFailure(t *testing.T) {
	m := New()
	m.RecordFailure("validation")
	m.RecordFailure("validation")
	m.RecordFailure("network")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Failures.WithLabelValues("validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("network")))
}

func TestRecordRun_ReplacesLastRunInfo(t *testing.T) {
	m := New()
	at := time.Unix(1700000000, 0)

	m.RecordRun("run-1", "push", ResultPublished, at)
	m.RecordRun("run-2", "skip", ResultNothingToPush, at.Add(time.Minute))

	expected := `
# HELP safepush_last_run_info Identity of the last run
# TYPE safepush_last_run_info gauge
safepush_last_run_info{run_id="run-2",strategy="skip"} 1
`
	require.NoError(t, testutil.CollectAndCompare(m.LastRunInfo, strings.NewReader(expected)))
	assert.Equal(t, float64(at.Add(time.Minute).Unix()), testutil.ToFloat64(m.LastRunTimestamp))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues(ResultPublished)))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordPublished(3)

	path := filepath.Join(t.TempDir(), "safepush.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "safepush_commits_published_total 3")
}

func TestWriteTextfile_EmptyPath(t *testing.T) {
	assert.NoError(t, New().WriteTextfile(""))
}

func TestWriteTextfile_MissingDirectory(t *testing.T) {
	err := New().WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.ErrorContains(t, err, "writing metrics textfile")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordBuild(time.Second, true)
		m.RecordValidated()
		m.RecordPublished(1)
		m.RecordFailure("usage")
		m.RecordRun("id", "push", ResultFailed, time.Now())
		_ = m.WriteTextfile("/nonexistent/file")
		_ = m.Registry()
	})
}
