package compare

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepakagrawalmsoe/DataComparator/metrics"
	"github.com/deepakagrawalmsoe/DataComparator/pkg/dataset"
)

func runnerSettings() Settings {
	s := DefaultSettings()
	s.ChunkSize = 10
	s.MaxParallelism = 2
	// Sample everything so identical inputs yield identical statistics.
	s.SampleSize = 1000
	s.ComparisonKey = []string{"id"}
	return s
}

// closeTracker records whether the runner released the source.
type closeTracker struct {
	dataset.Source
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return c.Source.Close()
}

func runnerSource(name string, rows ...dataset.Row) *closeTracker {
	schema := dataset.MustSchema(
		dataset.Field{Name: "id", Type: dataset.TypeInt},
		dataset.Field{Name: "name", Type: dataset.TypeString, Nullable: true},
	)
	return &closeTracker{Source: dataset.NewMemorySource(name, schema, rows)}
}

func TestNewRunnerRejectsInvalidSettings(t *testing.T) {
	s := runnerSettings()
	s.ChunkSize = 0
	_, err := NewRunner(s, nil)
	require.Error(t, err)
	var cfgErr *metrics.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRunnerIdenticalDatasets(t *testing.T) {
	runner, err := NewRunner(runnerSettings(), nil)
	require.NoError(t, err)

	left := runnerSource("left", dataset.Row{int64(1), "a"}, dataset.Row{int64(2), "b"})
	right := runnerSource("right", dataset.Row{int64(1), "a"}, dataset.Row{int64(2), "b"})

	report := runner.Run(context.Background(), RunInput{Dataset: "orders", Left: left, Right: right})
	require.NotNil(t, report)
	assert.Equal(t, metrics.VerdictIdentical, report.Verdict)
	require.Len(t, report.Phases, len(metrics.Phases))
	for _, p := range report.Phases {
		assert.Equal(t, metrics.StatusPassed, p.Status, "phase %s", p.Phase)
	}
	assert.True(t, left.closed)
	assert.True(t, right.closed)
	assert.False(t, report.EndTime.Before(report.StartTime))
}

func TestRunnerDetectsDifferences(t *testing.T) {
	runner, err := NewRunner(runnerSettings(), nil)
	require.NoError(t, err)

	left := runnerSource("left", dataset.Row{int64(1), "a"}, dataset.Row{int64(2), "b"})
	right := runnerSource("right", dataset.Row{int64(1), "a"}, dataset.Row{int64(2), "CHANGED"})

	report := runner.Run(context.Background(), RunInput{Dataset: "orders", Left: left, Right: right})
	assert.Equal(t, metrics.VerdictDifferencesFound, report.Verdict)

	fp := report.PhaseResultFor(metrics.PhaseFingerprint)
	require.NotNil(t, fp)
	assert.Equal(t, metrics.StatusDifferencesFound, fp.Status)

	full := report.PhaseResultFor(metrics.PhaseFull)
	require.NotNil(t, full)
	require.NotNil(t, full.Diff)
	assert.Equal(t, int64(1), full.Diff.Mismatches)
}

// TestRunnerAbortsOnCriticalSchemaDiff verifies the pipeline stops after a
// critical structural difference and still emits a complete report.
func TestRunnerAbortsOnCriticalSchemaDiff(t *testing.T) {
	runner, err := NewRunner(runnerSettings(), nil)
	require.NoError(t, err)

	schema := dataset.MustSchema(
		dataset.Field{Name: "id", Type: dataset.TypeInt},
		dataset.Field{Name: "name", Type: dataset.TypeString},
		dataset.Field{Name: "extra", Type: dataset.TypeString},
	)
	left := runnerSource("left", dataset.Row{int64(1), "a"})
	right := &closeTracker{Source: dataset.NewMemorySource("right", schema, []dataset.Row{{int64(1), "a", "x"}})}

	report := runner.Run(context.Background(), RunInput{Dataset: "orders", Left: left, Right: right})
	assert.Equal(t, metrics.VerdictAborted, report.Verdict)

	meta := report.PhaseResultFor(metrics.PhaseMetadata)
	require.NotNil(t, meta)
	assert.Equal(t, metrics.StatusDifferencesFound, meta.Status)
	assert.NotEmpty(t, meta.Error)

	for _, phase := range []metrics.Phase{metrics.PhaseFingerprint, metrics.PhaseSampling, metrics.PhaseFull} {
		p := report.PhaseResultFor(phase)
		require.NotNil(t, p)
		assert.Equal(t, metrics.StatusSkipped, p.Status, "phase %s", phase)
	}
	assert.True(t, left.closed)
	assert.True(t, right.closed)
}

func TestRunnerContinueOnSchemaMismatch(t *testing.T) {
	settings := runnerSettings()
	settings.ContinueOnSchemaMismatch = true
	runner, err := NewRunner(settings, nil)
	require.NoError(t, err)

	schema := dataset.MustSchema(
		dataset.Field{Name: "id", Type: dataset.TypeInt},
		dataset.Field{Name: "name", Type: dataset.TypeString},
		dataset.Field{Name: "extra", Type: dataset.TypeString},
	)
	left := runnerSource("left", dataset.Row{int64(1), "a"})
	right := &closeTracker{Source: dataset.NewMemorySource("right", schema, []dataset.Row{{int64(1), "a", "x"}})}

	report := runner.Run(context.Background(), RunInput{Dataset: "orders", Left: left, Right: right})
	assert.Equal(t, metrics.VerdictDifferencesFound, report.Verdict)

	// Later phases still ran over the common columns.
	fp := report.PhaseResultFor(metrics.PhaseFingerprint)
	require.NotNil(t, fp)
	assert.NotEqual(t, metrics.StatusSkipped, fp.Status)
}

func TestRunnerSkipsDisabledPhases(t *testing.T) {
	settings := runnerSettings()
	settings.EnabledPhases = []metrics.Phase{metrics.PhaseMetadata, metrics.PhaseFull}
	runner, err := NewRunner(settings, nil)
	require.NoError(t, err)

	left := runnerSource("left", dataset.Row{int64(1), "a"})
	right := runnerSource("right", dataset.Row{int64(1), "a"})

	report := runner.Run(context.Background(), RunInput{Dataset: "orders", Left: left, Right: right})
	assert.Equal(t, metrics.VerdictIdentical, report.Verdict)
	assert.Equal(t, metrics.StatusSkipped, report.PhaseResultFor(metrics.PhaseFingerprint).Status)
	assert.Equal(t, metrics.StatusSkipped, report.PhaseResultFor(metrics.PhaseSampling).Status)
	assert.Equal(t, metrics.StatusPassed, report.PhaseResultFor(metrics.PhaseMetadata).Status)
	assert.Equal(t, metrics.StatusPassed, report.PhaseResultFor(metrics.PhaseFull).Status)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, metrics.IsFatal(&metrics.ConfigError{Field: "chunk_size", Msg: "bad"}))
	assert.True(t, metrics.IsFatal(&metrics.ConnectionError{Source: "db"}))
	assert.False(t, metrics.IsFatal(&metrics.ChunkError{Index: 3}))
	assert.False(t, metrics.IsFatal(&metrics.SchemaError{Dataset: "d", Msg: "m"}))
}
