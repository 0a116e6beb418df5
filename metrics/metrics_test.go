package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaDiffCritical(t *testing.T) {
	diff := &SchemaDiff{ColumnDiffs: []ColumnDiff{
		{Column: "a", Kind: ColumnReordered, Severity: SeverityWarning},
	}}
	assert.False(t, diff.Critical())

	diff.ColumnDiffs = append(diff.ColumnDiffs, ColumnDiff{Column: "b", Kind: ColumnRemoved, Severity: SeverityCritical})
	assert.True(t, diff.Critical())
}

func TestDiffSummaryClean(t *testing.T) {
	assert.True(t, (&DiffSummary{Matches: 10}).Clean())
	assert.False(t, (&DiffSummary{Matches: 10, LeftOnly: 1}).Clean())
	assert.False(t, (&DiffSummary{ChunksFailed: 1}).Clean())
}

func TestPhaseResultFor(t *testing.T) {
	r := &ComparisonReport{Phases: []PhaseResult{
		{Phase: PhaseMetadata, Status: StatusPassed},
		{Phase: PhaseFull, Status: StatusSkipped},
	}}
	require.NotNil(t, r.PhaseResultFor(PhaseFull))
	assert.Equal(t, StatusSkipped, r.PhaseResultFor(PhaseFull).Status)
	assert.Nil(t, r.PhaseResultFor(PhaseSampling))
}

// TestConsolidate verifies cross-dataset aggregation of verdicts and
// durations.
func TestConsolidate(t *testing.T) {
	reports := []ComparisonReport{
		{Dataset: "a", Verdict: VerdictIdentical, Duration: time.Second},
		{Dataset: "b", Verdict: VerdictDifferencesFound, Duration: 2 * time.Second},
		{Dataset: "c", Verdict: VerdictFailed, Duration: time.Second},
	}
	out := Consolidate(reports)
	assert.Equal(t, 3, out.Summary.TotalDatasets)
	assert.Equal(t, 2, out.Summary.Successful)
	assert.Equal(t, 1, out.Summary.Failed)
	assert.False(t, out.Summary.OverallMatch)
	assert.Equal(t, 4*time.Second, out.Summary.TotalDuration)
	assert.InDelta(t, 66.67, out.Summary.SuccessRate, 0.01)
	require.Len(t, out.Datasets, 3)
}

func TestConsolidateAllIdentical(t *testing.T) {
	out := Consolidate([]ComparisonReport{{Dataset: "a", Verdict: VerdictIdentical}})
	assert.True(t, out.Summary.OverallMatch)
	assert.Equal(t, 100.0, out.Summary.SuccessRate)
}

func TestConsolidateEmpty(t *testing.T) {
	out := Consolidate(nil)
	assert.Equal(t, 0, out.Summary.TotalDatasets)
	assert.False(t, out.Summary.OverallMatch)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "configuration error: chunk_size: must be at least 1",
		(&ConfigError{Field: "chunk_size", Msg: "must be at least 1"}).Error())
	assert.Contains(t, (&ConnectionError{Source: "db", Err: errors.New("refused")}).Error(), "db unreachable")
	assert.Contains(t, (&ChunkError{Index: 4, Timeout: true, Err: errors.New("deadline")}).Error(), "chunk 4 timed out")
	assert.Contains(t, (&SchemaError{Dataset: "orders", Msg: "boom"}).Error(), "orders")
}

func TestChunkErrorUnwrap(t *testing.T) {
	base := errors.New("io failure")
	wrapped := fmt.Errorf("read: %w", &ChunkError{Index: 1, Err: base})
	assert.True(t, errors.Is(wrapped, base))

	var ce *ChunkError
	require.ErrorAs(t, wrapped, &ce)
	assert.Equal(t, 1, ce.Index)
}

func TestJSONReportStoreSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	store := &JSONReportStore{FilePath: path}
	run := ComparisonReport{Dataset: "orders", Verdict: VerdictIdentical}

	require.NoError(t, store.Save(run))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var loaded ComparisonReport
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, "orders", loaded.Dataset)
	assert.Equal(t, VerdictIdentical, loaded.Verdict)
}
