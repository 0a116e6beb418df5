package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepakagrawalmsoe/DataComparator/metrics"
)

func sampleReport() metrics.ComparisonReport {
	start := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	return metrics.ComparisonReport{
		Dataset:     "orders",
		Description: "order table parity",
		LeftSource:  "left:orders",
		RightSource: "right:orders",
		StartTime:   start,
		EndTime:     start.Add(3 * time.Second),
		Duration:    3 * time.Second,
		Verdict:     metrics.VerdictDifferencesFound,
		Phases: []metrics.PhaseResult{
			{
				Phase:  metrics.PhaseMetadata,
				Status: metrics.StatusPassed,
				Schema: &metrics.SchemaDiff{
					CommonColumns: []string{"id", "name"},
					LeftRowCount:  100,
					RightRowCount: 100,
				},
			},
			{
				Phase:  metrics.PhaseFingerprint,
				Status: metrics.StatusDifferencesFound,
				Fingerprint: &metrics.FingerprintResult{
					Algorithm:        "xxh3",
					LeftFingerprint:  "aa",
					RightFingerprint: "bb",
					ChunksCompared:   4,
					DifferingChunks:  []int{2},
				},
			},
			{Phase: metrics.PhaseSampling, Status: metrics.StatusSkipped},
			{
				Phase:  metrics.PhaseFull,
				Status: metrics.StatusDifferencesFound,
				Diff: &metrics.DiffSummary{
					Matches:          99,
					Mismatches:       1,
					ColumnMismatches: map[string]int64{"name": 1},
					MatchPercent:     99,
					ChunksProcessed:  1,
				},
			},
		},
	}
}

func TestJSONReportRoundTrip(t *testing.T) {
	run := sampleReport()
	path := filepath.Join(t.TempDir(), "orders.json")

	gen := &JSONReportGenerator{}
	require.NoError(t, gen.SaveToFile(run, path))

	loaded, err := ReportFromFilePath(path)
	require.NoError(t, err)
	assert.Equal(t, run, loaded)
}

func TestCSVReport(t *testing.T) {
	gen := &CSVReportGenerator{}
	data, err := gen.Generate(sampleReport())
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "dataset,phase,status,duration,detail,error")
	assert.Contains(t, out, "orders,metadata,passed")
	assert.Contains(t, out, "matches=99 mismatches=1")
}

func TestHTMLReport(t *testing.T) {
	gen := &HTMLReportGenerator{}
	data, err := gen.Generate(sampleReport())
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "Comparison Report: orders")
	assert.Contains(t, out, "differences_found")
	assert.Contains(t, out, "left:orders")
	assert.Contains(t, out, "fingerprint")
}

func TestSaveReportsAllFormats(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveReports(sampleReport(), dir, []string{"json", "csv", "html"}))

	for _, name := range []string{"orders.json", "orders.csv", "orders.html"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestSaveReportsUnknownFormat(t *testing.T) {
	err := SaveReports(sampleReport(), t.TempDir(), []string{"pdf"})
	require.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "orders_2026_08", sanitizeName("orders/2026 08"))
	assert.Equal(t, "comparison", sanitizeName(""))
}

func TestSaveConsolidated(t *testing.T) {
	rep := metrics.Consolidate([]metrics.ComparisonReport{sampleReport()})
	dir := t.TempDir()
	require.NoError(t, SaveConsolidated(rep, dir, []string{"json", "csv", "html"}))

	for _, name := range []string{"consolidated.json", "consolidated.csv", "consolidated.html"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "consolidated.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "orders,differences_found")
}
