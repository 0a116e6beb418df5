package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// -----------------------------
// Phases, Statuses & Verdicts
// -----------------------------

// Phase identifies one stage of the comparison pipeline.
type Phase string

const (
	PhaseMetadata    Phase = "metadata"
	PhaseFingerprint Phase = "fingerprint"
	PhaseSampling    Phase = "sampling"
	PhaseFull        Phase = "full"
)

// Phases lists the pipeline stages in execution order.
var Phases = []Phase{PhaseMetadata, PhaseFingerprint, PhaseSampling, PhaseFull}

// Status is the outcome of a single phase.
type Status string

const (
	StatusPassed           Status = "passed"
	StatusDifferencesFound Status = "differences_found"
	StatusSkipped          Status = "skipped"
	StatusAborted          Status = "aborted"
	StatusFailed           Status = "failed"
)

// Verdict is the overall outcome of a comparison run.
type Verdict string

const (
	VerdictIdentical        Verdict = "identical"
	VerdictDifferencesFound Verdict = "differences_found"
	VerdictAborted          Verdict = "aborted"
	VerdictFailed           Verdict = "failed"
)

// Severity classifies a structural difference.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// -----------------------------
// Phase Payloads
// -----------------------------

// ColumnDiffKind identifies the nature of a schema-level difference.
type ColumnDiffKind string

const (
	ColumnAdded       ColumnDiffKind = "column_added"
	ColumnRemoved     ColumnDiffKind = "column_removed"
	ColumnReordered   ColumnDiffKind = "column_reordered"
	TypeMismatch      ColumnDiffKind = "type_mismatch"
	NullabilityChange ColumnDiffKind = "nullability_change"
)

// ColumnDiff is one structural difference found by the metadata phase.
type ColumnDiff struct {
	Column   string         `json:"column"`
	Kind     ColumnDiffKind `json:"kind"`
	Left     string         `json:"left,omitempty"`
	Right    string         `json:"right,omitempty"`
	Severity Severity       `json:"severity"`
}

// NullCountDiff records a per-column null count difference.
type NullCountDiff struct {
	Column     string `json:"column"`
	LeftNulls  int64  `json:"left_nulls"`
	RightNulls int64  `json:"right_nulls"`
}

// SchemaDiff is the metadata phase payload.
type SchemaDiff struct {
	ColumnDiffs    []ColumnDiff    `json:"column_diffs,omitempty"`
	CommonColumns  []string        `json:"common_columns"`
	LeftRowCount   int64           `json:"left_row_count"`
	RightRowCount  int64           `json:"right_row_count"`
	RowCountDelta  int64           `json:"row_count_delta"`
	NullCountDiffs []NullCountDiff `json:"null_count_diffs,omitempty"`
}

// Critical reports whether any structural difference is critical.
func (d *SchemaDiff) Critical() bool {
	for _, cd := range d.ColumnDiffs {
		if cd.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Empty reports whether the diff found nothing at all.
func (d *SchemaDiff) Empty() bool {
	return len(d.ColumnDiffs) == 0 && d.RowCountDelta == 0 && len(d.NullCountDiffs) == 0
}

// FingerprintResult is the fingerprint phase payload.
type FingerprintResult struct {
	Algorithm        string `json:"algorithm"`
	LeftFingerprint  string `json:"left_fingerprint"`
	RightFingerprint string `json:"right_fingerprint"`
	Match            bool   `json:"match"`
	ChunksCompared   int    `json:"chunks_compared"`
	// DifferingChunks lists chunk indices whose per-chunk fingerprints
	// disagree; it seeds the narrowed full comparison.
	DifferingChunks []int `json:"differing_chunks,omitempty"`
}

// ColumnStats summarizes one column of a sample.
type ColumnStats struct {
	Count            int64    `json:"count"`
	Nulls            int64    `json:"nulls"`
	Min              *float64 `json:"min,omitempty"`
	Max              *float64 `json:"max,omitempty"`
	Mean             *float64 `json:"mean,omitempty"`
	Variance         *float64 `json:"variance,omitempty"`
	DistinctEstimate uint64   `json:"distinct_estimate"`
}

// DriftScore is the per-column distance between the two samples'
// distributions.
type DriftScore struct {
	Column    string  `json:"column"`
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	Drifted   bool    `json:"drifted"`
}

// DriftReport is the sampling phase payload.
type DriftReport struct {
	Strategy       string                 `json:"strategy"`
	Seed           uint64                 `json:"seed"`
	LeftSampled    int64                  `json:"left_sampled"`
	RightSampled   int64                  `json:"right_sampled"`
	LeftStats      map[string]ColumnStats `json:"left_stats"`
	RightStats     map[string]ColumnStats `json:"right_stats"`
	Scores         []DriftScore           `json:"scores"`
	DriftedColumns []string               `json:"drifted_columns,omitempty"`
	Warnings       []string               `json:"warnings,omitempty"`
}

// RowDiffClass classifies a compared row pair.
type RowDiffClass string

const (
	RowMatch     RowDiffClass = "match"
	RowMismatch  RowDiffClass = "mismatch"
	RowLeftOnly  RowDiffClass = "left_only"
	RowRightOnly RowDiffClass = "right_only"
)

// RowDiffExample is one retained example of a differing value, bounded per
// column to cap memory.
type RowDiffExample struct {
	Key   string `json:"key"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

// ChunkFailure records an isolated chunk-level failure.
type ChunkFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// DiffSummary is the full comparison phase payload, an associative
// aggregation of per-chunk results.
type DiffSummary struct {
	Matches          int64                       `json:"matches"`
	Mismatches       int64                       `json:"mismatches"`
	LeftOnly         int64                       `json:"left_only"`
	RightOnly        int64                       `json:"right_only"`
	ColumnMismatches map[string]int64            `json:"column_mismatches,omitempty"`
	Examples         map[string][]RowDiffExample `json:"examples,omitempty"`
	// MatchPercent is the share of compared rows that matched exactly.
	MatchPercent    float64        `json:"match_percent"`
	ChunksProcessed int            `json:"chunks_processed"`
	ChunksFailed    int            `json:"chunks_failed"`
	FailedChunks    []ChunkFailure `json:"failed_chunks,omitempty"`
}

// Clean reports whether the diff found no row-level differences and no chunk
// failures.
func (d *DiffSummary) Clean() bool {
	return d.Mismatches == 0 && d.LeftOnly == 0 && d.RightOnly == 0 && d.ChunksFailed == 0
}

// -----------------------------
// Phase Result & Report
// -----------------------------

// PhaseResult is the outcome of one phase.
type PhaseResult struct {
	Phase    Phase         `json:"phase"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`

	Schema      *SchemaDiff        `json:"schema,omitempty"`
	Fingerprint *FingerprintResult `json:"fingerprint,omitempty"`
	Drift       *DriftReport       `json:"drift,omitempty"`
	Diff        *DiffSummary       `json:"diff,omitempty"`
}

// ComparisonReport aggregates the phase results of one dataset comparison.
// It is owned by the orchestrator until handed to reporting and is immutable
// thereafter.
type ComparisonReport struct {
	Dataset     string        `json:"dataset"`
	Description string        `json:"description,omitempty"`
	LeftSource  string        `json:"left_source"`
	RightSource string        `json:"right_source"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Duration    time.Duration `json:"duration"`
	Verdict     Verdict       `json:"verdict"`
	Phases      []PhaseResult `json:"phases"`
}

// PhaseResultFor returns the result of the named phase, or nil.
func (r *ComparisonReport) PhaseResultFor(p Phase) *PhaseResult {
	for i := range r.Phases {
		if r.Phases[i].Phase == p {
			return &r.Phases[i]
		}
	}
	return nil
}

// -----------------------------
// Consolidated Report
// -----------------------------

// DatasetSummary is one line of the consolidated multi-dataset report.
type DatasetSummary struct {
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Verdict       Verdict       `json:"verdict"`
	LeftRowCount  int64         `json:"left_row_count"`
	RightRowCount int64         `json:"right_row_count"`
	Duration      time.Duration `json:"duration"`
	Error         string        `json:"error,omitempty"`
}

// ConsolidatedSummary aggregates a multi-dataset run.
type ConsolidatedSummary struct {
	TotalDatasets int           `json:"total_datasets"`
	Successful    int           `json:"successful"`
	Failed        int           `json:"failed"`
	OverallMatch  bool          `json:"overall_match"`
	TotalDuration time.Duration `json:"total_duration"`
	SuccessRate   float64       `json:"success_rate"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

// ConsolidatedReport is the cross-dataset report structure.
type ConsolidatedReport struct {
	Summary  ConsolidatedSummary `json:"summary"`
	Datasets []DatasetSummary    `json:"datasets"`
}

// Consolidate folds individual reports into a ConsolidatedReport.
func Consolidate(reports []ComparisonReport) ConsolidatedReport {
	out := ConsolidatedReport{
		Summary: ConsolidatedSummary{
			TotalDatasets: len(reports),
			OverallMatch:  len(reports) > 0,
			GeneratedAt:   time.Now().UTC(),
		},
	}
	for i := range reports {
		r := &reports[i]
		ds := DatasetSummary{
			Name:        r.Dataset,
			Description: r.Description,
			Verdict:     r.Verdict,
			Duration:    r.Duration,
		}
		if meta := r.PhaseResultFor(PhaseMetadata); meta != nil && meta.Schema != nil {
			ds.LeftRowCount = meta.Schema.LeftRowCount
			ds.RightRowCount = meta.Schema.RightRowCount
		}
		switch r.Verdict {
		case VerdictIdentical, VerdictDifferencesFound:
			out.Summary.Successful++
		default:
			out.Summary.Failed++
		}
		if r.Verdict != VerdictIdentical {
			out.Summary.OverallMatch = false
		}
		out.Summary.TotalDuration += r.Duration
		out.Datasets = append(out.Datasets, ds)
	}
	if out.Summary.TotalDatasets > 0 {
		out.Summary.SuccessRate = float64(out.Summary.Successful) / float64(out.Summary.TotalDatasets) * 100
	}
	return out
}

// -----------------------------
// Report Storage
// -----------------------------

// ReportStore abstracts comparison report storage.
type ReportStore interface {
	Save(run ComparisonReport) error
	SaveWithContext(ctx context.Context, run ComparisonReport) error
}

// JSONReportStore stores reports as JSON, to a file or stdout.
type JSONReportStore struct {
	FilePath string
}

func (j *JSONReportStore) Save(run ComparisonReport) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	if j.FilePath != "" {
		return os.WriteFile(j.FilePath, data, 0644)
	}
	fmt.Println(string(data))
	return nil
}

func (j *JSONReportStore) SaveWithContext(ctx context.Context, run ComparisonReport) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return j.Save(run)
	}
}
