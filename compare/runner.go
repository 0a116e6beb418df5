package compare

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deepakagrawalmsoe/DataComparator/metrics"
	"github.com/deepakagrawalmsoe/DataComparator/pkg/dataset"
)

// Runner sequences the comparison phases for one dataset pair. Phases run in
// a fixed order, each phase sees the results of the ones before it, and a
// ComparisonReport is produced on every path, including aborts.
type Runner struct {
	settings Settings
	logger   *zap.Logger
}

// NewRunner validates the settings and builds a runner. Invalid settings are
// a ConfigError and no phase runs.
func NewRunner(settings Settings, logger *zap.Logger) (*Runner, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Runner{settings: settings, logger: logger}, nil
}

// RunInput names one comparison: two sources and the dataset identity used
// in reports. The runner takes ownership of both sources and closes them
// before returning.
type RunInput struct {
	Dataset     string
	Description string
	Left        dataset.Source
	Right       dataset.Source
}

// Run executes the enabled phases in order and always returns a report. A
// critical schema incompatibility aborts the remaining phases unless the
// settings allow continuing; a failed phase is recorded and the pipeline
// moves on.
func (r *Runner) Run(ctx context.Context, in RunInput) *metrics.ComparisonReport {
	report := &metrics.ComparisonReport{
		Dataset:     in.Dataset,
		Description: in.Description,
		LeftSource:  in.Left.Name(),
		RightSource: in.Right.Name(),
		StartTime:   time.Now().UTC(),
	}
	defer func() {
		report.EndTime = time.Now().UTC()
		report.Duration = report.EndTime.Sub(report.StartTime)
		r.closeSource(in.Left)
		r.closeSource(in.Right)
	}()

	aborted := false
	var fingerprint *metrics.FingerprintResult

	for _, phase := range metrics.Phases {
		if aborted {
			report.Phases = append(report.Phases, metrics.PhaseResult{Phase: phase, Status: metrics.StatusSkipped})
			continue
		}
		if !r.settings.PhaseEnabled(phase) {
			report.Phases = append(report.Phases, metrics.PhaseResult{Phase: phase, Status: metrics.StatusSkipped})
			continue
		}

		start := time.Now()
		result := metrics.PhaseResult{Phase: phase}
		switch phase {
		case metrics.PhaseMetadata:
			aborted = r.runMetadata(ctx, in, &result)
		case metrics.PhaseFingerprint:
			fingerprint = r.runFingerprint(ctx, in, &result)
		case metrics.PhaseSampling:
			r.runSampling(ctx, in, &result)
		case metrics.PhaseFull:
			r.runFull(ctx, in, fingerprint, &result)
		}
		result.Duration = time.Since(start)
		report.Phases = append(report.Phases, result)

		if r.logger != nil {
			r.logger.Info("Phase finished",
				zap.String("dataset", in.Dataset),
				zap.String("phase", string(phase)),
				zap.String("status", string(result.Status)),
				zap.Duration("duration", result.Duration))
		}
	}

	report.Verdict = verdict(report.Phases, aborted)
	return report
}

// runMetadata executes the metadata phase and reports whether the pipeline
// must abort.
func (r *Runner) runMetadata(ctx context.Context, in RunInput, result *metrics.PhaseResult) bool {
	left, err := r.metadataInput(ctx, in.Left)
	if err != nil {
		result.Status = metrics.StatusFailed
		result.Error = err.Error()
		return true
	}
	right, err := r.metadataInput(ctx, in.Right)
	if err != nil {
		result.Status = metrics.StatusFailed
		result.Error = err.Error()
		return true
	}

	mc := &MetadataComparer{CaseInsensitive: r.settings.CaseInsensitiveColumns}
	diff := mc.Compare(left, right)
	result.Schema = diff
	if diff.Empty() {
		result.Status = metrics.StatusPassed
		return false
	}
	result.Status = metrics.StatusDifferencesFound
	if diff.Critical() && !r.settings.ContinueOnSchemaMismatch {
		result.Error = (&metrics.SchemaError{Dataset: in.Dataset, Msg: "critical schema differences"}).Error()
		return true
	}
	return false
}

func (r *Runner) metadataInput(ctx context.Context, src dataset.Source) (MetadataInput, error) {
	schema, err := src.Schema(ctx)
	if err != nil {
		return MetadataInput{}, &metrics.ConnectionError{Source: src.Name(), Err: err}
	}
	count, err := src.RowCount(ctx)
	if err != nil {
		return MetadataInput{}, &metrics.ConnectionError{Source: src.Name(), Err: err}
	}
	in := MetadataInput{Schema: schema, RowCount: count}
	if nc, ok := src.(dataset.NullCounter); ok {
		counts, err := nc.NullCounts(ctx)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("Null counts unavailable", zap.String("source", src.Name()), zap.Error(err))
			}
		} else {
			in.NullCounts = counts
		}
	}
	return in, nil
}

func (r *Runner) runFingerprint(ctx context.Context, in RunInput, result *metrics.PhaseResult) *metrics.FingerprintResult {
	f := &Fingerprinter{
		Algorithm: r.settings.FingerprintAlgorithm,
		Columns:   r.settings.FingerprintColumns,
		ChunkSize: r.settings.ChunkSize,
		Logger:    r.logger,
	}
	fp, err := f.Compare(ctx, in.Left, in.Right)
	if err != nil {
		result.Status = metrics.StatusFailed
		result.Error = err.Error()
		return nil
	}
	result.Fingerprint = fp
	if fp.Match {
		result.Status = metrics.StatusPassed
	} else {
		result.Status = metrics.StatusDifferencesFound
	}
	return fp
}

func (r *Runner) runSampling(ctx context.Context, in RunInput, result *metrics.PhaseResult) {
	s := &Sampler{
		Strategy:       r.settings.SamplingStrategy,
		SampleSize:     r.settings.SampleSize,
		SampleRatio:    r.settings.SampleRatio,
		StratifyColumn: r.settings.StratifyColumn,
		DriftThreshold: r.settings.DriftThreshold,
		ChunkSize:      r.settings.ChunkSize,
		Seed:           DeriveSeed(in.Dataset, r.settings.SamplingStrategy, r.settings.SampleSize, r.settings.SampleRatio),
		Logger:         r.logger,
	}
	drift, err := s.Compare(ctx, in.Left, in.Right)
	if err != nil {
		result.Status = metrics.StatusFailed
		result.Error = err.Error()
		return
	}
	result.Drift = drift
	if len(drift.DriftedColumns) == 0 {
		result.Status = metrics.StatusPassed
	} else {
		result.Status = metrics.StatusDifferencesFound
	}
}

func (r *Runner) runFull(ctx context.Context, in RunInput, fingerprint *metrics.FingerprintResult, result *metrics.PhaseResult) {
	fc := &FullComparer{
		Key:                    r.settings.ComparisonKey,
		ChunkSize:              r.settings.ChunkSize,
		MaxParallelism:         r.settings.MaxParallelism,
		ChunkTimeout:           r.settings.ChunkTimeout,
		NumericTolerance:       r.settings.NumericTolerance,
		CaseInsensitiveStrings: r.settings.CaseInsensitiveStrings,
		ContinueOnChunkFailure: r.settings.ContinueOnChunkFailure,
		ExampleCap:             r.settings.ExampleCap,
		Logger:                 r.logger,
	}
	// A fingerprint mismatch narrows the full pass to the differing chunks.
	if fingerprint != nil && !fingerprint.Match {
		fc.CandidateChunks = fingerprint.DifferingChunks
	}
	summary, err := fc.Compare(ctx, in.Left, in.Right)
	result.Diff = summary
	if err != nil {
		result.Status = metrics.StatusFailed
		result.Error = err.Error()
		return
	}
	if summary.Clean() {
		result.Status = metrics.StatusPassed
	} else {
		result.Status = metrics.StatusDifferencesFound
	}
}

// verdict derives the overall outcome from the phase results.
func verdict(phases []metrics.PhaseResult, aborted bool) metrics.Verdict {
	differences := false
	for _, p := range phases {
		switch p.Status {
		case metrics.StatusFailed:
			return metrics.VerdictFailed
		case metrics.StatusDifferencesFound:
			differences = true
		}
	}
	if aborted {
		return metrics.VerdictAborted
	}
	if differences {
		return metrics.VerdictDifferencesFound
	}
	return metrics.VerdictIdentical
}

func (r *Runner) closeSource(src dataset.Source) {
	if err := src.Close(); err != nil && r.logger != nil {
		r.logger.Warn("Source close failed", zap.String("source", src.Name()), zap.Error(err))
	}
}
