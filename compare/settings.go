// Package compare implements the multi-phase comparison engine: metadata
// diffing, order-independent fingerprinting, statistical sampling with drift
// scoring, and chunk-parallel full row comparison, sequenced by a phase
// runner.
package compare

import (
	"time"

	"github.com/deepakagrawalmsoe/DataComparator/metrics"
)

// Strategy selects how sample rows are drawn.
type Strategy string

const (
	StrategyRandom     Strategy = "random"
	StrategySystematic Strategy = "systematic"
	StrategyStratified Strategy = "stratified"
)

// Algorithm selects the per-row hash used for fingerprinting.
type Algorithm string

const (
	AlgorithmXXH3   Algorithm = "xxh3"
	AlgorithmMD5    Algorithm = "md5"
	AlgorithmSHA256 Algorithm = "sha256"
)

// Settings is the immutable, fully resolved configuration for one comparison
// run. It is produced by the external configuration loader (defaults plus
// per-dataset overrides, resolved once) and threaded through every phase.
type Settings struct {
	ChunkSize      int64
	MaxParallelism int

	SampleSize       int64
	SampleRatio      float64
	SamplingStrategy Strategy
	StratifyColumn   string
	DriftThreshold   float64

	FingerprintAlgorithm Algorithm
	FingerprintColumns   []string

	EnabledPhases []metrics.Phase

	ComparisonKey    []string
	NumericTolerance float64

	CaseInsensitiveColumns bool
	CaseInsensitiveStrings bool

	ContinueOnSchemaMismatch bool
	ContinueOnChunkFailure   bool

	ExampleCap   int
	ChunkTimeout time.Duration
}

// DefaultSettings returns the engine defaults; loaders overlay configured
// values on top of these.
func DefaultSettings() Settings {
	return Settings{
		ChunkSize:              100000,
		MaxParallelism:         4,
		SampleSize:             10000,
		SamplingStrategy:       StrategyRandom,
		DriftThreshold:         0.1,
		FingerprintAlgorithm:   AlgorithmXXH3,
		EnabledPhases:          append([]metrics.Phase(nil), metrics.Phases...),
		NumericTolerance:       1e-9,
		ContinueOnChunkFailure: true,
		ExampleCap:             100,
	}
}

// Validate rejects settings no run can start with.
func (s Settings) Validate() error {
	if s.ChunkSize < 1 {
		return &metrics.ConfigError{Field: "chunk_size", Msg: "must be at least 1"}
	}
	if s.MaxParallelism < 1 {
		return &metrics.ConfigError{Field: "max_parallelism", Msg: "must be at least 1"}
	}
	if s.SampleSize < 1 && s.SampleRatio <= 0 {
		return &metrics.ConfigError{Field: "sample_size", Msg: "either sample_size or sample_ratio is required"}
	}
	if s.SampleRatio < 0 || s.SampleRatio > 1 {
		return &metrics.ConfigError{Field: "sample_ratio", Msg: "must be between 0 and 1"}
	}
	switch s.SamplingStrategy {
	case StrategyRandom, StrategySystematic, StrategyStratified:
	default:
		return &metrics.ConfigError{Field: "sampling_strategy", Msg: "unknown strategy " + string(s.SamplingStrategy)}
	}
	switch s.FingerprintAlgorithm {
	case AlgorithmXXH3, AlgorithmMD5, AlgorithmSHA256:
	default:
		return &metrics.ConfigError{Field: "fingerprint_algorithm", Msg: "unknown algorithm " + string(s.FingerprintAlgorithm)}
	}
	if s.DriftThreshold <= 0 {
		return &metrics.ConfigError{Field: "drift_threshold", Msg: "must be positive"}
	}
	if s.NumericTolerance < 0 {
		return &metrics.ConfigError{Field: "numeric_tolerance", Msg: "must not be negative"}
	}
	if s.ExampleCap < 0 {
		return &metrics.ConfigError{Field: "example_cap", Msg: "must not be negative"}
	}
	for _, p := range s.EnabledPhases {
		switch p {
		case metrics.PhaseMetadata, metrics.PhaseFingerprint, metrics.PhaseSampling, metrics.PhaseFull:
		default:
			return &metrics.ConfigError{Field: "enabled_phases", Msg: "unknown phase " + string(p)}
		}
	}
	return nil
}

// PhaseEnabled reports whether the phase should run.
func (s Settings) PhaseEnabled(p metrics.Phase) bool {
	for _, e := range s.EnabledPhases {
		if e == p {
			return true
		}
	}
	return false
}
