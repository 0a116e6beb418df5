// Package config loads and validates the comparison configuration: engine
// defaults, report output options and the dataset registry, with optional
// per-dataset overrides resolved once into engine settings.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/deepakagrawalmsoe/DataComparator/compare"
	"github.com/deepakagrawalmsoe/DataComparator/metrics"
)

// --- Configuration Structs ---

// ComparisonConfig holds the engine defaults applied to every dataset unless
// overridden.
type ComparisonConfig struct {
	ChunkSize      int64 `mapstructure:"chunk_size"`
	MaxParallelism int   `mapstructure:"max_parallelism"`

	SampleSize       int64   `mapstructure:"sample_size"`
	SampleRatio      float64 `mapstructure:"sample_ratio"`
	SamplingStrategy string  `mapstructure:"sampling_strategy"`
	StratifyColumn   string  `mapstructure:"stratify_column"`
	DriftThreshold   float64 `mapstructure:"drift_threshold"`

	FingerprintAlgorithm string   `mapstructure:"fingerprint_algorithm"`
	FingerprintColumns   []string `mapstructure:"fingerprint_columns"`

	EnabledPhases []string `mapstructure:"enabled_phases"`

	ComparisonKey    []string `mapstructure:"comparison_key"`
	NumericTolerance float64  `mapstructure:"numeric_tolerance"`

	CaseInsensitiveColumns bool `mapstructure:"case_insensitive_columns"`
	CaseInsensitiveStrings bool `mapstructure:"case_insensitive_strings"`

	ContinueOnSchemaMismatch bool `mapstructure:"continue_on_schema_mismatch"`
	ContinueOnChunkFailure   bool `mapstructure:"continue_on_chunk_failure"`

	ExampleCap   int           `mapstructure:"example_cap"`
	ChunkTimeout time.Duration `mapstructure:"chunk_timeout"`
}

// OverrideConfig carries per-dataset overrides. Only set fields override the
// global defaults, hence the pointers.
type OverrideConfig struct {
	ChunkSize      *int64 `mapstructure:"chunk_size"`
	MaxParallelism *int   `mapstructure:"max_parallelism"`

	SampleSize       *int64   `mapstructure:"sample_size"`
	SampleRatio      *float64 `mapstructure:"sample_ratio"`
	SamplingStrategy *string  `mapstructure:"sampling_strategy"`
	StratifyColumn   *string  `mapstructure:"stratify_column"`
	DriftThreshold   *float64 `mapstructure:"drift_threshold"`

	FingerprintAlgorithm *string  `mapstructure:"fingerprint_algorithm"`
	FingerprintColumns   []string `mapstructure:"fingerprint_columns"`

	EnabledPhases []string `mapstructure:"enabled_phases"`

	ComparisonKey    []string `mapstructure:"comparison_key"`
	NumericTolerance *float64 `mapstructure:"numeric_tolerance"`

	CaseInsensitiveColumns *bool `mapstructure:"case_insensitive_columns"`
	CaseInsensitiveStrings *bool `mapstructure:"case_insensitive_strings"`

	ContinueOnSchemaMismatch *bool `mapstructure:"continue_on_schema_mismatch"`
	ContinueOnChunkFailure   *bool `mapstructure:"continue_on_chunk_failure"`

	ExampleCap   *int           `mapstructure:"example_cap"`
	ChunkTimeout *time.Duration `mapstructure:"chunk_timeout"`
}

// SourceConfig describes one side of a dataset comparison.
type SourceConfig struct {
	// Driver is the ADBC driver name, e.g. "duckdb" or "sqlite".
	Driver string `mapstructure:"driver"`
	// URI is the driver-specific connection string.
	URI string `mapstructure:"uri"`
	// Table names the table to compare. Mutually exclusive with Query.
	Table string `mapstructure:"table"`
	// Query is an arbitrary SELECT used instead of a table.
	Query string `mapstructure:"query"`
}

// DatasetConfig is one entry of the dataset registry.
type DatasetConfig struct {
	Name        string          `mapstructure:"name"`
	Description string          `mapstructure:"description"`
	Left        SourceConfig    `mapstructure:"left"`
	Right       SourceConfig    `mapstructure:"right"`
	Overrides   *OverrideConfig `mapstructure:"overrides"`
}

// ReportConfig controls report output.
type ReportConfig struct {
	OutputDir string   `mapstructure:"output_dir"`
	Formats   []string `mapstructure:"formats"`
}

// Config is the top-level configuration.
type Config struct {
	Comparison ComparisonConfig `mapstructure:"comparison"`
	Report     ReportConfig     `mapstructure:"report"`
	Datasets   []DatasetConfig  `mapstructure:"datasets"`
}

// --- Load Configuration ---

// LoadConfig reads and validates a YAML configuration file. Unspecified
// engine options fall back to the built-in defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := compare.DefaultSettings()
	v.SetDefault("comparison.chunk_size", d.ChunkSize)
	v.SetDefault("comparison.max_parallelism", d.MaxParallelism)
	v.SetDefault("comparison.sample_size", d.SampleSize)
	v.SetDefault("comparison.sampling_strategy", string(d.SamplingStrategy))
	v.SetDefault("comparison.drift_threshold", d.DriftThreshold)
	v.SetDefault("comparison.fingerprint_algorithm", string(d.FingerprintAlgorithm))
	v.SetDefault("comparison.numeric_tolerance", d.NumericTolerance)
	v.SetDefault("comparison.continue_on_chunk_failure", d.ContinueOnChunkFailure)
	v.SetDefault("comparison.example_cap", d.ExampleCap)
	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("report.formats", []string{"json"})
}

// --- Resolution ---

// Resolve produces the fully resolved engine settings for the named dataset:
// global defaults overlaid with the dataset's overrides, validated once.
// Phases consume the result and never consult configuration again.
func (c *Config) Resolve(name string) (compare.Settings, *DatasetConfig, error) {
	var ds *DatasetConfig
	for i := range c.Datasets {
		if c.Datasets[i].Name == name {
			ds = &c.Datasets[i]
			break
		}
	}
	if ds == nil {
		return compare.Settings{}, nil, &metrics.ConfigError{Field: "datasets", Msg: fmt.Sprintf("dataset %q not found", name)}
	}

	s := c.Comparison.settings()
	if ds.Overrides != nil {
		ds.Overrides.apply(&s)
	}
	if err := s.Validate(); err != nil {
		return compare.Settings{}, nil, err
	}
	return s, ds, nil
}

func (c *ComparisonConfig) settings() compare.Settings {
	s := compare.DefaultSettings()
	s.ChunkSize = c.ChunkSize
	s.MaxParallelism = c.MaxParallelism
	s.SampleSize = c.SampleSize
	s.SampleRatio = c.SampleRatio
	s.SamplingStrategy = compare.Strategy(c.SamplingStrategy)
	s.StratifyColumn = c.StratifyColumn
	s.DriftThreshold = c.DriftThreshold
	s.FingerprintAlgorithm = compare.Algorithm(c.FingerprintAlgorithm)
	s.FingerprintColumns = c.FingerprintColumns
	if len(c.EnabledPhases) > 0 {
		s.EnabledPhases = phases(c.EnabledPhases)
	}
	s.ComparisonKey = c.ComparisonKey
	s.NumericTolerance = c.NumericTolerance
	s.CaseInsensitiveColumns = c.CaseInsensitiveColumns
	s.CaseInsensitiveStrings = c.CaseInsensitiveStrings
	s.ContinueOnSchemaMismatch = c.ContinueOnSchemaMismatch
	s.ContinueOnChunkFailure = c.ContinueOnChunkFailure
	s.ExampleCap = c.ExampleCap
	s.ChunkTimeout = c.ChunkTimeout
	return s
}

func (o *OverrideConfig) apply(s *compare.Settings) {
	if o.ChunkSize != nil {
		s.ChunkSize = *o.ChunkSize
	}
	if o.MaxParallelism != nil {
		s.MaxParallelism = *o.MaxParallelism
	}
	if o.SampleSize != nil {
		s.SampleSize = *o.SampleSize
	}
	if o.SampleRatio != nil {
		s.SampleRatio = *o.SampleRatio
	}
	if o.SamplingStrategy != nil {
		s.SamplingStrategy = compare.Strategy(*o.SamplingStrategy)
	}
	if o.StratifyColumn != nil {
		s.StratifyColumn = *o.StratifyColumn
	}
	if o.DriftThreshold != nil {
		s.DriftThreshold = *o.DriftThreshold
	}
	if o.FingerprintAlgorithm != nil {
		s.FingerprintAlgorithm = compare.Algorithm(*o.FingerprintAlgorithm)
	}
	if len(o.FingerprintColumns) > 0 {
		s.FingerprintColumns = o.FingerprintColumns
	}
	if len(o.EnabledPhases) > 0 {
		s.EnabledPhases = phases(o.EnabledPhases)
	}
	if len(o.ComparisonKey) > 0 {
		s.ComparisonKey = o.ComparisonKey
	}
	if o.NumericTolerance != nil {
		s.NumericTolerance = *o.NumericTolerance
	}
	if o.CaseInsensitiveColumns != nil {
		s.CaseInsensitiveColumns = *o.CaseInsensitiveColumns
	}
	if o.CaseInsensitiveStrings != nil {
		s.CaseInsensitiveStrings = *o.CaseInsensitiveStrings
	}
	if o.ContinueOnSchemaMismatch != nil {
		s.ContinueOnSchemaMismatch = *o.ContinueOnSchemaMismatch
	}
	if o.ContinueOnChunkFailure != nil {
		s.ContinueOnChunkFailure = *o.ContinueOnChunkFailure
	}
	if o.ExampleCap != nil {
		s.ExampleCap = *o.ExampleCap
	}
	if o.ChunkTimeout != nil {
		s.ChunkTimeout = *o.ChunkTimeout
	}
}

func phases(names []string) []metrics.Phase {
	out := make([]metrics.Phase, len(names))
	for i, n := range names {
		out[i] = metrics.Phase(n)
	}
	return out
}

// --- Validation Functions ---

// validate is a helper function to reduce repetition.
func validate(condition bool, format string, a ...any) error {
	if !condition {
		return fmt.Errorf(format, a...)
	}
	return nil
}

func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i := range c.Datasets {
		ds := &c.Datasets[i]
		if err := ds.Validate(); err != nil {
			return fmt.Errorf("dataset '%s' validation failed: %w", ds.Name, err)
		}
		if seen[ds.Name] {
			return fmt.Errorf("duplicate dataset name '%s'", ds.Name)
		}
		seen[ds.Name] = true
	}
	return c.Report.Validate()
}

func (ds *DatasetConfig) Validate() error {
	if err := validate(ds.Name != "", "dataset name is required"); err != nil {
		return err
	}
	if err := ds.Left.Validate(); err != nil {
		return fmt.Errorf("left source validation failed: %w", err)
	}
	if err := ds.Right.Validate(); err != nil {
		return fmt.Errorf("right source validation failed: %w", err)
	}
	return nil
}

func (sc *SourceConfig) Validate() error {
	if err := validate(sc.Driver != "", "source driver is required"); err != nil {
		return err
	}
	if err := validate(sc.URI != "", "source uri is required"); err != nil {
		return err
	}
	if err := validate(sc.Table != "" || sc.Query != "", "either table or query is required"); err != nil {
		return err
	}
	return validate(sc.Table == "" || sc.Query == "", "table and query are mutually exclusive")
}

func (rc *ReportConfig) Validate() error {
	for _, f := range rc.Formats {
		switch f {
		case "json", "csv", "html":
		default:
			return fmt.Errorf("unknown report format '%s'", f)
		}
	}
	return nil
}
