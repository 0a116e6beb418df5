package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepakagrawalmsoe/DataComparator/compare"
	"github.com/deepakagrawalmsoe/DataComparator/metrics"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const sampleConfig = `
comparison:
  chunk_size: 5000
  max_parallelism: 8
  sampling_strategy: systematic
  comparison_key: [id]
  chunk_timeout: 30s

report:
  output_dir: out
  formats: [json, html]

datasets:
  - name: orders
    description: order table parity
    left:
      driver: duckdb
      uri: left.db
      table: orders
    right:
      driver: duckdb
      uri: right.db
      table: orders
    overrides:
      chunk_size: 100
      sampling_strategy: stratified
      stratify_column: region
  - name: customers
    left:
      driver: postgresql
      uri: postgresql://left/db
      table: customers
    right:
      driver: postgresql
      uri: postgresql://right/db
      table: customers
`

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.yaml", sampleConfig)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, int64(5000), cfg.Comparison.ChunkSize)
	assert.Equal(t, 8, cfg.Comparison.MaxParallelism)
	assert.Equal(t, 30*time.Second, cfg.Comparison.ChunkTimeout)
	assert.Equal(t, "out", cfg.Report.OutputDir)
	assert.Equal(t, []string{"json", "html"}, cfg.Report.Formats)
	require.Len(t, cfg.Datasets, 2)
	assert.Equal(t, "orders", cfg.Datasets[0].Name)
	require.NotNil(t, cfg.Datasets[0].Overrides)
}

// TestLoadConfigDefaults verifies unspecified engine options fall back to the
// built-in defaults.
func TestLoadConfigDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
datasets:
  - name: d
    left: {driver: duckdb, uri: l.db, table: t}
    right: {driver: duckdb, uri: r.db, table: t}
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	d := compare.DefaultSettings()
	assert.Equal(t, d.ChunkSize, cfg.Comparison.ChunkSize)
	assert.Equal(t, string(d.SamplingStrategy), cfg.Comparison.SamplingStrategy)
	assert.Equal(t, d.ExampleCap, cfg.Comparison.ExampleCap)
	assert.Equal(t, "reports", cfg.Report.OutputDir)
	assert.Equal(t, []string{"json"}, cfg.Report.Formats)
}

// TestResolveAppliesOverrides verifies per-dataset overrides overlay the
// global settings exactly once.
func TestResolveAppliesOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", sampleConfig)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	settings, ds, err := cfg.Resolve("orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", ds.Name)
	assert.Equal(t, int64(100), settings.ChunkSize)
	assert.Equal(t, compare.StrategyStratified, settings.SamplingStrategy)
	assert.Equal(t, "region", settings.StratifyColumn)
	// Unoverridden values come from the global section.
	assert.Equal(t, 8, settings.MaxParallelism)
	assert.Equal(t, []string{"id"}, settings.ComparisonKey)

	settings, _, err = cfg.Resolve("customers")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), settings.ChunkSize)
	assert.Equal(t, compare.StrategySystematic, settings.SamplingStrategy)
}

func TestResolveUnknownDataset(t *testing.T) {
	path := writeFile(t, "config.yaml", sampleConfig)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, _, err = cfg.Resolve("missing")
	require.Error(t, err)
	var cfgErr *metrics.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestResolveRejectsInvalidOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
datasets:
  - name: d
    left: {driver: duckdb, uri: l.db, table: t}
    right: {driver: duckdb, uri: r.db, table: t}
    overrides:
      sampling_strategy: bogus
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, _, err = cfg.Resolve("d")
	require.Error(t, err)
}

func TestValidateRejectsBadDatasets(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing driver", `
datasets:
  - name: d
    left: {uri: l.db, table: t}
    right: {driver: duckdb, uri: r.db, table: t}
`},
		{"table and query", `
datasets:
  - name: d
    left: {driver: duckdb, uri: l.db, table: t, query: "select 1"}
    right: {driver: duckdb, uri: r.db, table: t}
`},
		{"duplicate names", `
datasets:
  - name: d
    left: {driver: duckdb, uri: l.db, table: t}
    right: {driver: duckdb, uri: r.db, table: t}
  - name: d
    left: {driver: duckdb, uri: l.db, table: t}
    right: {driver: duckdb, uri: r.db, table: t}
`},
		{"bad report format", `
report:
  formats: [pdf]
datasets:
  - name: d
    left: {driver: duckdb, uri: l.db, table: t}
    right: {driver: duckdb, uri: r.db, table: t}
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "config.yaml", tc.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
		})
	}
}

func TestLoadDatasetsYAML(t *testing.T) {
	path := writeFile(t, "datasets.yaml", `
datasets:
  - name: a
    left: {driver: duckdb, uri: l.db, table: t}
    right: {driver: duckdb, uri: r.db, table: t}
`)
	datasets, err := LoadDatasets(path)
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, "a", datasets[0].Name)
}

func TestLoadDatasetsCSV(t *testing.T) {
	path := writeFile(t, "datasets.csv",
		"name,description,left_driver,left_uri,left_table,right_driver,right_uri,right_table,comparison_key\n"+
			"orders,order parity,duckdb,l.db,orders,duckdb,r.db,orders,id;region\n"+
			"customers,,postgresql,postgresql://l/db,customers,postgresql,postgresql://r/db,customers,\n")
	datasets, err := LoadDatasets(path)
	require.NoError(t, err)
	require.Len(t, datasets, 2)

	assert.Equal(t, "orders", datasets[0].Name)
	assert.Equal(t, "duckdb", datasets[0].Left.Driver)
	require.NotNil(t, datasets[0].Overrides)
	assert.Equal(t, []string{"id", "region"}, datasets[0].Overrides.ComparisonKey)

	assert.Equal(t, "customers", datasets[1].Name)
	assert.Nil(t, datasets[1].Overrides)
}

// TestLoadDatasetsCSVMissingHeader verifies the registry rejects files
// without the required columns.
func TestLoadDatasetsCSVMissingHeader(t *testing.T) {
	path := writeFile(t, "datasets.csv",
		"name,left_driver,left_uri\norders,duckdb,l.db\n")
	_, err := LoadDatasets(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}
