package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// requiredCSVHeaders are the columns a CSV dataset registry must carry.
var requiredCSVHeaders = []string{
	"name",
	"left_driver", "left_uri", "left_table",
	"right_driver", "right_uri", "right_table",
}

// LoadDatasets reads a standalone dataset registry. The format follows the
// file extension: a CSV table with one dataset per row, or a YAML document
// with a top-level "datasets" list.
func LoadDatasets(path string) ([]DatasetConfig, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return loadDatasetsCSV(path)
	}
	return loadDatasetsYAML(path)
}

func loadDatasetsYAML(path string) ([]DatasetConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var reg struct {
		Datasets []DatasetConfig `mapstructure:"datasets"`
	}
	if err := v.Unmarshal(&reg); err != nil {
		return nil, err
	}
	if len(reg.Datasets) == 0 {
		return nil, fmt.Errorf("no datasets defined in %s", path)
	}
	for i := range reg.Datasets {
		if err := reg.Datasets[i].Validate(); err != nil {
			return nil, fmt.Errorf("dataset '%s' validation failed: %w", reg.Datasets[i].Name, err)
		}
	}
	return reg.Datasets, nil
}

func loadDatasetsCSV(path string) ([]DatasetConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range requiredCSVHeaders {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("missing required column '%s' in %s", h, path)
		}
	}

	cell := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var datasets []DatasetConfig
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ds := DatasetConfig{
			Name:        cell(record, "name"),
			Description: cell(record, "description"),
			Left: SourceConfig{
				Driver: cell(record, "left_driver"),
				URI:    cell(record, "left_uri"),
				Table:  cell(record, "left_table"),
			},
			Right: SourceConfig{
				Driver: cell(record, "right_driver"),
				URI:    cell(record, "right_uri"),
				Table:  cell(record, "right_table"),
			},
		}
		if key := cell(record, "comparison_key"); key != "" {
			ds.Overrides = &OverrideConfig{ComparisonKey: strings.Split(key, ";")}
		}
		if err := ds.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		datasets = append(datasets, ds)
	}
	if len(datasets) == 0 {
		return nil, fmt.Errorf("no datasets defined in %s", path)
	}
	return datasets, nil
}
