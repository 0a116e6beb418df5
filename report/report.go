// Package report renders comparison reports as JSON, CSV and HTML files.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepakagrawalmsoe/DataComparator/metrics"
)

// -----------------------------
// Report Generator Interfaces
// -----------------------------

// ReportGenerator defines the methods for generating reports.
type ReportGenerator interface {
	Generate(run metrics.ComparisonReport) ([]byte, error)
	SaveToFile(run metrics.ComparisonReport, filePath string) error
	Extension() string
}

// GeneratorFor returns the generator for a format name.
func GeneratorFor(format string) (ReportGenerator, error) {
	switch format {
	case "json":
		return &JSONReportGenerator{}, nil
	case "csv":
		return &CSVReportGenerator{}, nil
	case "html":
		return &HTMLReportGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown report format '%s'", format)
	}
}

// SaveReports writes the report to outputDir in every requested format. The
// file name is derived from the dataset name.
func SaveReports(run metrics.ComparisonReport, outputDir string, formats []string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	base := sanitizeName(run.Dataset)
	for _, format := range formats {
		gen, err := GeneratorFor(format)
		if err != nil {
			return err
		}
		path := filepath.Join(outputDir, base+"."+gen.Extension())
		if err := gen.SaveToFile(run, path); err != nil {
			return fmt.Errorf("save %s report: %w", format, err)
		}
	}
	return nil
}

// ReportFromFilePath loads a previously saved JSON report.
func ReportFromFilePath(filePath string) (metrics.ComparisonReport, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return metrics.ComparisonReport{}, err
	}
	var report metrics.ComparisonReport
	if err := json.Unmarshal(data, &report); err != nil {
		return metrics.ComparisonReport{}, err
	}
	return report, nil
}

func sanitizeName(name string) string {
	if name == "" {
		return "comparison"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// -----------------------------
// JSON Report Generator
// -----------------------------

// JSONReportGenerator generates JSON reports.
type JSONReportGenerator struct{}

func (j *JSONReportGenerator) Generate(run metrics.ComparisonReport) ([]byte, error) {
	return json.MarshalIndent(run, "", "  ")
}

func (j *JSONReportGenerator) SaveToFile(run metrics.ComparisonReport, filePath string) error {
	data, err := j.Generate(run)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

func (j *JSONReportGenerator) Extension() string { return "json" }

// -----------------------------
// CSV Report Generator
// -----------------------------

// CSVReportGenerator generates a flat per-phase CSV summary.
type CSVReportGenerator struct{}

func (c *CSVReportGenerator) Generate(run metrics.ComparisonReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"dataset", "phase", "status", "duration", "detail", "error"}); err != nil {
		return nil, err
	}
	for _, p := range run.Phases {
		record := []string{
			run.Dataset,
			string(p.Phase),
			string(p.Status),
			p.Duration.String(),
			phaseDetail(p),
			p.Error,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *CSVReportGenerator) SaveToFile(run metrics.ComparisonReport, filePath string) error {
	data, err := c.Generate(run)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

func (c *CSVReportGenerator) Extension() string { return "csv" }

// phaseDetail summarizes one phase payload in a single CSV cell.
func phaseDetail(p metrics.PhaseResult) string {
	switch {
	case p.Schema != nil:
		return fmt.Sprintf("column_diffs=%d row_count_delta=%d", len(p.Schema.ColumnDiffs), p.Schema.RowCountDelta)
	case p.Fingerprint != nil:
		return fmt.Sprintf("match=%t differing_chunks=%d", p.Fingerprint.Match, len(p.Fingerprint.DifferingChunks))
	case p.Drift != nil:
		return fmt.Sprintf("sampled=%d/%d drifted_columns=%d", p.Drift.LeftSampled, p.Drift.RightSampled, len(p.Drift.DriftedColumns))
	case p.Diff != nil:
		return fmt.Sprintf("matches=%d mismatches=%d left_only=%d right_only=%d",
			p.Diff.Matches, p.Diff.Mismatches, p.Diff.LeftOnly, p.Diff.RightOnly)
	default:
		return ""
	}
}

// -----------------------------
// HTML Report Generator
// -----------------------------

// HTMLReportGenerator generates HTML reports.
type HTMLReportGenerator struct{}

// HTML template for the report.
const htmlTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Comparison Report: {{.Dataset}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        table { width: 100%; border-collapse: collapse; margin-top: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f4f4f4; }
        .status-pass { color: green; }
        .status-fail { color: red; }
        .status-warn { color: darkorange; }
    </style>
</head>
<body>
    <h1>Comparison Report: {{.Dataset}}</h1>
    {{if .Description}}<p>{{.Description}}</p>{{end}}
    <p><strong>Left Source:</strong> {{.LeftSource}}</p>
    <p><strong>Right Source:</strong> {{.RightSource}}</p>
    <p><strong>Started:</strong> {{.StartTime}}</p>
    <p><strong>Duration:</strong> {{.Duration}}</p>
    <p><strong>Verdict:</strong>
        <span class="{{if eq .Verdict "identical"}}status-pass{{else if eq .Verdict "differences_found"}}status-warn{{else}}status-fail{{end}}">{{.Verdict}}</span>
    </p>

    <h2>Phases</h2>
    <table>
        <tr>
            <th>Phase</th>
            <th>Status</th>
            <th>Duration</th>
            <th>Error</th>
        </tr>
        {{range .Phases}}
        <tr>
            <td>{{.Phase}}</td>
            <td class="{{if eq .Status "passed"}}status-pass{{else if eq .Status "skipped"}}{{else if eq .Status "differences_found"}}status-warn{{else}}status-fail{{end}}">{{.Status}}</td>
            <td>{{.Duration}}</td>
            <td>{{.Error}}</td>
        </tr>
        {{end}}
    </table>

    {{with .Metadata}}{{if .Schema}}
    <h2>Schema</h2>
    <p><strong>Rows:</strong> {{.Schema.LeftRowCount}} vs {{.Schema.RightRowCount}} (delta {{.Schema.RowCountDelta}})</p>
    {{if .Schema.ColumnDiffs}}
    <table>
        <tr><th>Column</th><th>Kind</th><th>Left</th><th>Right</th><th>Severity</th></tr>
        {{range .Schema.ColumnDiffs}}
        <tr>
            <td>{{.Column}}</td>
            <td>{{.Kind}}</td>
            <td>{{.Left}}</td>
            <td>{{.Right}}</td>
            <td class="{{if eq .Severity "critical"}}status-fail{{else}}status-warn{{end}}">{{.Severity}}</td>
        </tr>
        {{end}}
    </table>
    {{else}}<p>No structural differences.</p>{{end}}
    {{end}}{{end}}

    {{with .FingerprintPhase}}{{if .Fingerprint}}
    <h2>Fingerprint</h2>
    <p><strong>Algorithm:</strong> {{.Fingerprint.Algorithm}}</p>
    <p><strong>Match:</strong> {{.Fingerprint.Match}} ({{len .Fingerprint.DifferingChunks}} differing of {{.Fingerprint.ChunksCompared}} chunks)</p>
    {{end}}{{end}}

    {{with .Sampling}}{{if .Drift}}
    <h2>Sample Drift</h2>
    <p><strong>Strategy:</strong> {{.Drift.Strategy}} (seed {{.Drift.Seed}}), sampled {{.Drift.LeftSampled}} vs {{.Drift.RightSampled}}</p>
    {{if .Drift.Scores}}
    <table>
        <tr><th>Column</th><th>Score</th><th>Threshold</th><th>Drifted</th></tr>
        {{range .Drift.Scores}}
        <tr>
            <td>{{.Column}}</td>
            <td>{{printf "%.4f" .Score}}</td>
            <td>{{printf "%.4f" .Threshold}}</td>
            <td class="{{if .Drifted}}status-fail{{else}}status-pass{{end}}">{{.Drifted}}</td>
        </tr>
        {{end}}
    </table>
    {{end}}
    {{range .Drift.Warnings}}<p class="status-warn">{{.}}</p>{{end}}
    {{end}}{{end}}

    {{with .Full}}{{if .Diff}}
    <h2>Full Comparison</h2>
    <p>
        <strong>Matches:</strong> {{.Diff.Matches}},
        <strong>Mismatches:</strong> {{.Diff.Mismatches}},
        <strong>Left only:</strong> {{.Diff.LeftOnly}},
        <strong>Right only:</strong> {{.Diff.RightOnly}}
    </p>
    <p><strong>Chunks:</strong> {{.Diff.ChunksProcessed}} processed, {{.Diff.ChunksFailed}} failed</p>
    {{if .Diff.ColumnMismatches}}
    <table>
        <tr><th>Column</th><th>Mismatches</th></tr>
        {{range $col, $n := .Diff.ColumnMismatches}}
        <tr><td>{{$col}}</td><td>{{$n}}</td></tr>
        {{end}}
    </table>
    {{end}}
    {{end}}{{end}}

    <footer>
        <p>Generated on {{.EndTime}}</p>
    </footer>
</body>
</html>
`

// htmlReport exposes the per-phase payloads as template fields.
type htmlReport struct {
	metrics.ComparisonReport
	Metadata         *metrics.PhaseResult
	FingerprintPhase *metrics.PhaseResult
	Sampling         *metrics.PhaseResult
	Full             *metrics.PhaseResult
}

func (h *HTMLReportGenerator) Generate(run metrics.ComparisonReport) ([]byte, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return nil, err
	}

	data := htmlReport{
		ComparisonReport: run,
		Metadata:         run.PhaseResultFor(metrics.PhaseMetadata),
		FingerprintPhase: run.PhaseResultFor(metrics.PhaseFingerprint),
		Sampling:         run.PhaseResultFor(metrics.PhaseSampling),
		Full:             run.PhaseResultFor(metrics.PhaseFull),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *HTMLReportGenerator) SaveToFile(run metrics.ComparisonReport, filePath string) error {
	data, err := h.Generate(run)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

func (h *HTMLReportGenerator) Extension() string { return "html" }
