package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/deepakagrawalmsoe/DataComparator/metrics"
)

// consolidatedBase is the file name used for cross-dataset reports.
const consolidatedBase = "consolidated"

// SaveConsolidated writes the cross-dataset report to outputDir in every
// requested format.
func SaveConsolidated(rep metrics.ConsolidatedReport, outputDir string, formats []string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	for _, format := range formats {
		var (
			data []byte
			err  error
		)
		switch format {
		case "json":
			data, err = json.MarshalIndent(rep, "", "  ")
		case "csv":
			data, err = consolidatedCSV(rep)
		case "html":
			data, err = consolidatedHTML(rep)
		default:
			return fmt.Errorf("unknown report format '%s'", format)
		}
		if err != nil {
			return fmt.Errorf("generate consolidated %s report: %w", format, err)
		}
		path := filepath.Join(outputDir, consolidatedBase+"."+format)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
	}
	return nil
}

func consolidatedCSV(rep metrics.ConsolidatedReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"dataset", "verdict", "left_rows", "right_rows", "duration", "error"}); err != nil {
		return nil, err
	}
	for _, ds := range rep.Datasets {
		record := []string{
			ds.Name,
			string(ds.Verdict),
			fmt.Sprintf("%d", ds.LeftRowCount),
			fmt.Sprintf("%d", ds.RightRowCount),
			ds.Duration.String(),
			ds.Error,
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

const consolidatedTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Consolidated Comparison Report</title>
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
    <h1>Consolidated Comparison Report</h1>
    <p><strong>Datasets:</strong> {{.Summary.TotalDatasets}}
       ({{.Summary.Successful}} successful, {{.Summary.Failed}} failed)</p>
    <p><strong>Overall Match:</strong>
        <span class="{{if .Summary.OverallMatch}}status-pass{{else}}status-fail{{end}}">{{.Summary.OverallMatch}}</span>
    </p>
    <p><strong>Success Rate:</strong> {{printf "%.1f" .Summary.SuccessRate}}%</p>
    <p><strong>Total Duration:</strong> {{.Summary.TotalDuration}}</p>

    <table>
        <tr>
            <th>Dataset</th>
            <th>Verdict</th>
            <th>Left Rows</th>
            <th>Right Rows</th>
            <th>Duration</th>
            <th>Error</th>
        </tr>
        {{range .Datasets}}
        <tr>
            <td>{{.Name}}</td>
            <td class="{{if eq .Verdict "identical"}}status-pass{{else if eq .Verdict "differences_found"}}status-warn{{else}}status-fail{{end}}">{{.Verdict}}</td>
            <td>{{.LeftRowCount}}</td>
            <td>{{.RightRowCount}}</td>
            <td>{{.Duration}}</td>
            <td>{{.Error}}</td>
        </tr>
        {{end}}
    </table>

    <footer>
        <p>Generated on {{.Summary.GeneratedAt}}</p>
    </footer>
</body>
</html>
`

func consolidatedHTML(rep metrics.ConsolidatedReport) ([]byte, error) {
	tmpl, err := template.New("consolidated").Parse(consolidatedTemplate)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, rep); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
