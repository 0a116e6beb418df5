package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deepakagrawalmsoe/DataComparator/compare"
	"github.com/deepakagrawalmsoe/DataComparator/config"
	"github.com/deepakagrawalmsoe/DataComparator/internal/adapters"
	"github.com/deepakagrawalmsoe/DataComparator/logger"
	"github.com/deepakagrawalmsoe/DataComparator/metrics"
	"github.com/deepakagrawalmsoe/DataComparator/report"
)

// RunOptions represents the options for the run command.
type RunOptions struct {
	ConfigPath   string
	DatasetsPath string
	Datasets     []string
	OutputDir    string
	Formats      []string
	Quiet        bool
}

// newRunCommand creates the run command.
func newRunCommand() *cobra.Command {
	options := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compare the configured datasets and write reports",
		Long: `The run command executes the comparison pipeline for every configured
dataset, or for the subset named with --dataset. Each dataset gets its own
report; a consolidated report summarizes the whole run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComparisons(options)
		},
	}

	cmd.Flags().StringVarP(&options.ConfigPath, "config", "c", "datacomparator.yaml", "Configuration file")
	cmd.Flags().StringVar(&options.DatasetsPath, "datasets", "", "Standalone dataset registry (YAML or CSV), replaces the config's dataset list")
	cmd.Flags().StringSliceVarP(&options.Datasets, "dataset", "d", nil, "Dataset names to compare (default: all)")
	cmd.Flags().StringVarP(&options.OutputDir, "output", "o", "", "Report output directory (overrides config)")
	cmd.Flags().StringSliceVar(&options.Formats, "format", nil, "Report formats: json, csv, html (overrides config)")
	cmd.Flags().BoolVarP(&options.Quiet, "quiet", "q", false, "Suppress the progress spinner")

	return cmd
}

func runComparisons(options *RunOptions) error {
	logger.InitLogger()
	defer logger.Sync()
	log := logger.GetLogger()

	cfg, err := config.LoadConfig(options.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if options.DatasetsPath != "" {
		datasets, err := config.LoadDatasets(options.DatasetsPath)
		if err != nil {
			return fmt.Errorf("load dataset registry: %w", err)
		}
		cfg.Datasets = datasets
	}

	outputDir := cfg.Report.OutputDir
	if options.OutputDir != "" {
		outputDir = options.OutputDir
	}
	formats := cfg.Report.Formats
	if len(options.Formats) > 0 {
		formats = options.Formats
	}

	names := options.Datasets
	if len(names) == 0 {
		for _, ds := range cfg.Datasets {
			names = append(names, ds.Name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no datasets configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reports []metrics.ComparisonReport
	for _, name := range names {
		rep, err := runDataset(ctx, cfg, name, log, options.Quiet)
		if err != nil {
			return err
		}
		if err := report.SaveReports(*rep, outputDir, formats); err != nil {
			return err
		}
		reports = append(reports, *rep)
		fmt.Printf("%-30s %s (%s)\n", rep.Dataset, rep.Verdict, rep.Duration.Round(time.Millisecond))

		if ctx.Err() != nil {
			log.Warn("Run interrupted", zap.Int("completed", len(reports)))
			break
		}
	}

	consolidated := metrics.Consolidate(reports)
	if err := report.SaveConsolidated(consolidated, outputDir, formats); err != nil {
		return err
	}
	fmt.Printf("\n%d datasets compared, %d successful, overall match: %t\n",
		consolidated.Summary.TotalDatasets, consolidated.Summary.Successful, consolidated.Summary.OverallMatch)

	if !consolidated.Summary.OverallMatch {
		os.Exit(1)
	}
	return nil
}

// runDataset resolves the settings for one dataset, opens both sources and
// runs the pipeline. The runner owns the sources and closes them.
func runDataset(ctx context.Context, cfg *config.Config, name string, log *zap.Logger, quiet bool) (*metrics.ComparisonReport, error) {
	settings, ds, err := cfg.Resolve(name)
	if err != nil {
		return nil, err
	}
	runner, err := compare.NewRunner(settings, log)
	if err != nil {
		return nil, err
	}

	left, err := openSource(ctx, "left", ds.Left, settings)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	right, err := openSource(ctx, "right", ds.Right, settings)
	if err != nil {
		left.Close()
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}

	var spin *spinner.Spinner
	if !quiet {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		spin.Suffix = fmt.Sprintf(" comparing %s", name)
		spin.Start()
	}

	rep := runner.Run(ctx, compare.RunInput{
		Dataset:     ds.Name,
		Description: ds.Description,
		Left:        left,
		Right:       right,
	})

	if spin != nil {
		spin.Stop()
	}
	return rep, nil
}

func openSource(ctx context.Context, side string, sc config.SourceConfig, settings compare.Settings) (*adapters.SQLSource, error) {
	src, err := adapters.Open(ctx, adapters.Options{
		Name:    side + ":" + sourceLabel(sc),
		Driver:  sc.Driver,
		URI:     sc.URI,
		Table:   sc.Table,
		Query:   sc.Query,
		OrderBy: settings.ComparisonKey,
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

func sourceLabel(sc config.SourceConfig) string {
	if sc.Table != "" {
		return sc.Table
	}
	return sc.Driver
}
