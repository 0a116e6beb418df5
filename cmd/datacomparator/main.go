// Package main is the entry point for the DataComparator CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deepakagrawalmsoe/DataComparator/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "datacomparator",
		Short: "DataComparator verifies that two tabular datasets hold the same data",
		Long: `DataComparator compares tabular datasets across databases in phases:
a cheap structural check, an order-independent content fingerprint, a
sampled drift analysis and a chunk-parallel full row comparison. Each run
produces a comparison report regardless of the outcome.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of DataComparator",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("DataComparator v%s (built %s)\n", version.Version, version.BuildDate)
		},
	})

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newServeCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
