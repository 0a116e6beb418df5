package main

import (
	"github.com/spf13/cobra"

	"github.com/deepakagrawalmsoe/DataComparator/api"
)

// newServeCommand creates the serve command exposing saved reports over HTTP.
func newServeCommand() *cobra.Command {
	var (
		port      string
		reportDir string
		prefork   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve saved comparison reports over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := api.NewServer(api.ServerOptions{
				Port:      port,
				Prefork:   prefork,
				ReportDir: reportDir,
			})
			return server.Start()
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "3000", "Port to listen on")
	cmd.Flags().StringVar(&reportDir, "reports", "reports", "Directory holding saved reports")
	cmd.Flags().BoolVar(&prefork, "prefork", false, "Use multiple OS processes")

	return cmd
}
