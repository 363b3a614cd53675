package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vaayushanti/bagspec/common/metrics"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var verbose bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), serviceName, version)
		if !verbose {
			return nil
		}

		out, err := json.MarshalIndent(metrics.Capture(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode runtime info: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print runtime information")
}
