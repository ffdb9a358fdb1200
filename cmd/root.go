// Package cmd defines the CLI commands for the nwsharvest executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nwsharvest",
		Short: "Harvests every published version of an NWS climate bulletin.",
		Long: `nwsharvest downloads all historical revisions of a National Weather
Service daily climate bulletin for a chosen reporting station, fetching
versions concurrently and reassembling them into one ordered transcript.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newHarvestCmd())
	cmd.AddCommand(newSeriesCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
