package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msmolkin/nwsharvest/internal/config"
	"github.com/msmolkin/nwsharvest/internal/series"
)

// newSeriesCmd creates the 'series' subcommand, which lists the catalog.
func newSeriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "series",
		Short: "Lists the known bulletin series",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			catalog := series.Catalog(cfg.Series)
			for _, key := range catalog.Keys() {
				s := catalog[key]
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s (site %s, issued by %s, product %s)\n",
					key, s.Name, s.Site, s.IssuedBy, s.Product)
			}
			return nil
		},
	}
}
