package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wilbur182/chatvault/internal/config"
	"github.com/wilbur182/chatvault/internal/registry"
)

func newDiscoverCmd(logger *slog.Logger, cfgFromFlags func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Report which provider directories exist on this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cfgFromFlags()
			reg := registry.New(defaultParsers())
			found := reg.DiscoverProviders()

			present := 0
			for provider, ok := range found {
				logger.Debug("provider probe", "provider", provider, "found", ok)
				status := "not found"
				if ok {
					status = "found"
					present++
				}
				fmt.Printf("%-14s %s\n", provider, status)
			}
			if present == 0 {
				fmt.Println("\nno provider directories found; pass explicit paths to `chatvault import`")
			}
			return nil
		},
	}
}
