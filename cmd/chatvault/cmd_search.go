package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wilbur182/chatvault/internal/config"
	"github.com/wilbur182/chatvault/internal/query"
)

func newSearchCmd(cfgFromFlags func() *config.Config) *cobra.Command {
	var (
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Full-text search across every imported message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cfgFromFlags()
			ctx := cmd.Context()
			h := openStoreOrExit(ctx, cfg.DBPath)
			defer h.Close()

			resp, err := h.facade.SearchMessages(ctx, query.SearchMessagesRequest{
				Query:    args[0],
				Page:     page,
				PageSize: pageSize,
			})
			if err != nil {
				return err
			}

			for _, r := range resp.Results {
				fmt.Printf("[%.2f] %s (%s) %s\n", r.Relevance, r.Session.ID, r.Message.Role, truncate(r.Message.Content, 100))
			}
			fmt.Printf("\npage %d/%d (%d matches total)\n", resp.Page, resp.TotalPages, resp.TotalCount)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "results per page")
	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
