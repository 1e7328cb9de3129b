package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wilbur182/chatvault/internal/config"
	"github.com/wilbur182/chatvault/internal/model"
	"github.com/wilbur182/chatvault/internal/query"
)

func newListCmd(cfgFromFlags func() *config.Config) *cobra.Command {
	var (
		provider string
		project  string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List imported sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cfgFromFlags()
			ctx := cmd.Context()
			h := openStoreOrExit(ctx, cfg.DBPath)
			defer h.Close()

			resp, err := h.facade.ListSessions(ctx, query.ListSessionsRequest{
				Page:     page,
				PageSize: pageSize,
				Provider: model.Provider(provider),
				Project:  project,
			})
			if err != nil {
				return err
			}

			for _, s := range resp.Sessions {
				fmt.Printf("%s  %-12s  %-20s  messages=%d  %s\n",
					s.ID, s.Provider, s.ProjectName, s.MessageCount, s.StartTime.Format("2006-01-02 15:04"))
			}
			fmt.Printf("\npage %d/%d (%d sessions total)\n", resp.Page, resp.TotalPages, resp.TotalCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "filter by provider (claude-code, codex, gemini-cli, cursor-agent, other)")
	cmd.Flags().StringVar(&project, "project", "", "filter by project name")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "results per page")
	return cmd
}
