package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wilbur182/chatvault/internal/config"
	"github.com/wilbur182/chatvault/internal/model"
	"github.com/wilbur182/chatvault/internal/query"
	"github.com/wilbur182/chatvault/internal/store"
	"github.com/wilbur182/chatvault/internal/summarize"
)

func newSweepCmd(logger *slog.Logger, cfgFromFlags func() *config.Config) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Generate turn and session summaries for every session missing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cfgFromFlags()
			ctx := cmd.Context()
			h := openStoreOrExit(ctx, cfg.DBPath)
			defer h.Close()

			items, err := collectSweepItems(ctx, h, force)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("nothing to summarize")
				return nil
			}

			gen := summarize.CLIGenerator{
				CLIPath: cfg.GeneratorCLIPath,
				Model:   cfg.GeneratorModel,
				Timeout: cfg.GeneratorTimeout,
			}
			orch := summarize.New(gen)

			result := orch.BulkSweep(ctx, items, cfg.SweepConcurrency)
			if err := persistSweepResult(ctx, h.store, result); err != nil {
				return err
			}

			for _, f := range result.Failures {
				logger.Warn("summarization failed", "session_id", f.SessionID, "turn_number", f.TurnNumber, "err", f.Err)
			}
			fmt.Printf("turn_summaries=%d session_summaries=%d failures=%d\n",
				len(result.TurnSummaries), len(result.SessionSummaries), len(result.Failures))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "regenerate summaries even for sessions that already have one")
	return cmd
}

func collectSweepItems(ctx context.Context, h *storeHandle, force bool) ([]summarize.SweepItem, error) {
	const pageSize = 100
	var items []summarize.SweepItem
	page := 1
	for {
		resp, err := h.facade.ListSessions(ctx, query.ListSessionsRequest{Page: page, PageSize: pageSize})
		if err != nil {
			return nil, err
		}
		for _, sess := range resp.Sessions {
			if !force {
				if _, err := h.store.SessionSummaryByID(ctx, sess.ID); err == nil {
					continue
				} else if !errors.Is(err, model.ErrNotFound) {
					return nil, err
				}
			}
			turns, err := h.store.TurnsForSession(ctx, sess.ID)
			if err != nil {
				return nil, err
			}
			if len(turns) == 0 {
				continue
			}
			items = append(items, summarize.SweepItem{SessionID: sess.ID, Turns: turns})
		}
		if page >= resp.TotalPages {
			break
		}
		page++
	}
	return items, nil
}

func persistSweepResult(ctx context.Context, s *store.Store, result summarize.SweepResult) error {
	for _, ts := range result.TurnSummaries {
		if err := s.SaveTurnSummary(ctx, ts); err != nil {
			return fmt.Errorf("save turn summary for session %s turn %d: %w", ts.SessionID, ts.TurnNumber, err)
		}
	}
	for _, ss := range result.SessionSummaries {
		if err := s.SaveSessionSummary(ctx, ss); err != nil {
			return fmt.Errorf("save session summary for session %s: %w", ss.SessionID, err)
		}
	}
	return nil
}
