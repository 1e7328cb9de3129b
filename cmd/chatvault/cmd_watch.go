package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/wilbur182/chatvault/internal/config"
	"github.com/wilbur182/chatvault/internal/watch"
)

func newWatchCmd(logger *slog.Logger, cfgFromFlags func() *config.Config) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Watch provider directories and re-import whenever a tree changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cfgFromFlags()
			ctx := cmd.Context()
			h := openStoreOrExit(ctx, cfg.DBPath)
			defer h.Close()

			roots := args
			if len(roots) == 0 {
				for _, dir := range h.registry.DefaultDirs() {
					roots = append(roots, dir)
				}
			}
			if len(roots) == 0 {
				return fmt.Errorf("no paths given and no provider directories found on this machine")
			}

			w, err := watch.New(roots, 500*time.Millisecond)
			if err != nil {
				return err
			}
			defer w.Close()

			logger.Info("watching", "roots", roots)
			for {
				select {
				case ev, ok := <-w.Events():
					if !ok {
						return nil
					}
					rescanRoot(ctx, h, ev.Root, recursive, logger)
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
	cmd.Flags().BoolVar(&recursive, "recursive", true, "recurse into subdirectories when rescanning")
	return cmd
}

func rescanRoot(ctx context.Context, h *storeHandle, root string, recursive bool, logger *slog.Logger) {
	found, err := h.registry.ScanDirectory(root, recursive, nil)
	if err != nil {
		logger.Warn("rescan failed", "root", root, "err", err)
		return
	}
	parsed := parseAll(ctx, h.registry, found, 4, logger)

	now := time.Now()
	imported := 0
	for _, pf := range parsed {
		if pf.err != nil {
			logger.Warn("parse failed", "path", pf.result.Path, "err", pf.err)
			continue
		}
		for _, sm := range pf.many {
			res, err := importOne(ctx, h, sm, now)
			if err != nil {
				logger.Warn("import failed", "path", pf.result.Path, "err", err)
				continue
			}
			if !res.AlreadyImported {
				imported++
			}
		}
	}
	if imported > 0 {
		logger.Info("rescan imported new sessions", "root", root, "count", imported)
	}
}
