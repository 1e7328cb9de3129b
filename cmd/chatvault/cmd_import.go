package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wilbur182/chatvault/internal/config"
	"github.com/wilbur182/chatvault/internal/extractor"
	"github.com/wilbur182/chatvault/internal/parser"
	"github.com/wilbur182/chatvault/internal/registry"
	"github.com/wilbur182/chatvault/internal/store"
	"github.com/wilbur182/chatvault/internal/turns"
)

// parsedFile is one file's decoded sessions, ready to pass to ImportSession.
type parsedFile struct {
	result registry.ScanResult
	many   []parser.SessionMessages
	err    error
}

func newImportCmd(logger *slog.Logger, cfgFromFlags func() *config.Config) *cobra.Command {
	var (
		recursive   bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "import [paths...]",
		Short: "Scan one or more directories/files and import every recognized transcript",
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

			var scanned []registry.ScanResult
			for _, root := range roots {
				found, err := h.registry.ScanDirectory(root, recursive, nil)
				if err != nil {
					logger.Warn("scan failed", "root", root, "err", err)
					continue
				}
				scanned = append(scanned, found...)
			}
			if len(scanned) == 0 {
				fmt.Println("no recognized transcript files found")
				return nil
			}

			// Directory scanning above runs sequentially (registry.ScanDirectory
			// is a plain filepath.WalkDir); the per-file decode is the
			// CPU/IO-bound step worth fanning out, bounded so a large import
			// doesn't open hundreds of files at once.
			parsed := parseAll(ctx, h.registry, scanned, concurrency, logger)

			imported, skipped, failed := 0, 0, 0
			now := time.Now()
			for _, pf := range parsed {
				if pf.err != nil {
					logger.Warn("parse failed", "path", pf.result.Path, "err", pf.err)
					failed++
					continue
				}
				for _, sm := range pf.many {
					res, err := importOne(ctx, h, sm, now)
					if err != nil {
						logger.Warn("import failed", "path", pf.result.Path, "err", err)
						failed++
						continue
					}
					if res.AlreadyImported {
						skipped++
					} else {
						imported++
					}
				}
			}

			fmt.Printf("imported=%d skipped=%d(already present) failed=%d\n", imported, skipped, failed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&recursive, "recursive", true, "recurse into subdirectories")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of files decoded concurrently")
	return cmd
}

// parseAll decodes every scanned file concurrently, bounded by concurrency,
// preserving input order in the returned slice so downstream logging lines
// up with the scan.
func parseAll(ctx context.Context, reg *registry.Registry, files []registry.ScanResult, concurrency int, logger *slog.Logger) []parsedFile {
	if concurrency <= 0 {
		concurrency = 4
	}
	out := make([]parsedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	var mu sync.Mutex

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			p, ok := reg.ParserFor(f.Provider)
			if !ok {
				mu.Lock()
				out[i] = parsedFile{result: f, err: fmt.Errorf("no parser registered for provider %s", f.Provider)}
				mu.Unlock()
				return nil
			}

			var many []parser.SessionMessages
			var err error
			if mp, ok := p.(parser.MultiParser); ok {
				many, err = mp.ParseMany(f.Path)
			} else {
				var single parser.SessionMessages
				single, err = p.Parse(f.Path)
				if err == nil {
					many = []parser.SessionMessages{single}
				}
			}

			mu.Lock()
			out[i] = parsedFile{result: f, many: many, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func importOne(ctx context.Context, h *storeHandle, sm parser.SessionMessages, now time.Time) (*store.ImportResult, error) {
	ops, _ := extractor.Extract(sm.Session.ID, sm.Messages)
	detectedTurns := turns.Detect(sm.Session.ID, sm.Messages, ops)

	return h.store.ImportSession(ctx, sm.Session, sm.Messages, ops, detectedTurns, now)
}
