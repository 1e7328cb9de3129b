package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/wilbur182/chatvault/internal/config"
)

// Version is set at build time via ldflags.
var Version = ""

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dbPath  string
		debugFl bool
	)

	root := &cobra.Command{
		Use:           "chatvault",
		Short:         "Ingests, enriches, and queries AI coding assistant transcripts",
		Version:       effectiveVersion(Version),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "path to the chatvault database (default ~/.chatvault/chatvault.db)")
	root.PersistentFlags().BoolVar(&debugFl, "debug", false, "enable debug logging")

	logLevel := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debugFl {
			logLevel.Set(slog.LevelDebug)
		}
	}

	cfgFromFlags := func() *config.Config {
		opts := []config.Option{}
		if dbPath != "" {
			opts = append(opts, config.WithDBPath(dbPath))
		}
		c := config.New(opts...)
		if err := c.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
			os.Exit(1)
		}
		return c
	}

	root.AddCommand(
		newDiscoverCmd(logger, cfgFromFlags),
		newImportCmd(logger, cfgFromFlags),
		newListCmd(cfgFromFlags),
		newSearchCmd(cfgFromFlags),
		newSweepCmd(logger, cfgFromFlags),
		newWatchCmd(logger, cfgFromFlags),
	)
	return root
}

// effectiveVersion returns the version string, falling back to the Go
// module/VCS build info when no version was injected at build time.
func effectiveVersion(v string) string {
	if v != "" {
		return v
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	var revision string
	var dirty bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if revision != "" {
		ver := "devel+" + revision
		if len(ver) > 20 {
			ver = ver[:20]
		}
		if dirty {
			ver += "+dirty"
		}
		return ver
	}
	return "devel"
}

func openStoreOrExit(ctx context.Context, dbPath string) *storeHandle {
	h, err := newStoreHandle(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	return h
}
