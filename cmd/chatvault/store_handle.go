package main

import (
	"context"

	"github.com/wilbur182/chatvault/internal/model"
	"github.com/wilbur182/chatvault/internal/parser"
	"github.com/wilbur182/chatvault/internal/parser/archive"
	"github.com/wilbur182/chatvault/internal/parser/claudecode"
	"github.com/wilbur182/chatvault/internal/parser/codex"
	"github.com/wilbur182/chatvault/internal/parser/cursoragent"
	"github.com/wilbur182/chatvault/internal/parser/geminicli"
	"github.com/wilbur182/chatvault/internal/query"
	"github.com/wilbur182/chatvault/internal/registry"
	"github.com/wilbur182/chatvault/internal/store"
)

// storeHandle bundles an opened store with the dispatcher and query facade
// built on top of it, so every subcommand shares one construction path.
type storeHandle struct {
	store    *store.Store
	registry *registry.Registry
	facade   *query.Facade
}

func defaultParsers() map[model.Provider]parser.Parser {
	return map[model.Provider]parser.Parser{
		model.ProviderClaudeCode:  claudecode.New(),
		model.ProviderCodex:       codex.New(),
		model.ProviderGeminiCLI:   geminicli.New(),
		model.ProviderCursorAgent: cursoragent.New(),
		model.ProviderOther:       archive.New(),
	}
}

func newStoreHandle(ctx context.Context, dbPath string) (*storeHandle, error) {
	s, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	reg := registry.New(defaultParsers())
	return &storeHandle{store: s, registry: reg, facade: query.New(s)}, nil
}

func (h *storeHandle) Close() error {
	return h.store.Close()
}
