// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kraklabs/parseltongue/internal/broadcast"
	"github.com/kraklabs/parseltongue/internal/codeindexer"
	"github.com/kraklabs/parseltongue/internal/config"
	parserrors "github.com/kraklabs/parseltongue/internal/errors"
	"github.com/kraklabs/parseltongue/internal/graphstore"
	"github.com/kraklabs/parseltongue/internal/workspace"
)

// app bundles the collaborators every CLI command needs: a loaded config, a
// workspace registry rehydrated from disk, and the broadcast hub the
// registry feeds. Commands that only touch the local filesystem (no server
// process involved) still go through this so behavior matches `serve`
// exactly.
type app struct {
	cfg      *config.Config
	registry *workspace.Registry
	hub      *broadcast.Hub
	logger   *slog.Logger
}

func newLogger(globals GlobalFlags) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case globals.Verbose >= 2:
		level = slog.LevelDebug
	case globals.Verbose >= 1:
		level = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("component", "parseltongue")
}

func openApp(ctx context.Context, globals GlobalFlags) (*app, error) {
	cfg, err := config.LoadConfig(globals.Config)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	logger := newLogger(globals)
	hub := broadcast.NewHub()
	indexer := codeindexer.NewTreeSitterIndexer(logger)

	reg := workspace.NewRegistry(workspace.Config{
		DataDir:        cfg.DataDir,
		Hub:            hub,
		Indexer:        indexer,
		NewStore:       func() graphstore.Store { return graphstore.NewMemStore() },
		Logger:         logger,
		MaxHops:        cfg.MaxHops,
		DebounceWindow: cfg.DebounceWindow,
		IgnoreGlobs:    cfg.IgnoreGlobs,
	})

	if err := reg.LoadAll(ctx); err != nil {
		return nil, parserrors.NewDatabaseError(
			"Failed to load workspaces",
			"Could not rehydrate workspace metadata from "+cfg.DataDir,
			"Check that the data directory is readable",
			err,
		)
	}

	return &app{cfg: cfg, registry: reg, hub: hub, logger: logger}, nil
}
