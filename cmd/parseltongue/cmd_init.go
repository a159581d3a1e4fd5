// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/parseltongue/internal/config"
	parserrors "github.com/kraklabs/parseltongue/internal/errors"
	"github.com/kraklabs/parseltongue/internal/ui"
)

// runInit writes a fresh .parseltongue/server.yaml in the current
// directory, refusing to overwrite an existing one unless --force is given.
func runInit(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing configuration")
	listenAddr := fs.String("listen", "", "Listen address for the server (default 127.0.0.1:7417)")
	_ = fs.Parse(args)

	dir, err := os.Getwd()
	if err != nil {
		parserrors.FatalError(parserrors.NewInternalError(
			"Cannot determine working directory", err.Error(), "Check system permissions and try again", err,
		), globals.JSON)
	}

	path := config.ConfigPath(dir)
	if _, statErr := os.Stat(path); statErr == nil && !*force {
		parserrors.FatalError(parserrors.NewConfigError(
			"Configuration already exists",
			path+" already exists",
			"Pass --force to overwrite it",
			nil,
		), globals.JSON)
	}

	cfg := config.DefaultConfig()
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	if err := config.SaveConfig(cfg, path); err != nil {
		parserrors.FatalError(err.(*parserrors.UserError), globals.JSON)
	}

	if globals.JSON {
		fmt.Printf(`{"config_path":%q,"listen_addr":%q,"data_dir":%q}`+"\n", path, cfg.ListenAddr, cfg.DataDir)
		return
	}

	ui.Header("Parseltongue initialized")
	fmt.Printf("%s %s\n", ui.Label("Config:"), path)
	fmt.Printf("%s %s\n", ui.Label("Listen:"), cfg.ListenAddr)
	fmt.Printf("%s %s\n", ui.Label("Data dir:"), ui.DimText(cfg.DataDir))
	ui.Info("Run 'parseltongue create <source_dir>' to register a workspace.")
}
