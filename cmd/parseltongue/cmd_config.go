// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/parseltongue/internal/config"
	"github.com/kraklabs/parseltongue/internal/ui"
)

// configOutput is the JSON-serializable view of config.Config: a 1:1 field
// mirror, kept separate from config.Config so a future field added for
// internal use doesn't leak into the CLI surface without a deliberate edit
// here.
type configOutput struct {
	ConfigPath      string   `json:"config_path"`
	Version         string   `json:"version"`
	ListenAddr      string   `json:"listen_addr"`
	DataDir         string   `json:"data_dir"`
	DebounceWindow  string   `json:"debounce_window"`
	MaxHops         int      `json:"max_hops"`
	IgnoreGlobs     []string `json:"ignore_globs,omitempty"`
	SubscriberLimit int      `json:"subscriber_limit_per_workspace"`
}

// runConfig displays the resolved .parseltongue/server.yaml configuration:
// the file contents plus any environment-variable overrides already
// applied by config.LoadConfig.
func runConfig(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: parseltongue config [options]

Displays the active server configuration: the resolved
.parseltongue/server.yaml plus any PARSELTONGUE_* environment overrides.

Options:
`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	cfgPath := globals.Config
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			cfgPath = config.ConfigPath(wd)
		}
	}

	cfg, err := config.LoadConfig(globals.Config)
	if err != nil {
		fatalFromDomain(err, globals.JSON)
	}

	if abs, absErr := filepath.Abs(cfgPath); absErr == nil {
		cfgPath = abs
	}

	out := configOutput{
		ConfigPath:      cfgPath,
		Version:         cfg.Version,
		ListenAddr:      cfg.ListenAddr,
		DataDir:         cfg.DataDir,
		DebounceWindow:  cfg.DebounceWindow.String(),
		MaxHops:         cfg.MaxHops,
		IgnoreGlobs:     cfg.IgnoreGlobs,
		SubscriberLimit: cfg.SubscriberLimit,
	}

	if globals.JSON {
		_ = json.NewEncoder(os.Stdout).Encode(out)
		return
	}

	ui.Header("Parseltongue Configuration")
	fmt.Printf("%s %s\n", ui.Label("Config file:"), ui.DimText(out.ConfigPath))
	fmt.Printf("%s  %s\n", ui.Label("Version:"), out.Version)
	fmt.Println()
	ui.SubHeader("Server:")
	fmt.Printf("  Listen addr:      %s\n", out.ListenAddr)
	fmt.Printf("  Data dir:         %s\n", ui.DimText(out.DataDir))
	fmt.Printf("  Debounce window:  %s\n", out.DebounceWindow)
	fmt.Printf("  Max hops:         %d\n", out.MaxHops)
	fmt.Printf("  Subscriber limit: %d\n", out.SubscriberLimit)
	if len(out.IgnoreGlobs) > 0 {
		fmt.Println()
		ui.SubHeader("Ignore globs:")
		for _, g := range out.IgnoreGlobs {
			fmt.Printf("  - %s\n", ui.DimText(g))
		}
	}
}
