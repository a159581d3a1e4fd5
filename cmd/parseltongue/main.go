// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the parseltongue CLI: a live, queryable code
// dependency graph server plus the commands to create workspaces, toggle
// watching, and inspect diffs against them.
//
// Usage:
//
//	parseltongue init                     Create .parseltongue/server.yaml
//	parseltongue serve                    Start the HTTP/WebSocket server
//	parseltongue create <source_dir>      Register a new workspace
//	parseltongue list                     List registered workspaces
//	parseltongue watch <workspace_id>     Toggle the file watcher on/off
//	parseltongue diff <workspace_id>      Show the base/live diff
//	parseltongue pin <workspace_id>       Pin live as the new base
//	parseltongue status                   Show server configuration
//	parseltongue config                   Show the resolved server.yaml
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/parseltongue/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds the flags that apply to every subcommand.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
	Config  string
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .parseltongue/server.yaml (default: discovered by walking up from cwd)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output")
	)

	flag.SetInterspersed(false)
	flag.Usage = printUsage

	flag.Parse()

	if *showVersion {
		fmt.Printf("parseltongue version %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{JSON: *jsonOutput, NoColor: *noColor, Verbose: *verbose, Quiet: *quiet, Config: *configPath}
	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, globals)
	case "serve":
		os.Exit(runServe(cmdArgs, globals))
	case "create":
		runCreate(cmdArgs, globals)
	case "list":
		runList(cmdArgs, globals)
	case "watch":
		runWatch(cmdArgs, globals)
	case "diff":
		runDiff(cmdArgs, globals)
	case "pin":
		runPin(cmdArgs, globals)
	case "delete":
		runDelete(cmdArgs, globals)
	case "status":
		runStatus(cmdArgs, globals)
	case "config":
		runConfig(cmdArgs, globals)
	case "completion":
		runCompletion(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `parseltongue - live code dependency graph

Usage:
  parseltongue <command> [options]

Commands:
  init          Create .parseltongue/server.yaml configuration
  serve         Start the HTTP/WebSocket server
  create        Register a new workspace for a source directory
  list          List registered workspaces
  watch         Toggle a workspace's file watcher on/off
  diff          Show the base/live diff for a workspace
  pin           Pin a workspace's live graph as its new base
  delete        Remove a workspace and its on-disk state
  status        Show the active server configuration
  config        Show the resolved .parseltongue/server.yaml configuration
  completion    Generate a shell completion script (bash|zsh|fish)

Global Options:
  --json            Output in JSON format
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress non-essential output
  -c, --config      Path to .parseltongue/server.yaml
  -V, --version     Show version and exit

Examples:
  parseltongue init
  parseltongue create ./my-repo --name myrepo
  parseltongue watch ws_20260729_120000_Ab3dF1 --on
  parseltongue diff ws_20260729_120000_Ab3dF1
  parseltongue serve

For detailed command help: parseltongue <command> --help
`)
}
