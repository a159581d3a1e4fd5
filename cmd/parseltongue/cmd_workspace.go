// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/parseltongue/internal/codegraph"
	parserrors "github.com/kraklabs/parseltongue/internal/errors"
	"github.com/kraklabs/parseltongue/internal/ui"
)

func fatalFromDomain(err error, asJSON bool) {
	if ue, ok := err.(*parserrors.UserError); ok {
		parserrors.FatalError(ue, asJSON)
		return
	}
	code, _ := parserrors.CodeOf(err)
	parserrors.FatalError(parserrors.NewInternalError(
		string(code), err.Error(), "Re-run with -vv for more detail", err,
	), asJSON)
}

func runCreate(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "Display name (default: source directory's base name)")
	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: parseltongue create <source_dir> [--name NAME]")
		os.Exit(1)
	}
	sourceDir := rest[0]

	ctx := context.Background()
	a, err := openApp(ctx, globals)
	if err != nil {
		fatalFromDomain(err, globals.JSON)
	}

	ws, err := a.registry.Create(ctx, sourceDir, *name)
	if err != nil {
		fatalFromDomain(err, globals.JSON)
	}

	printWorkspace(ws, globals)
}

func runList(args []string, globals GlobalFlags) {
	ctx := context.Background()
	a, err := openApp(ctx, globals)
	if err != nil {
		fatalFromDomain(err, globals.JSON)
	}

	list := a.registry.List()
	if globals.JSON {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]any{"workspaces": list, "count": len(list)})
		return
	}

	ui.Header("Workspaces")
	if len(list) == 0 {
		ui.Info("No workspaces registered. Run 'parseltongue create <source_dir>'.")
		return
	}
	for _, ws := range list {
		watching := "off"
		if ws.WatchEnabled {
			watching = "on"
		}
		fmt.Printf("  %s  %-24s  %s  watch=%s\n", ws.WorkspaceID, ws.DisplayName, ui.DimText(ws.SourceDir), watching)
	}
	fmt.Printf("%s\n", ui.CountText(len(list)))
}

func runWatch(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	on := fs.Bool("on", false, "Enable the watcher")
	off := fs.Bool("off", false, "Disable the watcher")
	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 1 || (*on && *off) || (!*on && !*off) {
		fmt.Fprintln(os.Stderr, "Usage: parseltongue watch <workspace_id> (--on | --off)")
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := openApp(ctx, globals)
	if err != nil {
		fatalFromDomain(err, globals.JSON)
	}

	ws, err := a.registry.ToggleWatch(ctx, rest[0], *on)
	if err != nil {
		fatalFromDomain(err, globals.JSON)
	}
	printWorkspace(ws, globals)
}

func runDiff(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	maxHops := fs.Int("max-hops", 2, "Blast-radius hop bound")
	reconcile := fs.Bool("reconcile", false, "Catch up on changes made while the watcher was off before diffing (git-based if the source dir is a git repo, content-hash-based otherwise)")
	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: parseltongue diff <workspace_id> [--max-hops N] [--reconcile]")
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := openApp(ctx, globals)
	if err != nil {
		fatalFromDomain(err, globals.JSON)
	}

	var result codegraph.DiffResult
	if *reconcile {
		result, err = a.registry.Reconcile(ctx, rest[0])
	} else {
		result, err = a.registry.ComputeDiff(ctx, rest[0], *maxHops)
	}
	if err != nil {
		fatalFromDomain(err, globals.JSON)
	}

	if globals.JSON {
		_ = json.NewEncoder(os.Stdout).Encode(result)
		return
	}

	ui.Header("Diff")
	fmt.Printf("  Entities: %s added, %s removed, %s modified\n",
		ui.CountText(result.Summary.EntitiesAdded), ui.CountText(result.Summary.EntitiesRemoved), ui.CountText(result.Summary.EntitiesModified))
	fmt.Printf("  Edges:    %s added, %s removed\n",
		ui.CountText(result.Summary.EdgesAdded), ui.CountText(result.Summary.EdgesRemoved))
	fmt.Printf("  Blast radius: %s affected entities\n", ui.CountText(result.BlastRadius.TotalAffected))
}

func runPin(args []string, globals GlobalFlags) {
	rest := args
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: parseltongue pin <workspace_id>")
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := openApp(ctx, globals)
	if err != nil {
		fatalFromDomain(err, globals.JSON)
	}
	if err := a.registry.PinLiveAsBase(ctx, rest[0]); err != nil {
		fatalFromDomain(err, globals.JSON)
	}

	if globals.JSON {
		fmt.Printf(`{"workspace_id":%q,"pinned":true}`+"\n", rest[0])
		return
	}
	ui.Successf("Pinned live graph as the new base for %s", rest[0])
}

func runDelete(args []string, globals GlobalFlags) {
	rest := args
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: parseltongue delete <workspace_id>")
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := openApp(ctx, globals)
	if err != nil {
		fatalFromDomain(err, globals.JSON)
	}
	if err := a.registry.Delete(ctx, rest[0]); err != nil {
		fatalFromDomain(err, globals.JSON)
	}

	if globals.JSON {
		fmt.Printf(`{"workspace_id":%q,"deleted":true}`+"\n", rest[0])
		return
	}
	ui.Successf("Deleted workspace %s", rest[0])
}

func printWorkspace(ws codegraph.Workspace, globals GlobalFlags) {
	if globals.JSON {
		_ = json.NewEncoder(os.Stdout).Encode(ws)
		return
	}
	ui.Header("Workspace")
	fmt.Printf("%s %s\n", ui.Label("ID:"), ws.WorkspaceID)
	fmt.Printf("%s %s\n", ui.Label("Name:"), ws.DisplayName)
	fmt.Printf("%s %s\n", ui.Label("Source:"), ui.DimText(ws.SourceDir))
	fmt.Printf("%s %v\n", ui.Label("Watching:"), ws.WatchEnabled)
}
