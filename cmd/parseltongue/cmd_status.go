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

	"github.com/kraklabs/parseltongue/internal/ui"
)

// runStatus shows server-wide configuration and workspace counts. Passing
// --workspace surfaces that workspace's recent reindex activity (its
// index.log tail) instead of the server summary, the way the teacher's
// status command surfaces its own project's recent indexing runs.
func runStatus(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	workspaceID := fs.String("workspace", "", "Show recent reindex activity for this workspace instead of the server summary")
	activityLines := fs.Int("lines", 10, "Number of recent activity lines to show with --workspace")
	_ = fs.Parse(args)

	ctx := context.Background()
	a, err := openApp(ctx, globals)
	if err != nil {
		fatalFromDomain(err, globals.JSON)
	}

	if *workspaceID != "" {
		printWorkspaceActivity(a, *workspaceID, *activityLines, globals)
		return
	}

	list := a.registry.List()
	watching := 0
	for _, ws := range list {
		if ws.WatchEnabled {
			watching++
		}
	}

	if globals.JSON {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]any{
			"listen_addr":      a.cfg.ListenAddr,
			"data_dir":         a.cfg.DataDir,
			"debounce_window":  a.cfg.DebounceWindow.String(),
			"max_hops":         a.cfg.MaxHops,
			"workspace_count":  len(list),
			"watching_count":   watching,
			"subscriber_limit": a.cfg.SubscriberLimit,
		})
		return
	}

	ui.Header("Parseltongue Status")
	fmt.Printf("%s %s\n", ui.Label("Listen addr:"), a.cfg.ListenAddr)
	fmt.Printf("%s %s\n", ui.Label("Data dir:"), ui.DimText(a.cfg.DataDir))
	fmt.Printf("%s %s\n", ui.Label("Debounce:"), a.cfg.DebounceWindow)
	fmt.Printf("%s %d\n", ui.Label("Max hops:"), a.cfg.MaxHops)
	ui.SubHeader("Workspaces:")
	fmt.Printf("  Total:    %s\n", ui.CountText(len(list)))
	fmt.Printf("  Watching: %s\n", ui.CountText(watching))
}

func printWorkspaceActivity(a *app, workspaceID string, n int, globals GlobalFlags) {
	if _, ok := a.registry.Get(workspaceID); !ok {
		fmt.Fprintf(os.Stderr, "no such workspace: %s\n", workspaceID)
		os.Exit(1)
	}
	activity := a.registry.RecentActivity(workspaceID, n)

	if globals.JSON {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]any{
			"workspace_id": workspaceID,
			"activity":     activity,
		})
		return
	}

	ui.Header("Recent Activity")
	fmt.Printf("%s %s\n", ui.Label("Workspace:"), workspaceID)
	if len(activity) == 0 {
		ui.Info("No reindex activity recorded yet.")
		return
	}
	for _, line := range activity {
		fmt.Printf("  %s\n", line)
	}
}
