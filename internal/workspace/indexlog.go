// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var indexLogMu sync.Mutex

// appendIndexLog appends one line to {workspace_dir}/index.log: an
// ISO8601 timestamp followed by a reindex lifecycle message (started,
// completed, failed:<code>). `status --workspace` surfaces the tail of
// this file via RecentActivity/readIndexLogTail.
func appendIndexLog(workspaceDir, message string) {
	if workspaceDir == "" {
		return
	}
	indexLogMu.Lock()
	defer indexLogMu.Unlock()

	if err := os.MkdirAll(workspaceDir, 0o750); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(workspaceDir, "index.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return
	}
	defer f.Close()

	line := fmt.Sprintf("%s %s\n", time.Now().UTC().Format(time.RFC3339), message)
	_, _ = f.WriteString(line)
}

// readIndexLogTail returns up to n of the most recent index.log lines for
// workspaceDir, oldest first. Missing or unreadable logs yield an empty
// slice rather than an error, since the log is purely diagnostic.
func readIndexLogTail(workspaceDir string, n int) []string {
	data, err := os.ReadFile(filepath.Join(workspaceDir, "index.log"))
	if err != nil {
		return nil
	}
	lines := splitNonEmptyLines(string(data))
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func splitNonEmptyLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
