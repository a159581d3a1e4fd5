// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"encoding/json"
	"os"
)

const fileHashesFileName = "file_hashes.json"

// saveFileHashes persists path -> content-hash known-state atomically
// (write-to-temp + rename), the same discipline as saveMetadata. It backs
// the hash-based reconciliation fallback when a workspace's source tree
// isn't a git repository.
func saveFileHashes(dir string, hashes map[string]string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	data, err := json.Marshal(hashes)
	if err != nil {
		return err
	}
	path := dir + "/" + fileHashesFileName
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// loadFileHashes reads back a previously saved hash map. A missing or
// corrupt file yields an empty map rather than an error, since this state
// is advisory: the worst case is that the next reconciliation treats
// everything as new.
func loadFileHashes(dir string) map[string]string {
	data, err := os.ReadFile(dir + "/" + fileHashesFileName)
	if err != nil {
		return map[string]string{}
	}
	var hashes map[string]string
	if err := json.Unmarshal(data, &hashes); err != nil {
		return map[string]string{}
	}
	if hashes == nil {
		hashes = map[string]string{}
	}
	return hashes
}
