// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"path/filepath"
	"testing"
)

func TestSaveConfig_ThenLoadConfig_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)

	cfg := DefaultConfig()
	cfg.ListenAddr = "0.0.0.0:9000"
	cfg.MaxHops = 5

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.ListenAddr != "0.0.0.0:9000" || loaded.MaxHops != 5 {
		t.Errorf("expected round-tripped values, got %+v", loaded)
	}
}

func TestLoadConfig_MissingFileReturnsConfigError(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope", "server.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoadConfig_RejectsUnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)
	cfg := DefaultConfig()
	cfg.Version = "999"
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an error for an unsupported config version")
	}
}
