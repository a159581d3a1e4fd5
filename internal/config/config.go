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

// Package config loads and saves the server's top-level YAML configuration
// file — listen address, debounce window, and default ignore globs — the
// one piece of process state that outlives any single workspace.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	parserrors "github.com/kraklabs/parseltongue/internal/errors"
	"github.com/kraklabs/parseltongue/internal/watcher"
)

const (
	defaultConfigDir  = ".parseltongue"
	defaultConfigFile = "server.yaml"
	configVersion     = "1"
)

// Config is the .parseltongue/server.yaml configuration file.
type Config struct {
	Version         string        `yaml:"version"`
	ListenAddr      string        `yaml:"listen_addr"`
	DataDir         string        `yaml:"data_dir"`
	DebounceWindow  time.Duration `yaml:"debounce_window"`
	MaxHops         int           `yaml:"max_hops"`
	IgnoreGlobs     []string      `yaml:"ignore_globs,omitempty"`
	SubscriberLimit int           `yaml:"subscriber_limit_per_workspace"`
}

// DefaultConfig returns a config with sensible defaults for local
// development: an in-memory-friendly data directory, the standard 500ms
// debounce window, and a 2-hop blast radius.
func DefaultConfig() *Config {
	return &Config{
		Version:         configVersion,
		ListenAddr:      getEnv("PARSELTONGUE_LISTEN_ADDR", "127.0.0.1:7417"),
		DataDir:         getEnv("PARSELTONGUE_DATA_DIR", ".parseltongue/data"),
		DebounceWindow:  watcher.DefaultDebounceWindow,
		MaxHops:         2,
		SubscriberLimit: 100,
	}
}

// LoadConfig loads configuration from configPath, or discovers
// .parseltongue/server.yaml by walking up from the current directory if
// configPath is empty.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv("PARSELTONGUE_CONFIG_PATH")
	}
	if configPath == "" {
		var err error
		configPath, err = findConfigFile()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, parserrors.NewConfigError(
			"Cannot read configuration file",
			fmt.Sprintf("Failed to read %s", configPath),
			"Check file permissions and ensure the file exists",
			err,
		)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, parserrors.NewConfigError(
			"Invalid configuration format",
			"YAML parsing failed - the config file contains syntax errors",
			fmt.Sprintf("Edit %s to fix the syntax error, or delete it to regenerate defaults", configPath),
			err,
		)
	}

	if cfg.Version != configVersion {
		return nil, parserrors.NewConfigError(
			"Unsupported configuration version",
			fmt.Sprintf("Config version %q is not supported (expected %q)", cfg.Version, configVersion),
			"Regenerate the configuration file for this version of parseltongue",
			nil,
		)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// SaveConfig writes cfg to configPath as YAML, creating the parent
// directory if needed.
func SaveConfig(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return parserrors.NewInternalError(
			"Cannot encode configuration",
			"YAML marshaling failed unexpectedly",
			"This is a bug; please report it with your configuration",
			err,
		)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return parserrors.NewPermissionError(
			"Cannot create configuration directory",
			fmt.Sprintf("Permission denied creating %s", dir),
			"Check directory permissions and try again",
			err,
		)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return parserrors.NewPermissionError(
			"Cannot write configuration file",
			fmt.Sprintf("Permission denied writing to %s", configPath),
			"Check file permissions and available disk space",
			err,
		)
	}
	return nil
}

// ConfigPath returns <dir>/.parseltongue/server.yaml.
func ConfigPath(dir string) string {
	return filepath.Join(dir, defaultConfigDir, defaultConfigFile)
}

func findConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", parserrors.NewInternalError(
			"Cannot access working directory",
			"Failed to determine the current directory",
			"Check system permissions and try again",
			err,
		)
	}

	for {
		candidate := ConfigPath(dir)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", parserrors.NewConfigError(
		"Configuration not found",
		"No .parseltongue/server.yaml file found in the current directory or any parent",
		"Run 'parseltongue init' to create a new configuration",
		nil,
	)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PARSELTONGUE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("PARSELTONGUE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
