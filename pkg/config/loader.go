// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the client configuration from
// ~/.skerry/skerry.yaml, creating it with defaults on first run. The
// SKERRY_API_URL environment variable overrides the configured backend
// URL.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const envAPIURL = "SKERRY_API_URL"

// Load reads the config file, creating it with defaults if it does not
// exist yet, and applies environment overrides.
func Load() (SkerryConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return SkerryConfig{}, fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return LoadFrom(filepath.Join(home, ".skerry", "skerry.yaml"))
}

// LoadFrom is Load against an explicit path. Tests use this.
func LoadFrom(configPath string) (SkerryConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf(" First run detected, creating the config at %s\n", configPath)
		if err := createDefault(configPath); err != nil {
			return SkerryConfig{}, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return SkerryConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SkerryConfig{}, fmt.Errorf("failed to parse the config file: %w", err)
	}

	if url := os.Getenv(envAPIURL); url != "" {
		cfg.Backend.BaseURL = url
	}
	return cfg, nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
