// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestCreateDefault verifies default config creation.
func TestCreateDefault(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, ".skerry", "skerry.yaml")

	if err := createDefault(configPath); err != nil {
		t.Fatalf("createDefault() failed: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	var cfg SkerryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("Backend.BaseURL = %q, want %q", cfg.Backend.BaseURL, "http://localhost:8000")
	}
	if cfg.Backend.RequestTimeoutSeconds != 30 {
		t.Errorf("Backend.RequestTimeoutSeconds = %d, want 30", cfg.Backend.RequestTimeoutSeconds)
	}
}

// TestLoadFrom_FirstRun verifies the config is created when missing.
func TestLoadFrom_FirstRun(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "skerry.yaml")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("first run did not create the config file")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

// TestLoadFrom_PartialFile verifies unset fields keep their defaults.
func TestLoadFrom_PartialFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "skerry.yaml")
	partial := "backend:\n  base_url: http://backend:9999\n"
	if err := os.WriteFile(configPath, []byte(partial), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.Backend.BaseURL != "http://backend:9999" {
		t.Errorf("Backend.BaseURL = %q, want override", cfg.Backend.BaseURL)
	}
	if cfg.Backend.RequestTimeoutSeconds != 30 {
		t.Errorf("Backend.RequestTimeoutSeconds = %d, want default 30", cfg.Backend.RequestTimeoutSeconds)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default", cfg.Logging.Level)
	}
}

// TestLoadFrom_EnvOverride verifies SKERRY_API_URL wins over the file.
func TestLoadFrom_EnvOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "skerry.yaml")
	t.Setenv(envAPIURL, "http://env-wins:7000")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.Backend.BaseURL != "http://env-wins:7000" {
		t.Errorf("Backend.BaseURL = %q, want env override", cfg.Backend.BaseURL)
	}
}
