// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

// SkerryConfig is the on-disk configuration at ~/.skerry/skerry.yaml.
type SkerryConfig struct {
	// Backend: where the answer service lives
	Backend BackendConfig `yaml:"backend"`

	// Logging: level and destination for structured logs
	Logging LoggingConfig `yaml:"logging"`
}

type BackendConfig struct {
	BaseURL string `yaml:"base_url"` // e.g. http://localhost:8000

	// RequestTimeoutSeconds bounds session-management calls, not streams.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

type LoggingConfig struct {
	// Level can be "debug", "info", "warn", "error".
	Level string `yaml:"level"`
	// Dir is where log files go; empty means stderr only.
	Dir string `yaml:"dir,omitempty"`
}

func DefaultConfig() SkerryConfig {
	return SkerryConfig{
		Backend: BackendConfig{
			BaseURL:               "http://localhost:8000",
			RequestTimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
