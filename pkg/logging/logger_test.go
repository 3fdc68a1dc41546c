// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestParseLevel verifies config-file level names map correctly.
func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// TestNew_FileLogging verifies file creation, naming, and JSON format.
func TestNew_FileLogging(t *testing.T) {
	logDir := t.TempDir()

	logger, closeFn := New(Config{
		Level:   "info",
		LogDir:  logDir,
		Service: "test",
		Quiet:   true,
	})

	logger.Info("file entry", "key", "value")
	if err := closeFn(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	wantName := "test_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(logDir, wantName))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("file log is not JSON: %v", err)
	}
	if entry["msg"] != "file entry" {
		t.Errorf("msg = %v, want %q", entry["msg"], "file entry")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
	if entry["service"] != "test" {
		t.Errorf("service = %v, want %q", entry["service"], "test")
	}
}

// TestNew_LevelFiltering verifies entries below the level are dropped.
func TestNew_LevelFiltering(t *testing.T) {
	logDir := t.TempDir()

	logger, closeFn := New(Config{
		Level:   "warn",
		LogDir:  logDir,
		Service: "test",
		Quiet:   true,
	})
	logger.Debug("dropped debug")
	logger.Info("dropped info")
	logger.Warn("kept warn")
	if err := closeFn(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	files, err := os.ReadDir(logDir)
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one log file, got %d (err=%v)", len(files), err)
	}
	data, err := os.ReadFile(filepath.Join(logDir, files[0].Name()))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	content := string(data)
	if strings.Contains(content, "dropped") {
		t.Errorf("filtered entries leaked into file:\n%s", content)
	}
	if !strings.Contains(content, "kept warn") {
		t.Errorf("warn entry missing from file:\n%s", content)
	}
}

// TestNew_AlwaysReturnsCloser verifies the cleanup function is non-nil
// even without file logging.
func TestNew_AlwaysReturnsCloser(t *testing.T) {
	_, closeFn := New(Config{})
	if closeFn == nil {
		t.Fatal("closeFn is nil")
	}
	if err := closeFn(); err != nil {
		t.Errorf("closeFn() = %v, want nil", err)
	}
}

// TestMultiHandler verifies fan-out honors per-handler levels.
func TestMultiHandler(t *testing.T) {
	var textBuf, jsonBuf bytes.Buffer
	handler := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&textBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&jsonBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}}
	logger := slog.New(handler)

	logger.Info("info entry")
	logger.Warn("warn entry")

	if strings.Contains(textBuf.String(), "info entry") {
		t.Error("warn-level handler received an info entry")
	}
	if !strings.Contains(textBuf.String(), "warn entry") {
		t.Error("warn-level handler missed the warn entry")
	}
	if !strings.Contains(jsonBuf.String(), "info entry") {
		t.Error("debug-level handler missed the info entry")
	}

	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(debug) = false, want true while any handler accepts it")
	}
}

// TestExpandPath verifies ~ expansion.
func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory on this system")
	}

	if got := expandPath("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("expandPath(~/logs) = %q", got)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath(/var/log) = %q, want unchanged", got)
	}
	if got := expandPath("relative/path"); got != "relative/path" {
		t.Errorf("expandPath(relative/path) = %q, want unchanged", got)
	}
}
