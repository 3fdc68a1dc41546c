// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"io"
	"testing"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// MockInputReader feeds scripted lines, then io.EOF.
type MockInputReader struct {
	lines []string
	pos   int
}

func (r *MockInputReader) ReadLine() (string, error) {
	if r.pos >= len(r.lines) {
		return "", io.EOF
	}
	line := r.lines[r.pos]
	r.pos++
	return line, nil
}

var _ InputReader = (*MockInputReader)(nil)

func TestAddToHistory(t *testing.T) {
	r := &InteractiveInputReader{maxHistory: 3}

	r.addToHistory("one")
	r.addToHistory("two")
	r.addToHistory("two") // consecutive duplicate dropped
	r.addToHistory("three")
	r.addToHistory("four")

	if len(r.history) != 3 {
		t.Fatalf("history length = %d, want 3", len(r.history))
	}
	want := []string{"two", "three", "four"}
	for i, entry := range want {
		if r.history[i] != entry {
			t.Errorf("history[%d] = %q, want %q", i, r.history[i], entry)
		}
	}
}

func keyMsg(keyType tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: keyType}
}

func TestInputModel_HistoryNavigation(t *testing.T) {
	ti := textinput.New()
	ti.Focus()
	m := inputModel{
		textInput:    ti,
		history:      []string{"first", "second"},
		historyIndex: -1,
	}
	m.textInput.SetValue("draft")

	up := func() {
		model, _ := m.Update(keyMsg(tea.KeyUp))
		m = model.(inputModel)
	}
	down := func() {
		model, _ := m.Update(keyMsg(tea.KeyDown))
		m = model.(inputModel)
	}

	up()
	if got := m.textInput.Value(); got != "second" {
		t.Fatalf("after up: value = %q, want %q", got, "second")
	}
	up()
	if got := m.textInput.Value(); got != "first" {
		t.Fatalf("after up up: value = %q, want %q", got, "first")
	}
	up() // already at oldest, stays
	if got := m.textInput.Value(); got != "first" {
		t.Fatalf("after third up: value = %q, want %q", got, "first")
	}

	down()
	if got := m.textInput.Value(); got != "second" {
		t.Fatalf("after down: value = %q, want %q", got, "second")
	}
	down() // past newest restores the stashed draft
	if got := m.textInput.Value(); got != "draft" {
		t.Fatalf("after down down: value = %q, want %q", got, "draft")
	}
	if m.historyIndex != -1 {
		t.Errorf("historyIndex = %d, want -1", m.historyIndex)
	}
}

func TestInputModel_CtrlDSignalsEOF(t *testing.T) {
	ti := textinput.New()
	m := inputModel{textInput: ti, historyIndex: -1}

	model, _ := m.Update(keyMsg(tea.KeyCtrlD))
	result := model.(inputModel)

	if !result.cancelled {
		t.Error("expected cancelled after Ctrl+D")
	}
	if result.textInput.Value() != "" {
		t.Errorf("value = %q, want empty", result.textInput.Value())
	}
}

func TestInputModel_CtrlCClearsInput(t *testing.T) {
	ti := textinput.New()
	ti.SetValue("half-typed question")
	m := inputModel{textInput: ti, historyIndex: -1}

	model, _ := m.Update(keyMsg(tea.KeyCtrlC))
	result := model.(inputModel)

	if result.cancelled {
		t.Error("Ctrl+C must not signal EOF")
	}
	if result.textInput.Value() != "" {
		t.Errorf("value = %q, want empty", result.textInput.Value())
	}
}
