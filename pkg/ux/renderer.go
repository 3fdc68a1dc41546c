// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the snapshot renderer that turns the store's
// observable state into terminal output.
//
// Single Responsibility:
//
//	The renderer ONLY renders. It does not parse, read, or manage HTTP.
//	It is a pull-based consumer: the chat loop passes it each new
//	snapshot and the renderer prints only what changed since the last
//	one (the partial answer delta, a completed message, an error).
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/SkerryAI/SkerryChat/pkg/chat"
	"github.com/SkerryAI/SkerryChat/pkg/sse"
)

// =============================================================================
// Snapshot Renderer
// =============================================================================

// SnapshotRenderer renders successive store snapshots to a terminal.
//
// Feed it snapshots in the order they are produced; it tracks how much
// of the in-progress answer has been printed and emits only deltas, so
// tokens appear as they stream. A spinner runs while the store is
// connecting and stops on the first visible output.
//
// Thread Safety:
//
//	All methods are protected by a mutex. Safe to call from the
//	store's notification goroutine.
type SnapshotRenderer struct {
	writer io.Writer
	mu     sync.Mutex

	spinner      *Spinner
	printedBytes int
	messageCount int
	lastErr      *chat.ChatError
}

// NewSnapshotRenderer creates a renderer writing to w. If w is nil,
// output goes to os.Stdout.
func NewSnapshotRenderer(w io.Writer) *SnapshotRenderer {
	if w == nil {
		w = os.Stdout
	}
	return &SnapshotRenderer{writer: w}
}

// Observe renders everything that changed between the previous snapshot
// and snap.
func (r *SnapshotRenderer) Observe(snap *chat.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.Error != nil && snap.Error != r.lastErr {
		r.stopSpinnerLocked()
		r.lastErr = snap.Error
		r.renderErrorLocked(snap.Error)
	}
	if snap.Error == nil {
		r.lastErr = nil
	}

	if snap.IsStreaming && snap.PartialAnswer == "" && r.printedBytes == 0 {
		r.ensureSpinnerLocked(statusMessage(snap.Connection.Status()))
	}

	if len(snap.PartialAnswer) > r.printedBytes {
		r.stopSpinnerLocked()
		fmt.Fprint(r.writer, snap.PartialAnswer[r.printedBytes:])
		r.printedBytes = len(snap.PartialAnswer)
	}

	if len(snap.Messages) > r.messageCount {
		for _, msg := range snap.Messages[r.messageCount:] {
			if msg.Role == chat.RoleAssistant {
				r.renderCompletedLocked(msg)
			}
		}
		r.messageCount = len(snap.Messages)
	} else if len(snap.Messages) < r.messageCount {
		// Conversation was cleared or replaced.
		r.messageCount = len(snap.Messages)
		r.printedBytes = 0
	}

	if !snap.IsStreaming {
		r.stopSpinnerLocked()
		if r.printedBytes > 0 && len(snap.PartialAnswer) == 0 {
			r.printedBytes = 0
		}
	}
}

// Finalize stops the spinner. Call when the chat loop exits.
func (r *SnapshotRenderer) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopSpinnerLocked()
}

// renderCompletedLocked finishes the streamed answer: any tail the
// chunks did not cover, a trailing newline, then sources and labels.
func (r *SnapshotRenderer) renderCompletedLocked(msg chat.ChatMessage) {
	r.stopSpinnerLocked()

	if len(msg.Content) > r.printedBytes {
		fmt.Fprint(r.writer, msg.Content[r.printedBytes:])
	}
	if !strings.HasSuffix(msg.Content, "\n") {
		fmt.Fprintln(r.writer)
	}
	r.printedBytes = 0

	if len(msg.Sources) > 0 {
		fmt.Fprintln(r.writer)
		fmt.Fprintln(r.writer, renderSources(msg.Sources))
	}
	if msg.Model != "" {
		label := msg.Model
		if msg.Provider != "" {
			label += " via " + msg.Provider
		}
		fmt.Fprintln(r.writer, Styles.Muted.Render(label))
	}
}

func (r *SnapshotRenderer) renderErrorLocked(chatErr *chat.ChatError) {
	line := fmt.Sprintf("%s: %s", chatErr.Code, chatErr.Message)
	if chatErr.TraceID != "" {
		line += Styles.Muted.Render(" (trace " + chatErr.TraceID + ")")
	}
	fmt.Fprintf(r.writer, "\n%s %s\n", IconError.Render(), Styles.Error.Render(line))
	if chatErr.Retryable {
		fmt.Fprintln(r.writer, Styles.Muted.Render("This error is retryable; try sending again."))
	}
}

func (r *SnapshotRenderer) ensureSpinnerLocked(message string) {
	if r.spinner == nil {
		r.spinner = NewSpinner(message).WithWriter(r.writer)
		r.spinner.Start()
		return
	}
	r.spinner.UpdateMessage(message)
}

func (r *SnapshotRenderer) stopSpinnerLocked() {
	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}
}

func statusMessage(status chat.ConnStatus) string {
	switch status {
	case chat.StatusConnecting:
		return "Contacting the backend..."
	case chat.StatusConnected:
		return "Generating..."
	default:
		return "Working..."
	}
}

// =============================================================================
// Static rendering helpers
// =============================================================================

// renderSources formats a citation list in an info box.
func renderSources(sources []sse.SourceInfo) string {
	var content strings.Builder
	for i, src := range sources {
		content.WriteString(fmt.Sprintf("%d. %s", i+1, FormatSource(src)))
		if i < len(sources)-1 {
			content.WriteString("\n")
		}
	}
	boxStyle := Styles.InfoBox.Width(60)
	titleLine := Styles.Subtitle.Render("Retrieved Sources")
	return boxStyle.Render(titleLine + "\n" + content.String())
}

// FormatSource renders one citation: filename, its location within the
// document when known, and the relevance score.
func FormatSource(src sse.SourceInfo) string {
	location := ""
	switch {
	case src.Page != nil:
		location = fmt.Sprintf(", p. %d", *src.Page)
	case src.Slide != nil:
		location = fmt.Sprintf(", slide %d", *src.Slide)
	case src.Sheet != nil:
		location = fmt.Sprintf(", sheet %s", *src.Sheet)
	}
	score := Styles.Muted.Render(fmt.Sprintf(" (%.2f)", src.Score))
	return src.Filename + location + score
}

// RenderSessionList writes the session table for `skerry sessions list`.
// The current session, if any, is marked.
func RenderSessionList(w io.Writer, sessions []chat.SessionSummary, currentID string) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, Styles.Muted.Render("No sessions yet."))
		return
	}
	for _, sess := range sessions {
		marker := "  "
		if sess.ID == currentID {
			marker = IconArrow.Render() + " "
		}
		title := Styles.Muted.Render("(untitled)")
		if sess.Title != nil {
			title = *sess.Title
		}
		updated := ""
		if !sess.UpdatedAt.IsZero() {
			updated = Styles.Muted.Render("  " + sess.UpdatedAt.Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(w, "%s%s  %s%s\n", marker, Styles.Bold.Render(sess.ID), title, updated)
	}
}

// RenderHistory writes a restored conversation for `skerry sessions show`.
func RenderHistory(w io.Writer, messages []chat.ChatMessage) {
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			fmt.Fprintf(w, "%s %s\n", Styles.Highlight.Render("you:"), msg.Content)
		case chat.RoleAssistant:
			fmt.Fprintf(w, "%s\n", msg.Content)
			if len(msg.Sources) > 0 {
				fmt.Fprintln(w, renderSources(msg.Sources))
			}
		}
		fmt.Fprintln(w)
	}
}
