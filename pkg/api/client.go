// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package api implements the REST and streaming client for the answer
// backend. It is the production chat.Backend: session management over
// plain JSON endpoints, answer generation as a raw event-stream body
// that pkg/sse consumes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SkerryAI/SkerryChat/pkg/chat"
	"github.com/SkerryAI/SkerryChat/pkg/sse"
)

const defaultRequestTimeout = 30 * time.Second

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client. BaseURL is required, for example
// "http://localhost:8000".
type Config struct {
	BaseURL string

	// RequestTimeout bounds each session-management call. It does not
	// apply to streams, which run until done or cancelled.
	RequestTimeout time.Duration

	Logger *slog.Logger
}

// Client talks to the answer backend. It implements chat.Backend.
type Client struct {
	client  HTTPClient
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

var _ chat.Backend = (*Client)(nil)

// NewClient creates a Client backed by a real http.Client.
//
// The underlying client carries no global timeout so that stream bodies
// can outlive defaultRequestTimeout; cancellation is the caller's
// context.
func NewClient(cfg Config) *Client {
	return NewClientWithClient(&http.Client{}, cfg)
}

// NewClientWithClient creates a Client around the given HTTPClient.
// Tests use this to script responses without a network.
func NewClientWithClient(client HTTPClient, cfg Config) *Client {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

// =============================================================================
// Wire types
// =============================================================================

type createSessionRequest struct {
	Title *string `json:"title,omitempty"`
}

type sessionRecord struct {
	ID        string  `json:"id"`
	Title     *string `json:"title"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type sessionListResponse struct {
	Sessions []sessionRecord `json:"sessions"`
	Total    int             `json:"total"`
}

type messageRecord struct {
	ID        string           `json:"id"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Sources   []sse.SourceInfo `json:"sources"`
	Model     string           `json:"model"`
	Provider  string           `json:"provider"`
	CreatedAt string           `json:"created_at"`
}

type sessionDetailResponse struct {
	Session  sessionRecord   `json:"session"`
	Messages []messageRecord `json:"messages"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamRequest struct {
	Messages  []wireMessage `json:"messages"`
	SessionID string        `json:"session_id,omitempty"`
}

func (r sessionRecord) toSummary() chat.SessionSummary {
	return chat.SessionSummary{
		ID:        r.ID,
		Title:     r.Title,
		CreatedAt: parseBackendTime(r.CreatedAt),
		UpdatedAt: parseBackendTime(r.UpdatedAt),
	}
}

func (r messageRecord) toMessage() chat.ChatMessage {
	return chat.ChatMessage{
		ID:        r.ID,
		Role:      chat.Role(r.Role),
		Content:   r.Content,
		Sources:   r.Sources,
		Model:     r.Model,
		Provider:  r.Provider,
		Timestamp: parseBackendTime(r.CreatedAt),
	}
}

// parseBackendTime parses the backend's timestamps. They are Python
// isoformat strings, which may or may not carry a timezone offset, so
// RFC 3339 alone does not cover them. Unparseable values come back as
// the zero time rather than failing the request.
func parseBackendTime(value string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
	} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// =============================================================================
// Session management
// =============================================================================

// CreateSession creates a new chat session. A nil title sends an empty
// JSON object and lets the backend assign the title later.
func (c *Client) CreateSession(ctx context.Context, title *string) (chat.SessionSummary, error) {
	body, err := json.Marshal(createSessionRequest{Title: title})
	if err != nil {
		return chat.SessionSummary{}, fmt.Errorf("encoding session request: %w", err)
	}

	var record sessionRecord
	if err := c.doJSON(ctx, http.MethodPost, "/api/rag/sessions", body, &record); err != nil {
		return chat.SessionSummary{}, err
	}
	return record.toSummary(), nil
}

// ListSessions returns all sessions in backend order.
func (c *Client) ListSessions(ctx context.Context) ([]chat.SessionSummary, error) {
	var list sessionListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/rag/sessions", nil, &list); err != nil {
		return nil, err
	}

	sessions := make([]chat.SessionSummary, 0, len(list.Sessions))
	for _, record := range list.Sessions {
		sessions = append(sessions, record.toSummary())
	}
	return sessions, nil
}

// GetSession returns one session and its ordered message history.
func (c *Client) GetSession(ctx context.Context, id string) (chat.SessionSummary, []chat.ChatMessage, error) {
	var detail sessionDetailResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/rag/sessions/"+id, nil, &detail); err != nil {
		return chat.SessionSummary{}, nil, err
	}

	messages := make([]chat.ChatMessage, 0, len(detail.Messages))
	for _, record := range detail.Messages {
		messages = append(messages, record.toMessage())
	}
	return detail.Session.toSummary(), messages, nil
}

// DeleteSession removes a session and its messages.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/rag/sessions/"+id, nil, nil)
}

// doJSON runs one bounded session-management request and decodes the
// response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("closing response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			c.logger.Error("backend returned error (failed to read body)",
				"method", method,
				"path", path,
				"status_code", resp.StatusCode,
				"read_error", readErr,
			)
			return fmt.Errorf("server error (%d): failed to read response body", resp.StatusCode)
		}
		c.logger.Error("backend returned error",
			"method", method,
			"path", path,
			"status_code", resp.StatusCode,
			"response_body", string(bodyBytes),
		)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// =============================================================================
// Streaming
// =============================================================================

// OpenStream starts a generation request and returns the raw event
// stream. The request carries the full message history, role and content
// only; sources and labels stay client-side. The caller owns the body
// and must close it. No timeout applies beyond ctx.
func (c *Client) OpenStream(ctx context.Context, history []chat.ChatMessage, sessionID string) (io.ReadCloser, error) {
	messages := make([]wireMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, wireMessage{Role: string(msg.Role), Content: msg.Content})
	}
	body, err := json.Marshal(streamRequest{Messages: messages, SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("encoding stream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/rag/chat/stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST /api/rag/chat/stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("closing response body", "error", closeErr)
		}
		if readErr != nil {
			return nil, fmt.Errorf("server error (%d): failed to read response body", resp.StatusCode)
		}
		c.logger.Error("stream request rejected",
			"status_code", resp.StatusCode,
			"response_body", string(bodyBytes),
		)
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	return resp.Body, nil
}
