// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SkerryAI/SkerryChat/pkg/sse"
)

// =============================================================================
// Collaborator contract
// =============================================================================

// Backend is the set of remote collaborators the store drives: session
// persistence over REST and answer generation over the event stream.
// pkg/api provides the production implementation; tests inject fakes.
type Backend interface {
	// CreateSession creates a persisted conversation thread. A nil title
	// lets the backend assign one later.
	CreateSession(ctx context.Context, title *string) (SessionSummary, error)

	// ListSessions returns all threads, in backend order.
	ListSessions(ctx context.Context) ([]SessionSummary, error)

	// GetSession returns one thread and its ordered message history.
	GetSession(ctx context.Context, id string) (SessionSummary, []ChatMessage, error)

	// DeleteSession removes a thread and its messages.
	DeleteSession(ctx context.Context, id string) error

	// OpenStream starts a generation request carrying the full message
	// history and returns the raw event stream. The caller owns the body.
	OpenStream(ctx context.Context, history []ChatMessage, sessionID string) (io.ReadCloser, error)
}

// =============================================================================
// Store
// =============================================================================

// StoreConfig configures a Store. Backend is required.
type StoreConfig struct {
	Backend Backend
	Logger  *slog.Logger
}

// Store owns the conversation state: message history, the in-progress
// partial answer, connection state, session list, and error state.
//
// The store is the sole mutator of its fields. Consumers read through
// GetSnapshot, which returns a cached copy that stays referentially stable
// until the next mutation, and learn about mutations through Subscribe.
//
// At most one generation is in flight per store. The active turn holds the
// single live cancellation handle; starting a new turn (or any operation
// that replaces the conversation) revokes it first, and events from a
// revoked turn are discarded rather than applied.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu              sync.Mutex
	messages        []ChatMessage
	partial         strings.Builder
	sources         []sse.SourceInfo
	errState        *ChatError
	model           string
	provider        string
	sessions        []SessionSummary
	sessionID       string
	streaming       bool
	loadingSessions bool
	conn            ConnectionState

	snapshot *Snapshot

	// cancel revokes the active turn; gen identifies it. Every revocation
	// bumps gen, so callbacks belonging to an old turn compare unequal and
	// drop their mutation.
	cancel context.CancelFunc
	gen    uint64

	subscribers map[int]func()
	nextSub     int
}

// NewStore creates a Store around the given collaborators.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend:     cfg.Backend,
		logger:      logger,
		subscribers: make(map[int]func()),
	}
}

// GetSnapshot returns the current state view. The same pointer is returned
// until a mutating operation runs; consumers may compare pointers to
// detect change.
func (s *Store) GetSnapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		s.snapshot = s.buildSnapshot()
	}
	return s.snapshot
}

// Subscribe registers fn to run after every mutation. Notifications are
// delivered synchronously on the mutating goroutine, outside the store's
// lock, so fn may call GetSnapshot. The returned function unsubscribes.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// =============================================================================
// Mutation plumbing
// =============================================================================

// invalidateLocked drops the cached snapshot and collects the subscriber
// list for notification outside the lock. Callers must hold s.mu.
func (s *Store) invalidateLocked() []func() {
	s.snapshot = nil
	if len(s.subscribers) == 0 {
		return nil
	}
	subs := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

// mutate runs fn under the lock, invalidates the snapshot, and notifies
// subscribers.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	subs := s.invalidateLocked()
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// applyTurn runs fn under the lock only while gen is still the live turn.
// fn reports whether it changed state; invalidation and notification
// happen only on change. Stale turns fall through silently; this is the
// token check that keeps a cancelled turn's late events from mutating
// state.
func (s *Store) applyTurn(gen uint64, fn func() bool) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	var subs []func()
	if fn() {
		subs = s.invalidateLocked()
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// revokeTurnLocked invalidates the live cancellation handle and bumps the
// turn generation. Idempotent. Callers must hold s.mu.
func (s *Store) revokeTurnLocked() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// =============================================================================
// Sending a message
// =============================================================================

// SendMessage submits user text and streams the assistant's answer into
// the observable state, blocking until the turn resolves (done, error, or
// cancellation).
//
// Any turn already streaming is cancelled first and its remaining events
// discarded, so calling SendMessage from another goroutine while a turn is
// live is the supported way to supersede it. When no session exists yet,
// one is requested from the backend first; that step is best-effort and a
// failure there does not block the turn.
//
// Failures never escape: transport errors surface as the snapshot's
// NETWORK_ERROR, backend stream errors pass through verbatim, and
// cancellation produces no error at all.
func (s *Store) SendMessage(ctx context.Context, text string) {
	s.mu.Lock()
	s.revokeTurnLocked()
	streamCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	gen := s.gen

	s.messages = append(s.messages, ChatMessage{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})
	s.errState = nil
	s.partial.Reset()
	s.sources = nil
	s.streaming = true
	s.conn = s.conn.Connecting()

	history := append([]ChatMessage(nil), s.messages...)
	sessionID := s.sessionID
	subs := s.invalidateLocked()
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}

	defer cancel()
	s.runTurn(streamCtx, gen, history, sessionID)
}

func (s *Store) runTurn(ctx context.Context, gen uint64, history []ChatMessage, sessionID string) {
	if sessionID == "" {
		summary, err := s.backend.CreateSession(ctx, nil)
		if err != nil {
			// Best-effort: the turn proceeds without persistence.
			s.logger.Warn("session create failed, continuing without a session", "error", err)
		} else {
			sessionID = summary.ID
			s.applyTurn(gen, func() bool {
				s.sessionID = summary.ID
				return true
			})
		}
	}

	body, err := s.backend.OpenStream(ctx, history, sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("stream request failed", "session_id", sessionID, "error", err)
		s.failTurn(gen, &ChatError{Code: ErrCodeNetwork, Message: err.Error()})
		return
	}
	defer func() {
		if err := body.Close(); err != nil {
			s.logger.Debug("closing stream body", "error", err)
		}
	}()

	s.applyTurn(gen, func() bool {
		s.conn = s.conn.Connected()
		return true
	})

	reader := sse.NewReader(sse.NewParser(), s.logger)
	err = reader.Read(ctx, body, func(event sse.Event) error {
		s.applyEvent(gen, event)
		return nil
	})

	switch {
	case err == nil:
		// Benign stream end. Without a terminal event, whatever partial
		// content arrived stays visible but is not promoted to a message.
		s.applyTurn(gen, func() bool {
			if !s.streaming {
				return false
			}
			s.streaming = false
			s.conn = s.conn.Disconnected()
			return true
		})
	case errors.Is(err, context.Canceled):
		// Cancellation is not an error.
	default:
		s.logger.Error("stream aborted", "session_id", sessionID, "error", err)
		s.failTurn(gen, &ChatError{Code: ErrCodeNetwork, Message: err.Error()})
	}
}

// failTurn records err and returns the turn to idle.
func (s *Store) failTurn(gen uint64, chatErr *ChatError) {
	s.applyTurn(gen, func() bool {
		s.errState = chatErr
		s.streaming = false
		s.conn = s.conn.Disconnected()
		return true
	})
}

// applyEvent folds one stream event into the conversation state.
func (s *Store) applyEvent(gen uint64, event sse.Event) {
	s.applyTurn(gen, func() bool {
		if event.ID != "" {
			s.conn = s.conn.WithLastEventID(event.ID)
		}

		switch event.Kind {
		case sse.EventMeta:
			s.model = event.Model
			s.provider = event.Provider

		case sse.EventSources:
			s.sources = append([]sse.SourceInfo(nil), event.Sources...)

		case sse.EventChunk:
			s.partial.WriteString(event.Text)

		case sse.EventDone:
			model, provider := event.Model, event.Provider
			if model == "" {
				model = s.model
			}
			if provider == "" {
				provider = s.provider
			}
			s.messages = append(s.messages, ChatMessage{
				ID:        uuid.NewString(),
				Role:      RoleAssistant,
				Content:   event.Response,
				Sources:   append([]sse.SourceInfo(nil), event.Sources...),
				Model:     model,
				Provider:  provider,
				Timestamp: time.Now(),
			})
			s.partial.Reset()
			s.sources = nil
			s.streaming = false
			s.conn = s.conn.Disconnected()

		case sse.EventError:
			s.errState = &ChatError{
				Code:      event.Code,
				Message:   event.Message,
				TraceID:   event.TraceID,
				Retryable: event.Retryable,
			}
			s.streaming = false
			s.conn = s.conn.Disconnected()

		default:
			return false
		}
		return true
	})
}

// =============================================================================
// Stream and state control
// =============================================================================

// CancelStream aborts the in-flight generation, if any. Idempotent and
// never records an error: an aborted turn simply returns to idle with
// whatever partial content it had.
func (s *Store) CancelStream() {
	s.mu.Lock()
	s.revokeTurnLocked()
	var subs []func()
	if s.streaming {
		s.streaming = false
		s.conn = s.conn.Disconnected()
		subs = s.invalidateLocked()
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// ClearError clears the error field and nothing else.
func (s *Store) ClearError() {
	s.mu.Lock()
	var subs []func()
	if s.errState != nil {
		s.errState = nil
		subs = s.invalidateLocked()
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// ClearMessages cancels any active stream and empties the conversation:
// history, partial answer, sources, error, and the current session id. No
// new session is created; that is deferred to the next SendMessage.
func (s *Store) ClearMessages() {
	s.mutate(func() {
		s.clearConversationLocked()
	})
}

// Reset is ClearMessages plus returning connection state and the
// model/provider labels to their initial values.
func (s *Store) Reset() {
	s.mutate(func() {
		s.clearConversationLocked()
		s.conn = ConnectionState{}
		s.model = ""
		s.provider = ""
	})
}

// StartNewSession synchronously clears everything that belongs to the
// displayed conversation (session id, history, partial answer, sources,
// error, and model/provider labels) without any network call.
func (s *Store) StartNewSession() {
	s.mutate(func() {
		s.clearConversationLocked()
		s.model = ""
		s.provider = ""
	})
}

// clearConversationLocked cancels the active turn and resets per-
// conversation state. Callers must hold s.mu.
func (s *Store) clearConversationLocked() {
	s.revokeTurnLocked()
	s.streaming = false
	s.conn = s.conn.Disconnected()
	s.messages = nil
	s.partial.Reset()
	s.sources = nil
	s.errState = nil
	s.sessionID = ""
}

// =============================================================================
// Session lifecycle
// =============================================================================

// LoadSessions fetches the session list. The loading flag is visible for
// the duration of the call; on success the list replaces the previous one
// in backend order, on failure a LOAD_SESSIONS_ERROR is recorded and the
// previous list kept.
func (s *Store) LoadSessions(ctx context.Context) {
	s.mutate(func() {
		s.loadingSessions = true
	})

	sessions, err := s.backend.ListSessions(ctx)

	s.mutate(func() {
		s.loadingSessions = false
		if err != nil {
			s.logger.Error("loading sessions failed", "error", err)
			s.errState = &ChatError{Code: ErrCodeLoadSessions, Message: err.Error()}
			return
		}
		s.sessions = sessions
		s.errState = nil
	})
}

// SelectSession cancels any active stream and restores a persisted
// conversation: the fetched history replaces the current one wholesale,
// the session becomes current, and the displayed model/provider labels
// are taken from the most recent message that recorded them. On failure a
// SELECT_SESSION_ERROR is recorded and prior state is left untouched
// beyond the loading flag.
func (s *Store) SelectSession(ctx context.Context, id string) {
	s.mutate(func() {
		s.revokeTurnLocked()
		s.streaming = false
		s.conn = s.conn.Disconnected()
		s.loadingSessions = true
	})

	_, messages, err := s.backend.GetSession(ctx, id)

	s.mutate(func() {
		s.loadingSessions = false
		if err != nil {
			s.logger.Error("selecting session failed", "session_id", id, "error", err)
			s.errState = &ChatError{Code: ErrCodeSelectSession, Message: err.Error()}
			return
		}
		s.messages = messages
		s.sessionID = id
		s.partial.Reset()
		s.sources = nil
		s.errState = nil
		s.model, s.provider = latestModelProvider(messages)
	})
}

// DeleteSession removes a persisted conversation. Deleting the current
// session also clears the displayed conversation, exactly like
// StartNewSession. Failures are recorded as DELETE_SESSION_ERROR.
func (s *Store) DeleteSession(ctx context.Context, id string) {
	s.mutate(func() {
		s.loadingSessions = true
	})

	err := s.backend.DeleteSession(ctx, id)

	s.mutate(func() {
		s.loadingSessions = false
		if err != nil {
			s.logger.Error("deleting session failed", "session_id", id, "error", err)
			s.errState = &ChatError{Code: ErrCodeDeleteSession, Message: err.Error()}
			return
		}
		kept := s.sessions[:0:0]
		for _, sess := range s.sessions {
			if sess.ID != id {
				kept = append(kept, sess)
			}
		}
		s.sessions = kept
		s.errState = nil
		if s.sessionID == id {
			s.clearConversationLocked()
			s.model = ""
			s.provider = ""
		}
	})
}

// latestModelProvider walks the history backwards for the most recent
// message that recorded generation labels.
func latestModelProvider(messages []ChatMessage) (string, string) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Model != "" || messages[i].Provider != "" {
			return messages[i].Model, messages[i].Provider
		}
	}
	return "", ""
}
