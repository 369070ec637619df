// Package store implements the canonical per-conversation message record.
//
// A Store holds exactly one record per message and derives two views from it
// on demand: the display projection for UIs and the processed sequence for
// model invocation. Views are computed on every read rather than cached, so
// an edit can never leave the two out of sync.
//
// A Store is not safe for concurrent use; the orchestrator serializes all
// access to it.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/raphaelgruber/converse-go/internal/models"
)

// Resolver turns attached context references into the text block merged into
// a user message's processed text. Implementations re-read their sources on
// every call; see internal/resolver.
type Resolver interface {
	Resolve(ctx context.Context, c models.Context) string
}

// legalTransitions enumerates the allowed status transitions.
var legalTransitions = map[models.Status][]models.Status{
	models.StatusPending:   {models.StatusStreaming, models.StatusError},
	models.StatusStreaming: {models.StatusComplete, models.StatusError},
}

// Store is the ordered canonical record of one conversation's messages.
type Store struct {
	messages []*models.Message
	index    map[uuid.UUID]*models.Message
	nextSeq  int
	resolver Resolver
}

// New creates an empty store that recomputes processed text through resolver.
func New(resolver Resolver) *Store {
	return &Store{
		index:    make(map[uuid.UUID]*models.Message),
		resolver: resolver,
	}
}

// Len returns the number of messages currently held.
func (s *Store) Len() int {
	return len(s.messages)
}

// Append adds a message at the next sequence position and derives its
// processed text. Fails if the message ID already exists in this store.
func (s *Store) Append(ctx context.Context, m *models.Message) error {
	if _, exists := s.index[m.ID]; exists {
		return fmt.Errorf("%w: duplicate message id %s", ErrInvalidState, m.ID)
	}
	m.Sequence = s.nextSeq
	s.nextSeq++
	s.recompute(ctx, m)
	s.messages = append(s.messages, m)
	s.index[m.ID] = m
	return nil
}

// Get returns the message with the given ID. The returned pointer is the
// store's canonical record; only the orchestrator may hold it.
func (s *Store) Get(id uuid.UUID) (*models.Message, error) {
	m, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m, nil
}

// UpdateText replaces the display text of a complete message and recomputes
// its processed text from the existing context.
func (s *Store) UpdateText(ctx context.Context, id uuid.UUID, displayText string) error {
	m, err := s.mutable(id)
	if err != nil {
		return err
	}
	m.DisplayText = displayText
	s.recompute(ctx, m)
	return nil
}

// UpdateContext replaces the attached context of a complete message and
// recomputes its processed text.
func (s *Store) UpdateContext(ctx context.Context, id uuid.UUID, c models.Context) error {
	m, err := s.mutable(id)
	if err != nil {
		return err
	}
	m.Context = c.Clone()
	s.recompute(ctx, m)
	return nil
}

// AppendStreamDelta appends a fragment to the display text of a streaming
// message. Assistant output is raw model text, so the processed text grows
// with it.
func (s *Store) AppendStreamDelta(id uuid.UUID, fragment string) error {
	m, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if m.Status != models.StatusStreaming {
		return fmt.Errorf("%w: stream delta for %s message %s", ErrInvalidState, m.Status, id)
	}
	m.DisplayText += fragment
	if m.Role == models.RoleAssistant {
		m.ProcessedText += fragment
	}
	return nil
}

// Fail moves an in-flight (pending or streaming) message to error status,
// replacing its text with the user-visible failure description. The message
// stays in the conversation, editable and deletable like any other.
func (s *Store) Fail(id uuid.UUID, description string) error {
	m, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if m.Status != models.StatusPending && m.Status != models.StatusStreaming {
		return fmt.Errorf("%w: cannot fail %s message %s", ErrInvalidState, m.Status, id)
	}
	m.DisplayText = description
	m.ProcessedText = description
	m.Status = models.StatusError
	return nil
}

// SetStatus transitions a message's status. Only pending->streaming,
// streaming->complete, streaming->error and pending->error are legal.
func (s *Store) SetStatus(id uuid.UUID, status models.Status) error {
	m, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, next := range legalTransitions[m.Status] {
		if next == status {
			m.Status = status
			return nil
		}
	}
	return fmt.Errorf("%w: transition %s -> %s", ErrInvalidState, m.Status, status)
}

// TruncateFrom removes every message with sequence >= seq in one step.
// Remaining sequence values are untouched. The freed trailing values are
// handed out again by later appends, so an edit-regenerate cycle numbers its
// replacement turn like the original; gaps left by Remove are never refilled.
func (s *Store) TruncateFrom(seq int) {
	if seq < 0 {
		seq = 0
	}
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.Sequence >= seq {
			delete(s.index, m.ID)
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
	if seq < s.nextSeq {
		s.nextSeq = seq
	}
}

// Remove deletes exactly one message. Later messages keep their original
// sequence values; gaps are permitted.
func (s *Store) Remove(id uuid.UUID) error {
	m, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.index, id)
	for i, held := range s.messages {
		if held == m {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	return nil
}

// DisplayMessages projects the conversation for rendering, in sequence order.
func (s *Store) DisplayMessages() []models.DisplayMessage {
	out := make([]models.DisplayMessage, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, models.DisplayMessage{
			ID:          m.ID,
			Role:        m.Role,
			DisplayText: m.DisplayText,
			Status:      m.Status,
			Context:     m.Context.Clone(),
			CreatedAt:   m.CreatedAt,
			Sequence:    m.Sequence,
		})
	}
	return out
}

// LLMMessages projects the exact ordered model input, excluding messages in
// error status.
func (s *Store) LLMMessages() []models.LLMMessage {
	out := make([]models.LLMMessage, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Status == models.StatusError {
			continue
		}
		out = append(out, models.LLMMessage{
			Role:          m.Role,
			ProcessedText: m.ProcessedText,
		})
	}
	return out
}

// SnapshotMessages projects the durable transcript shape for persistence.
func (s *Store) SnapshotMessages() []models.SnapshotMessage {
	out := make([]models.SnapshotMessage, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, models.SnapshotMessage{
			Role:        m.Role,
			DisplayText: m.DisplayText,
			Context:     m.Context.Clone(),
			CreatedAt:   m.CreatedAt,
		})
	}
	return out
}

// mutable fetches a message whose text or context may be replaced right now.
func (s *Store) mutable(id uuid.UUID) (*models.Message, error) {
	m, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if m.Status == models.StatusPending || m.Status == models.StatusStreaming {
		return nil, fmt.Errorf("%w: cannot edit %s message %s", ErrInvalidState, m.Status, id)
	}
	return m, nil
}

// recompute derives processed text from display text plus resolved context.
// This is the single place the derivation happens.
func (s *Store) recompute(ctx context.Context, m *models.Message) {
	if m.Role != models.RoleUser || m.Context.IsEmpty() || s.resolver == nil {
		m.ProcessedText = m.DisplayText
		return
	}
	block := s.resolver.Resolve(ctx, m.Context)
	if block == "" {
		m.ProcessedText = m.DisplayText
		return
	}
	m.ProcessedText = m.DisplayText + "\n\n" + block
}
