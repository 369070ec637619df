// Package models defines the data structures for the Converse conversation engine.
package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Status describes the lifecycle state of a message.
// Legal transitions: pending -> streaming, streaming -> complete,
// streaming -> error, pending -> error. Complete and error are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Context holds the external references attached to a message. Notes, URLs,
// folders and tags carry set semantics; selections keep attachment order.
type Context struct {
	Notes      []string `json:"notes,omitempty"`
	URLs       []string `json:"urls,omitempty"`
	Folders    []string `json:"folders,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Selections []string `json:"selections,omitempty"`
}

// IsEmpty reports whether the context carries no references at all.
func (c Context) IsEmpty() bool {
	return len(c.Notes) == 0 && len(c.URLs) == 0 && len(c.Folders) == 0 &&
		len(c.Tags) == 0 && len(c.Selections) == 0
}

// Clone returns a deep copy so callers can hand out contexts without
// aliasing the store's canonical record.
func (c Context) Clone() Context {
	return Context{
		Notes:      slices.Clone(c.Notes),
		URLs:       slices.Clone(c.URLs),
		Folders:    slices.Clone(c.Folders),
		Tags:       slices.Clone(c.Tags),
		Selections: slices.Clone(c.Selections),
	}
}

// Message is the canonical record of a single conversation turn. DisplayText
// is what the user sees; ProcessedText is what crosses the model boundary.
// The two are never maintained independently: ProcessedText is derived from
// DisplayText plus the resolved Context.
type Message struct {
	ID            uuid.UUID `json:"id"`
	Role          Role      `json:"role"`
	DisplayText   string    `json:"display_text"`
	ProcessedText string    `json:"processed_text"`
	Context       Context   `json:"context"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`

	// Sequence is assigned by the store on append and never reused.
	Sequence int `json:"sequence"`
}

// MessageOption customizes a message at construction time.
type MessageOption func(*Message)

// WithID overrides the generated message ID.
func WithID(id uuid.UUID) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

// WithStatus sets the initial status.
func WithStatus(status Status) MessageOption {
	return func(m *Message) {
		m.Status = status
	}
}

// WithCreatedAt overrides the creation timestamp (used when rehydrating
// persisted transcripts).
func WithCreatedAt(t time.Time) MessageOption {
	return func(m *Message) {
		m.CreatedAt = t
	}
}

// WithContext attaches context references.
func WithContext(c Context) MessageOption {
	return func(m *Message) {
		m.Context = c.Clone()
	}
}

// WithProcessedText sets the model-facing text when it differs from the
// display text at creation time.
func WithProcessedText(text string) MessageOption {
	return func(m *Message) {
		m.ProcessedText = text
	}
}

// NewMessage creates a message with a fresh ID and defaults: status complete,
// processed text equal to display text.
func NewMessage(role Role, displayText string, options ...MessageOption) *Message {
	m := &Message{
		ID:            uuid.New(),
		Role:          role,
		DisplayText:   displayText,
		ProcessedText: displayText,
		Status:        StatusComplete,
		CreatedAt:     time.Now(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// DisplayMessage is the read-only projection handed to UI observers.
// It carries no model-facing content.
type DisplayMessage struct {
	ID          uuid.UUID `json:"id"`
	Role        Role      `json:"role"`
	DisplayText string    `json:"display_text"`
	Status      Status    `json:"status"`
	Context     Context   `json:"context"`
	CreatedAt   time.Time `json:"created_at"`
	Sequence    int       `json:"sequence"`
}

// LLMMessage is the exact per-message input contract for model invocation.
type LLMMessage struct {
	Role          Role   `json:"role"`
	ProcessedText string `json:"processed_text"`
}

// SnapshotMessage is the durable shape exchanged with the persistence
// collaborator: the display projection plus attached context. Rehydration
// replays these as complete-status messages in order; model-facing text is
// re-derived so stale resolutions never survive a restart.
type SnapshotMessage struct {
	Role        Role      `json:"role"`
	DisplayText string    `json:"display_text"`
	Context     Context   `json:"context"`
	CreatedAt   time.Time `json:"created_at"`
}
