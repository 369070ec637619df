package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/raphaelgruber/converse-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticResolver returns a fixed block for any non-empty context.
type staticResolver struct {
	block string
	calls int
}

func (r *staticResolver) Resolve(_ context.Context, _ models.Context) string {
	r.calls++
	return r.block
}

func appendUser(t *testing.T, s *Store, text string) *models.Message {
	t.Helper()
	m := models.NewMessage(models.RoleUser, text)
	require.NoError(t, s.Append(context.Background(), m))
	return m
}

func TestAppendAssignsContiguousSequences(t *testing.T) {
	s := New(nil)

	for i := 0; i < 5; i++ {
		appendUser(t, s, fmt.Sprintf("msg %d", i))
	}

	display := s.DisplayMessages()
	require.Len(t, display, 5)
	for i, d := range display {
		assert.Equal(t, i, d.Sequence)
		assert.Equal(t, fmt.Sprintf("msg %d", i), d.DisplayText)
	}
}

func TestAppendRejectsDuplicateID(t *testing.T) {
	s := New(nil)
	m := appendUser(t, s, "one")

	dup := models.NewMessage(models.RoleUser, "two", models.WithID(m.ID))
	err := s.Append(context.Background(), dup)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, s.Len())
}

func TestGetUnknownID(t *testing.T) {
	s := New(nil)
	_, err := s.Get(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProcessedTextDerivedFromContext(t *testing.T) {
	r := &staticResolver{block: "note: release checklist"}
	s := New(r)

	m := models.NewMessage(models.RoleUser, "what is left?",
		models.WithContext(models.Context{Notes: []string{"release-checklist"}}))
	require.NoError(t, s.Append(context.Background(), m))

	llm := s.LLMMessages()
	require.Len(t, llm, 1)
	assert.Equal(t, "what is left?\n\nnote: release checklist", llm[0].ProcessedText)

	display := s.DisplayMessages()
	assert.Equal(t, "what is left?", display[0].DisplayText, "display text stays as authored")
}

func TestUpdateTextRecomputesProcessedText(t *testing.T) {
	r := &staticResolver{block: "resolved block"}
	s := New(r)

	m := models.NewMessage(models.RoleUser, "original",
		models.WithContext(models.Context{Notes: []string{"n"}}))
	require.NoError(t, s.Append(context.Background(), m))
	callsAfterAppend := r.calls

	require.NoError(t, s.UpdateText(context.Background(), m.ID, "edited"))

	assert.Equal(t, "edited", m.DisplayText)
	assert.Equal(t, "edited\n\nresolved block", m.ProcessedText)
	assert.Equal(t, callsAfterAppend+1, r.calls, "edit re-reads the resolver")
}

func TestUpdateTextRejectedWhileStreaming(t *testing.T) {
	s := New(nil)
	m := models.NewMessage(models.RoleAssistant, "", models.WithStatus(models.StatusPending))
	require.NoError(t, s.Append(context.Background(), m))
	require.NoError(t, s.SetStatus(m.ID, models.StatusStreaming))

	err := s.UpdateText(context.Background(), m.ID, "nope")
	assert.ErrorIs(t, err, ErrInvalidState)

	err = s.UpdateContext(context.Background(), m.ID, models.Context{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAppendStreamDelta(t *testing.T) {
	s := New(nil)
	m := models.NewMessage(models.RoleAssistant, "", models.WithStatus(models.StatusPending))
	require.NoError(t, s.Append(context.Background(), m))
	require.NoError(t, s.SetStatus(m.ID, models.StatusStreaming))

	require.NoError(t, s.AppendStreamDelta(m.ID, "Hel"))
	require.NoError(t, s.AppendStreamDelta(m.ID, "lo"))

	assert.Equal(t, "Hello", m.DisplayText)
	assert.Equal(t, "Hello", m.ProcessedText)

	require.NoError(t, s.SetStatus(m.ID, models.StatusComplete))
	err := s.AppendStreamDelta(m.ID, "!")
	assert.ErrorIs(t, err, ErrInvalidState, "deltas only land on streaming messages")
}

func TestSetStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from models.Status
		to   models.Status
		ok   bool
	}{
		{"pending to streaming", models.StatusPending, models.StatusStreaming, true},
		{"pending to error", models.StatusPending, models.StatusError, true},
		{"streaming to complete", models.StatusStreaming, models.StatusComplete, true},
		{"streaming to error", models.StatusStreaming, models.StatusError, true},
		{"pending to complete", models.StatusPending, models.StatusComplete, false},
		{"complete to streaming", models.StatusComplete, models.StatusStreaming, false},
		{"error to streaming", models.StatusError, models.StatusStreaming, false},
		{"complete to error", models.StatusComplete, models.StatusError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil)
			m := models.NewMessage(models.RoleAssistant, "", models.WithStatus(tt.from))
			require.NoError(t, s.Append(context.Background(), m))

			err := s.SetStatus(m.ID, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, m.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidState)
				assert.Equal(t, tt.from, m.Status)
			}
		})
	}
}

func TestTruncateFromRemovesTrailingMessages(t *testing.T) {
	s := New(nil)
	for i := 0; i < 4; i++ {
		appendUser(t, s, fmt.Sprintf("msg %d", i))
	}

	s.TruncateFrom(1)
	require.Equal(t, 1, s.Len())

	// New appends continue at the truncated position; surviving sequences
	// are untouched.
	appendUser(t, s, "fresh")
	display := s.DisplayMessages()
	require.Len(t, display, 2)
	assert.Equal(t, 0, display[0].Sequence)
	assert.Equal(t, 1, display[1].Sequence)
	assert.Equal(t, "fresh", display[1].DisplayText)
}

func TestRemoveLeavesSequenceGap(t *testing.T) {
	s := New(nil)
	var msgs []*models.Message
	for i := 0; i < 3; i++ {
		msgs = append(msgs, appendUser(t, s, fmt.Sprintf("msg %d", i)))
	}

	require.NoError(t, s.Remove(msgs[1].ID))

	display := s.DisplayMessages()
	require.Len(t, display, 2)
	assert.Equal(t, 0, display[0].Sequence)
	assert.Equal(t, 2, display[1].Sequence, "sequences are not renumbered")

	assert.ErrorIs(t, s.Remove(msgs[1].ID), ErrNotFound)
}

func TestLLMMessagesExcludeErrored(t *testing.T) {
	s := New(nil)
	appendUser(t, s, "fine")
	failed := models.NewMessage(models.RoleAssistant, "", models.WithStatus(models.StatusPending))
	require.NoError(t, s.Append(context.Background(), failed))
	require.NoError(t, s.SetStatus(failed.ID, models.StatusError))

	llm := s.LLMMessages()
	require.Len(t, llm, 1)
	assert.Equal(t, models.RoleUser, llm[0].Role)

	assert.Len(t, s.DisplayMessages(), 2, "errored messages stay visible")
}

func TestResolveTwiceYieldsIdenticalProcessedText(t *testing.T) {
	r := &staticResolver{block: "stable"}
	s := New(r)

	m := models.NewMessage(models.RoleUser, "question",
		models.WithContext(models.Context{URLs: []string{"https://example.com"}}))
	require.NoError(t, s.Append(context.Background(), m))
	first := m.ProcessedText

	require.NoError(t, s.UpdateContext(context.Background(), m.ID, m.Context))
	assert.Equal(t, first, m.ProcessedText)
}
