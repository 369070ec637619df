package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/raphaelgruber/converse-go/internal/metrics"
	"github.com/raphaelgruber/converse-go/internal/models"
)

// transcriptEntry is the stored shape of one snapshot message. Timestamps are
// kept as RFC 3339 strings inside the flexible array so the record round-trips
// without custom datetime handling.
type transcriptEntry struct {
	Role        string         `json:"role"`
	DisplayText string         `json:"display_text"`
	Context     models.Context `json:"context"`
	CreatedAt   string         `json:"created_at"`
}

type transcriptRecord struct {
	Identity string            `json:"identity"`
	Messages []transcriptEntry `json:"messages"`
}

// SaveTranscript stores the full snapshot for a conversation identity,
// replacing any previous one. The record ID is the slugified identity; the
// raw identity is kept as a field.
func (c *Client) SaveTranscript(ctx context.Context, identity string, msgs []models.SnapshotMessage) error {
	start := time.Now()

	entries := make([]transcriptEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, transcriptEntry{
			Role:        string(m.Role),
			DisplayText: m.DisplayText,
			Context:     m.Context,
			CreatedAt:   m.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("transcript", $id) SET
			identity = $identity,
			messages = $messages,
			updated = time::now()
	`, map[string]any{
		"id":       models.Slugify(identity),
		"identity": identity,
		"messages": entries,
	})

	if c.metrics != nil {
		c.metrics.RecordTiming(metrics.OpSaveTranscript, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("save transcript: %w", wrapQueryError(err))
	}
	return nil
}

// LoadTranscript returns the stored snapshot for a conversation identity.
// A conversation that was never saved yields an empty transcript, not an
// error.
func (c *Client) LoadTranscript(ctx context.Context, identity string) ([]models.SnapshotMessage, error) {
	start := time.Now()

	results, err := surrealdb.Query[[]transcriptRecord](ctx, c.db, `
		SELECT identity, messages FROM type::record("transcript", $id)
	`, map[string]any{"id": models.Slugify(identity)})

	if c.metrics != nil {
		c.metrics.RecordTiming(metrics.OpLoadTranscript, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}

	record := (*results)[0].Result[0]
	msgs := make([]models.SnapshotMessage, 0, len(record.Messages))
	for _, e := range record.Messages {
		createdAt, parseErr := time.Parse(time.RFC3339Nano, e.CreatedAt)
		if parseErr != nil {
			createdAt = time.Time{}
		}
		msgs = append(msgs, models.SnapshotMessage{
			Role:        models.Role(e.Role),
			DisplayText: e.DisplayText,
			Context:     e.Context,
			CreatedAt:   createdAt,
		})
	}
	return msgs, nil
}

// DeleteTranscript removes a conversation's stored snapshot entirely.
// Deleting a transcript that does not exist is a no-op.
func (c *Client) DeleteTranscript(ctx context.Context, identity string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE type::record("transcript", $id)
	`, map[string]any{"id": models.Slugify(identity)})
	if err != nil {
		return fmt.Errorf("delete transcript: %w", wrapQueryError(err))
	}
	return nil
}

// ListTranscripts returns the identities of every stored conversation.
func (c *Client) ListTranscripts(ctx context.Context) ([]string, error) {
	results, err := surrealdb.Query[[]transcriptRecord](ctx, c.db, `
		SELECT identity, [] AS messages FROM transcript ORDER BY identity
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}

	identities := make([]string, 0, len((*results)[0].Result))
	for _, record := range (*results)[0].Result {
		identities = append(identities, record.Identity)
	}
	return identities, nil
}
