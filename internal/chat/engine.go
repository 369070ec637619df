package chat

import (
	"context"

	"github.com/raphaelgruber/converse-go/internal/models"
)

// Engine is the model-invocation boundary. Implementations own their own
// timeout and retry policy and report terminal success or failure; the
// orchestrator supplies exactly the ordered sequence from LLMMessages.
type Engine interface {
	StreamChat(ctx context.Context, conversation []models.LLMMessage, onDelta func(fragment string) error) error
}

// Archive is the persistence collaborator: it stores and returns the
// serialized display snapshot of a conversation. The orchestrator rehydrates
// a store by replaying the loaded messages as complete-status messages in
// order.
type Archive interface {
	SaveTranscript(ctx context.Context, identity string, msgs []models.SnapshotMessage) error
	LoadTranscript(ctx context.Context, identity string) ([]models.SnapshotMessage, error)
}

// IdentityDetector supplies the current project identity used to pick the
// active conversation. Implementations must not block on I/O when called
// from a conversation switch.
type IdentityDetector interface {
	CurrentIdentity() string
}
