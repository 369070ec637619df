package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/raphaelgruber/converse-go/internal/models"
	"github.com/raphaelgruber/converse-go/internal/parser"
	"github.com/raphaelgruber/converse-go/internal/store"
)

// Orchestrator owns every mutation of conversation state. All operations are
// serialized through one mutex; the only work done outside it is the engine
// stream itself, so reads and Stop stay responsive during generation.
//
// At most one generation runs per conversation at a time. Mutating operations
// on a conversation with an in-flight generation are rejected with
// ErrConcurrentOperation; conversations for other identities are unaffected.
type Orchestrator struct {
	mu       sync.Mutex
	registry *Registry
	active   string
	inFlight map[string]context.CancelFunc

	engine   Engine
	detector IdentityDetector
	archive  Archive
	bus      *Bus
	logger   *slog.Logger
}

// NewOrchestrator wires the conversation engine together. detector and
// archive may be nil: without a detector the active conversation defaults to
// "default", without an archive nothing is persisted.
func NewOrchestrator(registry *Registry, engine Engine, detector IdentityDetector, archive Archive, bus *Bus, logger *slog.Logger) *Orchestrator {
	if bus == nil {
		bus = NewBus()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		registry: registry,
		inFlight: make(map[string]context.CancelFunc),
		engine:   engine,
		detector: detector,
		archive:  archive,
		bus:      bus,
		logger:   logger,
	}
}

// Bus returns the subscription bus observers register on.
func (o *Orchestrator) Bus() *Bus {
	return o.bus
}

// ActiveIdentity returns the identity of the active conversation, detecting
// it on first use.
func (o *Orchestrator) ActiveIdentity() string {
	return o.resolveIdentity()
}

// SwitchTo makes identity the active conversation and returns its display
// view. An empty identity re-runs detection. Switching is pure bookkeeping:
// each conversation keeps its own store, so switching away and back preserves
// all state, and an in-flight generation in another conversation keeps
// running.
func (o *Orchestrator) SwitchTo(identity string) []models.DisplayMessage {
	// Detection may shell out to git, so it runs before the lock is taken.
	if identity == "" {
		identity = o.detectIdentity()
	}
	o.mu.Lock()
	o.active = identity
	view := o.registry.Get(identity).DisplayMessages()
	o.mu.Unlock()

	o.bus.Notify()
	return view
}

// Conversations lists every conversation seen so far.
func (o *Orchestrator) Conversations() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.registry.Identities()
}

// DisplayMessages returns the display projection of the active conversation.
func (o *Orchestrator) DisplayMessages() []models.DisplayMessage {
	identity := o.resolveIdentity()
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.registry.Get(identity).DisplayMessages()
}

// Send appends a user message with its attached context, then streams an
// assistant reply into the conversation, blocking until the stream
// terminates. Inline [[note]] references in the text are folded into the
// attached context. The returned ID is the assistant message's; a failed or
// stopped generation is recorded in that message's status rather than
// returned as an error.
func (o *Orchestrator) Send(ctx context.Context, text string, attach models.Context) (uuid.UUID, error) {
	identity := o.resolveIdentity()
	o.mu.Lock()
	if _, running := o.inFlight[identity]; running {
		o.mu.Unlock()
		return uuid.Nil, fmt.Errorf("%w: generation already running for %q", store.ErrConcurrentOperation, identity)
	}
	st := o.registry.Get(identity)

	user := models.NewMessage(models.RoleUser, text, models.WithContext(mergeInlineRefs(text, attach)))
	if err := st.Append(ctx, user); err != nil {
		o.mu.Unlock()
		return uuid.Nil, err
	}

	input := st.LLMMessages()
	assistantID, genCtx, cancel := o.startAssistantLocked(ctx, identity, st)
	o.mu.Unlock()
	o.bus.Notify()

	o.runGeneration(genCtx, identity, st, assistantID, input)
	cancel()
	return assistantID, nil
}

// Edit replaces a message's text. Editing a user message also replaces its
// attached context, atomically drops every later message and regenerates the
// reply from the edited history, blocking like Send. Editing an assistant or
// system message touches only that message.
func (o *Orchestrator) Edit(ctx context.Context, id uuid.UUID, text string, attach models.Context) error {
	identity := o.resolveIdentity()
	o.mu.Lock()
	if _, running := o.inFlight[identity]; running {
		o.mu.Unlock()
		return fmt.Errorf("%w: generation already running for %q", store.ErrConcurrentOperation, identity)
	}
	st := o.registry.Get(identity)

	m, err := st.Get(id)
	if err != nil {
		o.mu.Unlock()
		return err
	}

	if m.Role != models.RoleUser {
		err := st.UpdateText(ctx, id, text)
		o.mu.Unlock()
		if err != nil {
			return err
		}
		o.bus.Notify()
		o.persist(ctx, identity)
		return nil
	}

	if err := st.UpdateText(ctx, id, text); err != nil {
		o.mu.Unlock()
		return err
	}
	if err := st.UpdateContext(ctx, id, mergeInlineRefs(text, attach)); err != nil {
		o.mu.Unlock()
		return err
	}
	st.TruncateFrom(m.Sequence + 1)

	input := st.LLMMessages()
	assistantID, genCtx, cancel := o.startAssistantLocked(ctx, identity, st)
	o.mu.Unlock()
	o.bus.Notify()

	o.runGeneration(genCtx, identity, st, assistantID, input)
	cancel()
	return nil
}

// Regenerate discards an assistant message and everything after it, then
// produces a fresh reply from the preceding history, blocking like Send.
func (o *Orchestrator) Regenerate(ctx context.Context, id uuid.UUID) error {
	identity := o.resolveIdentity()
	o.mu.Lock()
	if _, running := o.inFlight[identity]; running {
		o.mu.Unlock()
		return fmt.Errorf("%w: generation already running for %q", store.ErrConcurrentOperation, identity)
	}
	st := o.registry.Get(identity)

	m, err := st.Get(id)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	if m.Role != models.RoleAssistant {
		o.mu.Unlock()
		return fmt.Errorf("%w: can only regenerate assistant messages, %s is %s", store.ErrInvalidState, id, m.Role)
	}
	if !precededByUser(st.DisplayMessages(), m.Sequence) {
		o.mu.Unlock()
		return fmt.Errorf("%w: no user message precedes %s", store.ErrInvalidState, id)
	}

	st.TruncateFrom(m.Sequence)
	input := st.LLMMessages()
	assistantID, genCtx, cancel := o.startAssistantLocked(ctx, identity, st)
	o.mu.Unlock()
	o.bus.Notify()

	o.runGeneration(genCtx, identity, st, assistantID, input)
	cancel()
	return nil
}

// DeleteMessage removes exactly one message. No cascade: later messages stay,
// keeping their sequence values, so the model input simply no longer contains
// the removed turn.
func (o *Orchestrator) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	identity := o.resolveIdentity()
	o.mu.Lock()
	if _, running := o.inFlight[identity]; running {
		o.mu.Unlock()
		return fmt.Errorf("%w: generation already running for %q", store.ErrConcurrentOperation, identity)
	}
	err := o.registry.Get(identity).Remove(id)
	o.mu.Unlock()
	if err != nil {
		return err
	}

	o.bus.Notify()
	o.persist(ctx, identity)
	return nil
}

// Clear discards the active conversation's entire history.
func (o *Orchestrator) Clear(ctx context.Context) error {
	identity := o.resolveIdentity()
	o.mu.Lock()
	if _, running := o.inFlight[identity]; running {
		o.mu.Unlock()
		return fmt.Errorf("%w: generation already running for %q", store.ErrConcurrentOperation, identity)
	}
	o.registry.Replace(identity)
	o.mu.Unlock()

	o.bus.Notify()
	o.persist(ctx, identity)
	return nil
}

// Stop cancels the active conversation's in-flight generation, if any, and
// reports whether one was running. Text streamed so far is kept: the
// assistant message completes with partial content, or errors if nothing
// arrived yet.
func (o *Orchestrator) Stop() bool {
	identity := o.resolveIdentity()
	o.mu.Lock()
	cancel, ok := o.inFlight[identity]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Rehydrate replaces the active conversation with its persisted transcript,
// replaying every message as complete. Processed text is re-derived during
// replay, so context resolutions are never stale after a restart.
func (o *Orchestrator) Rehydrate(ctx context.Context) error {
	if o.archive == nil {
		return nil
	}

	identity := o.resolveIdentity()

	snaps, err := o.archive.LoadTranscript(ctx, identity)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}

	o.mu.Lock()
	if _, running := o.inFlight[identity]; running {
		o.mu.Unlock()
		return fmt.Errorf("%w: generation already running for %q", store.ErrConcurrentOperation, identity)
	}
	st := o.registry.Replace(identity)
	for _, snap := range snaps {
		m := models.NewMessage(snap.Role, snap.DisplayText,
			models.WithContext(snap.Context),
			models.WithCreatedAt(snap.CreatedAt),
		)
		if err := st.Append(ctx, m); err != nil {
			o.mu.Unlock()
			return err
		}
	}
	o.mu.Unlock()

	o.bus.Notify()
	return nil
}

// resolveIdentity returns the active identity, running detection on first
// use. Detection happens outside the mutex: the detector may shell out to
// git, and holding the lock through that would stall another conversation's
// stream deltas.
func (o *Orchestrator) resolveIdentity() string {
	o.mu.Lock()
	id := o.active
	o.mu.Unlock()
	if id != "" {
		return id
	}

	id = o.detectIdentity()
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == "" {
		o.active = id
	}
	return o.active
}

// detectIdentity asks the detector for the current identity, falling back to
// "default". Never called with o.mu held.
func (o *Orchestrator) detectIdentity() string {
	if o.detector != nil {
		if id := o.detector.CurrentIdentity(); id != "" {
			return id
		}
	}
	return "default"
}

// startAssistantLocked appends a pending assistant message, moves it to
// streaming and registers the conversation's cancel handle. Callers must hold
// o.mu and must call the returned cancel once generation ends.
func (o *Orchestrator) startAssistantLocked(ctx context.Context, identity string, st *store.Store) (uuid.UUID, context.Context, context.CancelFunc) {
	assistant := models.NewMessage(models.RoleAssistant, "", models.WithStatus(models.StatusPending))
	// Appending a fresh message cannot fail: the ID was just generated.
	_ = st.Append(ctx, assistant)
	_ = st.SetStatus(assistant.ID, models.StatusStreaming)

	genCtx, cancel := context.WithCancel(ctx)
	o.inFlight[identity] = cancel
	return assistant.ID, genCtx, cancel
}

// runGeneration drives one engine stream to its terminal state. It runs
// outside the mutex; each fragment takes the lock just long enough to append.
func (o *Orchestrator) runGeneration(ctx context.Context, identity string, st *store.Store, assistantID uuid.UUID, input []models.LLMMessage) {
	received := 0
	err := o.engine.StreamChat(ctx, input, func(fragment string) error {
		o.mu.Lock()
		deltaErr := st.AppendStreamDelta(assistantID, fragment)
		o.mu.Unlock()
		if deltaErr != nil {
			return deltaErr
		}
		received++
		o.bus.Notify()
		return nil
	})

	o.mu.Lock()
	delete(o.inFlight, identity)
	switch {
	case err == nil:
		_ = st.SetStatus(assistantID, models.StatusComplete)
	case errors.Is(err, context.Canceled) && received > 0:
		// A stop keeps whatever already streamed in.
		_ = st.SetStatus(assistantID, models.StatusComplete)
	case errors.Is(err, context.Canceled):
		_ = st.Fail(assistantID, "Generation stopped before any output arrived.")
	default:
		o.logger.Error("generation failed", "conversation", identity, "error", err)
		_ = st.Fail(assistantID, fmt.Sprintf("Generation failed: %v", err))
	}
	o.mu.Unlock()

	o.bus.Notify()
	o.persist(context.WithoutCancel(ctx), identity)
}

// persist saves the conversation's snapshot through the archive, if one is
// configured. Persistence failures are logged, never surfaced: the in-memory
// conversation stays authoritative.
func (o *Orchestrator) persist(ctx context.Context, identity string) {
	if o.archive == nil {
		return
	}
	o.mu.Lock()
	snap := o.registry.Get(identity).SnapshotMessages()
	o.mu.Unlock()

	if err := o.archive.SaveTranscript(ctx, identity, snap); err != nil {
		o.logger.Warn("transcript save failed", "conversation", identity, "error", err)
	}
}

// mergeInlineRefs folds [[wiki-link]] references from the message text into
// the attached context as note references.
func mergeInlineRefs(text string, attach models.Context) models.Context {
	links := parser.ExtractWikiLinks(text)
	if len(links) == 0 {
		return attach
	}
	merged := attach.Clone()
	for _, link := range links {
		merged.Notes = append(merged.Notes, models.Slugify(link))
	}
	return merged
}

func precededByUser(msgs []models.DisplayMessage, seq int) bool {
	for _, m := range msgs {
		if m.Sequence < seq && m.Role == models.RoleUser {
			return true
		}
	}
	return false
}
