package orchestrator

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/remote-model-access/client/internal/chat/completion"
	"github.com/remote-model-access/client/internal/chat/model"
	"github.com/remote-model-access/client/internal/chat/store"
	logx "github.com/remote-model-access/client/pkg/logger"
)

// ConnectionErrorEntry is appended to the transcript as a system message
// whenever a send cannot complete.
const ConnectionErrorEntry = "Connection Error"

// ConnectionErrorNotice is the transient user-facing notice raised alongside
// the transcript entry.
const ConnectionErrorNotice = "Failed to reach server, check and make sure your API configuration is correct."

// SettingsProvider supplies the configuration a send runs against. The
// orchestrator reads it once per call and treats it as immutable for the
// duration of that call.
type SettingsProvider interface {
	Config() model.ClientConfig
}

// NoticeFunc receives transient user-facing notices. The presentation layer
// decides how to surface them.
type NoticeFunc func(message string)

// Orchestrator turns user-submitted messages into completion requests and
// applies the results through the store's id-keyed no-op-safe API. It
// enforces at most one outstanding main completion request per conversation.
type Orchestrator struct {
	store      *store.Store
	client     *completion.Client
	settings   SettingsProvider
	summarizer *Summarizer
	notify     NoticeFunc

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func New(st *store.Store, client *completion.Client, settings SettingsProvider, notify NoticeFunc) *Orchestrator {
	if notify == nil {
		notify = func(string) {}
	}
	return &Orchestrator{
		store:      st,
		client:     client,
		settings:   settings,
		summarizer: NewSummarizer(st, client, settings),
		notify:     notify,
	}
}

// Summarizer exposes the title summarizer wired to the same store and client,
// for callers that want to trigger summarization outside a send.
func (o *Orchestrator) Summarizer() *Summarizer {
	return o.summarizer
}

// Send submits text as a user turn on the conversation and blocks until the
// exchange settles. Every failure mode is recorded in the transcript and
// surfaced as a notice; nothing is ever propagated to the caller.
//
// No-op conditions, checked in order: text trims to empty; another send for
// the same conversation is still in flight (the rejected call changes
// nothing, not even the user message); the conversation does not exist.
func (o *Orchestrator) Send(ctx context.Context, id uuid.UUID, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if !o.acquire(id) {
		logx.Debug().Str("conversation", id.String()).Msg("send rejected, request already in flight")
		return
	}
	defer o.release(id)

	if _, ok := o.store.Snapshot(id); !ok {
		return
	}

	cfg := o.settings.Config()

	// The user's own turn is durably recorded before any network activity.
	o.store.Append(ctx, id, model.User, text)
	o.summarizer.Maybe(ctx, id)

	if err := completion.ValidateEndpoint(cfg.Endpoint); err != nil {
		o.fail(ctx, id, err)
		return
	}

	snap, ok := o.store.Snapshot(id)
	if !ok {
		return
	}

	// An empty system prompt is always prepended, even when the transcript
	// already carries system-role error entries.
	messages := make([]model.Message, 0, len(snap.Messages)+1)
	messages = append(messages, model.SystemMessage(""))
	messages = append(messages, snap.Messages...)

	content, err := o.client.Complete(ctx, cfg.Endpoint, cfg.APIKey, completion.Request{
		Model:     cfg.ModelRequestName,
		Messages:  messages,
		MaxTokens: cfg.ContextSize,
	})
	if err != nil {
		o.fail(ctx, id, err)
		return
	}

	o.store.Append(ctx, id, model.Assistant, content)
	o.summarizer.Maybe(ctx, id)
}

// fail records the failure in the transcript and raises a single notice.
// Appending resolves by id, so a conversation deleted mid-flight absorbs
// the entry as a no-op.
func (o *Orchestrator) fail(ctx context.Context, id uuid.UUID, err error) {
	logx.Warn().Err(err).Str("conversation", id.String()).Msg("completion failed")
	o.store.Append(ctx, id, model.System, ConnectionErrorEntry)
	o.notify(ConnectionErrorNotice)
}

func (o *Orchestrator) acquire(id uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight == nil {
		o.inFlight = map[uuid.UUID]struct{}{}
	}
	if _, busy := o.inFlight[id]; busy {
		return false
	}
	o.inFlight[id] = struct{}{}
	return true
}

func (o *Orchestrator) release(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, id)
}
