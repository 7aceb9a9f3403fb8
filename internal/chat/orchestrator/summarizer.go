package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"github.com/remote-model-access/client/internal/chat/completion"
	"github.com/remote-model-access/client/internal/chat/model"
	"github.com/remote-model-access/client/internal/chat/store"
	logx "github.com/remote-model-access/client/pkg/logger"
)

const (
	// summaryInstruction is appended after the sampled transcript to ask the
	// model for a title.
	summaryInstruction = "Provide a short single phrase describing the topic of this conversation. Respond with only that phrase."
	// summaryMessageLimit caps how much transcript is sampled per request.
	summaryMessageLimit = 10
	// summaryMaxTokens is a small fixed budget, independent of the
	// conversation's own context-size setting.
	summaryMaxTokens = 16
)

// Summarizer proposes short conversation titles, strictly best effort: every
// failure is swallowed and no call ever blocks the main exchange. Multiple
// summarizer requests for the same conversation may overlap; the last
// completion to arrive wins.
type Summarizer struct {
	store    *store.Store
	client   *completion.Client
	settings SettingsProvider
}

func NewSummarizer(st *store.Store, client *completion.Client, settings SettingsProvider) *Summarizer {
	return &Summarizer{store: st, client: client, settings: settings}
}

// Maybe fires a detached title request when auto-summarize is enabled, the
// conversation exists and it holds at least one message. The returned channel
// closes when the attempt settles; callers are free to await it or drop it.
func (s *Summarizer) Maybe(ctx context.Context, id uuid.UUID) <-chan struct{} {
	done := make(chan struct{})

	cfg := s.settings.Config()
	snap, ok := s.store.Snapshot(id)
	if !cfg.AutoSummarizeTitles || !ok || len(snap.Messages) == 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		s.run(ctx, id, cfg, snap)
	}()
	return done
}

func (s *Summarizer) run(ctx context.Context, id uuid.UUID, cfg model.ClientConfig, snap model.Conversation) {
	sample := snap.Messages
	if len(sample) > summaryMessageLimit {
		sample = sample[:summaryMessageLimit]
	}

	messages := make([]model.Message, 0, len(sample)+1)
	messages = append(messages, sample...)
	messages = append(messages, model.UserMessage(summaryInstruction))

	title, err := s.client.Complete(ctx, cfg.Endpoint, cfg.APIKey, completion.Request{
		Model:     cfg.ModelRequestName,
		Messages:  messages,
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		// Summarization is cosmetic; failures stay out of the transcript
		// and off the user's screen.
		logx.Debug().Err(err).Str("conversation", id.String()).Msg("title summarization failed")
		return
	}

	// Rename resolves by id and no-ops if the conversation was deleted while
	// the request was in flight.
	s.store.Rename(ctx, id, title)
}
