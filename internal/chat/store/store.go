package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/remote-model-access/client/internal/chat/model"
	"github.com/remote-model-access/client/internal/chat/repo"
	logx "github.com/remote-model-access/client/pkg/logger"
)

// stateKey is the single blob under which the whole aggregate is persisted.
const stateKey = "conversations"

// state is the persisted aggregate: every conversation carries its own title,
// display number and messages, so nothing has to be kept in lockstep across
// parallel collections.
type state struct {
	Conversations []model.Conversation `json:"conversations"`
}

// Store owns the authoritative collection of conversations and mediates every
// mutation. All operations resolve conversations by stable id; operations on
// unknown ids are silent no-ops so completions racing a deletion degrade
// gracefully instead of touching an unrelated conversation.
type Store struct {
	mu          sync.Mutex
	blobs       repo.BlobStore
	order       []uuid.UUID
	byID        map[uuid.UUID]*model.Conversation
	selected    uuid.UUID
	subscribers []func()
}

// New builds a Store backed by the given blob store and loads any previously
// persisted aggregate. An absent blob yields an empty store; a corrupt blob is
// an error the caller decides about.
func New(ctx context.Context, blobs repo.BlobStore) (*Store, error) {
	s := &Store{
		blobs: blobs,
		byID:  map[uuid.UUID]*model.Conversation{},
	}

	data, ok, err := blobs.Load(ctx, stateKey)
	if err != nil {
		return nil, err
	}
	if ok {
		var st state
		if err := json.Unmarshal(data, &st); err != nil {
			logx.Error().Err(err).Msg("failed to decode persisted conversations")
			return nil, err
		}
		for i := range st.Conversations {
			c := st.Conversations[i]
			s.order = append(s.order, c.ID)
			s.byID[c.ID] = &c
		}
	}
	return s, nil
}

// Subscribe registers a change listener invoked after every persisted
// mutation. Listeners run outside the store lock and must not mutate the
// store re-entrantly from the same goroutine expecting ordering guarantees.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Create appends a new empty conversation, assigns the next display number
// (max over currently held conversations plus one), persists and returns
// the new id.
func (s *Store) Create(ctx context.Context) uuid.UUID {
	s.mu.Lock()

	next := 1
	for _, c := range s.byID {
		if c.DisplayNumber >= next {
			next = c.DisplayNumber + 1
		}
	}

	c := &model.Conversation{
		ID:            uuid.New(),
		DisplayNumber: next,
		Messages:      []model.Message{},
	}
	s.order = append(s.order, c.ID)
	s.byID[c.ID] = c
	s.persistLocked(ctx)

	id := c.ID
	s.mu.Unlock()
	s.notify()
	return id
}

// Delete removes the conversation. Deleting an unknown id is a no-op.
// If the deleted conversation was the active selection, the selection is
// cleared.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()

	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.selected == id {
		s.selected = uuid.Nil
	}
	s.persistLocked(ctx)

	s.mu.Unlock()
	s.notify()
}

// Append records a message on the conversation. Appending to an unknown id is
// a silent no-op; this is what makes late completion application safe.
func (s *Store) Append(ctx context.Context, id uuid.UUID, role model.Role, content string) {
	s.mu.Lock()

	c, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	c.Messages = append(c.Messages, model.Message{Role: role, Content: content})
	s.persistLocked(ctx)

	s.mu.Unlock()
	s.notify()
}

// Rename sets the conversation title. No-op when the id is unknown or the
// new title is empty.
func (s *Store) Rename(ctx context.Context, id uuid.UUID, title string) {
	s.mu.Lock()

	c, ok := s.byID[id]
	if !ok || title == "" {
		s.mu.Unlock()
		return
	}
	c.Title = title
	s.persistLocked(ctx)

	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a read-only deep copy for request building, or ok=false
// when the id is unknown.
func (s *Store) Snapshot(id uuid.UUID) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return model.Conversation{}, false
	}
	return c.Clone(), true
}

// List returns deep copies of every conversation in creation order.
func (s *Store) List() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Conversation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out
}

// Select marks the conversation as the active selection. Unknown ids are
// ignored so selection can never dangle.
func (s *Store) Select(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; ok {
		s.selected = id
	}
}

// Selected returns the active selection, ok=false when nothing is selected.
func (s *Store) Selected() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == uuid.Nil {
		return uuid.Nil, false
	}
	return s.selected, true
}

// persistLocked serializes the aggregate and writes it through the blob
// store. Persistence failures are logged, never fatal; the in-memory state
// stays authoritative for the session.
func (s *Store) persistLocked(ctx context.Context) {
	st := state{Conversations: make([]model.Conversation, 0, len(s.order))}
	for _, id := range s.order {
		st.Conversations = append(st.Conversations, s.byID[id].Clone())
	}
	data, err := json.Marshal(st)
	if err != nil {
		logx.Error().Err(err).Msg("failed to encode conversations")
		return
	}
	if err := s.blobs.Save(ctx, stateKey, data); err != nil {
		logx.Error().Err(err).Msg("failed to persist conversations")
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	subs := make([]func(), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
