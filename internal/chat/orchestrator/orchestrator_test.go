package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remote-model-access/client/internal/chat/completion"
	"github.com/remote-model-access/client/internal/chat/model"
	"github.com/remote-model-access/client/internal/chat/repo"
	"github.com/remote-model-access/client/internal/chat/settings"
	"github.com/remote-model-access/client/internal/chat/store"
)

type noticeCounter struct {
	mu      sync.Mutex
	notices []string
}

func (n *noticeCounter) fn(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, msg)
}

func (n *noticeCounter) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

func newTestOrchestrator(t *testing.T, cfg model.ClientConfig) (*Orchestrator, *store.Store, *noticeCounter) {
	t.Helper()
	st, err := store.New(context.Background(), repo.NewMemoryBlobStore())
	require.NoError(t, err)
	notices := &noticeCounter{}
	orch := New(st, completion.New(), settings.NewProvider(cfg), notices.fn)
	return orch, st, notices
}

func baseConfig(endpoint string) model.ClientConfig {
	return model.ClientConfig{
		ModelRequestName: "chat",
		Endpoint:         endpoint,
		ContextSize:      256,
	}
}

func TestSendAppliesSuccessfulCompletion(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" hi there "}}]}`))
	}))
	defer srv.Close()

	orch, st, notices := newTestOrchestrator(t, baseConfig(srv.URL))
	id := st.Create(ctx)

	orch.Send(ctx, id, "hello")

	snap, ok := st.Snapshot(id)
	require.True(t, ok)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, model.UserMessage("hello"), snap.Messages[0])
	assert.Equal(t, model.AssistantMessage("hi there"), snap.Messages[1])
	assert.Zero(t, notices.count())
}

func TestSendTrimsAndRejectsEmptyText(t *testing.T) {
	ctx := context.Background()
	orch, st, notices := newTestOrchestrator(t, baseConfig("http://unused.invalid"))
	id := st.Create(ctx)

	orch.Send(ctx, id, "   \n\t ")

	snap, _ := st.Snapshot(id)
	assert.Empty(t, snap.Messages)
	assert.Zero(t, notices.count())
}

func TestSendWithEmptyEndpoint(t *testing.T) {
	ctx := context.Background()
	orch, st, notices := newTestOrchestrator(t, baseConfig(""))
	id := st.Create(ctx)

	orch.Send(ctx, id, "hello")

	snap, _ := st.Snapshot(id)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, model.UserMessage("hello"), snap.Messages[0])
	assert.Equal(t, model.SystemMessage(ConnectionErrorEntry), snap.Messages[1])
	assert.Equal(t, 1, notices.count(), "connection-error notice is raised exactly once")
}

func TestSendRecordsNetworkFailure(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	orch, st, notices := newTestOrchestrator(t, baseConfig(srv.URL))
	id := st.Create(ctx)

	orch.Send(ctx, id, "hello")

	snap, _ := st.Snapshot(id)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, model.User, snap.Messages[0].Role, "user message survives the failed call")
	assert.Equal(t, model.SystemMessage(ConnectionErrorEntry), snap.Messages[1])
	assert.Equal(t, 1, notices.count())
}

func TestSendRecordsDecodeFailure(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	defer srv.Close()

	orch, st, notices := newTestOrchestrator(t, baseConfig(srv.URL))
	id := st.Create(ctx)

	orch.Send(ctx, id, "hello")

	snap, _ := st.Snapshot(id)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, model.SystemMessage(ConnectionErrorEntry), snap.Messages[1])
	assert.Equal(t, 1, notices.count())
}

func TestSendPrependsEmptySystemPrompt(t *testing.T) {
	ctx := context.Background()
	var got completion.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = decodeJSON(r, &got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	orch, st, _ := newTestOrchestrator(t, baseConfig(srv.URL))
	id := st.Create(ctx)
	st.Append(ctx, id, model.System, ConnectionErrorEntry)

	orch.Send(ctx, id, "hello")

	require.Len(t, got.Messages, 3)
	assert.Equal(t, model.SystemMessage(""), got.Messages[0], "empty system prompt is always prepended")
	assert.Equal(t, model.SystemMessage(ConnectionErrorEntry), got.Messages[1])
	assert.Equal(t, model.UserMessage("hello"), got.Messages[2])
	assert.Equal(t, "chat", got.Model)
	assert.Equal(t, 256, got.MaxTokens)
}

func TestSecondSendWhileInFlightIsNoOp(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-unblock
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"slow"}}]}`))
	}))
	defer srv.Close()

	orch, st, _ := newTestOrchestrator(t, baseConfig(srv.URL))
	id := st.Create(ctx)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		orch.Send(ctx, id, "first")
	}()
	<-started

	orch.Send(ctx, id, "second")
	snap, _ := st.Snapshot(id)
	assert.Len(t, snap.Messages, 1, "rejected send changes nothing, not even the user message")

	close(unblock)
	<-firstDone

	snap, _ = st.Snapshot(id)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, model.AssistantMessage("slow"), snap.Messages[1])

	// The marker is cleared, so a later send goes through again.
	orch.Send(ctx, id, "third")
	snap, _ = st.Snapshot(id)
	assert.Len(t, snap.Messages, 4)
}

func TestConcurrentSendsAdmitExactlyOne(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	unblock := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-unblock
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	orch, st, _ := newTestOrchestrator(t, baseConfig(srv.URL))
	id := st.Create(ctx)

	winner := make(chan struct{})
	go func() {
		defer close(winner)
		orch.Send(ctx, id, "race")
	}()
	<-started

	for i := 0; i < 8; i++ {
		orch.Send(ctx, id, "race")
	}

	close(unblock)
	<-winner

	snap, _ := st.Snapshot(id)
	assert.Len(t, snap.Messages, 2, "exactly one send is admitted while in flight")
}

func TestDeletionMidFlightDropsCompletion(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	unblock := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-unblock
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ghost"}}]}`))
	}))
	defer srv.Close()

	orch, st, notices := newTestOrchestrator(t, baseConfig(srv.URL))
	doomed := st.Create(ctx)
	survivor := st.Create(ctx)
	st.Append(ctx, survivor, model.User, "untouched")

	done := make(chan struct{})
	go func() {
		defer close(done)
		orch.Send(ctx, doomed, "hello")
	}()
	<-started

	st.Delete(ctx, doomed)
	close(unblock)
	<-done

	_, ok := st.Snapshot(doomed)
	assert.False(t, ok)

	snap, ok := st.Snapshot(survivor)
	require.True(t, ok)
	require.Len(t, snap.Messages, 1, "other conversations are unaffected")
	assert.Equal(t, "untouched", snap.Messages[0].Content)
	assert.Zero(t, notices.count())
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func TestSendOnUnknownConversationIsNoOp(t *testing.T) {
	ctx := context.Background()
	orch, st, notices := newTestOrchestrator(t, baseConfig("http://unused.invalid"))

	orch.Send(ctx, uuid.New(), "hello")

	assert.Empty(t, st.List())
	assert.Zero(t, notices.count())
}
