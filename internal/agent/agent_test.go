package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"household-helper/internal/memory"
	"household-helper/internal/model"
)

// fakeLLM serves an OpenAI-compatible streaming completion and captures the
// request for assertions.
type fakeLLM struct {
	deltas   []string
	status   int
	captured struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
	}
}

func (f *fakeLLM) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&f.captured)
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range f.deltas {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func newAgentAgainst(t *testing.T, llm *fakeLLM) *Agent {
	t.Helper()
	srv := httptest.NewServer(llm.handler())
	t.Cleanup(srv.Close)
	return New("helper", HelperSystemPrompt, NewClient(), ChatConfig{
		BaseURL: srv.URL,
		APIKey:  "test",
		Model:   "test-model",
	})
}

func emptyHandle(t *testing.T) *memory.Handle {
	t.Helper()
	binder := memory.NewBinder(staticSessions{}, staticTranscripts{}, nil, 10)
	handle, err := binder.Bind(context.Background(), 1, "s1")
	require.NoError(t, err)
	return handle
}

func TestStreamDeliversFragmentsInOrder(t *testing.T) {
	llm := &fakeLLM{deltas: []string{"Hel", "lo", "!"}}
	a := newAgentAgainst(t, llm)

	var got []string
	for frag := range a.Stream(context.Background(), "hi there", emptyHandle(t)) {
		require.NoError(t, frag.Err)
		got = append(got, frag.Delta)
	}
	assert.Equal(t, []string{"Hel", "lo", "!"}, got)

	require.NotEmpty(t, llm.captured.Messages)
	assert.True(t, llm.captured.Stream)
	assert.Equal(t, "system", llm.captured.Messages[0].Role)
	last := llm.captured.Messages[len(llm.captured.Messages)-1]
	assert.Equal(t, ChatMessage{Role: "user", Content: "hi there"}, last)
}

func TestStreamDoesNotRepeatCurrentTurn(t *testing.T) {
	llm := &fakeLLM{deltas: []string{"ok"}}
	a := newAgentAgainst(t, llm)

	// The handle already carries the in-flight turn, the way the chat
	// service appends it right after persisting.
	handle := emptyHandle(t)
	handle.AppendTurn(model.Message{Role: "user", Content: "hi there"})

	for frag := range a.Stream(context.Background(), "hi there", handle) {
		require.NoError(t, frag.Err)
	}

	occurrences := 0
	for _, msg := range llm.captured.Messages {
		if msg.Role == "user" && msg.Content == "hi there" {
			occurrences++
		}
	}
	assert.Equal(t, 1, occurrences)
}

func TestStreamErrorIsTerminalFragment(t *testing.T) {
	llm := &fakeLLM{status: http.StatusInternalServerError}
	a := newAgentAgainst(t, llm)

	var frags []Fragment
	for frag := range a.Stream(context.Background(), "hi", emptyHandle(t)) {
		frags = append(frags, frag)
	}
	require.Len(t, frags, 1)
	assert.Error(t, frags[0].Err)
}

func TestStreamZeroFragments(t *testing.T) {
	llm := &fakeLLM{deltas: nil}
	a := newAgentAgainst(t, llm)

	count := 0
	for frag := range a.Stream(context.Background(), "hi", emptyHandle(t)) {
		require.NoError(t, frag.Err)
		count++
	}
	assert.Zero(t, count)
}

type staticSessions struct{}

func (staticSessions) GetByID(id string) (*model.Session, error) {
	return &model.Session{ID: id, UserID: 1}, nil
}

type staticTranscripts struct{}

func (staticTranscripts) ListUserTurns(sessionID string, userID uint, limit int) ([]model.Message, error) {
	return nil, nil
}
