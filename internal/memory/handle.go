// Package memory binds an authenticated user and a session id to a
// conversation memory: the session's recent transcript (short-term, verbatim)
// plus a user-scoped vector store (long-term, similarity-retrieved across all
// of that user's sessions). Handles are derived, process-local state; the
// message log remains the source of truth and an equivalent handle can be
// rebuilt from it at any time.
package memory

import (
	"context"
	"sync"

	"household-helper/internal/model"
)

// Recaller is the long-term memory collaborator: similarity search over
// everything a user has ever discussed, regardless of session.
type Recaller interface {
	Recall(ctx context.Context, userID uint, query string) ([]string, error)
}

// Handle is the per-session memory handed to the agent on every turn.
type Handle struct {
	SessionID string
	userID    uint

	mu         sync.Mutex
	transcript []model.Message
	limit      int

	recaller Recaller
}

func newHandle(sessionID string, userID uint, transcript []model.Message, limit int, recaller Recaller) *Handle {
	return &Handle{
		SessionID:  sessionID,
		userID:     userID,
		transcript: transcript,
		limit:      limit,
		recaller:   recaller,
	}
}

// Transcript returns the session's turns in chronological order.
func (h *Handle) Transcript() []model.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.Message, len(h.transcript))
	copy(out, h.transcript)
	return out
}

// AppendTurn records a newly persisted turn so the cached handle stays
// equivalent to one rebuilt from the message log. Oldest turns fall off once
// the transcript limit is reached.
func (h *Handle) AppendTurn(msg model.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transcript = append(h.transcript, msg)
	if h.limit > 0 && len(h.transcript) > h.limit {
		h.transcript = h.transcript[len(h.transcript)-h.limit:]
	}
}

// Recall queries the user's cross-session long-term memory. Returns nil when
// no long-term store is configured.
func (h *Handle) Recall(ctx context.Context, query string) ([]string, error) {
	if h.recaller == nil {
		return nil, nil
	}
	return h.recaller.Recall(ctx, h.userID, query)
}
