package memory

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"household-helper/internal/model"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotOwner        = errors.New("session belongs to another user")
)

// SessionSource resolves a session id to its row, nil when absent.
type SessionSource interface {
	GetByID(sessionID string) (*model.Session, error)
}

// TranscriptSource fetches the owner's turns for a session, newest first.
type TranscriptSource interface {
	ListUserTurns(sessionID string, userID uint, limit int) ([]model.Message, error)
}

// Binder caches at most one Handle per live session id. Construction is
// single-flighted so two concurrent first turns on the same session share one
// transcript fetch and one handle.
type Binder struct {
	sessions    SessionSource
	transcripts TranscriptSource
	recaller    Recaller
	limit       int

	mu      sync.RWMutex
	handles map[string]*Handle
	group   singleflight.Group
}

func NewBinder(sessions SessionSource, transcripts TranscriptSource, recaller Recaller, transcriptLimit int) *Binder {
	if transcriptLimit <= 0 {
		transcriptLimit = 100
	}
	return &Binder{
		sessions:    sessions,
		transcripts: transcripts,
		recaller:    recaller,
		limit:       transcriptLimit,
		handles:     make(map[string]*Handle),
	}
}

// Bind returns the memory handle for (user, session). Ownership is verified
// on every call, cached or not: a session id is never trusted as a capability
// token on its own.
func (b *Binder) Bind(ctx context.Context, userID uint, sessionID string) (*Handle, error) {
	session, err := b.sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, ErrNotOwner
	}

	b.mu.RLock()
	handle, ok := b.handles[sessionID]
	b.mu.RUnlock()
	if ok {
		return handle, nil
	}

	v, err, _ := b.group.Do(sessionID, func() (interface{}, error) {
		b.mu.RLock()
		existing, ok := b.handles[sessionID]
		b.mu.RUnlock()
		if ok {
			return existing, nil
		}

		recent, err := b.transcripts.ListUserTurns(sessionID, userID, b.limit)
		if err != nil {
			return nil, err
		}
		// Query is newest-first; replay order must be chronological.
		for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
			recent[i], recent[j] = recent[j], recent[i]
		}

		created := newHandle(sessionID, userID, recent, b.limit, b.recaller)
		b.mu.Lock()
		b.handles[sessionID] = created
		b.mu.Unlock()
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// Invalidate drops the cached handle, if any. Called when the session is
// deleted; the next Bind rebuilds from the message log.
func (b *Binder) Invalidate(sessionID string) {
	b.mu.Lock()
	delete(b.handles, sessionID)
	b.mu.Unlock()
}
