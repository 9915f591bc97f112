package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"household-helper/internal/agent"
	"household-helper/internal/memory"
	"household-helper/internal/model"
	"household-helper/internal/repository"
)

var (
	ErrSessionNotFound  = errors.New("session does not exist")
	ErrSessionForbidden = errors.New("session belongs to another user")
	ErrMessageEmpty     = errors.New("message content is empty")
)

// HistoryCache caches recent message history per (user, session) for the
// read path. Keys include the user id so one user's cached history can never
// be served for another user's request.
type HistoryCache interface {
	GetHistory(ctx context.Context, userID uint, sessionID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, userID uint, sessionID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, userID uint, sessionID string) error
	MarkDirty(ctx context.Context, userID uint, sessionID string) error
	IsDirty(ctx context.Context, userID uint, sessionID string) (bool, error)
}

// IngestPublisher queues completed exchanges for long-term memory ingestion.
type IngestPublisher interface {
	Publish(ctx context.Context, job memory.IngestJob) error
}

// StreamAgent is the external agent collaborator: text plus memory handle in,
// fragment stream out.
type StreamAgent interface {
	Name() string
	Stream(ctx context.Context, text string, handle *memory.Handle) <-chan agent.Fragment
}

// ChatService is the session registry, message log, and chat gateway.
type ChatService struct {
	sessionRepo  *repository.SessionRepository
	messageRepo  *repository.MessageRepository
	binder       *memory.Binder
	historyCache HistoryCache
	publisher    IngestPublisher
}

func NewChatService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	binder *memory.Binder,
	historyCache HistoryCache,
	publisher IngestPublisher,
) *ChatService {
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		binder:       binder,
		historyCache: historyCache,
		publisher:    publisher,
	}
}

func (s *ChatService) CreateSession(userID uint) (*model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	session := &model.Session{
		ID:     uuid.NewString(),
		UserID: userID,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(userID uint) ([]model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByUserID(userID, 100)
}

// MostRecentSession returns nil without error when the user has no sessions.
func (s *ChatService) MostRecentSession(userID uint) (*model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.MostRecentByUserID(userID)
}

// DeleteSession removes the session and its messages, and evicts the cached
// memory handle and history so the id cannot resurrect stale state.
func (s *ChatService) DeleteSession(userID uint, sessionID string) error {
	if userID == 0 || sessionID == "" {
		return ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if err := s.sessionRepo.DeleteWithMessages(sessionID, userID); err != nil {
		return err
	}
	s.binder.Invalidate(sessionID)
	if s.historyCache != nil {
		if err := s.historyCache.DeleteHistory(context.Background(), userID, sessionID); err != nil {
			log.Printf("evict history cache failed: %v", err)
		}
	}
	return nil
}

// History returns up to limit messages, newest first. The query filters on
// both session and user, so a foreign session id yields an empty list.
func (s *ChatService) History(ctx context.Context, userID uint, sessionID string, limit int) ([]model.Message, error) {
	if userID == 0 || sessionID == "" {
		return nil, ErrInvalidInput
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, userID, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, userID, sessionID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messageRepo.ListRecent(sessionID, userID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, userID, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, userID, sessionID, messages)
		}
	}
	return messages, nil
}

type StreamInput struct {
	UserID    uint
	SessionID string
	Text      string
}

// Stream runs one chat turn: bind memory (which enforces session ownership),
// persist the user's turn, invoke the agent, forward fragments through
// onFragment while accumulating them, then log the assistant's turn.
//
// The user's turn is persisted before the agent is invoked, so a mid-stream
// failure still leaves it recorded. If the stream fails after fragments were
// already delivered, the partial reply is logged too: the client saw that
// text, so the log must match. A zero-fragment stream still logs an empty
// assistant turn.
func (s *ChatService) Stream(
	ctx context.Context,
	ag StreamAgent,
	input StreamInput,
	onFragment func(string) error,
) (string, error) {
	if input.UserID == 0 || input.SessionID == "" {
		return "", ErrInvalidInput
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return "", ErrMessageEmpty
	}

	handle, err := s.binder.Bind(ctx, input.UserID, input.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, memory.ErrSessionNotFound):
			return "", ErrSessionNotFound
		case errors.Is(err, memory.ErrNotOwner):
			return "", ErrSessionForbidden
		}
		return "", err
	}

	userMessage := &model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      model.MessageRoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	}
	if err := s.messageRepo.Create(userMessage); err != nil {
		return "", err
	}
	// The turn is durable now, so the cached handle must carry it too, no
	// matter how the stream below ends. The handle's transcript holds only
	// user-role turns, so this stays ahead of the agent call.
	handle.AppendTurn(*userMessage)
	s.invalidateHistory(ctx, input.UserID, input.SessionID)

	var full strings.Builder
	delivered := 0
	var streamErr error
	for fragment := range ag.Stream(ctx, text, handle) {
		if fragment.Err != nil {
			streamErr = fragment.Err
			break
		}
		full.WriteString(fragment.Delta)
		if err := onFragment(fragment.Delta); err != nil {
			streamErr = err
			break
		}
		delivered++
	}

	if streamErr != nil && delivered == 0 {
		// Nothing reached the client; the user's turn stays logged, the
		// assistant's does not.
		return "", streamErr
	}

	assistantMessage := &model.Message{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Role:      model.MessageRoleAssistant,
		Content:   full.String(),
		CreatedAt: time.Now(),
	}
	if err := s.messageRepo.Create(assistantMessage); err != nil {
		return full.String(), err
	}
	s.invalidateHistory(ctx, input.UserID, input.SessionID)

	if streamErr == nil && s.publisher != nil {
		job := memory.IngestJob{
			UserID:        input.UserID,
			SessionID:     input.SessionID,
			UserText:      text,
			AssistantText: full.String(),
		}
		if err := s.publisher.Publish(ctx, job); err != nil {
			log.Printf("publish memory ingest job failed: %v", err)
		}
	}

	return full.String(), streamErr
}

func (s *ChatService) invalidateHistory(ctx context.Context, userID uint, sessionID string) {
	if s.historyCache == nil {
		return
	}
	_ = s.historyCache.MarkDirty(ctx, userID, sessionID)
	_ = s.historyCache.DeleteHistory(ctx, userID, sessionID)
}
