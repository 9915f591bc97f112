package repository

import (
	"fmt"

	"gorm.io/gorm"

	"household-helper/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

// ListRecent returns up to limit messages for the session, newest first.
// Both session id and user id filter the query: a session id belonging to
// someone else yields nothing, never their transcript.
func (r *MessageRepository) ListRecent(sessionID string, userID uint, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var messages []model.Message
	if err := r.db.Where("session_id = ? AND user_id = ?", sessionID, userID).
		Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

// ListUserTurns returns up to limit of the owner's own turns (role "user"),
// newest first. Callers seeding a memory handle must reverse the slice into
// chronological order before use.
func (r *MessageRepository) ListUserTurns(sessionID string, userID uint, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var messages []model.Message
	if err := r.db.Where("session_id = ? AND user_id = ? AND role = ?",
		sessionID, userID, model.MessageRoleUser).
		Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list user turns failed: %w", err)
	}
	return messages, nil
}
