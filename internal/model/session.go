package model

import "time"

// Session is one conversation owned by exactly one user. The id is an opaque
// uuid so a session id alone never doubles as a capability token.
type Session struct {
	ID        string    `gorm:"size:36;primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	CreatedAt time.Time `json:"session_start"`
}
