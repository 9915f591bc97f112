package model

import (
	"errors"
	"fmt"
)

// Role is a capability tag attached to a user. Authorization is plain set
// membership: holding "admin" does not imply "helper" or "tutor".
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleHelper Role = "helper"
	RoleTutor  Role = "tutor"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole rejects anything outside the closed role set, so typos fail at
// the API boundary instead of silently never matching.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin, RoleHelper, RoleTutor:
		return Role(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
}

// ParseRoles converts a request's role list, failing on the first unknown tag.
func ParseRoles(raw []string) ([]Role, error) {
	roles := make([]Role, 0, len(raw))
	for _, r := range raw {
		role, err := ParseRole(r)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// UserRole is one role-membership row. (user_id, role) is unique per user.
type UserRole struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex:idx_user_role" json:"user_id"`
	Role   Role `gorm:"size:32;not null;uniqueIndex:idx_user_role" json:"role"`
}
