package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, raw := range []string{"admin", "helper", "tutor"} {
		role, err := ParseRole(raw)
		require.NoError(t, err)
		assert.Equal(t, Role(raw), role)
	}

	for _, raw := range []string{"", "Admin", "helper ", "superuser"} {
		_, err := ParseRole(raw)
		assert.ErrorIs(t, err, ErrUnknownRole, raw)
	}
}

func TestParseRolesFailsOnFirstUnknown(t *testing.T) {
	roles, err := ParseRoles([]string{"tutor", "helper"})
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleTutor, RoleHelper}, roles)

	_, err = ParseRoles([]string{"tutor", "janitor"})
	assert.ErrorIs(t, err, ErrUnknownRole)
}
