package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"household-helper/internal/model"
	"household-helper/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.UserRole{}, &model.Session{}, &model.Message{}))
	return db
}

func newAuthFixture(t *testing.T) (*AuthService, *UserService) {
	t.Helper()
	userRepo := repository.NewUserRepository(newTestDB(t))
	return NewAuthService(userRepo, "test-secret", 30 * time.Minute), NewUserService(userRepo)
}

func TestLoginAndResolveIdentity(t *testing.T) {
	authService, userService := newAuthFixture(t)
	_, err := userService.Create(CreateUserInput{
		Username: "alice",
		Password: "secret123",
		Roles:    []string{"helper", "tutor"},
	})
	require.NoError(t, err)

	token, err := authService.Login("alice", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := authService.ResolveIdentity(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)
	assert.True(t, identity.HasRole(model.RoleHelper))
	assert.True(t, identity.HasRole(model.RoleTutor))
	assert.False(t, identity.HasRole(model.RoleAdmin))
}

func TestLoginWrongPassword(t *testing.T) {
	authService, userService := newAuthFixture(t)
	_, err := userService.Create(CreateUserInput{
		Username: "alice", Password: "secret123", Roles: []string{"helper"},
	})
	require.NoError(t, err)

	_, err = authService.Login("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestLoginUnknownUser(t *testing.T) {
	authService, _ := newAuthFixture(t)
	_, err := authService.Login("nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestResolveIdentityRejectsGarbage(t *testing.T) {
	authService, _ := newAuthFixture(t)
	_, err := authService.ResolveIdentity("not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestResolveIdentityRejectsDeletedUser(t *testing.T) {
	authService, userService := newAuthFixture(t)
	created, err := userService.Create(CreateUserInput{
		Username: "alice", Password: "secret123", Roles: []string{"helper"},
	})
	require.NoError(t, err)

	token, err := authService.Login("alice", "secret123")
	require.NoError(t, err)

	require.NoError(t, userService.Delete(created.ID))

	// The token still verifies cryptographically but its subject is gone.
	_, err = authService.ResolveIdentity(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
