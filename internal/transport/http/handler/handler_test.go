package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"household-helper/internal/agent"
	"household-helper/internal/app"
	"household-helper/internal/memory"
	"household-helper/internal/model"
	"household-helper/internal/repository"
	"household-helper/internal/transport/http/middleware"
)

// newTestRouter wires the auth surface against a throwaway database: token
// issue, identity resolution and role gates, without the chat stack.
func newTestRouter(t *testing.T) (*gin.Engine, *app.UserService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.UserRole{}, &model.Session{}, &model.Message{}))

	userRepo := repository.NewUserRepository(db)
	authService := app.NewAuthService(userRepo, "test-secret", 30*time.Minute)
	userService := app.NewUserService(userRepo)

	tokenHandler := NewTokenHandler(authService)
	userHandler := NewUserHandler(userService)

	router := gin.New()
	router.POST("/token", tokenHandler.Issue)

	authed := router.Group("", middleware.BearerAuth(authService))
	authed.GET("/users/me", userHandler.Me)

	admin := authed.Group("", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users/admin_info", userHandler.AdminInfo)
	admin.POST("/users", userHandler.Create)

	return router, userService
}

func issueToken(t *testing.T, router *gin.Engine, username, password string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"token_type":"bearer"`)

	body := w.Body.String()
	const marker = `"access_token":"`
	start := strings.Index(body, marker)
	require.GreaterOrEqual(t, start, 0)
	rest := body[start+len(marker):]
	return rest[:strings.Index(rest, `"`)]
}

func TestTokenRejectsBadCredentials(t *testing.T) {
	router, userService := newTestRouter(t)
	_, err := userService.Create(app.CreateUserInput{
		Username: "alice", Password: "secret123", Roles: []string{"helper"},
	})
	require.NoError(t, err)

	form := url.Values{"username": {"alice"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	assert.Contains(t, w.Body.String(), `"detail"`)
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestMeReturnsIdentity(t *testing.T) {
	router, userService := newTestRouter(t)
	_, err := userService.Create(app.CreateUserInput{
		Username: "alice", Password: "secret123", Roles: []string{"helper", "tutor"},
	})
	require.NoError(t, err)

	token := issueToken(t, router, "alice", "secret123")
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
	assert.Contains(t, w.Body.String(), `"helper"`)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestAdminRouteForbiddenForNonAdmin(t *testing.T) {
	router, userService := newTestRouter(t)
	_, err := userService.Create(app.CreateUserInput{
		Username: "alice", Password: "secret123", Roles: []string{"helper"},
	})
	require.NoError(t, err)

	token := issueToken(t, router, "alice", "secret123")
	req := httptest.NewRequest(http.MethodGet, "/users/admin_info", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"detail"`)
}

func TestAdminCanCreateUser(t *testing.T) {
	router, userService := newTestRouter(t)
	_, err := userService.Create(app.CreateUserInput{
		Username: "root", Password: "secret123", Roles: []string{"admin"},
	})
	require.NoError(t, err)

	token := issueToken(t, router, "root", "secret123")

	body := `{"username":"bob","password":"secret123","roles":["tutor"]}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"bob"`)

	adminInfo := httptest.NewRequest(http.MethodGet, "/users/admin_info", nil)
	adminInfo.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, adminInfo)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello admin root")
}

// stubAgent plays back fixed deltas without touching a model endpoint.
type stubAgent struct {
	deltas []string
}

func (a *stubAgent) Name() string { return "stub" }

func (a *stubAgent) Stream(ctx context.Context, text string, handle *memory.Handle) <-chan agent.Fragment {
	ch := make(chan agent.Fragment)
	go func() {
		defer close(ch)
		for _, delta := range a.deltas {
			ch <- agent.Fragment{Delta: delta}
		}
	}()
	return ch
}

// newChatTestRouter mounts the agent routes with their role gates on top of
// the auth surface, backed by a stub agent.
func newChatTestRouter(t *testing.T) (*gin.Engine, *app.UserService, *app.ChatService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.UserRole{}, &model.Session{}, &model.Message{}))

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	authService := app.NewAuthService(userRepo, "test-secret", 30*time.Minute)
	userService := app.NewUserService(userRepo)

	binder := memory.NewBinder(sessionRepo, messageRepo, nil, 100)
	chatService := app.NewChatService(sessionRepo, messageRepo, binder, nil, nil)

	helperHandler := NewChatHandler(chatService, &stubAgent{deltas: []string{"Hel", "lo"}})
	tutorHandler := NewChatHandler(chatService, &stubAgent{deltas: []string{"step one"}})

	router := gin.New()
	router.POST("/token", NewTokenHandler(authService).Issue)

	authed := router.Group("", middleware.BearerAuth(authService))
	authed.POST("/query", middleware.RequireRole(model.RoleHelper), helperHandler.Stream)
	authed.POST("/tutor", middleware.RequireRole(model.RoleTutor), tutorHandler.Stream)

	return router, userService, chatService
}

func postChat(t *testing.T, router *gin.Engine, path, token, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path+"?session_id="+sessionID, strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatRoutesForbiddenWithoutMatchingRole(t *testing.T) {
	router, userService, chatService := newChatTestRouter(t)

	boss, err := userService.Create(app.CreateUserInput{
		Username: "boss", Password: "secret123", Roles: []string{"admin"},
	})
	require.NoError(t, err)
	helper, err := userService.Create(app.CreateUserInput{
		Username: "helper1", Password: "secret123", Roles: []string{"helper"},
	})
	require.NoError(t, err)

	bossSession, err := chatService.CreateSession(boss.ID)
	require.NoError(t, err)
	helperSession, err := chatService.CreateSession(helper.ID)
	require.NoError(t, err)

	// Admin alone opens neither agent: roles do not imply each other.
	bossToken := issueToken(t, router, "boss", "secret123")
	for _, path := range []string{"/query", "/tutor"} {
		w := postChat(t, router, path, bossToken, bossSession.ID)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		assert.Contains(t, w.Body.String(), `"detail"`)
	}

	helperToken := issueToken(t, router, "helper1", "secret123")
	w := postChat(t, router, "/tutor", helperToken, helperSession.ID)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestQueryStreamsForHelper(t *testing.T) {
	router, userService, chatService := newChatTestRouter(t)

	helper, err := userService.Create(app.CreateUserInput{
		Username: "helper1", Password: "secret123", Roles: []string{"helper"},
	})
	require.NoError(t, err)
	session, err := chatService.CreateSession(helper.ID)
	require.NoError(t, err)

	token := issueToken(t, router, "helper1", "secret123")
	w := postChat(t, router, "/query", token, session.ID)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestQueryUnknownSession(t *testing.T) {
	router, userService, _ := newChatTestRouter(t)

	_, err := userService.Create(app.CreateUserInput{
		Username: "helper1", Password: "secret123", Roles: []string{"helper"},
	})
	require.NoError(t, err)

	token := issueToken(t, router, "helper1", "secret123")
	w := postChat(t, router, "/query", token, "no-such-session")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"detail"`)
}

func TestQueryForeignSession(t *testing.T) {
	router, userService, chatService := newChatTestRouter(t)

	owner, err := userService.Create(app.CreateUserInput{
		Username: "owner", Password: "secret123", Roles: []string{"helper"},
	})
	require.NoError(t, err)
	_, err = userService.Create(app.CreateUserInput{
		Username: "intruder", Password: "secret123", Roles: []string{"helper"},
	})
	require.NoError(t, err)

	session, err := chatService.CreateSession(owner.ID)
	require.NoError(t, err)

	token := issueToken(t, router, "intruder", "secret123")
	w := postChat(t, router, "/query", token, session.ID)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"detail"`)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	router, userService := newTestRouter(t)
	_, err := userService.Create(app.CreateUserInput{
		Username: "root", Password: "secret123", Roles: []string{"admin"},
	})
	require.NoError(t, err)

	token := issueToken(t, router, "root", "secret123")
	body := `{"username":"bob","password":"secret123","roles":["wizard"]}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"detail"`)
}
