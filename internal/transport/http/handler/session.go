package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"household-helper/internal/app"
	"household-helper/internal/transport/http/middleware"
	"household-helper/internal/transport/http/response"
)

type SessionHandler struct {
	chatService *app.ChatService
}

func NewSessionHandler(chatService *app.ChatService) *SessionHandler {
	return &SessionHandler{chatService: chatService}
}

func (h *SessionHandler) Create(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Detail(c, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	session, err := h.chatService.CreateSession(identity.ID)
	if err != nil {
		response.Detail(c, http.StatusInternalServerError, "create session failed")
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) List(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Detail(c, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	sessions, err := h.chatService.ListSessions(identity.ID)
	if err != nil {
		response.Detail(c, http.StatusInternalServerError, "list sessions failed")
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// Recent returns the newest session, or null when the user has none.
func (h *SessionHandler) Recent(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Detail(c, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	session, err := h.chatService.MostRecentSession(identity.ID)
	if err != nil {
		response.Detail(c, http.StatusInternalServerError, "fetch recent session failed")
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Detail(c, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	sessionID := c.Param("id")
	if err := h.chatService.DeleteSession(identity.ID, sessionID); err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound), errors.Is(err, app.ErrInvalidInput):
			response.Detail(c, http.StatusBadRequest, "session does not exist")
		default:
			response.Detail(c, http.StatusInternalServerError, "delete session failed")
		}
		return
	}
	response.Success(c, http.StatusOK)
}
