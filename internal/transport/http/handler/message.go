package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"household-helper/internal/app"
	"household-helper/internal/transport/http/middleware"
	"household-helper/internal/transport/http/response"
)

type MessageHandler struct {
	chatService *app.ChatService
}

func NewMessageHandler(chatService *app.ChatService) *MessageHandler {
	return &MessageHandler{chatService: chatService}
}

// History lists recent messages for a session, newest first. The lookup is
// scoped to the caller, so someone else's session id yields an empty list.
func (h *MessageHandler) History(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Detail(c, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	sessionID := c.Param("session_id")
	if sessionID == "" {
		response.Detail(c, http.StatusBadRequest, "session_id is required")
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	messages, err := h.chatService.History(c.Request.Context(), identity.ID, sessionID, limit)
	if err != nil {
		response.Detail(c, http.StatusInternalServerError, "fetch history failed")
		return
	}
	c.JSON(http.StatusOK, messages)
}
