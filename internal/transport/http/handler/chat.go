package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"household-helper/internal/app"
	"household-helper/internal/transport/http/middleware"
	"household-helper/internal/transport/http/response"
)

// ChatHandler streams agent replies as chunked plain text. Each agent route
// gets its own handler instance bound to one agent.
type ChatHandler struct {
	chatService *app.ChatService
	agent       app.StreamAgent
}

type ChatRequest struct {
	Text string `json:"text" binding:"required"`
}

func NewChatHandler(chatService *app.ChatService, agent app.StreamAgent) *ChatHandler {
	return &ChatHandler{chatService: chatService, agent: agent}
}

func (h *ChatHandler) Stream(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Detail(c, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		response.Detail(c, http.StatusBadRequest, "session_id is required")
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Detail(c, http.StatusBadRequest, "text is required")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Detail(c, http.StatusInternalServerError, "streaming not supported")
		return
	}

	wroteHeader := false
	_, err := h.chatService.Stream(c.Request.Context(), h.agent, app.StreamInput{
		UserID:    identity.ID,
		SessionID: sessionID,
		Text:      req.Text,
	}, func(delta string) error {
		if !wroteHeader {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
			c.Writer.WriteHeader(http.StatusOK)
			wroteHeader = true
		}
		if _, writeErr := c.Writer.WriteString(delta); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil && !wroteHeader {
		// Nothing streamed yet so a normal error body is still possible.
		switch {
		case errors.Is(err, app.ErrMessageEmpty), errors.Is(err, app.ErrSessionNotFound), errors.Is(err, app.ErrInvalidInput):
			response.Detail(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrSessionForbidden):
			response.Detail(c, http.StatusForbidden, err.Error())
		default:
			response.Detail(c, http.StatusInternalServerError, "chat stream failed")
		}
		return
	}
	// A mid-stream failure just truncates the body; the status line is gone.
}
