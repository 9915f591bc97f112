package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"household-helper/internal/app"
	"household-helper/internal/transport/http/response"
)

type TokenHandler struct {
	authService *app.AuthService
}

type TokenRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func NewTokenHandler(authService *app.AuthService) *TokenHandler {
	return &TokenHandler{authService: authService}
}

// Issue exchanges form credentials for a bearer token.
func (h *TokenHandler) Issue(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Detail(c, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredential) {
			c.Header("WWW-Authenticate", "Bearer")
			response.Detail(c, http.StatusUnauthorized, err.Error())
			return
		}
		response.Detail(c, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}
