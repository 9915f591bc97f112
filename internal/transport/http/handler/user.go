package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"household-helper/internal/app"
	"household-helper/internal/model"
	"household-helper/internal/transport/http/middleware"
	"household-helper/internal/transport/http/response"
)

type UserHandler struct {
	userService *app.UserService
}

type CreateUserRequest struct {
	Username string   `json:"username" binding:"required"`
	Password string   `json:"password" binding:"required"`
	Roles    []string `json:"roles" binding:"required"`
}

type UpdateUserRequest struct {
	Password string   `json:"password"`
	Roles    []string `json:"roles" binding:"required"`
}

func NewUserHandler(userService *app.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Detail(c, http.StatusBadRequest, "username, password and roles are required")
		return
	}

	identity, err := h.userService.Create(app.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrDuplicateUser),
			errors.Is(err, app.ErrInvalidInput),
			errors.Is(err, model.ErrUnknownRole):
			response.Detail(c, http.StatusBadRequest, err.Error())
		default:
			response.Detail(c, http.StatusInternalServerError, "create user failed")
		}
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List()
	if err != nil {
		response.Detail(c, http.StatusInternalServerError, "list users failed")
		return
	}
	c.JSON(http.StatusOK, users)
}

// Update replaces the role set and optionally the password.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Detail(c, http.StatusBadRequest, "roles are required")
		return
	}

	identity, err := h.userService.Update(id, app.UpdateUserInput{
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUserNotFound),
			errors.Is(err, app.ErrInvalidInput),
			errors.Is(err, model.ErrUnknownRole):
			response.Detail(c, http.StatusBadRequest, err.Error())
		default:
			response.Detail(c, http.StatusInternalServerError, "update user failed")
		}
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	if err := h.userService.Delete(id); err != nil {
		if errors.Is(err, app.ErrUserNotFound) {
			response.Detail(c, http.StatusBadRequest, err.Error())
			return
		}
		response.Detail(c, http.StatusInternalServerError, "delete user failed")
		return
	}
	response.Success(c, http.StatusOK)
}

// Me returns the caller's resolved identity.
func (h *UserHandler) Me(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Detail(c, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	c.JSON(http.StatusOK, identity)
}

// AdminInfo is a role-gated probe: reaching it at all proves the caller holds
// the admin role.
func (h *UserHandler) AdminInfo(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Detail(c, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "hello admin " + identity.Username})
}

func parseUserID(c *gin.Context) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id64 == 0 {
		response.Detail(c, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return uint(id64), true
}
