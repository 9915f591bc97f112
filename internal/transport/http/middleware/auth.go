package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"household-helper/internal/app"
	"household-helper/internal/model"
	"household-helper/internal/transport/http/response"
)

const ContextIdentityKey = "identity"

// BearerAuth extracts the bearer token, resolves it to a live identity and
// stores it in the request context. Resolution hits the credential store, so
// a deleted or disabled user is rejected even with an unexpired token.
func BearerAuth(authService *app.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			unauthorized(c)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		identity, err := authService.ResolveIdentity(token)
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// RequireRole gates a route group on one role. Runs after BearerAuth.
func RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			unauthorized(c)
			return
		}
		if !identity.HasRole(role) {
			response.Detail(c, http.StatusForbidden, "operation not permitted for this user")
			c.Abort()
			return
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (*app.Identity, bool) {
	value, exists := c.Get(ContextIdentityKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*app.Identity)
	return identity, ok
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Detail(c, http.StatusUnauthorized, "could not validate credentials")
	c.Abort()
}
