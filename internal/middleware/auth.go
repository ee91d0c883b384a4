// Package middleware provides the gin middleware for the HTTP layer:
// JWT authentication and request logging.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/planhub/staffing/internal/auth"
)

// identityKey is the gin context key the authenticated identity is stored
// under.
const identityKey = "staffing.identity"

// Identity is the authenticated caller extracted from the session token.
type Identity struct {
	UserID         string
	OrganizationID string
	Email          string
}

// GetIdentity extracts the authenticated identity from the gin context.
// The zero Identity is returned when the request is unauthenticated.
func GetIdentity(c *gin.Context) Identity {
	id, _ := c.Get(identityKey)
	identity, _ := id.(Identity)
	return identity
}

// RequireAuth returns middleware that validates the Bearer token and stores
// the caller's identity in the context. Requests without a valid token are
// rejected with 401.
func RequireAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingToken.Error()})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		claims, err := jwtManager.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		c.Set(identityKey, Identity{
			UserID:         claims.UserID,
			OrganizationID: claims.OrganizationID,
			Email:          claims.Email,
		})
		c.Next()
	}
}
