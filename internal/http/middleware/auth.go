// Bearer-token authentication middleware.
//
// Token verification itself lives in the application layer; this middleware
// only extracts the Authorization header, delegates to a narrow TokenParser
// function, and stashes the resulting user id under the "userID" context key
// that the rest of the HTTP layer (handlers, idempotency, rate limiting)
// already reads.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenParser validates an access token and returns the subject user id.
// Implementations must return an error for expired, malformed, or forged
// tokens.
type TokenParser func(token string) (userID string, err error)

// RequireAuth rejects requests without a valid "Authorization: Bearer <jwt>"
// header. On success the authenticated user id is stored under "userID".
func RequireAuth(parse TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" || !strings.HasPrefix(raw, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "bearer token required",
			})
			return
		}
		uid, err := parse(strings.TrimSpace(strings.TrimPrefix(raw, "Bearer ")))
		if err != nil || uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "token invalid or expired",
			})
			return
		}
		c.Set("userID", uid)
		c.Next()
	}
}
