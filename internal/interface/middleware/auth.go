package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quillside/quillside-api/pkg/auth"
	"github.com/quillside/quillside-api/pkg/response"
)

const CtxUserIDKey = "userID"

// Auth validates the bearer session token and injects the user ID into the
// Gin context. Tokens are stateless; expiry is the only invalidation.
func Auth(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" || token == header {
			response.AbortError(c, http.StatusUnauthorized, "missing access token")
			return
		}
		uid, err := tokens.Verify(token)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, "invalid access token")
			return
		}
		c.Set(CtxUserIDKey, uid)
		c.Next()
	}
}
