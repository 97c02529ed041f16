package middleware

import (
	"net/http"
	"strings"

	"dubnacoin/internal/logger"
	"dubnacoin/internal/metrics"

	"github.com/gin-gonic/gin"
)

// PlayerIDKey is the gin context key holding the authenticated player id.
const PlayerIDKey = "player_id"

// TokenParser resolves a capability token to a player id.
type TokenParser interface {
	Parse(token string) (int64, error)
}

// JWT requires a valid "Authorization: Bearer <token>" header.
func JWT(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			metrics.AuthFailures.WithLabelValues("missing_token").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		playerID, err := tokens.Parse(token)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("invalid_token").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(PlayerIDKey, playerID)
		c.Request = c.Request.WithContext(logger.WithAttrs(c.Request.Context(), "player_id", playerID))
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// PlayerID returns the id stored by JWT.
func PlayerID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(PlayerIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
