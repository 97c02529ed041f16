package handlers

import (
	"net/http"

	"dubnacoin/internal/http/middleware"
	"dubnacoin/internal/logger"
	"dubnacoin/internal/metrics"
	"dubnacoin/internal/ws"

	"github.com/gin-gonic/gin"
)

// WS opens the balance feed. Browsers cannot set headers on a websocket
// handshake, so the token may also come from the query string.
func (h *Handler) WS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = middleware.BearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}

	id, err := h.Tokens.Parse(token)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("invalid_token").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if err := ws.Serve(h.Hub, h.Upgrader, c.Writer, c.Request, id); err != nil {
		logger.FromContext(c.Request.Context()).Warn("ws upgrade failed", "error", err)
	}
}
