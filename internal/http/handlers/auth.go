package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"dubnacoin/internal/domain"
	"dubnacoin/internal/logger"
	"dubnacoin/internal/metrics"
	"dubnacoin/internal/telegram"

	"github.com/gin-gonic/gin"
)

const (
	maxInitDataLen = 4096
	maxAuthBody    = 16 << 10
)

// ReferrerID accepts the referrer as a JSON string or number.
type ReferrerID string

func (r *ReferrerID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = ReferrerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = ReferrerID(n.String())
	return nil
}

type AuthRequest struct {
	InitData   string     `json:"init_data"`
	ReferrerID ReferrerID `json:"referrer_id"`
}

type AuthResponse struct {
	Token   string          `json:"token"`
	Player  *domain.Player  `json:"player"`
	Economy domain.Snapshot `json:"economy"`
	Created bool            `json:"created"`
}

// Auth verifies the launch payload, binds it to a player and returns a
// capability token with the current economy snapshot.
func (h *Handler) Auth(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAuthBody)

	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if len(req.InitData) > maxInitDataLen {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "init_data too long"})
		return
	}

	ctx := c.Request.Context()
	data, err := h.Verifier.Verify(req.InitData)
	if err != nil {
		if telegram.IsStale(err) {
			metrics.AuthFailures.WithLabelValues("stale_init_data").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "stale_init_data"})
			return
		}
		metrics.AuthFailures.WithLabelValues("invalid_init_data").Inc()
		logger.FromContext(ctx).Info("launch payload rejected", "reason", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_init_data"})
		return
	}

	hint := string(req.ReferrerID)
	if hint == "" {
		hint = data.StartParam
	}

	res, err := h.Identity.Bind(ctx, data, hint)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token:   res.Token,
		Player:  res.Player,
		Economy: domain.NewSnapshot(*res.Economy, res.Player.CurrentSkin),
		Created: res.Created,
	})
}
