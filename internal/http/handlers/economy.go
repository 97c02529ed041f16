package handlers

import (
	"net/http"
	"strings"

	"dubnacoin/internal/domain"

	"github.com/gin-gonic/gin"
)

// Click credits one tap.
func (h *Handler) Click(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}

	coins, err := h.Economy.RecordClick(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coins": coins})
}

type BuyRequest struct {
	Item string `json:"item"`
}

// Buy purchases a shop item. Business rejections such as a short balance
// are a normal 200 response with success=false.
func (h *Handler) Buy(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}

	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Item) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item is required"})
		return
	}

	res, err := h.Economy.Buy(c.Request.Context(), id, strings.TrimSpace(req.Item))
	if err != nil && !(res != nil && domain.IsBusinessError(err)) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Shop returns what the player can buy and at what price.
func (h *Handler) Shop(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}

	snap, err := h.Economy.Snapshot(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	skins, err := h.Economy.Skins()
	if err != nil {
		respondError(c, err)
		return
	}

	nextLevel := gin.H{"available": snap.Level < domain.MaxLevel, "cost": snap.LevelCost}
	c.JSON(http.StatusOK, gin.H{
		"economy":     snap,
		"level_up":    nextLevel,
		"autoclicker": gin.H{"tier": snap.AutoclickerTier, "cost": h.Economy.NextAutoclickerCost(snap.AutoclickerTier)},
		"skins":       skins,
	})
}
