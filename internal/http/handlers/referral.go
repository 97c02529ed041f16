package handlers

import (
	"net/http"

	"dubnacoin/internal/domain"

	"github.com/gin-gonic/gin"
)

// Friends lists the players the caller referred.
func (h *Handler) Friends(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}

	friends, err := h.Referrals.ListReferees(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"friends":          friends,
		"count":            len(friends),
		"bonus_per_friend": domain.ReferralBonus,
	})
}
