package handlers

import (
	"errors"
	"net/http"

	"dubnacoin/internal/domain"
	"dubnacoin/internal/repository"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Me(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	player, err := h.Players.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		err = domain.ErrPlayerNotFound
	}
	if err != nil {
		respondError(c, err)
		return
	}

	snap, err := h.Economy.Snapshot(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"player":  player,
		"economy": snap,
	})
}
