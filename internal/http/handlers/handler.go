package handlers

import (
	"context"
	"errors"
	"net/http"

	"dubnacoin/internal/domain"
	"dubnacoin/internal/http/middleware"
	"dubnacoin/internal/logger"
	"dubnacoin/internal/service"
	"dubnacoin/internal/telegram"
	"dubnacoin/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type PayloadVerifier interface {
	Verify(initData string) (*telegram.InitData, error)
}

type IdentityBinder interface {
	Bind(ctx context.Context, data *telegram.InitData, referrerHint string) (*service.BindResult, error)
}

type Economy interface {
	RecordClick(ctx context.Context, playerID int64) (int64, error)
	Buy(ctx context.Context, playerID int64, item string) (*service.OperationResult, error)
	Snapshot(ctx context.Context, playerID int64) (*domain.Snapshot, error)
	NextAutoclickerCost(tier int) int64
	Skins() ([]service.SkinItem, error)
}

type PlayerReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Player, error)
}

type Referrals interface {
	ListReferees(ctx context.Context, referrerID int64) ([]domain.Friend, error)
}

type ErrorReporter interface {
	Create(ctx context.Context, report *domain.ErrorReport) error
}

// Handler serves the game API. Every dependency is an interface so the
// handlers can be exercised without a database.
type Handler struct {
	Verifier  PayloadVerifier
	Identity  IdentityBinder
	Economy   Economy
	Players   PlayerReader
	Referrals Referrals
	Reports   ErrorReporter
	Tokens    middleware.TokenParser
	Hub       *ws.Hub
	Upgrader  *websocket.Upgrader
}

// playerID returns the authenticated player or aborts with 401.
func playerID(c *gin.Context) (int64, bool) {
	id, ok := middleware.PlayerID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
	}
	return id, ok
}

// respondError maps non-business failures to a status code.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrPlayerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}
	logger.FromContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
