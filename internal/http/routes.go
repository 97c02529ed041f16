package http

import (
	"dubnacoin/internal/config"
	"dubnacoin/internal/http/handlers"
	"dubnacoin/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the health probes, metrics and the /api/v1 game API.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler, limiter *middleware.RateLimiter, cfg *config.Config) {
	// Health checks (no rate limiting)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(limiter.ByIP("api", cfg.APIRateLimit, cfg.APIRateWindow))

	v1.POST("/auth", limiter.ByIP("auth", cfg.AuthRateLimit, cfg.AuthRateWindow), h.Auth)

	// The balance feed authenticates with ?token= during the handshake.
	v1.GET("/ws", h.WS)

	authed := v1.Group("")
	authed.Use(middleware.JWT(h.Tokens))
	{
		authed.GET("/me", h.Me)
		authed.POST("/click", limiter.ByPlayer("click", cfg.ClickRateLimit, cfg.ClickRateWindow), h.Click)
		authed.POST("/buy", h.Buy)
		authed.GET("/shop", h.Shop)
		authed.GET("/friends", h.Friends)
		authed.POST("/report_error", h.ReportError)
	}
}
