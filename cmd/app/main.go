package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dubnacoin/internal/config"
	"dubnacoin/internal/db"
	"dubnacoin/internal/domain"
	httpServer "dubnacoin/internal/http"
	"dubnacoin/internal/http/handlers"
	"dubnacoin/internal/http/middleware"
	"dubnacoin/internal/logger"
	"dubnacoin/internal/repository"
	"dubnacoin/internal/service"
	"dubnacoin/internal/telegram"
	"dubnacoin/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, cfg)
	stop()
	if err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}

// run owns every resource it opens and releases them before returning.
func run(ctx context.Context, cfg *config.Config) error {
	pool := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	defer pool.Close()

	verifier, err := telegram.NewVerifier(cfg.BotToken, cfg.InitDataMaxAge)
	if err != nil {
		return fmt.Errorf("init data verifier: %w", err)
	}
	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}
	pricing, err := domain.ParseAutoclickerPricing(cfg.AutoclickerPricing)
	if err != nil {
		return fmt.Errorf("AUTOCLICKER_PRICING: %w", err)
	}
	skins, err := service.LoadSkinCatalog(cfg.SkinsDir)
	if err != nil {
		return fmt.Errorf("skin catalog %s: %w", cfg.SkinsDir, err)
	}

	audit := service.NewAuditService(pool)
	referrals := service.NewReferralService(pool)
	identity := service.NewIdentityService(pool, tokens, referrals, audit)
	economy := service.NewEconomyService(pool, skins, pricing, audit)
	hub := ws.NewHub()
	scheduler := service.NewAccrualScheduler(economy, cfg.AccrualInterval, hub)

	limiter := middleware.NewRateLimiter()
	if err := limiter.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		logger.Warn("redis unavailable, rate limits are per instance", "error", err)
	}
	defer limiter.Close()

	h := &handlers.Handler{
		Verifier:  verifier,
		Identity:  identity,
		Economy:   economy,
		Players:   repository.NewPlayerRepository(pool),
		Referrals: referrals,
		Reports:   repository.NewErrorReportRepository(pool),
		Tokens:    tokens,
		Hub:       hub,
		Upgrader:  ws.NewUpgrader(cfg.AllowedOrigins),
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	health := handlers.NewHealthHandler(pool, hub, version)
	if limiter.Redis() != nil {
		health.AddProbe("redis", limiter, false)
	}
	httpServer.RegisterRoutes(r, h, health, limiter, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("server started", "port", cfg.AppPort, "version", version)
	return serve(ctx, srv, scheduler)
}

type runner interface {
	Run(ctx context.Context) error
}

// serve runs the HTTP server and the background workers until ctx is
// cancelled or one of them fails, then shuts the server down.
func serve(ctx context.Context, srv *http.Server, workers ...runner) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	for _, w := range workers {
		w := w
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		// no allow-list configured: accept any origin
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
