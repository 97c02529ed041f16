// Command create_test_user signs a launch payload with the configured bot
// token, binds it like a real launch and prints the capability token. For
// local development against a real database.
package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"

	"dubnacoin/internal/config"
	"dubnacoin/internal/db"
	"dubnacoin/internal/logger"
	"dubnacoin/internal/service"
	"dubnacoin/internal/telegram"
)

func main() {
	id := flag.Int64("id", 1234567890, "telegram user id")
	username := flag.String("username", "testuser", "telegram username")
	firstName := flag.String("first-name", "Tester", "first name")
	referrer := flag.String("referrer", "", "referrer id for a first launch")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	pool := db.Connect(ctx, cfg.DatabaseURL, 2)
	defer pool.Close()

	initData := telegram.Sign(cfg.BotToken, map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user": telegram.UserJSON(telegram.WebAppUser{
			ID:        *id,
			Username:  *username,
			FirstName: *firstName,
		}),
	})

	verifier, err := telegram.NewVerifier(cfg.BotToken, cfg.InitDataMaxAge)
	if err != nil {
		logger.Fatal("verifier", "error", err)
	}
	data, err := verifier.Verify(initData)
	if err != nil {
		logger.Fatal("signed payload did not verify", "error", err)
	}

	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Fatal("token service", "error", err)
	}
	audit := service.NewAuditService(pool)
	identity := service.NewIdentityService(pool, tokens, service.NewReferralService(pool), audit)

	res, err := identity.Bind(ctx, data, *referrer)
	if err != nil {
		logger.Fatal("bind failed", "error", err)
	}

	logger.Info("player ready",
		"id", res.Player.ID,
		"name", res.Player.Name,
		"created", res.Created,
		"referred", res.Referred,
		"coins", res.Economy.Coins,
	)
	fmt.Printf("init_data=%s\n", initData)
	fmt.Printf("token=%s\n", res.Token)
}
