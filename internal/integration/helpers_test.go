package integration

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"dubnacoin/internal/domain"
	"dubnacoin/internal/service"
	"dubnacoin/internal/telegram"

	"github.com/jackc/pgx/v5/pgxpool"
)

const testJWTSecret = "integration-secret"

// nextID hands out player ids that do not collide across test runs against
// the same database.
var nextID = time.Now().UnixMicro()

func newPlayerID() int64 {
	return atomic.AddInt64(&nextID, 1)
}

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(migDir, name))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := db.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", name, err)
		}
	}
}

func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	applyMigrations(t, db)
	return db
}

type services struct {
	tokens    *service.TokenService
	identity  *service.IdentityService
	economy   *service.EconomyService
	referrals *service.ReferralService
}

func newServices(t *testing.T, db *pgxpool.Pool, skinsDir string) *services {
	t.Helper()
	tokens, err := service.NewTokenService(testJWTSecret, 0)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	if skinsDir == "" {
		skinsDir = t.TempDir()
	}
	skins, err := service.LoadSkinCatalog(skinsDir)
	if err != nil {
		t.Fatalf("skin catalog: %v", err)
	}
	audit := service.NewAuditService(db)
	referrals := service.NewReferralService(db)
	return &services{
		tokens:    tokens,
		identity:  service.NewIdentityService(db, tokens, referrals, audit),
		economy:   service.NewEconomyService(db, skins, domain.PricingScaled, audit),
		referrals: referrals,
	}
}

func launch(id int64, first string) *telegram.InitData {
	return &telegram.InitData{User: telegram.WebAppUser{ID: id, Username: "u" + first, FirstName: first}}
}

func bind(t *testing.T, s *services, id int64, hint string) *service.BindResult {
	t.Helper()
	res, err := s.identity.Bind(context.Background(), launch(id, "Player"), hint)
	if err != nil {
		t.Fatalf("bind %d: %v", id, err)
	}
	return res
}

func setEconomy(t *testing.T, db *pgxpool.Pool, id, coins int64, level, tier int) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`UPDATE economy_states SET coins = $2, level = $3, level_cost = $4, autoclicker_tier = $5 WHERE player_id = $1`,
		id, coins, level, domain.InitialLevelCost+int64(level-1)*domain.LevelCostStep, tier,
	)
	if err != nil {
		t.Fatalf("set economy: %v", err)
	}
}

func coinsOf(t *testing.T, s *services, id int64) int64 {
	t.Helper()
	snap, err := s.economy.Snapshot(context.Background(), id)
	if err != nil {
		t.Fatalf("snapshot %d: %v", id, err)
	}
	return snap.Coins
}
