package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"dubnacoin/internal/domain"
	"dubnacoin/internal/repository"
)

func TestBind_CreatesOnceAndKeepsName(t *testing.T) {
	db := setupDB(t)
	s := newServices(t, db, "")
	ctx := context.Background()
	id := newPlayerID()

	first, err := s.identity.Bind(ctx, launch(id, "First"), "")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if !first.Created || first.Economy.Level != 1 || first.Economy.LevelCost != 1000 || first.Player.CurrentSkin != domain.DefaultSkin {
		t.Fatalf("first bind = %+v / %+v", first.Player, first.Economy)
	}

	second, err := s.identity.Bind(ctx, launch(id, "Renamed"), "")
	if err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if second.Created || second.Player.Name != "First" {
		t.Fatalf("returning player overwritten: %+v", second.Player)
	}

	parsed, err := s.tokens.Parse(second.Token)
	if err != nil || parsed != id {
		t.Fatalf("token resolves to %d, %v; want %d", parsed, err, id)
	}
}

func TestBind_ConcurrentFirstLaunch(t *testing.T) {
	db := setupDB(t)
	s := newServices(t, db, "")
	id := newPlayerID()

	const n = 8
	var wg sync.WaitGroup
	created := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.identity.Bind(context.Background(), launch(id, "Racer"), "")
			if err != nil {
				t.Errorf("bind: %v", err)
				return
			}
			created <- res.Created
		}()
	}
	wg.Wait()
	close(created)

	count := 0
	for c := range created {
		if c {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("player created %d times; want 1", count)
	}
}

func TestRecordClick_Concurrent(t *testing.T) {
	db := setupDB(t)
	s := newServices(t, db, "")
	id := newPlayerID()
	bind(t, s, id, "")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.economy.RecordClick(context.Background(), id); err != nil {
				t.Errorf("click: %v", err)
			}
		}()
	}
	wg.Wait()

	snap, err := s.economy.Snapshot(context.Background(), id)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Coins != n || snap.Clicks != n {
		t.Fatalf("after %d concurrent clicks coins=%d clicks=%d", n, snap.Coins, snap.Clicks)
	}
}

func TestLevelUpScenario(t *testing.T) {
	db := setupDB(t)
	s := newServices(t, db, "")
	ctx := context.Background()
	id := newPlayerID()
	bind(t, s, id, "")

	for i := 0; i < 3; i++ {
		if _, err := s.economy.RecordClick(ctx, id); err != nil {
			t.Fatalf("click: %v", err)
		}
	}

	res, err := s.economy.Buy(ctx, id, "level_up")
	if !errors.Is(err, domain.ErrInsufficientFunds) || res.Success || res.Coins != 3 {
		t.Fatalf("level up with 3 coins: %+v, %v", res, err)
	}

	setEconomy(t, db, id, 1000, 1, 0)
	res, err = s.economy.Buy(ctx, id, "level_up")
	if err != nil || !res.Success || res.Coins != 0 {
		t.Fatalf("level up with 1000 coins: %+v, %v", res, err)
	}
	snap, _ := s.economy.Snapshot(ctx, id)
	if snap.Level != 2 || snap.LevelCost != 2000 {
		t.Fatalf("after level up: %+v", snap)
	}

	coins, err := s.economy.RecordClick(ctx, id)
	if err != nil || coins != 2 {
		t.Fatalf("level 2 click = %d, %v; want 2", coins, err)
	}

	txs, err := repository.NewTransactionRepository(db).ListByPlayer(ctx, id, 10)
	if err != nil || len(txs) != 1 || txs[0].Type != domain.TxLevelUp || txs[0].Amount != -1000 {
		t.Fatalf("ledger = %+v, %v", txs, err)
	}
}

func TestLevelUp_MaxLevel(t *testing.T) {
	db := setupDB(t)
	s := newServices(t, db, "")
	ctx := context.Background()
	id := newPlayerID()
	bind(t, s, id, "")
	setEconomy(t, db, id, 1_000_000, domain.MaxLevel, 0)

	res, err := s.economy.LevelUp(ctx, id)
	if !errors.Is(err, domain.ErrMaxLevelReached) || res.Success || res.Coins != 1_000_000 {
		t.Fatalf("level up at max: %+v, %v", res, err)
	}
	if res.Message != "Maximum level reached." {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestUpgradeAutoclicker_Scaled(t *testing.T) {
	db := setupDB(t)
	s := newServices(t, db, "")
	ctx := context.Background()
	id := newPlayerID()
	bind(t, s, id, "")
	setEconomy(t, db, id, 6000, 1, 0)

	if res, err := s.economy.UpgradeAutoclicker(ctx, id); err != nil || res.Coins != 4000 {
		t.Fatalf("first upgrade: %+v, %v", res, err)
	}
	if res, err := s.economy.UpgradeAutoclicker(ctx, id); err != nil || res.Coins != 0 {
		t.Fatalf("second upgrade: %+v, %v", res, err)
	}
	res, err := s.economy.UpgradeAutoclicker(ctx, id)
	if !errors.Is(err, domain.ErrInsufficientFunds) || res.Success {
		t.Fatalf("third upgrade: %+v, %v", res, err)
	}

	snap, _ := s.economy.Snapshot(ctx, id)
	if snap.AutoclickerTier != 2 {
		t.Fatalf("tier = %d; want 2", snap.AutoclickerTier)
	}
}

func TestPurchaseSkin(t *testing.T) {
	db := setupDB(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "skin_500.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("write skin: %v", err)
	}
	s := newServices(t, db, dir)
	ctx := context.Background()
	id := newPlayerID()
	bind(t, s, id, "")
	setEconomy(t, db, id, 600, 1, 0)

	res, err := s.economy.Buy(ctx, id, "skin_900")
	if !errors.Is(err, domain.ErrInvalidItem) || res.Success || res.Message != "Invalid item." || res.Coins != 600 {
		t.Fatalf("missing asset: %+v, %v", res, err)
	}

	res, err = s.economy.Buy(ctx, id, "skin_500")
	if err != nil || !res.Success || res.Coins != 100 {
		t.Fatalf("purchase: %+v, %v", res, err)
	}
	snap, _ := s.economy.Snapshot(ctx, id)
	if snap.EquippedSkin != "skin_500.png" {
		t.Fatalf("equipped = %q", snap.EquippedSkin)
	}

	res, err = s.economy.Buy(ctx, id, "skin_500")
	if !errors.Is(err, domain.ErrInsufficientFunds) || res.Message != "Not enough coins to buy this skin." {
		t.Fatalf("second purchase: %+v, %v", res, err)
	}
}

func TestEconomy_UnknownPlayer(t *testing.T) {
	db := setupDB(t)
	s := newServices(t, db, "")
	ctx := context.Background()
	id := newPlayerID()

	if _, err := s.economy.RecordClick(ctx, id); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("click err = %v", err)
	}
	if _, err := s.economy.Buy(ctx, id, "teleport"); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("buy err = %v", err)
	}
	if _, err := s.economy.Snapshot(ctx, id); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("snapshot err = %v", err)
	}
}
