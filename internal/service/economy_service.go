package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dubnacoin/internal/domain"
	"dubnacoin/internal/metrics"
	"dubnacoin/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Buy item names.
const (
	ItemLevelUp            = "level_up"
	ItemUpgradeAutoclicker = "upgrade_autoclicker"
)

// OperationResult is the client-facing outcome of a purchase. Business
// failures carry Success=false and the unchanged balance.
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Coins   int64  `json:"coins"`
}

func succeeded(coins int64, msg string) *OperationResult {
	return &OperationResult{Success: true, Message: msg, Coins: coins}
}

func rejected(coins int64, msg string) *OperationResult {
	return &OperationResult{Success: false, Message: msg, Coins: coins}
}

// EconomyService applies the economy rules. Every mutation locks the
// player's economy row first, so clicks, purchases and accrual for one
// player are serialized while different players proceed in parallel.
type EconomyService struct {
	db           *pgxpool.Pool
	players      *repository.PlayerRepository
	economy      *repository.EconomyRepository
	transactions *repository.TransactionRepository
	skins        *SkinCatalog
	pricing      domain.AutoclickerPricing
	audit        *AuditService
}

func NewEconomyService(db *pgxpool.Pool, skins *SkinCatalog, pricing domain.AutoclickerPricing, audit *AuditService) *EconomyService {
	return &EconomyService{
		db:           db,
		players:      repository.NewPlayerRepository(db),
		economy:      repository.NewEconomyRepository(db),
		transactions: repository.NewTransactionRepository(db),
		skins:        skins,
		pricing:      pricing,
		audit:        audit,
	}
}

// mutate runs fn on the locked state and writes it back. When fn fails the
// transaction is rolled back and the state as read is returned with the
// error.
func (s *EconomyService) mutate(ctx context.Context, playerID int64, fn func(pgx.Tx, *domain.EconomyState) error) (*domain.EconomyState, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	state, err := s.economy.GetForUpdate(ctx, tx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock economy state: %w", err)
	}

	if err := fn(tx, state); err != nil {
		return state, err
	}

	if err := s.economy.UpdateWithTx(ctx, tx, state); err != nil {
		return nil, fmt.Errorf("update economy state: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return state, nil
}

func observe(op string, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case domain.IsBusinessError(err):
		outcome = metrics.OutcomeRejected
	case err != nil:
		outcome = metrics.OutcomeError
	}
	metrics.EconomyOps.WithLabelValues(op, outcome).Inc()
}

// RecordClick credits one click and returns the new balance.
func (s *EconomyService) RecordClick(ctx context.Context, playerID int64) (int64, error) {
	state, err := s.mutate(ctx, playerID, func(_ pgx.Tx, st *domain.EconomyState) error {
		st.ApplyClick()
		return nil
	})
	observe("click", err)
	if err != nil {
		return 0, err
	}
	return state.Coins, nil
}

func (s *EconomyService) LevelUp(ctx context.Context, playerID int64) (*OperationResult, error) {
	var cost int64
	state, err := s.mutate(ctx, playerID, func(tx pgx.Tx, st *domain.EconomyState) error {
		cost = st.LevelCost
		if err := st.ApplyLevelUp(); err != nil {
			return err
		}
		return s.transactions.CreateWithTx(ctx, tx, &domain.Transaction{
			PlayerID: playerID,
			Type:     domain.TxLevelUp,
			Amount:   -cost,
			Meta:     map[string]interface{}{"level": st.Level},
		})
	})
	observe(ItemLevelUp, err)

	switch {
	case errors.Is(err, domain.ErrMaxLevelReached):
		return rejected(state.Coins, "Maximum level reached."), err
	case errors.Is(err, domain.ErrInsufficientFunds):
		return rejected(state.Coins, "Not enough coins to level up."), err
	case err != nil:
		return nil, err
	}

	s.audit.LogPurchase(ctx, playerID, domain.AuditActionLevelUp, cost, state.Coins, map[string]interface{}{"level": state.Level})
	return succeeded(state.Coins, fmt.Sprintf("Level increased to %d!", state.Level)), nil
}

func (s *EconomyService) UpgradeAutoclicker(ctx context.Context, playerID int64) (*OperationResult, error) {
	var cost int64
	state, err := s.mutate(ctx, playerID, func(tx pgx.Tx, st *domain.EconomyState) error {
		cost = s.pricing.Cost(st.AutoclickerTier)
		if err := st.ApplyAutoclicker(cost); err != nil {
			return err
		}
		return s.transactions.CreateWithTx(ctx, tx, &domain.Transaction{
			PlayerID: playerID,
			Type:     domain.TxAutoclickerUpgrade,
			Amount:   -cost,
			Meta:     map[string]interface{}{"tier": st.AutoclickerTier},
		})
	})
	observe(ItemUpgradeAutoclicker, err)

	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return rejected(state.Coins, "Not enough coins to upgrade the autoclicker."), err
	case err != nil:
		return nil, err
	}

	s.audit.LogPurchase(ctx, playerID, domain.AuditActionAutoclicker, cost, state.Coins, map[string]interface{}{"tier": state.AutoclickerTier})
	return succeeded(state.Coins, "Autoclicker upgraded!"), nil
}

// PurchaseSkin buys and equips skinID.
func (s *EconomyService) PurchaseSkin(ctx context.Context, playerID int64, skinID string) (*OperationResult, error) {
	price, err := s.skins.Price(skinID)
	if err != nil {
		observe("skin", err)
		return s.rejectWithBalance(ctx, playerID, "Invalid item.", err)
	}

	skin := skinID + skinExt
	state, err := s.mutate(ctx, playerID, func(tx pgx.Tx, st *domain.EconomyState) error {
		if err := st.ApplySkin(price); err != nil {
			return err
		}
		if err := s.players.SetSkinWithTx(ctx, tx, playerID, skin); err != nil {
			return fmt.Errorf("equip skin: %w", err)
		}
		return s.transactions.CreateWithTx(ctx, tx, &domain.Transaction{
			PlayerID: playerID,
			Type:     domain.TxSkinPurchase,
			Amount:   -price,
			Meta:     map[string]interface{}{"skin": skin},
		})
	})
	observe("skin", err)

	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return rejected(state.Coins, "Not enough coins to buy this skin."), err
	case err != nil:
		return nil, err
	}

	s.audit.LogPurchase(ctx, playerID, domain.AuditActionSkin, price, state.Coins, map[string]interface{}{"skin": skin})
	return succeeded(state.Coins, fmt.Sprintf("Skin for %d purchased!", price)), nil
}

// Buy dispatches a shop item: level_up, upgrade_autoclicker or skin_<price>.
func (s *EconomyService) Buy(ctx context.Context, playerID int64, item string) (*OperationResult, error) {
	switch {
	case item == ItemLevelUp:
		return s.LevelUp(ctx, playerID)
	case item == ItemUpgradeAutoclicker:
		return s.UpgradeAutoclicker(ctx, playerID)
	case strings.HasPrefix(item, skinPrefix):
		return s.PurchaseSkin(ctx, playerID, item)
	default:
		observe("unknown", domain.ErrInvalidItem)
		return s.rejectWithBalance(ctx, playerID, "Unknown item.", domain.ErrInvalidItem)
	}
}

func (s *EconomyService) rejectWithBalance(ctx context.Context, playerID int64, msg string, cause error) (*OperationResult, error) {
	state, err := s.economy.Get(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return rejected(state.Coins, msg), cause
}

// Snapshot reads the player's current economy for display.
func (s *EconomyService) Snapshot(ctx context.Context, playerID int64) (*domain.Snapshot, error) {
	player, err := s.players.GetByID(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	state, err := s.economy.Get(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}

	snap := domain.NewSnapshot(*state, player.CurrentSkin)
	return &snap, nil
}

// NextAutoclickerCost is the price of the next tier above tier.
func (s *EconomyService) NextAutoclickerCost(tier int) int64 {
	return s.pricing.Cost(tier)
}

// Skins lists the purchasable skins.
func (s *EconomyService) Skins() ([]SkinItem, error) {
	return s.skins.Items()
}

// ListAutoclickerPlayers implements AccrualStore.
func (s *EconomyService) ListAutoclickerPlayers(ctx context.Context) ([]int64, error) {
	return s.economy.ListAutoclickerPlayers(ctx)
}

// Accrue credits one autoclicker tick. The reward is recomputed from the
// locked row so a concurrent upgrade or level change is always respected.
func (s *EconomyService) Accrue(ctx context.Context, playerID int64) (domain.Accrual, error) {
	var reward int64
	state, err := s.mutate(ctx, playerID, func(_ pgx.Tx, st *domain.EconomyState) error {
		reward = st.ApplyAccrual()
		return nil
	})
	if err != nil {
		return domain.Accrual{PlayerID: playerID}, err
	}
	return domain.Accrual{PlayerID: playerID, Reward: reward, Coins: state.Coins}, nil
}
