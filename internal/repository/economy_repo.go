package repository

import (
	"context"

	"dubnacoin/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EconomyRepository stores one economy_states row per player. Mutations go
// through GetForUpdate and UpdateWithTx inside the same transaction so the
// row lock serializes every writer of that player.
type EconomyRepository struct {
	db *pgxpool.Pool
}

func NewEconomyRepository(db *pgxpool.Pool) *EconomyRepository {
	return &EconomyRepository{db: db}
}

const economyColumns = `player_id, clicks, coins, level, level_cost, autoclicker_tier, updated_at`

// CreateWithTx inserts the default row. Existing rows are kept.
func (r *EconomyRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, s *domain.EconomyState) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO economy_states (player_id, clicks, coins, level, level_cost, autoclicker_tier)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (player_id) DO NOTHING`,
		s.PlayerID, s.Clicks, s.Coins, s.Level, s.LevelCost, s.AutoclickerTier,
	)
	return err
}

// GetForUpdate reads the row and locks it until tx ends.
func (r *EconomyRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, playerID int64) (*domain.EconomyState, error) {
	return scanEconomy(tx.QueryRow(ctx,
		`SELECT `+economyColumns+` FROM economy_states WHERE player_id = $1 FOR UPDATE`,
		playerID,
	))
}

// UpdateWithTx writes back a state read with GetForUpdate.
func (r *EconomyRepository) UpdateWithTx(ctx context.Context, tx pgx.Tx, s *domain.EconomyState) error {
	err := tx.QueryRow(ctx,
		`UPDATE economy_states
		 SET clicks = $2, coins = $3, level = $4, level_cost = $5, autoclicker_tier = $6, updated_at = NOW()
		 WHERE player_id = $1
		 RETURNING updated_at`,
		s.PlayerID, s.Clicks, s.Coins, s.Level, s.LevelCost, s.AutoclickerTier,
	).Scan(&s.UpdatedAt)
	return notFound(err)
}

// CreditWithTx adds amount to the player's coins and returns the new balance.
func (r *EconomyRepository) CreditWithTx(ctx context.Context, tx pgx.Tx, playerID, amount int64) (int64, error) {
	var coins int64
	err := tx.QueryRow(ctx,
		`UPDATE economy_states SET coins = coins + $2, updated_at = NOW()
		 WHERE player_id = $1
		 RETURNING coins`,
		playerID, amount,
	).Scan(&coins)
	return coins, notFound(err)
}

// Get reads the row without locking. Used for display only.
func (r *EconomyRepository) Get(ctx context.Context, playerID int64) (*domain.EconomyState, error) {
	return scanEconomy(r.db.QueryRow(ctx,
		`SELECT `+economyColumns+` FROM economy_states WHERE player_id = $1`,
		playerID,
	))
}

// ListAutoclickerPlayers returns the ids of players with a positive
// autoclicker tier.
func (r *EconomyRepository) ListAutoclickerPlayers(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT player_id FROM economy_states WHERE autoclicker_tier > 0 ORDER BY player_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func scanEconomy(row pgx.Row) (*domain.EconomyState, error) {
	var s domain.EconomyState
	if err := row.Scan(&s.PlayerID, &s.Clicks, &s.Coins, &s.Level, &s.LevelCost, &s.AutoclickerTier, &s.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}
