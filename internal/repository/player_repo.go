package repository

import (
	"context"
	"errors"

	"dubnacoin/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

type PlayerRepository struct {
	db *pgxpool.Pool
}

func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// CreateWithTx inserts p unless a player with the same id exists. created is
// false for a returning player, whose stored row is left untouched and
// loaded into p.
func (r *PlayerRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, p *domain.Player) (created bool, err error) {
	if p.CurrentSkin == "" {
		p.CurrentSkin = domain.DefaultSkin
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO players (id, username, name, current_skin)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING
		 RETURNING created_at`,
		p.ID, p.Username, p.Name, p.CurrentSkin,
	).Scan(&p.CreatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	existing, err := r.scanOne(tx.QueryRow(ctx, selectPlayer+` WHERE id = $1`, p.ID))
	if err != nil {
		return false, err
	}
	*p = *existing
	return false, nil
}

const selectPlayer = `SELECT id, username, name, current_skin, created_at FROM players`

func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*domain.Player, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectPlayer+` WHERE id = $1`, id))
}

// SetSkinWithTx equips skin on the player.
func (r *PlayerRepository) SetSkinWithTx(ctx context.Context, tx pgx.Tx, id int64, skin string) error {
	tag, err := tx.Exec(ctx, `UPDATE players SET current_skin = $1 WHERE id = $2`, skin, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PlayerRepository) scanOne(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	if err := row.Scan(&p.ID, &p.Username, &p.Name, &p.CurrentSkin, &p.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}
