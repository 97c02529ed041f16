package repository

import (
	"context"
	"errors"

	"dubnacoin/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnknownPlayer means an edge referenced a player that does not exist.
var ErrUnknownPlayer = errors.New("unknown player")

const pgForeignKeyViolation = "23503"

type ReferralRepository struct {
	db *pgxpool.Pool
}

func NewReferralRepository(db *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// CreateEdgeWithTx records e. inserted is false when the pair was already
// recorded; the unique constraint makes concurrent duplicates no-ops.
func (r *ReferralRepository) CreateEdgeWithTx(ctx context.Context, tx pgx.Tx, e *domain.ReferralEdge) (inserted bool, err error) {
	err = tx.QueryRow(ctx,
		`INSERT INTO referral_edges (referrer_id, referee_id, bonus)
		 VALUES ($1, $2, $3)
		 ON CONFLICT ON CONSTRAINT referral_edges_pair_key DO NOTHING
		 RETURNING id, created_at`,
		e.ReferrerID, e.RefereeID, e.Bonus,
	).Scan(&e.ID, &e.CreatedAt)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return false, ErrUnknownPlayer
	}
	return false, err
}

// ListReferees returns the players brought in by referrerID, newest first.
func (r *ReferralRepository) ListReferees(ctx context.Context, referrerID int64) ([]domain.Friend, error) {
	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.username, p.name, e.created_at
		 FROM referral_edges e
		 JOIN players p ON p.id = e.referee_id
		 WHERE e.referrer_id = $1
		 ORDER BY e.created_at DESC, e.id DESC`,
		referrerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friends := []domain.Friend{}
	for rows.Next() {
		var f domain.Friend
		if err := rows.Scan(&f.ID, &f.Username, &f.Name, &f.JoinedAt); err != nil {
			return nil, err
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}
