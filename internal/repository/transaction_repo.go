package repository

import (
	"context"
	"encoding/json"

	"dubnacoin/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionRepository appends ledger entries for purchases and bonuses.
type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateWithTx appends t inside the transaction that moved the coins.
func (r *TransactionRepository) CreateWithTx(ctx context.Context, dbTx pgx.Tx, t *domain.Transaction) error {
	meta, err := json.Marshal(t.Meta)
	if err != nil || t.Meta == nil {
		meta = []byte("{}")
	}

	return dbTx.QueryRow(ctx,
		`INSERT INTO transactions (player_id, type, amount, meta)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		t.PlayerID, t.Type, t.Amount, meta,
	).Scan(&t.ID, &t.CreatedAt)
}

// ListByPlayer returns the most recent entries for playerID.
func (r *TransactionRepository) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, player_id, type, amount, meta, created_at
		 FROM transactions
		 WHERE player_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		playerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Transaction
	for rows.Next() {
		var (
			t    domain.Transaction
			meta []byte
		)
		if err := rows.Scan(&t.ID, &t.PlayerID, &t.Type, &t.Amount, &meta, &t.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &t.Meta)
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}
