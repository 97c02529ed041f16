package repository

import (
	"context"

	"dubnacoin/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrorReportRepository is append-only; reports are read by operators in SQL.
type ErrorReportRepository struct {
	db *pgxpool.Pool
}

func NewErrorReportRepository(db *pgxpool.Pool) *ErrorReportRepository {
	return &ErrorReportRepository{db: db}
}

func (r *ErrorReportRepository) Create(ctx context.Context, report *domain.ErrorReport) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO error_reports (player_id, message)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		report.PlayerID, report.Message,
	).Scan(&report.ID, &report.CreatedAt)
}
