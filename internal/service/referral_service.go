package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dubnacoin/internal/domain"
	"dubnacoin/internal/metrics"
	"dubnacoin/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrSelfReferral     = errors.New("self referral")
	ErrInvalidReferrer  = errors.New("invalid referrer id")
	ErrReferrerNotFound = errors.New("referrer not found")
)

// referralPrefix is how bot deep links carry the referrer in start_param.
const referralPrefix = "ref_"

// ReferrerFromHint normalizes a referrer hint: "<id>" and "ref_<id>" both
// yield "<id>".
func ReferrerFromHint(hint string) string {
	hint = strings.TrimSpace(hint)
	return strings.TrimPrefix(hint, referralPrefix)
}

// ReferralService grants the referral bonus exactly once per
// (referrer, referee) pair.
type ReferralService struct {
	db           *pgxpool.Pool
	referrals    *repository.ReferralRepository
	economy      *repository.EconomyRepository
	transactions *repository.TransactionRepository
}

func NewReferralService(db *pgxpool.Pool) *ReferralService {
	return &ReferralService{
		db:           db,
		referrals:    repository.NewReferralRepository(db),
		economy:      repository.NewEconomyRepository(db),
		transactions: repository.NewTransactionRepository(db),
	}
}

// CreditReferral records the edge and credits the referrer in its own
// transaction. It returns false when the pair was already credited.
func (s *ReferralService) CreditReferral(ctx context.Context, referrerID, refereeID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	credited, err := s.CreditReferralTx(ctx, tx, referrerID, refereeID)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	if credited {
		metrics.ReferralsCredited.Inc()
	}
	return credited, nil
}

// CreditReferralTx runs inside the caller's transaction. A database error
// leaves tx aborted, so callers that must survive a failed referral run it
// in a savepoint.
func (s *ReferralService) CreditReferralTx(ctx context.Context, tx pgx.Tx, referrerID, refereeID string) (bool, error) {
	if referrerID == refereeID {
		return false, ErrSelfReferral
	}
	referrer, err := parsePlayerID(referrerID)
	if err != nil {
		return false, err
	}
	referee, err := parsePlayerID(refereeID)
	if err != nil {
		return false, err
	}
	if referrer == referee {
		return false, ErrSelfReferral
	}

	edge := &domain.ReferralEdge{
		ReferrerID: referrer,
		RefereeID:  referee,
		Bonus:      domain.ReferralBonus,
	}
	inserted, err := s.referrals.CreateEdgeWithTx(ctx, tx, edge)
	if errors.Is(err, repository.ErrUnknownPlayer) {
		return false, ErrReferrerNotFound
	}
	if err != nil {
		return false, fmt.Errorf("record referral: %w", err)
	}
	if !inserted {
		return false, nil
	}

	if _, err := s.economy.CreditWithTx(ctx, tx, referrer, edge.Bonus); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrReferrerNotFound
		}
		return false, fmt.Errorf("credit referrer: %w", err)
	}

	entry := &domain.Transaction{
		PlayerID: referrer,
		Type:     domain.TxReferralBonus,
		Amount:   edge.Bonus,
		Meta:     map[string]interface{}{"referee_id": referee},
	}
	if err := s.transactions.CreateWithTx(ctx, tx, entry); err != nil {
		return false, fmt.Errorf("record referral bonus: %w", err)
	}

	return true, nil
}

// ListReferees returns the players brought in by referrerID.
func (s *ReferralService) ListReferees(ctx context.Context, referrerID int64) ([]domain.Friend, error) {
	return s.referrals.ListReferees(ctx, referrerID)
}

func parsePlayerID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidReferrer, raw)
	}
	return id, nil
}
