package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"dubnacoin/internal/domain"
	"dubnacoin/internal/logger"
	"dubnacoin/internal/metrics"
	"dubnacoin/internal/repository"
	"dubnacoin/internal/telegram"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMissingIdentity = errors.New("verified launch payload is required")

// BindResult is what a successful launch returns to the client.
type BindResult struct {
	Player   *domain.Player
	Economy  *domain.EconomyState
	Token    string
	Created  bool
	Referred bool
}

// IdentityService binds verified launch payloads to durable players.
type IdentityService struct {
	db        *pgxpool.Pool
	players   *repository.PlayerRepository
	economy   *repository.EconomyRepository
	referrals *ReferralService
	tokens    *TokenService
	audit     *AuditService
}

func NewIdentityService(db *pgxpool.Pool, tokens *TokenService, referrals *ReferralService, audit *AuditService) *IdentityService {
	return &IdentityService{
		db:        db,
		players:   repository.NewPlayerRepository(db),
		economy:   repository.NewEconomyRepository(db),
		referrals: referrals,
		tokens:    tokens,
		audit:     audit,
	}
}

// Bind finds or creates the player for data and issues a capability token.
// A returning player's row is never rewritten. The referral is attempted
// only when this call created the player, in a savepoint so a bad referrer
// never blocks creation.
func (s *IdentityService) Bind(ctx context.Context, data *telegram.InitData, referrerHint string) (*BindResult, error) {
	if data == nil || data.User.ID <= 0 {
		return nil, ErrMissingIdentity
	}
	log := logger.FromContext(ctx).With("player_id", data.User.ID)

	player := &domain.Player{
		ID:       data.User.ID,
		Username: data.User.Username,
		Name:     domain.DisplayName(data.User.FirstName, data.User.LastName),
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := s.players.CreateWithTx(ctx, tx, player)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}

	state := domain.NewEconomyState(player.ID)
	if err := s.economy.CreateWithTx(ctx, tx, &state); err != nil {
		return nil, fmt.Errorf("create economy state: %w", err)
	}

	var referrerID int64
	if created && referrerHint != "" && s.referrals != nil {
		referrerID = s.creditReferral(ctx, tx, referrerHint, player.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if created {
		metrics.PlayersCreated.Inc()
		log.Info("player created", "referred", referrerID != 0)
	}
	if referrerID != 0 {
		metrics.ReferralsCredited.Inc()
		s.audit.LogReferral(ctx, referrerID, player.ID)
	}
	s.audit.LogLogin(ctx, player.ID, created)

	econ, err := s.economy.Get(ctx, player.ID)
	if err != nil {
		return nil, fmt.Errorf("load economy state: %w", err)
	}

	token, err := s.tokens.Issue(player.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &BindResult{
		Player:   player,
		Economy:  econ,
		Token:    token,
		Created:  created,
		Referred: referrerID != 0,
	}, nil
}

// creditReferral returns the credited referrer id, or 0.
func (s *IdentityService) creditReferral(ctx context.Context, tx pgx.Tx, hint string, refereeID int64) int64 {
	log := logger.FromContext(ctx)
	referrer := ReferrerFromHint(hint)

	sp, err := tx.Begin(ctx)
	if err != nil {
		log.Error("referral savepoint failed", "error", err)
		return 0
	}

	credited, err := s.referrals.CreditReferralTx(ctx, sp, referrer, strconv.FormatInt(refereeID, 10))
	if err != nil {
		_ = sp.Rollback(ctx)
		log.Warn("referral not credited", "referrer", referrer, "error", err)
		return 0
	}
	if err := sp.Commit(ctx); err != nil {
		log.Error("referral savepoint release failed", "error", err)
		return 0
	}
	if !credited {
		return 0
	}

	id, _ := strconv.ParseInt(referrer, 10, 64)
	return id
}
