package service

import (
	"context"

	"dubnacoin/internal/domain"
	"dubnacoin/internal/logger"
	"dubnacoin/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

type clientKey struct{}

// ClientInfo identifies the caller of a request for audit entries.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// WithClientInfo stores the caller's address and user agent in ctx.
func WithClientInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, ClientInfo{IP: ip, UserAgent: userAgent})
}

func clientFromContext(ctx context.Context) ClientInfo {
	ci, _ := ctx.Value(clientKey{}).(ClientInfo)
	return ci
}

// AuditService handles audit logging. Entries are best effort: a failed
// insert is logged and never fails the operation being audited.
type AuditService struct {
	repo *repository.AuditRepository
}

func NewAuditService(db *pgxpool.Pool) *AuditService {
	return &AuditService{
		repo: repository.NewAuditRepository(db),
	}
}

// Log creates a new audit log entry. A nil service is a no-op.
func (s *AuditService) Log(ctx context.Context, playerID int64, action, category string, details map[string]interface{}) {
	if s == nil {
		return
	}
	ci := clientFromContext(ctx)
	entry := &domain.AuditLog{
		PlayerID:  playerID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ci.IP,
		UserAgent: ci.UserAgent,
	}

	if err := s.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		logger.FromContext(ctx).Error("failed to create audit log", "error", err, "action", action, "player_id", playerID)
	}
}

// LogLogin records a successful launch. created marks first launches.
func (s *AuditService) LogLogin(ctx context.Context, playerID int64, created bool) {
	action := domain.AuditActionLogin
	if created {
		action = domain.AuditActionRegister
	}
	s.Log(ctx, playerID, action, domain.AuditCategoryAuth, nil)
}

// LogPurchase records a completed economy purchase.
func (s *AuditService) LogPurchase(ctx context.Context, playerID int64, action string, price, coins int64, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["price"] = price
	details["coins"] = coins

	s.Log(ctx, playerID, action, domain.AuditCategoryEconomy, details)
}

// LogReferral records a granted referral bonus against the referrer.
func (s *AuditService) LogReferral(ctx context.Context, referrerID, refereeID int64) {
	s.Log(ctx, referrerID, domain.AuditActionReferralCredit, domain.AuditCategoryReferral, map[string]interface{}{
		"referee_id": refereeID,
		"bonus":      domain.ReferralBonus,
	})
}

// PlayerLogs returns the newest audit entries for playerID.
func (s *AuditService) PlayerLogs(ctx context.Context, playerID int64, limit int) ([]*domain.AuditLog, error) {
	return s.repo.ListByPlayer(ctx, playerID, limit)
}
