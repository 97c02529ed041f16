package service

import (
	"context"
	"log/slog"
	"time"

	"dubnacoin/internal/domain"
	"dubnacoin/internal/logger"
	"dubnacoin/internal/metrics"
)

const (
	DefaultAccrualInterval = 10 * time.Second

	// tickTimeout bounds one tick once shutdown has detached it from the
	// caller's context.
	tickTimeout = 5 * time.Minute
)

// AccrualStore is the slice of the economy the scheduler needs.
type AccrualStore interface {
	ListAutoclickerPlayers(ctx context.Context) ([]int64, error)
	Accrue(ctx context.Context, playerID int64) (domain.Accrual, error)
}

// AccrualNotifier is told about every credited player.
type AccrualNotifier interface {
	NotifyAccrual(a domain.Accrual)
}

// TickReport summarizes one accrual pass.
type TickReport struct {
	Players  int
	Credited int
	Failed   int
	Coins    int64
}

// AccrualScheduler grants autoclicker income on a fixed interval.
type AccrualScheduler struct {
	store    AccrualStore
	notifier AccrualNotifier
	interval time.Duration
	log      *slog.Logger
}

// NewAccrualScheduler returns a scheduler. notifier may be nil.
func NewAccrualScheduler(store AccrualStore, interval time.Duration, notifier AccrualNotifier) *AccrualScheduler {
	if interval <= 0 {
		interval = DefaultAccrualInterval
	}
	return &AccrualScheduler{
		store:    store,
		notifier: notifier,
		interval: interval,
		log:      logger.Get().With("component", "accrual"),
	}
}

// Run ticks until ctx is cancelled. The next tick starts a full interval
// after the previous one finished, so ticks never overlap. A tick that is
// running when ctx is cancelled completes before Run returns.
func (s *AccrualScheduler) Run(ctx context.Context) error {
	s.log.Info("accrual scheduler started", "interval", s.interval)
	defer s.log.Info("accrual scheduler stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		tickCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tickTimeout)
		report, err := s.Tick(tickCtx)
		cancel()
		if err != nil {
			s.log.Error("accrual tick failed", "error", err)
		} else if report.Players > 0 {
			s.log.Debug("accrual tick",
				"players", report.Players,
				"credited", report.Credited,
				"failed", report.Failed,
				"coins", report.Coins,
			)
		}

		timer.Reset(s.interval)
	}
}

// Tick credits every eligible player once. A failure for one player is
// logged and counted and does not stop the others. Only a failure to list
// players aborts the tick.
func (s *AccrualScheduler) Tick(ctx context.Context) (TickReport, error) {
	start := time.Now()
	defer func() { metrics.AccrualTickDuration.Observe(time.Since(start).Seconds()) }()

	var report TickReport
	ids, err := s.store.ListAutoclickerPlayers(ctx)
	if err != nil {
		return report, err
	}
	report.Players = len(ids)

	for _, id := range ids {
		a, err := s.store.Accrue(ctx, id)
		if err != nil {
			report.Failed++
			metrics.AccrualPlayers.WithLabelValues(metrics.OutcomeError).Inc()
			s.log.Warn("accrual failed", "player_id", id, "error", err)
			continue
		}

		report.Credited++
		report.Coins += a.Reward
		metrics.AccrualPlayers.WithLabelValues(metrics.OutcomeOK).Inc()
		metrics.AccrualCoins.Add(float64(a.Reward))

		if s.notifier != nil && a.Reward > 0 {
			s.notifier.NotifyAccrual(a)
		}
	}
	return report, nil
}
