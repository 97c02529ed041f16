// Package metrics holds the Prometheus collectors shared by the HTTP layer,
// the economy services and the accrual loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Rejected launch payloads and tokens by reason",
		},
		[]string{"reason"},
	)
	PlayersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "players_created_total",
			Help: "Players created on first launch",
		},
	)
	ReferralsCredited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "referrals_credited_total",
			Help: "Referral bonuses granted",
		},
	)

	EconomyOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_operations_total",
			Help: "Economy operations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	AccrualTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "accrual_tick_duration_seconds",
			Help:    "Time spent crediting one accrual tick",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)
	AccrualPlayers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accrual_players_total",
			Help: "Players processed by the accrual loop by outcome",
		},
		[]string{"outcome"},
	)
	AccrualCoins = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "accrual_coins_total",
			Help: "Coins granted by autoclickers",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Open balance feed connections",
		},
	)
)

// Outcome labels for EconomyOps and AccrualPlayers.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

func init() {
	prometheus.MustRegister(
		RLRequests,
		RLBlocked,
		HTTPRequests,
		HTTPDuration,
		AuthFailures,
		PlayersCreated,
		ReferralsCredited,
		EconomyOps,
		AccrualTickDuration,
		AccrualPlayers,
		AccrualCoins,
		WSConnections,
	)
}
