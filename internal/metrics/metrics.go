// Package metrics defines the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Claim outcomes
const (
	OutcomeSuccess           = "success"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeNotFound          = "not_found"
	OutcomeInvalid           = "invalid"
	OutcomePersistenceError  = "persistence_error"
)

var (
	// Redemptions counts reward redemption attempts by outcome
	Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lunara_redemptions_total",
		Help: "Reward redemption attempts by outcome",
	}, []string{"outcome"})

	// ShopPurchases counts shop purchase attempts by outcome
	ShopPurchases = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lunara_shop_purchases_total",
		Help: "Shop purchase attempts by outcome",
	}, []string{"outcome"})

	// Refunds counts compensating refunds by source and whether they applied
	Refunds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lunara_refunds_total",
		Help: "Compensating refunds by claim source and result",
	}, []string{"source", "result"})

	// Unrefunded counts spends left without a claim record
	Unrefunded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lunara_unrefunded_spends_total",
		Help: "Spends whose claim record failed and were not refunded",
	}, []string{"source"})

	// MoonsAwarded sums moons granted by award source
	MoonsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lunara_moons_awarded_total",
		Help: "Moons granted by award source",
	}, []string{"source"})

	// MoonsSpent sums moons spent by claim source
	MoonsSpent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lunara_moons_spent_total",
		Help: "Moons spent by claim source",
	}, []string{"source"})

	// ClaimResolutions counts resolved claims by source and status
	ClaimResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lunara_claim_resolutions_total",
		Help: "Resolved claims by source and new status",
	}, []string{"source", "status"})

	// HTTPRequestDuration tracks request latency by route pattern
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lunara_http_request_duration_seconds",
		Help:    "HTTP request duration by method, route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// EmailsSent counts notification emails by kind and result
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lunara_emails_total",
		Help: "Notification emails by kind and result",
	}, []string{"kind", "result"})
)
