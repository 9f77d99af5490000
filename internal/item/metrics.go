// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package item

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/holoplace/internal/currency"
)

// Status labels for engine metrics.
const (
	StatusSuccess           = "success"
	StatusNotFound          = "not_found"
	StatusNotPurchasable    = "not_purchasable"
	StatusInsufficientFunds = "insufficient_funds"
	StatusConflict          = "conflict"
	StatusTimeout           = "timeout"
	StatusError             = "error"
)

// Purchases counts PurchaseItem calls by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Purchases = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holoplace_purchases_total",
		Help: "Total number of item purchases",
	},
	[]string{"status"},
)

// Creations counts CreateItem calls by outcome, including those made by a purchase.
var Creations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holoplace_item_creations_total",
		Help: "Total number of placed item creations",
	},
	[]string{"status"},
)

// LookupDuration observes how long GetItem waited.
var LookupDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "holoplace_item_lookup_duration_seconds",
		Help:    "Placed item lookup duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"status"},
)

// Spend counts currency debited by successful purchases.
var Spend = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holoplace_purchase_spend_total",
		Help: "Total currency spent on item purchases",
	},
	[]string{"currency"},
)

// RegisterMetrics registers item package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Purchases)
	reg.MustRegister(Creations)
	reg.MustRegister(LookupDuration)
	reg.MustRegister(Spend)
}

func recordPurchase(status string) {
	Purchases.WithLabelValues(status).Inc()
}

func recordCreation(status string) {
	Creations.WithLabelValues(status).Inc()
}

func recordLookup(status string, d time.Duration) {
	LookupDuration.WithLabelValues(status).Observe(d.Seconds())
}

func recordSpend(cost currency.Amounts) {
	for kind, amount := range cost {
		if amount > 0 {
			Spend.WithLabelValues(kind.String()).Add(float64(amount))
		}
	}
}

// statusOf maps an engine error to a metric status label.
func statusOf(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case IsNotFound(err):
		return StatusNotFound
	case IsTimeout(err):
		return StatusTimeout
	case IsConflict(err):
		return StatusConflict
	case IsForbidden(err):
		if reason, ok := forbiddenReason(err); ok {
			return reason
		}
		return StatusError
	default:
		return StatusError
	}
}
