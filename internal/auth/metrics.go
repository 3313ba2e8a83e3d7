// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for attempt metrics.
const (
	OutcomeSuccess            = "success"
	OutcomeRateLimited        = "rate_limited"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeDuplicateEmail     = "duplicate_email"
	OutcomeValidationFailed   = "validation_failed"
	OutcomeUpstreamError      = "upstream_error"
)

// AuthAttempts is the counter for signup and login outcomes.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "invoicemarshal_auth_attempts_total",
		Help: "Total number of signup and login attempts by outcome",
	},
	[]string{"kind", "outcome"},
)

// ThrottleDenials is the counter for throttle admission denials.
// Use RegisterMetrics to register this with a Prometheus registry.
var ThrottleDenials = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "invoicemarshal_auth_throttle_denials_total",
		Help: "Total number of attempts denied by the sliding-window throttle",
	},
	[]string{"kind"},
)

// HashMigrations is the counter for legacy hash upgrades.
// Use RegisterMetrics to register this with a Prometheus registry.
var HashMigrations = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "invoicemarshal_auth_hash_migrations_total",
		Help: "Total number of password hashes migrated to the current scheme",
	},
)

// RegisterMetrics registers auth package metrics with the given Prometheus
// registry. This must be called at startup to make metrics available on
// /metrics. Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthAttempts)
	reg.MustRegister(ThrottleDenials)
	reg.MustRegister(HashMigrations)
}
