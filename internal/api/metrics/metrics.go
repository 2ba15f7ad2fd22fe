// Package metrics defines and registers all custom Prometheus metrics for the
// servicehub session gateway. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package init
// through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "servicehub"

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionOperationsTotal counts settled session operations.
// Labels:
//   - op: register, login, logout, check_session, update_user
//   - phase: fulfilled, rejected or superseded
var SessionOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_operations_total",
		Help:      "Total number of settled session operations, by operation and outcome.",
	},
	[]string{"op", "phase"},
)

// SessionOperationDuration measures dispatch-to-settle time of an operation.
var SessionOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_operation_duration_seconds",
		Help:      "Duration of session operations from dispatch to settle.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op"},
)

// BackendLogoutFailuresTotal counts logout notifications the backend did not accept.
var BackendLogoutFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_logout_failures_total",
		Help:      "Logout notifications that failed; the local logout still succeeded.",
	},
)

// SessionsLive is the number of session machines held in memory.
var SessionsLive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_live",
		Help:      "Number of client sessions currently held in memory.",
	},
)

// ── Gate metrics ──────────────────────────────────────────────────────────────

// GateDecisionsTotal counts authorization gate outcomes.
// Label:
//   - decision: loading, login, unauthorized or render
var GateDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_decisions_total",
		Help:      "Total number of authorization gate decisions, by outcome.",
	},
	[]string{"decision"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditQueueDepth tracks pending transitions in each dispatcher worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of transitions pending in each audit worker channel.",
	},
	[]string{"worker_id"},
)

// AuditErrorsTotal counts transitions that could not be recorded.
// Label:
//   - reason: dropped (queue full) or insert_failed
var AuditErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_errors_total",
		Help:      "Total number of session transitions that failed to reach the audit trail.",
	},
	[]string{"reason"},
)
