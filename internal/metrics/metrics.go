// Package metrics defines the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SimulatorTicks counts telemetry simulator ticks.
	SimulatorTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cranewatch_simulator_ticks_total",
		Help: "Telemetry simulator ticks since start.",
	})

	// Analyses counts diagnosis runs by source: "engine" when the
	// prescriptive engine answered, "fallback" when the local heuristic did.
	Analyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cranewatch_analyses_total",
		Help: "Diagnosis analyses by source.",
	}, []string{"source"})

	// EventsCreated counts persisted events by diagnosis type.
	EventsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cranewatch_events_created_total",
		Help: "Events created by diagnosis type.",
	}, []string{"type"})

	// AuditAppends counts audit trail writes.
	AuditAppends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cranewatch_audit_entries_total",
		Help: "Audit log entries appended.",
	})

	// PartsApproved counts approved part requests.
	PartsApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cranewatch_parts_approved_total",
		Help: "Part requests approved.",
	})
)
