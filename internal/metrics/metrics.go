// Package metrics wires the teacher's unused prometheus/client_golang
// dependency into the engine, on a private registry served at /metrics.
// The orchestrator records grid executions and exits, volume
// adjustments, risk locks, order failures, the current z-score and the
// hedge ratio; the skipped-level counter, the open-spread gauge and the
// gateway latency histogram are registered but not recorded by the
// engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric the engine's components record against.
// A single instance is constructed at startup and passed by reference
// to each component, following the teacher's PoolMetrics-per-subsystem
// naming convention.
type Registry struct {
	reg *prometheus.Registry

	GridLevelsExecuted  *prometheus.CounterVec
	GridLevelsSkipped   *prometheus.CounterVec
	GridExits           *prometheus.CounterVec
	VolumeAdjustments   prometheus.Counter
	RiskLocksTriggered  *prometheus.CounterVec
	OrderFailures       *prometheus.CounterVec
	GatewayLatency      *prometheus.HistogramVec
	OpenSpreads         prometheus.Gauge
	HedgeRatio          prometheus.Gauge
	CurrentZScore       prometheus.Gauge
}

// New builds a Registry on a fresh private prometheus.Registry, so the
// engine never pollutes the default global registry other libraries
// might also register against.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		reg: reg,
		GridLevelsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pairengine",
			Subsystem: "grid",
			Name:      "levels_executed_total",
			Help:      "Grid levels executed, labeled by side.",
		}, []string{"side"}),
		GridLevelsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pairengine",
			Subsystem: "grid",
			Name:      "levels_skipped_total",
			Help:      "Grid levels marked skipped without execution, labeled by side.",
		}, []string{"side"}),
		GridExits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pairengine",
			Subsystem: "grid",
			Name:      "exits_total",
			Help:      "Grid-triggered exits, labeled by reason.",
		}, []string{"reason"}),
		VolumeAdjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pairengine",
			Subsystem: "rebalancer",
			Name:      "adjustments_total",
			Help:      "Single-leg corrective orders issued.",
		}),
		RiskLocksTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pairengine",
			Subsystem: "riskgate",
			Name:      "locks_triggered_total",
			Help:      "Trading locks triggered, labeled by cap that tripped.",
		}, []string{"cap"}),
		OrderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pairengine",
			Subsystem: "gateway",
			Name:      "order_failures_total",
			Help:      "Order placements that returned an error, labeled by symbol.",
		}, []string{"symbol"}),
		GatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pairengine",
			Subsystem: "gateway",
			Name:      "call_latency_seconds",
			Help:      "OrderGateway call latency, labeled by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		OpenSpreads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pairengine",
			Subsystem: "tracker",
			Name:      "open_spreads",
			Help:      "Currently open spread positions.",
		}),
		HedgeRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pairengine",
			Subsystem: "hedgeratio",
			Name:      "current_beta",
			Help:      "Most recently computed blended hedge ratio.",
		}),
		CurrentZScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pairengine",
			Subsystem: "rollingwindow",
			Name:      "current_zscore",
			Help:      "Most recent z-score snapshot value.",
		}),
	}

	reg.MustRegister(
		m.GridLevelsExecuted,
		m.GridLevelsSkipped,
		m.GridExits,
		m.VolumeAdjustments,
		m.RiskLocksTriggered,
		m.OrderFailures,
		m.GatewayLatency,
		m.OpenSpreads,
		m.HedgeRatio,
		m.CurrentZScore,
	)
	return m
}

// Gatherer exposes the underlying registry to the HTTP handler in
// internal/statusapi without leaking prometheus types into that
// package's construction signature.
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.reg
}

// ObserveGatewayCall records the latency of a single OrderGateway call.
func (m *Registry) ObserveGatewayCall(op string, d time.Duration) {
	m.GatewayLatency.WithLabelValues(op).Observe(d.Seconds())
}
