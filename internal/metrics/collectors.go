// Package metrics exposes Prometheus collectors for every engine in the
// platform, following the teacher's cmd/pulse-sensor-proxy/metrics.go
// pattern: a struct of pre-built collectors registered once against a
// private registry and served over /metrics.
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Collectors holds one Prometheus metric per observable signal across
// the fusion, guardrail, safety, continuity, zero-trust, and dispatch
// engines.
type Collectors struct {
	registry *prometheus.Registry
	server   *http.Server

	// fusion
	FusionEventsIngested   *prometheus.CounterVec
	FusionEventsFused      prometheus.Counter
	FusionDeadLettered     prometheus.Counter
	FusionAnomaliesFlagged *prometheus.CounterVec

	// guardrail
	GuardrailDecisions  *prometheus.CounterVec
	GuardrailRiskScore  prometheus.Histogram
	GuardrailBiasStatus *prometheus.GaugeVec

	// safety
	SafetyWarningsActive  *prometheus.GaugeVec
	SafetyFallsConfirmed  prometheus.Counter
	SafetyCheckInsOverdue prometheus.Gauge

	// continuity
	ContinuityServiceStatus  *prometheus.GaugeVec
	ContinuityFailoverEvents *prometheus.CounterVec
	ContinuityProbeLatency   *prometheus.HistogramVec

	// zero-trust
	ZeroTrustDecisions      *prometheus.CounterVec
	ZeroTrustSessionsActive prometheus.Gauge
	ZeroTrustSuspiciousQueries *prometheus.CounterVec

	// dispatch
	DispatchQueueDepth  *prometheus.GaugeVec
	DispatchCommands    *prometheus.CounterVec
	DispatchCommandLatency *prometheus.HistogramVec
}

// New creates and registers every collector against a fresh registry.
func New() *Collectors {
	reg := prometheus.NewRegistry()

	c := &Collectors{
		registry: reg,

		FusionEventsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rtcc_fusion_events_ingested_total", Help: "Raw events ingested by source."},
			[]string{"source"},
		),
		FusionEventsFused: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "rtcc_fusion_events_fused_total", Help: "Fused events produced."},
		),
		FusionDeadLettered: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "rtcc_fusion_dead_lettered_total", Help: "Events parked to the dead-letter queue after retry deadline exceeded."},
		),
		FusionAnomaliesFlagged: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rtcc_fusion_anomalies_flagged_total", Help: "Anomaly observations flagged by severity."},
			[]string{"severity"},
		),

		GuardrailDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rtcc_guardrail_decisions_total", Help: "Guardrail decisions by result."},
			[]string{"result"},
		),
		GuardrailRiskScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{Name: "rtcc_guardrail_risk_score", Help: "Distribution of computed risk scores.", Buckets: prometheus.LinearBuckets(0, 10, 11)},
		),
		GuardrailBiasStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "rtcc_guardrail_bias_status", Help: "Most recent fairness evaluation's failing-metric count."},
			[]string{"status"},
		),

		SafetyWarningsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "rtcc_safety_warnings_active", Help: "Active officer safety warnings by threat type."},
			[]string{"threat_type"},
		),
		SafetyFallsConfirmed: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "rtcc_safety_falls_confirmed_total", Help: "Fall events that auto-confirmed or were confirmed."},
		),
		SafetyCheckInsOverdue: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "rtcc_safety_checkins_overdue", Help: "Officers currently overdue for check-in."},
		),

		ContinuityServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "rtcc_continuity_service_status", Help: "Latest probe status per service (1=healthy,0.5=degraded,0=unhealthy/offline)."},
			[]string{"service"},
		),
		ContinuityFailoverEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rtcc_continuity_failover_events_total", Help: "Failover/recovery transitions by service and direction."},
			[]string{"service", "direction"},
		),
		ContinuityProbeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "rtcc_continuity_probe_latency_seconds", Help: "Health probe latency per service.", Buckets: prometheus.DefBuckets},
			[]string{"service"},
		),

		ZeroTrustDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rtcc_zerotrust_decisions_total", Help: "Access gateway decisions by result."},
			[]string{"decision"},
		),
		ZeroTrustSessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "rtcc_zerotrust_sessions_active", Help: "Currently live sessions."},
		),
		ZeroTrustSuspiciousQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rtcc_zerotrust_suspicious_queries_total", Help: "CJIS queries flagged by heuristic."},
			[]string{"flag"},
		),

		DispatchQueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "rtcc_dispatch_queue_depth", Help: "Queued commands per actuator."},
			[]string{"actuator_id"},
		),
		DispatchCommands: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rtcc_dispatch_commands_total", Help: "Dispatch commands by terminal status."},
			[]string{"status"},
		),
		DispatchCommandLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "rtcc_dispatch_command_latency_seconds", Help: "Time from command submission to terminal status.", Buckets: prometheus.DefBuckets},
			[]string{"type"},
		),
	}

	reg.MustRegister(
		c.FusionEventsIngested, c.FusionEventsFused, c.FusionDeadLettered, c.FusionAnomaliesFlagged,
		c.GuardrailDecisions, c.GuardrailRiskScore, c.GuardrailBiasStatus,
		c.SafetyWarningsActive, c.SafetyFallsConfirmed, c.SafetyCheckInsOverdue,
		c.ContinuityServiceStatus, c.ContinuityFailoverEvents, c.ContinuityProbeLatency,
		c.ZeroTrustDecisions, c.ZeroTrustSessionsActive, c.ZeroTrustSuspiciousQueries,
		c.DispatchQueueDepth, c.DispatchCommands, c.DispatchCommandLatency,
	)

	return c
}

// Serve starts the metrics HTTP server on addr. An empty or "disabled"
// addr is a no-op, matching the teacher's convention.
func (c *Collectors) Serve(addr string) error {
	if addr == "" || addr == "disabled" {
		log.Info().Msg("metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	c.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := c.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped unexpectedly")
		}
	}()

	log.Info().Str("addr", addr).Msg("metrics server started")
	return nil
}

// Shutdown gracefully stops the metrics server, if running.
func (c *Collectors) Shutdown(ctx context.Context) {
	if c == nil || c.server == nil {
		return
	}
	_ = c.server.Shutdown(ctx)
}

// ServiceStatusValue converts a health status string into the gauge
// value ContinuityServiceStatus expects.
func ServiceStatusValue(status string) float64 {
	switch status {
	case "healthy":
		return 1
	case "degraded":
		return 0.5
	default:
		return 0
	}
}
