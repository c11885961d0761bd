// Package metrics registers the Prometheus instruments the engine exposes
// over its metrics listener (§4.7 database_report_interval line, §4.2
// gateway calls, §4.3 lifecycle transitions).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Lifecycle metrics

	RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rapo",
		Name:      "control_run_duration_seconds",
		Help:      "Duration of a control run from start to a terminal status.",
		Buckets:   []float64{.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
	}, []string{"control_type", "status"})

	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rapo",
		Name:      "control_runs_total",
		Help:      "Total control runs, by terminal status.",
	}, []string{"control_type", "status"})

	RunsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rapo",
		Name:      "scheduler_runs_in_flight",
		Help:      "Number of control runs currently executing.",
	})

	ErrorLevel = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rapo",
		Name:      "control_error_level_percent",
		Help:      "error_level recorded on successful (status D) runs.",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 75, 100},
	}, []string{"control_name"})

	// Scheduler metrics

	DispatchQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rapo",
		Name:      "scheduler_dispatch_queue_depth",
		Help:      "Pending entries in the dispatch queue.",
	})

	TicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rapo",
		Name:      "scheduler_ticks_total",
		Help:      "Total scheduler tick-loop iterations.",
	})

	ScheduleRefreshTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rapo",
		Name:      "scheduler_schedule_refresh_total",
		Help:      "Total times the in-memory schedule was refreshed from rapo_config.",
	})

	SupervisorCancelsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rapo",
		Name:      "scheduler_supervisor_cancels_total",
		Help:      "Total supervisor-forced cancellations, by cause.",
	}, []string{"cause"})

	// Database gateway metrics

	GatewayStatementDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rapo",
		Name:      "gateway_statement_duration_seconds",
		Help:      "Duration of a single gateway statement execution.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	GatewayPoolInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rapo",
		Name:      "gateway_pool_connections_in_use",
		Help:      "Connections currently checked out of the gateway pool.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rapo",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rapo",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		RunDuration,
		RunsTotal,
		RunsInFlight,
		ErrorLevel,
		DispatchQueueDepth,
		TicksTotal,
		ScheduleRefreshTotal,
		SupervisorCancelsTotal,
		GatewayStatementDuration,
		GatewayPoolInUse,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer builds the standalone metrics/health listener cmd/scheduler
// and cmd/webapi both start alongside their primary loop.
func NewServer(addr string, extra http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if extra != nil {
		mux.Handle("/healthz", extra)
	}
	return &http.Server{Addr: addr, Handler: mux}
}
