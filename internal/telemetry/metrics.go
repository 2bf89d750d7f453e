package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики процесса. Регистрируются в глобальном реестре и отдаются на /metrics.
var (
	JobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amplicore_jobs_submitted_total",
		Help: "Jobs launched, by tool",
	}, []string{"tool"})

	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amplicore_jobs_finished_total",
		Help: "Jobs that reached a terminal status, by status",
	}, []string{"status"})

	LiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "amplicore_live_jobs",
		Help: "Jobs currently tracked by the completion monitor",
	})

	MonitorTick = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "amplicore_monitor_tick_seconds",
		Help:    "Duration of one completion monitor pass",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amplicore_http_requests_total",
		Help: "HTTP requests handled, by method and status code",
	}, []string{"method", "status"})
)
