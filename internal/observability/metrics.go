package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	reportRendersTotal   *prometheus.CounterVec
	reportRenderSeconds  *prometheus.HistogramVec
	reportRenderFailures *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used for report observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		reportRendersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_renders_total",
			Help: "Total number of report documents rendered.",
		}, []string{"kind"})

		reportRenderSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "report_render_seconds",
			Help:    "Latency distribution for report rendering.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"kind"})

		reportRenderFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_render_failures_total",
			Help: "Total number of report render failures by error category.",
		}, []string{"kind", "category"})

		prometheus.MustRegister(reportRendersTotal, reportRenderSeconds, reportRenderFailures)
	})
}

// ReportRenders exposes the counter for rendered report documents.
func ReportRenders() *prometheus.CounterVec {
	RegisterMetrics()
	return reportRendersTotal
}

// RenderLatency exposes the latency histogram for report rendering.
func RenderLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return reportRenderSeconds
}

// RenderFailures exposes the counter for render failures.
func RenderFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return reportRenderFailures
}
