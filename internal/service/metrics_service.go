package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation outcomes recorded by ObserveRosterOperation.
const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// MetricsService encapsulates Prometheus instrumentation. A nil receiver is a no-op.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	rosterOps       *prometheus.CounterVec
	saveDuration    prometheus.Histogram
	importRows      *prometheus.CounterVec
	exports         *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	rosterOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_operations_total",
		Help: "Roster mutations by operation and result",
	}, []string{"op", "result"})

	saveDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roster_save_duration_seconds",
		Help:    "Time spent persisting the roster blob",
		Buckets: prometheus.DefBuckets,
	})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_import_rows_total",
		Help: "Spreadsheet rows processed by outcome",
	}, []string{"outcome"})

	exports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_exports_total",
		Help: "Rendered class reports by format",
	}, []string{"format"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, rosterOps, saveDuration, importRows, exports, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		rosterOps:       rosterOps,
		saveDuration:    saveDuration,
		importRows:      importRows,
		exports:         exports,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveRosterOperation counts one roster mutation attempt.
func (m *MetricsService) ObserveRosterOperation(op, result string) {
	if m == nil {
		return
	}
	m.rosterOps.WithLabelValues(op, result).Inc()
}

// ObserveRosterSave records how long a blob save took.
func (m *MetricsService) ObserveRosterSave(duration time.Duration) {
	if m == nil {
		return
	}
	m.saveDuration.Observe(duration.Seconds())
}

// ObserveImport counts imported and skipped rows.
func (m *MetricsService) ObserveImport(imported, skipped int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues("imported").Add(float64(imported))
	m.importRows.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveExport counts one rendered report.
func (m *MetricsService) ObserveExport(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}
