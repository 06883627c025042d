// internal/monitoring/metrics.go
//
// Package monitoring exposes shopwatch's own Prometheus counters: the
// teacher's MetricsManager pattern (promauto-registered CounterVec/
// HistogramVec/Gauge fields plus a /metrics HTTP handler), reduced from a
// generic scrape-pipeline's request/output/captcha/job metrics down to the
// handful of signals a scheduler running many concurrent per-shop drivers
// actually needs: how often each shop ticks, how its fetches resolve, how
// many diffs get committed, and how notification delivery is going.
package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsManager owns every Prometheus collector the scheduler registers.
type MetricsManager struct {
	ticksTotal          *prometheus.CounterVec
	tickDuration        *prometheus.HistogramVec
	fetchesTotal        *prometheus.CounterVec
	diffsCommitted      *prometheus.CounterVec
	notificationsSent   *prometheus.CounterVec
	notificationsFailed *prometheus.CounterVec
	activeDrivers       prometheus.Gauge
	memoryUsage         prometheus.Gauge
	goroutineCount      prometheus.Gauge

	namespace string
	subsystem string
}

// MetricsConfig configures the metrics namespace/subsystem and endpoint.
type MetricsConfig struct {
	Namespace     string
	Subsystem     string
	MetricsPath   string
	ListenAddress string
}

// NewMetricsManager builds and registers every collector against the
// default Prometheus registry.
func NewMetricsManager(config MetricsConfig) *MetricsManager {
	return NewMetricsManagerWithRegisterer(config, prometheus.DefaultRegisterer)
}

// NewMetricsManagerWithRegisterer is NewMetricsManager against a caller-
// supplied registry, so tests can register collectors without colliding
// with the process-wide default registry.
func NewMetricsManagerWithRegisterer(config MetricsConfig, reg prometheus.Registerer) *MetricsManager {
	if config.Namespace == "" {
		config.Namespace = "shopwatch"
	}
	if config.Subsystem == "" {
		config.Subsystem = "scraper"
	}

	mm := &MetricsManager{namespace: config.Namespace, subsystem: config.Subsystem}
	mm.initializeMetrics(promauto.With(reg))
	return mm
}

func (mm *MetricsManager) initializeMetrics(factory promauto.Factory) {
	mm.ticksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "ticks_total",
			Help:      "Total number of scrape iterations run, per shop.",
		},
		[]string{"shop"},
	)

	mm.tickDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one scrape iteration (shop page plus every product page).",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"shop"},
	)

	mm.fetchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "fetches_total",
			Help:      "Total number of page fetches, by target kind and outcome.",
		},
		[]string{"target", "outcome"},
	)

	mm.diffsCommitted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "diffs_committed_total",
			Help:      "Total number of product changes committed to the shop repository.",
		},
		[]string{"shop"},
	)

	mm.notificationsSent = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "notifications_sent_total",
			Help:      "Total number of webhook notifications delivered, by kind.",
		},
		[]string{"kind"},
	)

	mm.notificationsFailed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "notifications_failed_total",
			Help:      "Total number of webhook notifications that failed delivery, by kind.",
		},
		[]string{"kind"},
	)

	mm.activeDrivers = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "active_drivers",
			Help:      "Number of per-shop scrape drivers currently running.",
		},
	)

	mm.memoryUsage = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "memory_usage_bytes",
			Help:      "Current memory usage in bytes.",
		},
	)

	mm.goroutineCount = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "goroutines_count",
			Help:      "Current number of goroutines.",
		},
	)
}

// RecordTick records one completed scrape iteration for shop.
func (mm *MetricsManager) RecordTick(shop string, duration time.Duration) {
	mm.ticksTotal.WithLabelValues(shop).Inc()
	mm.tickDuration.WithLabelValues(shop).Observe(duration.Seconds())
}

// RecordFetch records one fetch attempt's final outcome: "success",
// "retry_exhausted", or "error". target is "shop" or "product".
func (mm *MetricsManager) RecordFetch(target, outcome string) {
	mm.fetchesTotal.WithLabelValues(target, outcome).Inc()
}

// RecordDiffCommitted records one product change written to the repository.
func (mm *MetricsManager) RecordDiffCommitted(shop string) {
	mm.diffsCommitted.WithLabelValues(shop).Inc()
}

// RecordNotificationSent records one successfully delivered webhook message,
// kind being "product", "log", or "error".
func (mm *MetricsManager) RecordNotificationSent(kind string) {
	mm.notificationsSent.WithLabelValues(kind).Inc()
}

// RecordNotificationFailed records one webhook message that failed delivery.
func (mm *MetricsManager) RecordNotificationFailed(kind string) {
	mm.notificationsFailed.WithLabelValues(kind).Inc()
}

// SetActiveDrivers reports how many per-shop drivers are currently running.
func (mm *MetricsManager) SetActiveDrivers(count int) {
	mm.activeDrivers.Set(float64(count))
}

// RefreshSystemMetrics updates the memory/goroutine gauges from the Go
// runtime. The scheduler calls it from its /healthz handler, so the gauges
// reflect the last liveness probe; it is not called on every tick.
func (mm *MetricsManager) RefreshSystemMetrics() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	mm.memoryUsage.Set(float64(stats.Alloc))
	mm.goroutineCount.Set(float64(runtime.NumGoroutine()))
}

// MetricsHandler returns the HTTP handler serving the Prometheus exposition
// format.
func (mm *MetricsManager) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer runs a /metrics HTTP server until ctx is cancelled.
func (mm *MetricsManager) StartMetricsServer(ctx context.Context, address, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, mm.MetricsHandler())

	server := &http.Server{Addr: address, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
