package metrics

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

// Config sets the constant labels attached to every series.
type Config struct {
	ServiceName string
	Environment string
}

type ReportingMetrics struct {
	windowsProcessed *prometheus.CounterVec
	factsWritten     *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	queryDuration    *prometheus.HistogramVec
}

var (
	reportingMetricsOnce sync.Once
	reportingMetrics     *ReportingMetrics
)

func Reporting() *ReportingMetrics {
	return ReportingWithConfig(Config{})
}

func ReportingWithConfig(cfg Config) *ReportingMetrics {
	reportingMetricsOnce.Do(func() {
		reportingMetrics = newReportingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reportingMetrics
}

func ResetReportingMetricsForTest() {
	reportingMetricsOnce = sync.Once{}
	reportingMetrics = nil
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func newReportingMetrics(registerer prometheus.Registerer, cfg Config) *ReportingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "avero-reporting"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	windowsProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "avero_generation_windows_processed_total",
			Help:        "Hour windows visited by the fact generators.",
			ConstLabels: constLabels,
		},
		[]string{"report"},
	)

	factsWritten := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "avero_generation_facts_written_total",
			Help:        "Hourly fact rows written to staging collections.",
			ConstLabels: constLabels,
		},
		[]string{"report"},
	)

	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "avero_generation_run_duration_seconds",
			Help: "Wall time of one generation run.",
			Buckets: []float64{
				1,
				10,
				60,
				300,  // 5m
				900,  // 15m
				1800, // 30m
				3600, // 1h
				7200, // lock TTL
			},
			ConstLabels: constLabels,
		},
		[]string{"report", "result"}, // ok | error | locked
	)

	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "avero_rollup_query_duration_seconds",
			Help:        "Latency of rollup queries.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"report", "interval", "result"},
	)

	registerer.MustRegister(
		windowsProcessed,
		factsWritten,
		runDuration,
		queryDuration,
	)

	return &ReportingMetrics{
		windowsProcessed: windowsProcessed,
		factsWritten:     factsWritten,
		runDuration:      runDuration,
		queryDuration:    queryDuration,
	}
}

func (m *ReportingMetrics) WindowsProcessed(report domain.ReportType, n int) {
	if m == nil {
		return
	}
	m.windowsProcessed.WithLabelValues(string(report)).Add(float64(n))
}

func (m *ReportingMetrics) FactsWritten(report domain.ReportType, n int) {
	if m == nil {
		return
	}
	m.factsWritten.WithLabelValues(string(report)).Add(float64(n))
}

func (m *ReportingMetrics) RunFinished(report domain.ReportType, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(string(report), result).Observe(elapsed.Seconds())
}

func (m *ReportingMetrics) QueryServed(report domain.ReportType, interval domain.TimeInterval, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(string(report), string(interval), result).Observe(elapsed.Seconds())
}
