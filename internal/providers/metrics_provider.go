package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"instametrics/internal/structures"
	"time"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits(resource string)
	IncCacheMisses(resource string)
	IncUpstreamCalls(endpoint, outcome string)
	ObserveUpstreamDuration(endpoint string, duration time.Duration)
	SetBreakerState(name string, state float64)
	IncDegraded(operation string)
	IncCollectorRuns(job, outcome string)
	ObserveCollectorDuration(job string, duration time.Duration)
	AddSnapshotsPurged(count int)
}

type MetricsProvider struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	upstreamCalls     *prometheus.CounterVec
	upstreamDuration  *prometheus.HistogramVec
	breakerState      *prometheus.GaugeVec
	degraded          *prometheus.CounterVec
	collectorRuns     *prometheus.CounterVec
	collectorDuration *prometheus.HistogramVec
	snapshotsPurged   prometheus.Counter
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits(resource string) {
	m.cacheHits.WithLabelValues(resource).Inc()
}

func (m *MetricsProvider) IncCacheMisses(resource string) {
	m.cacheMisses.WithLabelValues(resource).Inc()
}

func (m *MetricsProvider) IncUpstreamCalls(endpoint, outcome string) {
	m.upstreamCalls.WithLabelValues(endpoint, outcome).Inc()
}

func (m *MetricsProvider) ObserveUpstreamDuration(endpoint string, duration time.Duration) {
	m.upstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) SetBreakerState(name string, state float64) {
	m.breakerState.WithLabelValues(name).Set(state)
}

func (m *MetricsProvider) IncDegraded(operation string) {
	m.degraded.WithLabelValues(operation).Inc()
}

func (m *MetricsProvider) IncCollectorRuns(job, outcome string) {
	m.collectorRuns.WithLabelValues(job, outcome).Inc()
}

func (m *MetricsProvider) ObserveCollectorDuration(job string, duration time.Duration) {
	m.collectorDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *MetricsProvider) AddSnapshotsPurged(count int) {
	m.snapshotsPurged.Add(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}
	return newMetricsProvider(prometheus.DefaultRegisterer)
}

func newMetricsProvider(reg prometheus.Registerer) *MetricsProvider {
	factory := promauto.With(reg)
	return &MetricsProvider{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instametrics_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "instametrics_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instametrics_cache_hits_total",
			Help: "Response cache hits by resource",
		}, []string{"resource"}),

		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instametrics_cache_misses_total",
			Help: "Response cache misses by resource",
		}, []string{"resource"}),

		upstreamCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instametrics_upstream_calls_total",
			Help: "Graph API calls by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),

		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "instametrics_upstream_duration_seconds",
			Help:    "Graph API call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),

		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "instametrics_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),

		degraded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instametrics_degraded_responses_total",
			Help: "Responses served from fallback data",
		}, []string{"operation"}),

		collectorRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instametrics_collector_runs_total",
			Help: "Collector job runs by outcome",
		}, []string{"job", "outcome"}),

		collectorDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "instametrics_collector_duration_seconds",
			Help:    "Duration of collector jobs in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),

		snapshotsPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "instametrics_snapshots_purged_total",
			Help: "Follower snapshots removed by the retention policy",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                   {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration)   {}
func (n *noopMetrics) IncCacheHits(_ string)                               {}
func (n *noopMetrics) IncCacheMisses(_ string)                             {}
func (n *noopMetrics) IncUpstreamCalls(_, _ string)                       {}
func (n *noopMetrics) ObserveUpstreamDuration(_ string, _ time.Duration)  {}
func (n *noopMetrics) SetBreakerState(_ string, _ float64)                {}
func (n *noopMetrics) IncDegraded(_ string)                               {}
func (n *noopMetrics) IncCollectorRuns(_, _ string)                       {}
func (n *noopMetrics) ObserveCollectorDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) AddSnapshotsPurged(_ int)                           {}
