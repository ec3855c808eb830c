package observability

import (
	"time"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/sony/gobreaker"
)

const (
	metricPages      = "bfa_upstream_pages_total"
	metricExtErrors  = "bfa_external_errors_total"
	metricCacheHits  = "bfa_cache_hits_total"
	metricCacheMiss  = "bfa_cache_misses_total"
	metricSuperseded = "bfa_superseded_results_total"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	upstreamPages   *prometheus.CounterVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	reportsTotal    *prometheus.CounterVec
	superseded      prometheus.Counter
	circuitState    *prometheus.GaugeVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		upstreamPages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPages,
				Help: "Total pages fetched from the budget API.",
			},
			[]string{"resource"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricExtErrors,
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricCacheHits,
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricCacheMiss,
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		reportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_reports_total",
				Help: "Total reports computed, by kind and outcome.",
			},
			[]string{"report", "status"},
		),
		superseded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: metricSuperseded,
				Help: "Dashboard loads discarded because a newer request replaced them.",
			},
		),
		circuitState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bfa_circuit_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open).",
			},
			[]string{"name"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrPage counts one fetched page of resource.
func (m *Metrics) IncrPage(resource string) {
	m.upstreamPages.WithLabelValues(resource).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrReport counts a computed report with a status label ("success" or "error").
func (m *Metrics) IncrReport(report, status string) {
	m.reportsTotal.WithLabelValues(report, status).Inc()
}

// IncrSuperseded counts a discarded stale result.
func (m *Metrics) IncrSuperseded() {
	m.superseded.Inc()
}

// SetCircuitState records a breaker transition. Suitable as a gobreaker OnStateChange hook.
func (m *Metrics) SetCircuitState(name string, _, to gobreaker.State) {
	m.circuitState.WithLabelValues(name).Set(float64(to))
}

// GetUpstreamSnapshot returns the upstream-facing counters for the
// GET /v1/metrics/upstream endpoint.
func (m *Metrics) GetUpstreamSnapshot() *domain.UpstreamMetrics {
	snap := &domain.UpstreamMetrics{
		PagesFetched:   map[string]int64{},
		ExternalErrors: map[string]int64{},
		CircuitState:   gobreaker.StateClosed.String(),
		Period:         "all_time",
	}

	families, err := m.Registry.Gather()
	if err != nil {
		return snap
	}

	var hits, misses float64
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch mf.GetName() {
			case metricPages:
				snap.PagesFetched[labelValue(metric, "resource")] = int64(counterValue(metric))
			case metricExtErrors:
				snap.ExternalErrors[labelValue(metric, "service")] = int64(counterValue(metric))
			case metricCacheHits:
				hits += counterValue(metric)
			case metricCacheMiss:
				misses += counterValue(metric)
			case metricSuperseded:
				snap.SupersededResults = int64(counterValue(metric))
			case "bfa_circuit_state":
				if g := metric.GetGauge(); g != nil {
					snap.CircuitState = gobreaker.State(int(g.GetValue())).String()
				}
			}
		}
	}
	if hits+misses > 0 {
		snap.CacheHitRate = hits / (hits + misses)
	}
	return snap
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func counterValue(m *dto.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	return 0
}
