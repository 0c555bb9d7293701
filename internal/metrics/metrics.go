package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	breadthComputations *prometheus.CounterVec
	breadthDuration     prometheus.Histogram
	cacheOps            *prometheus.CounterVec
	upstreamCalls       *prometheus.CounterVec
	snapshotWrites      *prometheus.CounterVec
	scrapeExtractions   *prometheus.CounterVec
	summariesGenerated  *prometheus.CounterVec
	warmerRuns          *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.breadthComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_breadth_computations_total",
			Help: "Total number of breadth computations by series and outcome",
		},
		[]string{"series", "outcome"},
	)
	r.breadthDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pulse_breadth_computation_duration_seconds",
			Help:    "Breadth computation duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
	r.cacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_cache_ops_total",
			Help: "Cache operations by series and result (hit, miss, write, write_failed)",
		},
		[]string{"series", "result"},
	)
	r.upstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_upstream_calls_total",
			Help: "Upstream market data calls by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)
	r.snapshotWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_daily_snapshots_total",
			Help: "Daily history snapshot writes by series and outcome (saved, skipped_closed, skipped_exists, skipped_zero)",
		},
		[]string{"series", "outcome"},
	)
	r.scrapeExtractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_scrape_extractions_total",
			Help: "Screener page extractions by pattern (pattern1-4, no_results, unmatched, fetch_error)",
		},
		[]string{"pattern"},
	)
	r.summariesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_summaries_generated_total",
			Help: "AI market summaries generated by provider and status",
		},
		[]string{"provider", "status"},
	)
	r.warmerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_warmer_runs_total",
			Help: "Cache warmer runs by target and status",
		},
		[]string{"target", "status"},
	)

	reg.MustRegister(r.breadthComputations)
	reg.MustRegister(r.breadthDuration)
	reg.MustRegister(r.cacheOps)
	reg.MustRegister(r.upstreamCalls)
	reg.MustRegister(r.snapshotWrites)
	reg.MustRegister(r.scrapeExtractions)
	reg.MustRegister(r.summariesGenerated)
	reg.MustRegister(r.warmerRuns)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordBreadthComputation records one breadth computation.
func (r *Registry) RecordBreadthComputation(series, outcome string, duration float64) {
	r.breadthComputations.WithLabelValues(series, outcome).Inc()
	r.breadthDuration.Observe(duration)
}

// RecordCacheOp records a cache hit/miss/write.
func (r *Registry) RecordCacheOp(series, result string) {
	r.cacheOps.WithLabelValues(series, result).Inc()
}

// RecordUpstreamCall records an upstream market data call.
func (r *Registry) RecordUpstreamCall(endpoint, status string) {
	r.upstreamCalls.WithLabelValues(endpoint, status).Inc()
}

// RecordSnapshotWrite records a daily snapshot write or skip.
func (r *Registry) RecordSnapshotWrite(series, outcome string) {
	r.snapshotWrites.WithLabelValues(series, outcome).Inc()
}

// RecordScrapeExtraction records which extraction pattern resolved a
// screener page.
func (r *Registry) RecordScrapeExtraction(pattern string) {
	r.scrapeExtractions.WithLabelValues(pattern).Inc()
}

// RecordSummaryGenerated records an AI summary generation attempt.
func (r *Registry) RecordSummaryGenerated(provider, status string) {
	r.summariesGenerated.WithLabelValues(provider, status).Inc()
}

// RecordWarmerRun records one warmer target run.
func (r *Registry) RecordWarmerRun(target, status string) {
	r.warmerRuns.WithLabelValues(target, status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
