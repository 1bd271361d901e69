package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all prometheus metrics for peerpods.
// uses a custom registry to avoid polluting the global namespace.
type Metrics struct {
	Registry *prometheus.Registry

	// http_request_duration_seconds - histogram for api latency
	HTTPRequestDuration *prometheus.HistogramVec

	// peerpods_activities_ingested_total
	ActivitiesIngestedTotal *prometheus.CounterVec

	// peerpods_ingestion_buffer_size
	BufferSize prometheus.Gauge

	// peerpods_match_duration_seconds, labelled by mode (discovery, accountability)
	MatchDuration *prometheus.HistogramVec

	// peerpods_match_candidates - pool size scored per request
	MatchCandidates *prometheus.HistogramVec

	// peerpods_partnerships_formed_total
	PartnershipsFormedTotal prometheus.Counter

	// peerpods_match_cache_lookups_total, labelled by result (hit, miss)
	MatchCacheLookupsTotal *prometheus.CounterVec
}

// New creates and registers all prometheus metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		ActivitiesIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peerpods_activities_ingested_total",
				Help: "Total number of activity events persisted",
			},
			[]string{"event_type"},
		),

		BufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "peerpods_ingestion_buffer_size",
			Help: "Current number of events waiting in the ingestion buffer",
		}),

		MatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "peerpods_match_duration_seconds",
				Help:    "Duration of a ranking or partner selection, storage reads included",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
			},
			[]string{"mode"},
		),

		MatchCandidates: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "peerpods_match_candidates",
				Help:    "Number of candidates scored per request",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
			[]string{"mode"},
		),

		PartnershipsFormedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peerpods_partnerships_formed_total",
			Help: "Total number of accountability partnerships created",
		}),

		MatchCacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "peerpods_match_cache_lookups_total",
				Help: "Discovery cache lookups by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestDuration,
		m.ActivitiesIngestedTotal,
		m.BufferSize,
		m.MatchDuration,
		m.MatchCandidates,
		m.PartnershipsFormedTotal,
		m.MatchCacheLookupsTotal,
	)

	return m
}

// RecordHTTPRequest records the duration of an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, durationSeconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
}

// RecordActivityIngested increments the activities counter.
func (m *Metrics) RecordActivityIngested(eventType string) {
	m.ActivitiesIngestedTotal.WithLabelValues(eventType).Inc()
}

// SetBufferSize sets the current buffer size gauge.
func (m *Metrics) SetBufferSize(size int) {
	m.BufferSize.Set(float64(size))
}

// ObserveMatch records one ranking or partner lookup.
func (m *Metrics) ObserveMatch(mode string, candidates int, elapsed time.Duration) {
	m.MatchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	m.MatchCandidates.WithLabelValues(mode).Observe(float64(candidates))
}

// RecordPartnershipFormed counts a newly created partnership.
func (m *Metrics) RecordPartnershipFormed() {
	m.PartnershipsFormedTotal.Inc()
}

// RecordCacheLookup counts a discovery cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.MatchCacheLookupsTotal.WithLabelValues(result).Inc()
}
