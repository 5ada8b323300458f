package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Values of the outcome label.
const (
	OutcomeHit     = "hit"
	OutcomeMiss    = "miss"
	OutcomeEmpty   = "empty"
	OutcomeFound   = "found"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics is the set of Prometheus collectors the engine reports to.
type Metrics struct {
	VulnLookups        *prometheus.CounterVec
	VulnLookupDuration prometheus.Histogram
	CacheLookups       *prometheus.CounterVec
	Analyses           *prometheus.CounterVec
	ComponentsAnalyzed prometheus.Counter
	AuditWriteFailures prometheus.Counter
}

// NewMetrics registers the collectors with reg. A nil reg registers nothing,
// which keeps tests free of global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VulnLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sbomrisk_vuln_lookups_total",
			Help: "Vulnerability lookups by outcome.",
		}, []string{"outcome"}),
		VulnLookupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sbomrisk_vuln_lookup_duration_seconds",
			Help:    "Time spent in a single component's vulnerability lookup.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sbomrisk_vuln_cache_lookups_total",
			Help: "Vulnerability cache lookups by outcome (hit or miss).",
		}, []string{"outcome"}),
		Analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sbomrisk_analyses_total",
			Help: "Completed analyses by overall risk level.",
		}, []string{"risk_level"}),
		ComponentsAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sbomrisk_components_analyzed_total",
			Help: "Components processed across all analyses.",
		}),
		AuditWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "sbomrisk_audit_write_failures_total",
			Help: "Audit records that could not be persisted.",
		}),
	}
}

// NopMetrics returns collectors that are not registered anywhere.
func NopMetrics() *Metrics {
	return NewMetrics(nil)
}
