package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the filing pipeline: remote calls, cache effectiveness and
// run outcomes. All methods are safe on a nil receiver so components can be
// built without instrumentation in tests.
type Metrics struct {
	APIRequests        *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	SectionExtractions *prometheus.CounterVec
	SkillRuns          *prometheus.CounterVec
}

// New registers the pipeline metrics with reg. Pass prometheus.DefaultRegisterer
// in binaries and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		APIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edinetqa_api_requests_total",
			Help: "EDINET API requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edinetqa_cache_lookups_total",
			Help: "On-disk cache lookups by namespace and result (hit, miss, stale, corrupt)",
		}, []string{"namespace", "result"}),
		SectionExtractions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edinetqa_section_extractions_total",
			Help: "Section extraction attempts by result",
		}, []string{"result"}),
		SkillRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edinetqa_skill_runs_total",
			Help: "Skill runs by outcome (evidence, clarification, config_error)",
		}, []string{"outcome"}),
	}
}

// ObserveAPI records one remote call.
func (m *Metrics) ObserveAPI(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveCache records one cache lookup.
func (m *Metrics) ObserveCache(namespace, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(namespace, result).Inc()
}

// ObserveExtraction records one section extraction attempt.
func (m *Metrics) ObserveExtraction(result string) {
	if m == nil {
		return
	}
	m.SectionExtractions.WithLabelValues(result).Inc()
}

// ObserveRun records the outcome of a skill run.
func (m *Metrics) ObserveRun(outcome string) {
	if m == nil {
		return
	}
	m.SkillRuns.WithLabelValues(outcome).Inc()
}
