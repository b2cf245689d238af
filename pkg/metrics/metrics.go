// Package metrics holds the Prometheus collectors for statement imports.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bankountable"

type Metrics struct {
	DocumentsParsed *prometheus.CounterVec
	ParseFailures   *prometheus.CounterVec
	AccessModes     *prometheus.CounterVec
	Candidates      prometheus.Counter
	ParseDuration   prometheus.Histogram
	Imports         *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DocumentsParsed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "documents_parsed_total",
			Help:      "Documents parsed, by the strategy that produced transactions.",
		}, []string{"strategy"}),
		ParseFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "failures_total",
			Help:      "Parse failures by error kind.",
		}, []string{"kind"}),
		AccessModes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "document_access_total",
			Help:      "Opened documents by access mode (none, primary, secondary).",
		}, []string{"mode"}),
		Candidates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "transactions_extracted_total",
			Help:      "Transactions extracted after reconciliation.",
		}),
		ParseDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "parse_duration_seconds",
			Help:      "Time spent opening and parsing a document.",
			Buckets:   prometheus.DefBuckets,
		}),
		Imports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "batches_total",
			Help:      "Import batches by final status.",
		}, []string{"status"}),
	}
}

// ObserveParse records a successful parse.
func (m *Metrics) ObserveParse(strategy, mode string, candidates int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = "none"
	}
	m.DocumentsParsed.WithLabelValues(strategy).Inc()
	m.AccessModes.WithLabelValues(mode).Inc()
	m.Candidates.Add(float64(candidates))
	m.ParseDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveFailure(kind string) {
	if m == nil {
		return
	}
	m.ParseFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveImport(status string) {
	if m == nil {
		return
	}
	m.Imports.WithLabelValues(status).Inc()
}
