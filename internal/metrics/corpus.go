package metrics

import "github.com/prometheus/client_golang/prometheus"

// Corpus and ranking Prometheus metrics.
var (
	CorpusBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "semsearch",
			Name:      "corpus_builds_total",
			Help:      "Corpus cache cold builds",
		},
		[]string{"status"}, // "success" / "error"
	)

	CorpusLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "semsearch",
			Name:      "corpus_loads_total",
			Help:      "Corpus cache loads from persistent storage",
		},
		[]string{"status"},
	)

	CorpusEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "semsearch",
			Name:      "corpus_entries",
			Help:      "Number of passages in the loaded corpus",
		},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "semsearch",
			Name:      "search_duration_seconds",
			Help:      "End-to-end query duration (tokenize, embed, rank) in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

var corpusMetricsRegistered bool

// RegisterCorpusMetrics registers corpus and search metrics. Must be called once from main.
func RegisterCorpusMetrics() {
	if corpusMetricsRegistered {
		return
	}
	prometheus.MustRegister(CorpusBuildsTotal)
	prometheus.MustRegister(CorpusLoadsTotal)
	prometheus.MustRegister(CorpusEntries)
	prometheus.MustRegister(SearchDuration)
	corpusMetricsRegistered = true
}
