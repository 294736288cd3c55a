package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	AskTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ask_total",
			Help:      "Questions answered by outcome",
		},
		[]string{"outcome"},
	)

	AskConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ask_confidence",
			Help:      "Confidence of successful answers",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	CorpusDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "corpus_documents",
			Help:      "Documents in the loaded corpus",
		},
	)
)

var ragMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if ragMetricsRegistered {
		return
	}
	prometheus.MustRegister(AskTotal)
	prometheus.MustRegister(AskConfidence)
	prometheus.MustRegister(CorpusDocuments)
	ragMetricsRegistered = true
}
