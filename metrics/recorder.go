package metrics

import (
	"net/http"
	"time"

	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/indexing"
	"github.com/poiesic/docqa/qa"
	"github.com/poiesic/docqa/retrieval"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docqa"

var defaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Recorder exports indexing, retrieval and query activity as Prometheus
// metrics. It satisfies the monitor interfaces of those packages.
type Recorder struct {
	registry *prometheus.Registry

	documentsIndexed  prometheus.Counter
	chunksStored      prometheus.Counter
	documentFailures  *prometheus.CounterVec
	indexDuration     prometheus.Histogram
	retrievals        *prometheus.CounterVec
	retrievalResults  prometheus.Histogram
	retrievalDuration prometheus.Histogram
	queries           *prometheus.CounterVec
	queryDuration     prometheus.Histogram
}

var (
	_ indexing.Monitor  = (*Recorder)(nil)
	_ retrieval.Monitor = (*Recorder)(nil)
	_ qa.Monitor        = (*Recorder)(nil)
)

// Option configures a Recorder.
type Option func(*Recorder)

// WithRegistry registers metrics on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// NewRecorder creates a recorder. A fresh registry also carries the Go
// runtime and process collectors.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	r.documentsIndexed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "indexing", Name: "documents_total",
		Help: "Documents indexed successfully.",
	})
	r.chunksStored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "indexing", Name: "chunks_total",
		Help: "Chunks stored in the vector index.",
	})
	r.documentFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "indexing", Name: "failures_total",
		Help: "Documents skipped, by failing stage.",
	}, []string{"stage"})
	r.indexDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "indexing", Name: "document_duration_seconds",
		Help: "Time to split, embed and store one document.", Buckets: defaultBuckets,
	})
	r.retrievals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "retrieval", Name: "requests_total",
		Help: "Retrieval requests, by outcome.",
	}, []string{"outcome"})
	r.retrievalResults = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "retrieval", Name: "results",
		Help: "Results returned per retrieval.", Buckets: prometheus.LinearBuckets(0, 5, 11),
	})
	r.retrievalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "retrieval", Name: "duration_seconds",
		Help: "Time to embed a question and search the index.", Buckets: defaultBuckets,
	})
	r.queries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "qa", Name: "queries_total",
		Help: "Answered queries, by outcome.",
	}, []string{"outcome"})
	r.queryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "qa", Name: "query_duration_seconds",
		Help: "End to end query time.", Buckets: defaultBuckets,
	})

	r.registry.MustRegister(
		r.documentsIndexed, r.chunksStored, r.documentFailures, r.indexDuration,
		r.retrievals, r.retrievalResults, r.retrievalDuration,
		r.queries, r.queryDuration,
	)
	return r
}

// RegisterSessionGauge exports the value of count as the active session
// gauge. count is called on every scrape.
func (r *Recorder) RegisterSessionGauge(count func() int) error {
	return r.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "conversation", Name: "active_sessions",
		Help: "Sessions active within the session timeout.",
	}, func() float64 { return float64(count()) }))
}

func (r *Recorder) DocumentIndexed(_ string, chunks int, elapsed time.Duration) {
	r.documentsIndexed.Inc()
	r.chunksStored.Add(float64(chunks))
	r.indexDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) DocumentFailed(_, stage string, _ error) {
	r.documentFailures.WithLabelValues(stage).Inc()
}

func (r *Recorder) Start(_ string) {}

func (r *Recorder) Failed(_ error) {
	r.retrievals.WithLabelValues("error").Inc()
}

func (r *Recorder) Finish(results []core.SearchResult, elapsed time.Duration) {
	r.retrievals.WithLabelValues("ok").Inc()
	r.retrievalResults.Observe(float64(len(results)))
	r.retrievalDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) QueryCompleted(success bool, elapsed time.Duration) {
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	r.queries.WithLabelValues(outcome).Inc()
	r.queryDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
