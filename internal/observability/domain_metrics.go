package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	chatRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querychat_chat_requests_total",
			Help: "Total number of chat pipeline requests.",
		},
	)
	sqlSynthesisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_sql_synthesis_total",
			Help: "SQL synthesis attempts by outcome.",
		},
		[]string{"status"},
	)
	warehouseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_warehouse_queries_total",
			Help: "Warehouse query executions by outcome.",
		},
		[]string{"status"},
	)
	warehouseQueryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querychat_warehouse_query_duration_seconds",
			Help:    "Warehouse query latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	embeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_embedding_requests_total",
			Help: "Embedding provider calls by provider and outcome.",
		},
		[]string{"provider", "status"},
	)
	retrievalDocuments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querychat_retrieval_documents",
			Help:    "Number of schema context documents returned per retrieval.",
			Buckets: []float64{0, 1, 2, 3, 5, 7, 10, 15},
		},
	)
	chartRendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_chart_renders_total",
			Help: "Chart render attempts by chart kind and outcome.",
		},
		[]string{"kind", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		chatRequestsTotal,
		sqlSynthesisTotal,
		warehouseQueriesTotal,
		warehouseQueryDurationSeconds,
		embeddingRequestsTotal,
		retrievalDocuments,
		chartRendersTotal,
	)
}

func IncrementChatRequests() {
	chatRequestsTotal.Inc()
}

func ObserveSQLSynthesis(ok bool) {
	sqlSynthesisTotal.WithLabelValues(outcome(ok)).Inc()
}

func ObserveWarehouseQuery(ok bool, elapsed time.Duration) {
	warehouseQueriesTotal.WithLabelValues(outcome(ok)).Inc()
	warehouseQueryDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveEmbeddingRequest(provider string, ok bool) {
	embeddingRequestsTotal.WithLabelValues(provider, outcome(ok)).Inc()
}

func ObserveRetrieval(documents int) {
	if documents < 0 {
		documents = 0
	}
	retrievalDocuments.Observe(float64(documents))
}

func ObserveChartRender(kind string, ok bool) {
	chartRendersTotal.WithLabelValues(kind, outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
