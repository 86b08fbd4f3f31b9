package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filterbot_messages_dispatched_total",
		Help: "The total number of dispatched incoming messages",
	}, []string{"status"})

	MessagesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filterbot_messages_rejected_total",
		Help: "Total number of messages rejected before dispatch by reason",
	}, []string{"reason"})

	FilterMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filterbot_filter_matches_total",
		Help: "The total number of filter matches by match type",
	}, []string{"match_type"})

	FilterEvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "filterbot_filter_evaluation_duration_seconds",
		Help:    "Duration of filter pipeline runs per message",
		Buckets: prometheus.DefBuckets,
	})

	ForwardsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filterbot_forwards_delivered_total",
		Help: "The total number of forward delivery attempts by outcome",
	}, []string{"status"})

	ForwardsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filterbot_forwards_pending",
		Help: "Number of forward records currently pending delivery",
	})

	SourceCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filterbot_source_cache_size",
		Help: "Number of active source chat ids in the activation cache",
	})

	EmbeddingRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "filterbot_embedding_request_duration_seconds",
		Help:    "Duration of embedding provider requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filterbot_embedding_requests_total",
		Help: "Total number of embedding requests",
	}, []string{"provider", "result"})
)
