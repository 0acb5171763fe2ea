package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "giftregistry"

// Outcome label values.
const (
	outcomeReceived     = "received"
	outcomeProcessed    = "processed"
	outcomeFailed       = "failed"
	outcomeDeadLettered = "dead_lettered"
	outcomePublished    = "published"
	outcomeError        = "error"
)

// Change events drive live views, so the buckets sit well below a second.
var syncBuckets = []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}

var (
	consumerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka_consumer",
			Name:      "messages_total",
			Help:      "Kafka messages seen by consumers, by outcome.",
		},
		[]string{"topic", "consumer_group", "outcome"},
	)

	consumerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka_consumer",
			Name:      "handle_duration_seconds",
			Help:      "Time spent in the message handler, retries included.",
			Buckets:   syncBuckets,
		},
		[]string{"topic", "consumer_group"},
	)

	duplicateEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka_consumer",
			Name:      "duplicates_total",
			Help:      "Events dropped because their ID was already handled.",
		},
		[]string{"event_type"},
	)

	producerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka_producer",
			Name:      "messages_total",
			Help:      "Kafka publish attempts, by outcome.",
		},
		[]string{"topic", "outcome"},
	)

	producerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka_producer",
			Name:      "publish_duration_seconds",
			Help:      "Time taken by a single publish call.",
			Buckets:   syncBuckets,
		},
		[]string{"topic"},
	)
)
