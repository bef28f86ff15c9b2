package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcomes used as the "outcome" label
const (
	OutcomeDelivered = "delivered" // 2xx from the webhook
	OutcomeRejected  = "rejected"  // non-2xx from the webhook
	OutcomeFailed    = "failed"    // transport-level failure
)

var (
	InvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertrelay_invocations_total",
			Help: "Total number of relay invocations by trigger.",
		},
		[]string{"trigger"}, // lambda, http, cli
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertrelay_deliveries_total",
			Help: "Total number of webhook deliveries by outcome.",
		},
		[]string{"outcome"},
	)

	DeliveryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alertrelay_delivery_latency_seconds",
			Help:    "Webhook delivery latency by outcome.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	HTTPResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertrelay_http_responses_total",
			Help: "Total number of webhook HTTP responses by status code.",
		},
		[]string{"status_code"},
	)

	TransportFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertrelay_transport_failures_total",
			Help: "Total number of transport-level failures by reason.",
		},
		[]string{"reason"}, // timeout, canceled, dns_error, connection_refused, invalid_url, network, other
	)

	DefaultMessageTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alertrelay_default_message_total",
			Help: "Total number of invocations that fell back to the default message.",
		},
	)
)

// MustRegister registers every relay collector on reg
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		InvocationsTotal,
		DeliveriesTotal,
		DeliveryLatency,
		HTTPResponsesTotal,
		TransportFailuresTotal,
		DefaultMessageTotal,
	)
}

// RecordInvocation counts one invocation from the given trigger
func RecordInvocation(trigger string) {
	InvocationsTotal.WithLabelValues(trigger).Inc()
}

// RecordDelivery counts a delivery and observes its latency
func RecordDelivery(outcome string, latency time.Duration) {
	DeliveriesTotal.WithLabelValues(outcome).Inc()
	DeliveryLatency.WithLabelValues(outcome).Observe(latency.Seconds())
}

// RecordHTTPResponse counts a response received from the webhook
func RecordHTTPResponse(statusCode int) {
	HTTPResponsesTotal.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordTransportFailure counts a transport-level failure
func RecordTransportFailure(reason string) {
	TransportFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordDefaultMessage counts an invocation that used the default message
func RecordDefaultMessage() {
	DefaultMessageTotal.Inc()
}
