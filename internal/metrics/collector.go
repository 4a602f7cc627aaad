// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector gathers conversation orchestration metrics.
type Collector struct {
	conversationsInitiated *prometheus.CounterVec
	conversationsResolved  *prometheus.CounterVec
	activeConversations    prometheus.Gauge
	stateTransitions       *prometheus.CounterVec

	escalationsTotal   *prometheus.CounterVec
	timeoutsTotal      prometheus.Counter
	staleTimeoutsTotal prometheus.Counter
	stalledTotal       prometheus.Counter
	misconfiguredLoops prometheus.Counter

	deliveryFailures   *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates a metrics collector under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.conversationsInitiated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_initiated_total",
			Help:      "Total number of conversations initiated",
		},
		[]string{"category"},
	)

	c.conversationsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_resolved_total",
			Help:      "Total number of conversations reaching a terminal state",
		},
		[]string{"outcome"},
	)

	c.activeConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversations_active",
			Help:      "Number of non-terminal conversations",
		},
	)

	c.stateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of conversation state transitions",
		},
		[]string{"event_type"},
	)

	c.escalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Total number of escalations by trigger",
		},
		[]string{"trigger"},
	)

	c.timeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeouts_total",
			Help:      "Total number of wait timeouts fired",
		},
	)

	c.staleTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_timeouts_total",
			Help:      "Total number of timer callbacks rejected as stale",
		},
	)

	c.stalledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_stalled_total",
			Help:      "Total number of retry cycles at the root authority with no further escalation target",
		},
	)

	c.misconfiguredLoops = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "misconfigured_loops_total",
			Help:      "Total number of escalations that resolved the same responder again",
		},
	)

	c.deliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Total number of sends that exhausted their retries",
		},
		[]string{"message_type"},
	)

	c.resolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Time from initiation to a terminal state",
			Buckets:   []float64{1, 10, 60, 300, 600, 1800, 3600, 14400},
		},
		[]string{"outcome"},
	)

	return c
}

// RecordInitiated counts a new conversation.
func (c *Collector) RecordInitiated(category string) {
	c.conversationsInitiated.WithLabelValues(category).Inc()
	c.activeConversations.Inc()
}

// RecordResolved counts a conversation reaching a terminal state.
func (c *Collector) RecordResolved(outcome string, age time.Duration) {
	c.conversationsResolved.WithLabelValues(outcome).Inc()
	c.activeConversations.Dec()
	c.resolutionDuration.WithLabelValues(outcome).Observe(age.Seconds())
}

// RecordTransition counts one applied state transition.
func (c *Collector) RecordTransition(eventType string) {
	c.stateTransitions.WithLabelValues(eventType).Inc()
}

// RecordEscalation counts an escalation by trigger (timeout | decline | delivery_failure).
func (c *Collector) RecordEscalation(trigger string) {
	c.escalationsTotal.WithLabelValues(trigger).Inc()
}

// RecordTimeout counts a fired wait timeout.
func (c *Collector) RecordTimeout() {
	c.timeoutsTotal.Inc()
}

// RecordStaleTimeout counts a rejected stale timer callback.
func (c *Collector) RecordStaleTimeout() {
	c.staleTimeoutsTotal.Inc()
}

// RecordStalled counts a retry cycle at the root authority.
func (c *Collector) RecordStalled() {
	c.stalledTotal.Inc()
}

// RecordMisconfiguredLoop counts a same-responder escalation.
func (c *Collector) RecordMisconfiguredLoop() {
	c.misconfiguredLoops.Inc()
}

// RecordDeliveryFailure counts a send that exhausted its retries.
func (c *Collector) RecordDeliveryFailure(messageType string) {
	c.deliveryFailures.WithLabelValues(messageType).Inc()
}
