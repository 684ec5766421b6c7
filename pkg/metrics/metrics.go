package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Dispatch related metrics
	DispatchesTotal  *prometheus.CounterVec
	DispatchLatency  *prometheus.HistogramVec
	DispatchQueueLen prometheus.Gauge

	// Channel related metrics
	ChannelSends    *prometheus.CounterVec
	ChannelLatency  *prometheus.HistogramVec
	TokensInvalidated prometheus.Counter

	// Scheduler metrics
	SweepRuns     *prometheus.CounterVec
	SweepDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		DispatchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Total number of notification dispatches by event and outcome",
		}, []string{"event", "outcome"}),
		DispatchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching a notification across all channels",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"event"}),
		DispatchQueueLen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_queue_length",
			Help:      "Current number of queued notification dispatches",
		}),

		ChannelSends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_sends_total",
			Help:      "Per-recipient send attempts by channel and status",
		}, []string{"channel", "status"}),
		ChannelLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "channel_send_duration_seconds",
			Help:      "Duration of a channel batch send",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"channel"}),
		TokensInvalidated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_tokens_invalidated_total",
			Help:      "Total number of push tokens cleared after unregistered errors",
		}),

		SweepRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_sweep_runs_total",
			Help:      "Reminder sweep executions by sweep name and status",
		}, []string{"sweep", "status"}),
		SweepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_sweep_duration_seconds",
			Help:      "Duration of a reminder sweep",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30},
		}, []string{"sweep"}),
	}
}

// NewForTest builds an unregistered metric set so parallel tests do not
// collide on the default registry.
func NewForTest() *Metrics {
	return &Metrics{
		DispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatches_total",
		}, []string{"event", "outcome"}),
		DispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "dispatch_duration_seconds",
		}, []string{"event"}),
		DispatchQueueLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_queue_length",
		}),
		ChannelSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "channel_sends_total",
		}, []string{"channel", "status"}),
		ChannelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "channel_send_duration_seconds",
		}, []string{"channel"}),
		TokensInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_tokens_invalidated_total",
		}),
		SweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_sweep_runs_total",
		}, []string{"sweep", "status"}),
		SweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "scheduler_sweep_duration_seconds",
		}, []string{"sweep"}),
	}
}
