package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/redemption-relay/internal/model"
	"github.com/rickgao/redemption-relay/internal/policy"
)

const namespace = "redemption_relay"

// Metrics holds the relay's collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	sourceReads    *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	sweepDuration  *prometheus.HistogramVec
	submissions    *prometheus.CounterVec
	submitDuration prometheus.Histogram
	lastValue      *prometheus.GaugeVec
	lastTimestamp  *prometheus.GaugeVec
}

// New creates the collectors and registers them, together with the process
// and Go runtime collectors, in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		sourceReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "reads_total",
				Help:      "Redemption rate reads by asset and outcome.",
			},
			[]string{"asset", "status"},
		),

		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "decisions_total",
				Help:      "Submission policy decisions by trigger.",
			},
			[]string{"trigger", "decision"},
		),

		sweepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "sweep_duration_seconds",
				Help:      "Duration of sweeps, including time blocked on the handoff.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"trigger"},
		),

		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "submissions_total",
				Help:      "Destination submissions by asset and outcome.",
			},
			[]string{"asset", "status"},
		),

		submitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "submission_duration_seconds",
				Help:      "Time from taking a quote to its final outcome.",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4m
			},
		),

		lastValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "last_submitted_value",
				Help:      "Last redemption rate written to the destination.",
			},
			[]string{"asset"},
		),

		lastTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "last_submitted_timestamp_seconds",
				Help:      "Observation time of the last value written to the destination.",
			},
			[]string{"asset"},
		),
	}

	m.registry.MustRegister(
		m.sourceReads,
		m.decisions,
		m.sweepDuration,
		m.submissions,
		m.submitDuration,
		m.lastValue,
		m.lastTimestamp,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)

	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterQueueDepth exposes a gauge that reports depth() on every scrape.
func (m *Metrics) RegisterQueueDepth(name string, depth func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "queue",
			Name:        "depth",
			Help:        "Items waiting in an internal queue.",
			ConstLabels: prometheus.Labels{"queue": name},
		},
		func() float64 { return float64(depth()) },
	))
}

// ObserveRead counts a source read.
func (m *Metrics) ObserveRead(asset model.Asset, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.sourceReads.WithLabelValues(asset.Pair(), status).Inc()
}

// ObserveDecision counts a policy decision.
func (m *Metrics) ObserveDecision(trigger model.Trigger, decision policy.Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(trigger.String(), decision.String()).Inc()
}

// ObserveSweep records a sweep's duration.
func (m *Metrics) ObserveSweep(trigger model.Trigger, d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.WithLabelValues(trigger.String()).Observe(d.Seconds())
}

// RecordSubmission records a submission outcome.
func (m *Metrics) RecordSubmission(s model.Submission) {
	if m == nil {
		return
	}
	pair := s.Quote.Asset.Pair()
	m.submissions.WithLabelValues(pair, s.Status()).Inc()
	m.submitDuration.Observe(s.Duration.Seconds())

	if s.Succeeded() {
		m.lastValue.WithLabelValues(pair).Set(s.Quote.Value.InexactFloat64())
		m.lastTimestamp.WithLabelValues(pair).Set(float64(s.Quote.Timestamp))
	}
}
