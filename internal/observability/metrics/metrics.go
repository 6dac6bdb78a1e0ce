package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// RelayMetrics exposes counters/histograms for registration, chat relay and
// triage flows.
type RelayMetrics struct {
	chatTotal       *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	registrations   *prometheus.CounterVec
	severity        *prometheus.HistogramVec
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		chatTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lifevault",
			Subsystem: "relay",
			Name:      "chat_requests_total",
			Help:      "Chat relay calls by outcome",
		}, []string{"outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lifevault",
			Subsystem: "relay",
			Name:      "upstream_latency_seconds",
			Help:      "Latency of completion service calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"provider", "outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lifevault",
			Subsystem: "registry",
			Name:      "registrations_total",
			Help:      "Register-user calls by result",
		}, []string{"result"}),
		severity: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lifevault",
			Subsystem: "triage",
			Name:      "severity",
			Help:      "Severity scores extracted from assistant replies",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		}, []string{"urgent"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.chatTotal, m.upstreamLatency, m.registrations, m.severity)
	return m
}

func (m *RelayMetrics) ObserveChat(outcome string) {
	if m == nil {
		return
	}
	m.chatTotal.WithLabelValues(outcome).Inc()
}

func (m *RelayMetrics) ObserveUpstream(provider, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(provider, outcome).Observe(seconds)
}

func (m *RelayMetrics) ObserveRegistration(result string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(result).Inc()
}

func (m *RelayMetrics) ObserveSeverity(severity int, urgent bool) {
	if m == nil {
		return
	}
	m.severity.WithLabelValues(strconv.FormatBool(urgent)).Observe(float64(severity))
}
