package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LeadMetrics exposes counters/histograms for the lead capture flows.
type LeadMetrics struct {
	answersTotal      *prometheus.CounterVec
	submissionsTotal  *prometheus.CounterVec
	submissionLatency *prometheus.HistogramVec
	chatSessions      prometheus.Gauge
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		answersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optimumsoft",
			Subsystem: "chat",
			Name:      "answers_total",
			Help:      "Chat answers by step and validation result",
		}, []string{"step", "result"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optimumsoft",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Lead submissions relayed to the gateway",
		}, []string{"source", "outcome"}),
		submissionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "optimumsoft",
			Subsystem: "leads",
			Name:      "submission_latency_seconds",
			Help:      "Latency of lead gateway submissions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		chatSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "optimumsoft",
			Subsystem: "chat",
			Name:      "active_sessions",
			Help:      "Open chat widget sessions",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.answersTotal, m.submissionsTotal, m.submissionLatency, m.chatSessions)
	return m
}

// ObserveAnswer counts one chat answer.
func (m *LeadMetrics) ObserveAnswer(step string, accepted bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.answersTotal.WithLabelValues(step, result).Inc()
}

func (m *LeadMetrics) ObserveSubmission(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(source, outcome).Inc()
	m.submissionLatency.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *LeadMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.chatSessions.Inc()
}

func (m *LeadMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.chatSessions.Dec()
}
