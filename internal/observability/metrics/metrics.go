package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulerMetrics exposes counters/histograms for the scheduling flows.
type SchedulerMetrics struct {
	transitions    *prometheus.CounterVec
	bookings       *prometheus.CounterVec
	webhookTotal   *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
	outreachTotal  *prometheus.CounterVec
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldservice",
			Subsystem: "conversation",
			Name:      "transitions_total",
			Help:      "Dialogue state transitions by origin and destination state",
		}, []string{"from", "to"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldservice",
			Subsystem: "dispatch",
			Name:      "confirmations_total",
			Help:      "Confirmation attempts by outcome",
		}, []string{"outcome"}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldservice",
			Subsystem: "messaging",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound chat webhooks",
		}, []string{"status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fieldservice",
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound webhook handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		outreachTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldservice",
			Subsystem: "outreach",
			Name:      "sends_total",
			Help:      "Outbound contact attempts by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.bookings, m.webhookTotal, m.webhookLatency, m.outreachTotal)
	return m
}

func (m *SchedulerMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(labelOrNone(from), labelOrNone(to)).Inc()
}

func (m *SchedulerMetrics) ObserveConfirmation(outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
}

func (m *SchedulerMetrics) ObserveWebhook(status string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(status).Inc()
	m.webhookLatency.WithLabelValues(status).Observe(seconds)
}

func (m *SchedulerMetrics) ObserveOutreach(status string) {
	if m == nil {
		return
	}
	m.outreachTotal.WithLabelValues(status).Inc()
}

func labelOrNone(state string) string {
	if state == "" {
		return "none"
	}
	return state
}
