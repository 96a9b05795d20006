package services

import "github.com/prometheus/client_golang/prometheus"

// OfferMetrics counts workflow outcomes per domain and operation. A nil
// *OfferMetrics records nothing.
type OfferMetrics struct {
	events   *prometheus.CounterVec
	warnings *prometheus.CounterVec
}

func NewOfferMetrics(reg prometheus.Registerer) *OfferMetrics {
	m := &OfferMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "offer_workflow",
			Name:      "events_total",
			Help:      "Offer workflow operations by domain, operation and outcome.",
		}, []string{"domain", "operation", "outcome"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "offer_workflow",
			Name:      "warnings_total",
			Help:      "Committed offer workflow operations whose follow-up step failed.",
		}, []string{"domain", "operation", "kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.warnings)
	}
	return m
}

func (m *OfferMetrics) observe(domain, operation, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(domain, operation, outcome).Inc()
}

func (m *OfferMetrics) warn(domain, operation, kind string) {
	if m == nil {
		return
	}
	m.warnings.WithLabelValues(domain, operation, kind).Inc()
}
