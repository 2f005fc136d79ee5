package metrics

import "github.com/prometheus/client_golang/prometheus"

// PlatformMetrics exposes counters/histograms for patient and hospital flows.
type PlatformMetrics struct {
	authAttempts      *prometheus.CounterVec
	wizardTransitions *prometheus.CounterVec
	bookingsConfirmed *prometheus.CounterVec
	registrations     *prometheus.CounterVec
	directoryQueries  *prometheus.CounterVec
	storeLatency      *prometheus.HistogramVec
}

func NewPlatformMetrics(reg prometheus.Registerer) *PlatformMetrics {
	m := &PlatformMetrics{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Sign-in and sign-up submissions by outcome",
		}, []string{"mode", "outcome"}),
		wizardTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "booking",
			Name:      "wizard_transitions_total",
			Help:      "Booking wizard actions by outcome",
		}, []string{"action", "outcome"}),
		bookingsConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "booking",
			Name:      "confirmed_total",
			Help:      "Confirmed bookings",
		}, []string{"persisted"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "hospital",
			Name:      "doctor_registrations_total",
			Help:      "Doctor registration submissions by outcome",
		}, []string{"outcome"}),
		directoryQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "directory",
			Name:      "queries_total",
			Help:      "Directory list and detail requests by outcome",
		}, []string{"kind", "outcome"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediconnect",
			Subsystem: "docstore",
			Name:      "call_latency_seconds",
			Help:      "Latency of document store calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.authAttempts, m.wizardTransitions, m.bookingsConfirmed, m.registrations, m.directoryQueries, m.storeLatency)
	return m
}

func (m *PlatformMetrics) ObserveAuth(mode, outcome string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(mode, outcome).Inc()
}

func (m *PlatformMetrics) ObserveWizard(action, outcome string) {
	if m == nil {
		return
	}
	m.wizardTransitions.WithLabelValues(action, outcome).Inc()
}

func (m *PlatformMetrics) ObserveBookingConfirmed(persisted bool) {
	if m == nil {
		return
	}
	label := "false"
	if persisted {
		label = "true"
	}
	m.bookingsConfirmed.WithLabelValues(label).Inc()
}

func (m *PlatformMetrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

func (m *PlatformMetrics) ObserveDirectory(kind, outcome string) {
	if m == nil {
		return
	}
	m.directoryQueries.WithLabelValues(kind, outcome).Inc()
}

func (m *PlatformMetrics) ObserveStoreLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.storeLatency.WithLabelValues(operation).Observe(seconds)
}
