package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics counts admission and settlement outcomes.
type BookingMetrics struct {
	admitted *prometheus.CounterVec
	rejected *prometheus.CounterVec
	captures *prometheus.CounterVec
}

// NewBookingMetrics registers the booking metrics on the provided registerer.
func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	if reg == nil {
		return &BookingMetrics{}
	}
	admitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_admitted_total",
		Help: "Bookings admitted, by kind.",
	}, []string{"kind"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_rejected_total",
		Help: "Bookings rejected, by kind and reason.",
	}, []string{"kind", "reason"})
	captures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_captures_total",
		Help: "Gateway captures processed, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(admitted, rejected, captures)
	return &BookingMetrics{
		admitted: admitted,
		rejected: rejected,
		captures: captures,
	}
}

// IncAdmitted increments the admitted counter for the booking kind.
func (b *BookingMetrics) IncAdmitted(kind string) {
	if b == nil || b.admitted == nil {
		return
	}
	b.admitted.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncRejected increments the rejection counter for the kind and reason.
func (b *BookingMetrics) IncRejected(kind, reason string) {
	if b == nil || b.rejected == nil {
		return
	}
	b.rejected.WithLabelValues(normalizeLabel(kind), normalizeLabel(reason)).Inc()
}

// IncCapture increments the capture counter for the outcome.
func (b *BookingMetrics) IncCapture(outcome string) {
	if b == nil || b.captures == nil {
		return
	}
	b.captures.WithLabelValues(normalizeLabel(outcome)).Inc()
}
