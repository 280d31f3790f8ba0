package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AllocationMetrics records allocation engine outcomes.
type AllocationMetrics struct {
	outcomes *prometheus.CounterVec
	rounds   *prometheus.HistogramVec
	latency  *prometheus.HistogramVec
}

// NewAllocationMetrics registers allocation metrics on the provided registerer.
func NewAllocationMetrics(reg prometheus.Registerer) *AllocationMetrics {
	if reg == nil {
		return &AllocationMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_outcomes_total",
		Help: "Allocation outcomes by result (full, partial, none).",
	}, []string{"result"})
	rounds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "allocation_realloc_rounds",
		Help:    "Re-allocation rounds consumed before a line settled.",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	}, []string{"product"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "allocation_duration_seconds",
		Help:    "Time spent allocating one order line.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	reg.MustRegister(outcomes, rounds, latency)
	return &AllocationMetrics{
		outcomes: outcomes,
		rounds:   rounds,
		latency:  latency,
	}
}

// IncOutcome increments the counter for the given allocation result.
func (a *AllocationMetrics) IncOutcome(result string) {
	if a == nil || a.outcomes == nil {
		return
	}
	a.outcomes.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveRounds records how many re-allocation rounds a line consumed.
func (a *AllocationMetrics) ObserveRounds(product string, rounds int) {
	if a == nil || a.rounds == nil {
		return
	}
	a.rounds.WithLabelValues(normalizeLabel(product)).Observe(float64(rounds))
}

// ObserveDuration records the allocation latency for one line.
func (a *AllocationMetrics) ObserveDuration(result string, d time.Duration) {
	if a == nil || a.latency == nil {
		return
	}
	a.latency.WithLabelValues(normalizeLabel(result)).Observe(d.Seconds())
}
