package availability

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters/histograms for availability searches.
type Metrics struct {
	searchTotal    *prometheus.CounterVec
	slotsReturned  prometheus.Histogram
	searchLatency  prometheus.Histogram
	locationErrors *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		searchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practica",
			Subsystem: "availability",
			Name:      "search_total",
			Help:      "Total availability searches by outcome",
		}, []string{"outcome"}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "practica",
			Subsystem: "availability",
			Name:      "slots_returned",
			Help:      "Number of slots returned per search",
			Buckets:   []float64{0, 1, 3, 5, 10, 25, 50, 100},
		}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "practica",
			Subsystem: "availability",
			Name:      "search_latency_seconds",
			Help:      "Latency of availability searches",
			Buckets:   prometheus.DefBuckets,
		}),
		locationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practica",
			Subsystem: "availability",
			Name:      "location_branch_errors_total",
			Help:      "Per-location failures during multi-location search",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.searchTotal, m.slotsReturned, m.searchLatency, m.locationErrors)
	return m
}

func (m *Metrics) ObserveSearch(outcome string, slots int, seconds float64) {
	if m == nil {
		return
	}
	m.searchTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.slotsReturned.Observe(float64(slots))
	}
	m.searchLatency.Observe(seconds)
}

func (m *Metrics) ObserveLocationError(kind string) {
	if m == nil {
		return
	}
	m.locationErrors.WithLabelValues(kind).Inc()
}
