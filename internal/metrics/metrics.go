package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	FetchRequestsTotal *prometheus.CounterVec
	FetchDuration      *prometheus.HistogramVec

	FetchCyclesTotal      *prometheus.CounterVec
	SuggestionLookupTotal *prometheus.CounterVec
}

// NewCollector registers the collector's metrics with reg.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		FetchRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of upstream weather API requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),

		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Upstream weather API request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"endpoint"},
		),

		FetchCyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_cycles_total",
				Help:      "Total number of weather/forecast fetch cycles by outcome",
			},
			[]string{"outcome"},
		),

		SuggestionLookupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "suggestion_lookups_total",
				Help:      "Total number of city suggestion lookups by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveFetch records one upstream request.
func (c *Collector) ObserveFetch(endpoint, outcome string, elapsed time.Duration) {
	c.FetchRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	c.FetchDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveCycle records the end of a fetch cycle.
func (c *Collector) ObserveCycle(outcome string) {
	c.FetchCyclesTotal.WithLabelValues(outcome).Inc()
}

// ObserveSuggestions records a suggestion lookup.
func (c *Collector) ObserveSuggestions(outcome string) {
	c.SuggestionLookupTotal.WithLabelValues(outcome).Inc()
}
