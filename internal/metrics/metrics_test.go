package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue returns the value of the counter name with the given label pairs.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("weather_lookup", reg)

	c.ObserveFetch("/data/2.5/weather", "ok", 120*time.Millisecond)
	c.ObserveFetch("/data/2.5/weather", "ok", 80*time.Millisecond)
	c.ObserveFetch("/geo/1.0/direct", "http_401", 10*time.Millisecond)
	c.ObserveCycle("cancelled")
	c.ObserveSuggestions("skipped")

	if got := counterValue(t, reg, "weather_lookup_upstream_requests_total",
		map[string]string{"endpoint": "/data/2.5/weather", "outcome": "ok"}); got != 2 {
		t.Fatalf("expected 2 ok weather requests, got %v", got)
	}
	if got := counterValue(t, reg, "weather_lookup_upstream_requests_total",
		map[string]string{"endpoint": "/geo/1.0/direct", "outcome": "http_401"}); got != 1 {
		t.Fatalf("expected 1 rejected geocode request, got %v", got)
	}
	if got := counterValue(t, reg, "weather_lookup_fetch_cycles_total",
		map[string]string{"outcome": "cancelled"}); got != 1 {
		t.Fatalf("expected 1 cancelled cycle, got %v", got)
	}
	if got := counterValue(t, reg, "weather_lookup_suggestion_lookups_total",
		map[string]string{"outcome": "skipped"}); got != 1 {
		t.Fatalf("expected 1 skipped lookup, got %v", got)
	}
}

func TestCollectorsOnSeparateRegistries(t *testing.T) {
	NewCollector("weather_lookup", prometheus.NewRegistry())
	NewCollector("weather_lookup", prometheus.NewRegistry())
}
