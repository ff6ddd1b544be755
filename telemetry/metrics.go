package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pthm-cable/popsim/components"
)

// Metrics exposes run progress as Prometheus collectors on a private registry.
// A nil *Metrics ignores every call.
type Metrics struct {
	registry *prometheus.Registry

	births         *prometheus.CounterVec
	deaths         *prometheus.CounterVec
	population     *prometheus.GaugeVec
	stressedMonths *prometheus.CounterVec
	trials         *prometheus.CounterVec
	bookmarks      *prometheus.CounterVec
}

// NewMetrics creates and registers the simulation collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		births: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "popsim",
			Name:      "births_total",
			Help:      "Individuals born, founders included.",
		}, []string{"species", "habitat"}),
		deaths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "popsim",
			Name:      "deaths_total",
			Help:      "Individuals that died, by cause.",
		}, []string{"species", "habitat", "cause"}),
		population: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "popsim",
			Name:      "population",
			Help:      "Population at the end of the latest month.",
		}, []string{"species", "habitat"}),
		stressedMonths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "popsim",
			Name:      "stressed_months_total",
			Help:      "Months in which projected demand exceeded a resource ceiling.",
		}, []string{"species", "habitat"}),
		trials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "popsim",
			Name:      "trials_total",
			Help:      "Completed trials.",
		}, []string{"species"}),
		bookmarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "popsim",
			Name:      "bookmarks_total",
			Help:      "Triggered bookmarks, by type.",
		}, []string{"species", "habitat", "type"}),
	}
	m.registry.MustRegister(m.births, m.deaths, m.population, m.stressedMonths, m.trials, m.bookmarks)
	return m
}

// ObserveSeed counts the founding pair of a habitat.
func (m *Metrics) ObserveSeed(species, habitat string) {
	if m == nil {
		return
	}
	m.births.WithLabelValues(species, habitat).Add(2)
}

// ObserveMonth records one habitat month.
func (m *Metrics) ObserveMonth(s MonthStats) {
	if m == nil {
		return
	}
	m.births.WithLabelValues(s.Species, s.Habitat).Add(float64(s.Births))
	for _, c := range components.Causes {
		n := s.deathsBy(c)
		if n > 0 {
			m.deaths.WithLabelValues(s.Species, s.Habitat, c.Label()).Add(float64(n))
		}
	}
	m.population.WithLabelValues(s.Species, s.Habitat).Set(float64(s.Population))
	if s.Stressed {
		m.stressedMonths.WithLabelValues(s.Species, s.Habitat).Inc()
	}
}

// ObserveTrial counts a completed trial.
func (m *Metrics) ObserveTrial(species string) {
	if m == nil {
		return
	}
	m.trials.WithLabelValues(species).Inc()
}

// ObserveBookmark counts a triggered bookmark.
func (m *Metrics) ObserveBookmark(b Bookmark) {
	if m == nil {
		return
	}
	m.bookmarks.WithLabelValues(b.Species, b.Habitat, string(b.Type)).Inc()
}

// WriteTextfile writes the current values in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

func (s MonthStats) deathsBy(c components.Cause) int {
	switch c {
	case components.Heat:
		return s.HeatDeaths
	case components.Cold:
		return s.ColdDeaths
	case components.Starvation:
		return s.StarvationDeaths
	case components.Thirst:
		return s.ThirstDeaths
	case components.OldAge:
		return s.OldAgeDeaths
	}
	return 0
}
