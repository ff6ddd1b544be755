package telemetry

import "github.com/pthm-cable/popsim/components"

// Collector accumulates events for one habitat during a month and produces
// MonthStats.
type Collector struct {
	births int
	deaths components.DeathCounts
}

// NewCollector creates a new month collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordBirth records a birth event.
func (c *Collector) RecordBirth() {
	c.births++
}

// RecordDeath records a death event.
func (c *Collector) RecordDeath(cause components.Cause) {
	c.deaths.Add(cause)
}

// HabitatState is the end-of-month habitat state supplied to Flush.
type HabitatState struct {
	Habitat       string
	Temperature   float64
	Stressed      bool
	Population    int
	Males         int
	MaxPopulation int
	TotalBirths   int
	TotalDeaths   int
	FoodLeft      float64
	WaterLeft     float64
}

// Flush produces a MonthStats and resets counters for the next month.
// Calendar fields are left for the caller to fill in.
func (c *Collector) Flush(h HabitatState) MonthStats {
	stats := MonthStats{
		Habitat:     h.Habitat,
		Temperature: h.Temperature,
		Stressed:    h.Stressed,

		Population:    h.Population,
		Males:         h.Males,
		MaxPopulation: h.MaxPopulation,

		Births:           c.births,
		Deaths:           c.deaths.Total(),
		HeatDeaths:       c.deaths.Get(components.Heat),
		ColdDeaths:       c.deaths.Get(components.Cold),
		StarvationDeaths: c.deaths.Get(components.Starvation),
		ThirstDeaths:     c.deaths.Get(components.Thirst),
		OldAgeDeaths:     c.deaths.Get(components.OldAge),

		TotalBirths: h.TotalBirths,
		TotalDeaths: h.TotalDeaths,
		FoodLeft:    h.FoodLeft,
		WaterLeft:   h.WaterLeft,
	}

	c.births = 0
	c.deaths = components.DeathCounts{}

	return stats
}
