package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/popsim/components"
)

// Report is the aggregate outcome of every trial of one species in one habitat.
type Report struct {
	Species    string `csv:"species" db:"species" json:"species"`
	Habitat    string `csv:"habitat" db:"habitat" json:"habitat"`
	Iterations int    `csv:"iterations" db:"iterations" json:"iterations"`
	Years      int    `csv:"years" db:"years" json:"years"`

	AveragePopulation float64 `csv:"average_population" db:"average_population" json:"average_population"`
	MaxPopulation     int     `csv:"max_population" db:"max_population" json:"max_population"`

	// Counters of the most recent trial
	TotalBirths   int     `csv:"total_births" db:"total_births" json:"total_births"`
	TotalDeaths   int     `csv:"total_deaths" db:"total_deaths" json:"total_deaths"`
	MortalityRate float64 `csv:"mortality_rate" db:"mortality_rate" json:"mortality_rate"` // percent

	// Share of deaths by cause, percent
	HeatPct       float64 `csv:"hot_weather_pct" db:"hot_weather_pct" json:"hot_weather_pct"`
	ColdPct       float64 `csv:"cold_weather_pct" db:"cold_weather_pct" json:"cold_weather_pct"`
	StarvationPct float64 `csv:"starvation_pct" db:"starvation_pct" json:"starvation_pct"`
	ThirstPct     float64 `csv:"thirst_pct" db:"thirst_pct" json:"thirst_pct"`
	OldAgePct     float64 `csv:"age_pct" db:"age_pct" json:"age_pct"`

	// Spread across trials
	FinalPopulationMean   float64 `csv:"final_population_mean" db:"final_population_mean" json:"final_population_mean"`
	FinalPopulationStdDev float64 `csv:"final_population_stddev" db:"final_population_stddev" json:"final_population_stddev"`
	Extinctions           int     `csv:"extinctions" db:"extinctions" json:"extinctions"`
	MeanAgeAtDeath        float64 `csv:"mean_age_at_death" db:"mean_age_at_death" json:"mean_age_at_death"`
}

// ReportInput carries the habitat counters a Report is computed from.
type ReportInput struct {
	Species    string
	Habitat    string
	Iterations int
	Years      int

	CumulativePopulation int // sum of month-end populations over every trial
	MaxPopulation        int
	TotalBirths          int
	Deaths               components.DeathCounts

	FinalPopulations []float64 // population at the end of each trial
	AgesAtDeath      []float64
}

// NewReport computes report figures. A zero denominator yields 0.
func NewReport(in ReportInput) Report {
	r := Report{
		Species:       in.Species,
		Habitat:       in.Habitat,
		Iterations:    in.Iterations,
		Years:         in.Years,
		MaxPopulation: in.MaxPopulation,
		TotalBirths:   in.TotalBirths,
		TotalDeaths:   in.Deaths.Total(),
	}

	if months := in.Iterations * in.Years * 12; months > 0 {
		r.AveragePopulation = components.RoundTo(float64(in.CumulativePopulation)/float64(months), 0)
	}
	if r.TotalBirths > 0 {
		r.MortalityRate = components.RoundTo(float64(r.TotalDeaths)/float64(r.TotalBirths)*100, 2)
	}
	if r.TotalDeaths > 0 {
		pct := func(c components.Cause) float64 {
			return components.RoundTo(float64(in.Deaths.Get(c))/float64(r.TotalDeaths)*100, 4)
		}
		r.HeatPct = pct(components.Heat)
		r.ColdPct = pct(components.Cold)
		r.StarvationPct = pct(components.Starvation)
		r.ThirstPct = pct(components.Thirst)
		r.OldAgePct = pct(components.OldAge)
	}

	finals := Summarize(in.FinalPopulations)
	r.FinalPopulationMean = finals.Mean
	r.FinalPopulationStdDev = finals.StdDev
	for _, p := range in.FinalPopulations {
		if p == 0 {
			r.Extinctions++
		}
	}
	r.MeanAgeAtDeath = Summarize(in.AgesAtDeath).Mean

	return r
}

// CausePct returns the share of deaths attributed to c.
func (r Report) CausePct(c components.Cause) float64 {
	switch c {
	case components.Heat:
		return r.HeatPct
	case components.Cold:
		return r.ColdPct
	case components.Starvation:
		return r.StarvationPct
	case components.Thirst:
		return r.ThirstPct
	case components.OldAge:
		return r.OldAgePct
	}
	return 0
}

// LogValue implements slog.LogValuer for structured logging.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("species", r.Species),
		slog.String("habitat", r.Habitat),
		slog.Float64("average_population", r.AveragePopulation),
		slog.Int("max_population", r.MaxPopulation),
		slog.Float64("mortality_rate", r.MortalityRate),
		slog.Int("extinctions", r.Extinctions),
	)
}

// ReportSink receives the reports of one species once all its trials are done.
type ReportSink interface {
	WriteReports(species string, reports []Report) error
}

// TextReporter renders reports as indented text into a Sink.
type TextReporter struct {
	sink Sink
}

// NewTextReporter creates a text reporter writing into sink.
func NewTextReporter(sink Sink) *TextReporter {
	return &TextReporter{sink: sink}
}

// WriteReports records the species heading and one block per habitat.
func (tr *TextReporter) WriteReports(species string, reports []Report) error {
	tr.sink.Record(species+":", 0)
	for _, r := range reports {
		tr.sink.Record(r.Habitat+":", 1)
		tr.sink.Record("Average Population: "+formatNumber(r.AveragePopulation), 2)
		tr.sink.Record(fmt.Sprintf("Max Population: %d", r.MaxPopulation), 2)
		tr.sink.Record("Mortality Rate: "+formatNumber(r.MortalityRate)+"%", 2)
		tr.sink.Record("Cause of Death:", 2)
		for _, c := range components.Causes {
			tr.sink.Record(formatNumber(r.CausePct(c))+"% "+c.Label(), 3)
		}
	}
	return nil
}

// MultiReportSink forwards reports to every sink and returns the first error.
type MultiReportSink []ReportSink

// WriteReports implements ReportSink.
func (m MultiReportSink) WriteReports(species string, reports []Report) error {
	var firstErr error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.WriteReports(species, reports); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
