// Package world drives species through repeated multi-year trials across
// every configured habitat and aggregates the results into reports.
package world

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pthm-cable/popsim/components"
	"github.com/pthm-cable/popsim/config"
	"github.com/pthm-cable/popsim/systems"
	"github.com/pthm-cable/popsim/telemetry"
)

// Options configures optional collaborators of a World. The zero value runs
// silently: events are discarded and reports are only returned.
type Options struct {
	// Seed overrides the config seed when non-zero. When both are zero the
	// seed is taken from the clock.
	Seed int64

	Sink    telemetry.Sink       // event log
	Reports telemetry.ReportSink // receives each species' reports

	Output  *telemetry.OutputManager
	Metrics *telemetry.Metrics

	LogStats    bool   // log month stats and bookmarks via slog
	Perf        bool   // time month phases
	SnapshotDir string // save a habitat snapshot on every bookmark

	// StatsCallback, if set, is called with every habitat month.
	StatsCallback func(telemetry.MonthStats)
}

// World owns the species templates and habitats of one run.
type World struct {
	cfg      *config.Config
	species  []components.Species
	habitats []*systems.Habitat

	rng     *rand.Rand
	rngSeed int64
	sink    telemetry.Sink
	reports telemetry.ReportSink

	outputManager    *telemetry.OutputManager
	metrics          *telemetry.Metrics
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector []*telemetry.BookmarkDetector
	logStats         bool
	snapshotDir      string
	statsCallback    func(telemetry.MonthStats)

	// Current position in the run
	current   *components.Species
	iteration int
	year      int
	month     int

	// Population of each habitat at the end of each trial of the current species
	finals [][]float64
}

// New validates cfg and builds a world from it.
func New(cfg *config.Config, opts Options) (*World, error) {
	if cfg == nil {
		return nil, fmt.Errorf("world: nil config")
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	sink := opts.Sink
	if sink == nil {
		sink = telemetry.Discard
	}

	w := &World{
		cfg:           cfg,
		rng:           rand.New(rand.NewSource(seed)),
		rngSeed:       seed,
		sink:          sink,
		reports:       opts.Reports,
		outputManager: opts.Output,
		metrics:       opts.Metrics,
		logStats:      opts.LogStats,
		snapshotDir:   opts.SnapshotDir,
		statsCallback: opts.StatsCallback,
	}

	for _, rs := range cfg.Derived.Species {
		w.species = append(w.species, SpeciesFromConfig(rs))
	}
	for _, hc := range cfg.Habitats {
		w.habitats = append(w.habitats, systems.NewHabitat(systems.ParamsFromConfig(hc), w.rng, sink))
		w.bookmarkDetector = append(w.bookmarkDetector, telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize))
	}
	w.finals = make([][]float64, len(w.habitats))

	if opts.Perf {
		w.perfCollector = telemetry.NewPerfCollector()
	}

	return w, nil
}

// SpeciesFromConfig converts a resolved species to its template.
func SpeciesFromConfig(rs config.ResolvedSpecies) components.Species {
	a := rs.Attributes
	return components.Species{
		Name: rs.Name,
		Attributes: components.Attributes{
			MonthlyFoodConsumption:  a.MonthlyFoodConsumption,
			MonthlyWaterConsumption: a.MonthlyWaterConsumption,
			LifeSpan:                a.LifeSpan,
			MinimumBreedingAge:      a.MinimumBreedingAge,
			MaximumBreedingAge:      a.MaximumBreedingAge,
			GestationPeriod:         a.GestationPeriod,
			MinimumTemperature:      a.MinimumTemperature,
			MaximumTemperature:      a.MaximumTemperature,
		},
	}
}

// Simulate runs every species in config order and returns one report per
// species and habitat. ctx is checked between trials.
func (w *World) Simulate(ctx context.Context) ([]telemetry.Report, error) {
	var all []telemetry.Report
	for i := range w.species {
		reports, err := w.SimulateSpecies(ctx, &w.species[i])
		all = append(all, reports...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

// SimulateSpecies runs every trial of sp and hands its reports to the
// report sink.
func (w *World) SimulateSpecies(ctx context.Context, sp *components.Species) ([]telemetry.Report, error) {
	w.current = sp
	for i, h := range w.habitats {
		h.BeginLineage()
		w.finals[i] = w.finals[i][:0]
	}

	for it := 1; it <= w.cfg.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w.iteration = it
		w.sink.Record(telemetry.TrialMessage(sp.Name, it), telemetry.DepthTrial)
		w.SimulateIteration()
	}

	reports := w.buildReports()
	if w.reports != nil {
		if err := w.reports.WriteReports(sp.Name, reports); err != nil {
			return reports, fmt.Errorf("writing %s reports: %w", sp.Name, err)
		}
	}
	return reports, nil
}

// SimulateIteration resets and reseeds every habitat with the current
// species, then runs the configured number of years. Before any species
// has been selected the first one is used.
func (w *World) SimulateIteration() {
	if w.current == nil {
		w.current = &w.species[0]
	}
	for i, h := range w.habitats {
		h.Reset()
		w.bookmarkDetector[i].Reset()
		h.Seed(w.current)
		w.metrics.ObserveSeed(w.current.Name, h.Name())
	}

	for y := 1; y <= w.cfg.Years; y++ {
		w.year = y
		w.SimulateYear()
	}

	for i, h := range w.habitats {
		w.finals[i] = append(w.finals[i], float64(h.Population()))
	}
	w.metrics.ObserveTrial(w.current.Name)

	if w.perfCollector != nil {
		perfStats := w.perfCollector.Stats()
		if w.logStats {
			perfStats.LogStats()
		}
		w.writePerf(perfStats)
		w.perfCollector.Reset()
	}
}

// SimulateYear runs months 1 through 12.
func (w *World) SimulateYear() {
	for m := 1; m <= 12; m++ {
		w.month = m
		w.SimulateMonth()
	}
}

// SimulateMonth samples each habitat's temperature for the current season
// and resolves one month in it.
func (w *World) SimulateMonth() {
	season := systems.SeasonOf(w.month)
	w.sink.Record(telemetry.MonthMessage(w.year, w.month, season.String()), telemetry.DepthMonth)

	if w.perfCollector != nil {
		w.perfCollector.StartMonth()
	}
	for i, h := range w.habitats {
		w.startPhase(telemetry.PhaseTemperature)
		temp := h.SetTemperature(season)
		w.sink.Record(telemetry.TemperatureMessage(h.Name(), temp), telemetry.DepthHabitat)

		w.startPhase(telemetry.PhaseHabitat)
		stats := h.Simulate()
		stats.Species = w.current.Name
		stats.Iteration = w.iteration
		stats.Year = w.year
		stats.Month = w.month
		stats.Season = season.String()

		w.startPhase(telemetry.PhaseTelemetry)
		w.flushTelemetry(i, stats)
	}
	if w.perfCollector != nil {
		w.perfCollector.EndMonth()
	}
}

func (w *World) startPhase(phase string) {
	if w.perfCollector != nil {
		w.perfCollector.StartPhase(phase)
	}
}

func (w *World) buildReports() []telemetry.Report {
	reports := make([]telemetry.Report, 0, len(w.habitats))
	for i, h := range w.habitats {
		reports = append(reports, telemetry.NewReport(telemetry.ReportInput{
			Species:              w.current.Name,
			Habitat:              h.Name(),
			Iterations:           w.cfg.Iterations,
			Years:                w.cfg.Years,
			CumulativePopulation: h.CumulativePopulation(),
			MaxPopulation:        h.MaxPopulation(),
			TotalBirths:          h.TotalBirths(),
			Deaths:               h.Deaths(),
			FinalPopulations:     w.finals[i],
			AgesAtDeath:          h.Lifetime().Ages(),
		}))
	}
	return reports
}

// Seed returns the seed the world's random source was created with.
func (w *World) Seed() int64 { return w.rngSeed }

// Habitats returns the world's habitats in config order.
func (w *World) Habitats() []*systems.Habitat { return w.habitats }
