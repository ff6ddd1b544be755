package main

import (
	"context"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/popsim/config"
	"github.com/pthm-cable/popsim/telemetry"
	"github.com/pthm-cable/popsim/world"
)

// extinctionPenalty is added per trial that ended with no survivors, as a
// fraction of all trials.
const extinctionPenalty = 0.5

// FitnessEvaluator runs one species in one habitat and scores how far the
// average population lands from the target.
type FitnessEvaluator struct {
	params     *ParamVector
	species    string
	target     float64
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	bestFitness float64
	bestReport  telemetry.Report
	lastReport  telemetry.Report // mean over seeds of the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. baseCfg is narrowed to the
// given species and the parameter vector's habitat.
func NewFitnessEvaluator(params *ParamVector, species string, target float64, seeds []int64, baseCfg *config.Config) (*FitnessEvaluator, error) {
	if target <= 0 {
		return nil, fmt.Errorf("target population must be positive, got %g", target)
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("at least one seed is required")
	}

	cfg, err := copyConfig(baseCfg)
	if err != nil {
		return nil, err
	}
	if err := narrow(cfg, species, params.Habitat); err != nil {
		return nil, err
	}

	return &FitnessEvaluator{
		params:      params,
		species:     species,
		target:      target,
		seeds:       seeds,
		baseConfig:  cfg,
		bestFitness: math.Inf(1),
	}, nil
}

// narrow keeps only the named species and habitat.
func narrow(cfg *config.Config, species, habitat string) error {
	var sp []config.SpeciesConfig
	for _, s := range cfg.Species {
		if s.Name == species {
			sp = append(sp, s)
		}
	}
	if len(sp) == 0 {
		return fmt.Errorf("unknown species %q", species)
	}
	idx := habitatIndex(cfg, habitat)
	if idx < 0 {
		return fmt.Errorf("unknown habitat %q", habitat)
	}
	cfg.Species = sp
	cfg.Habitats = []config.HabitatConfig{cfg.Habitats[idx]}
	return cfg.Finalize()
}

// BestReport returns the averaged report of the best evaluation.
func (fe *FitnessEvaluator) BestReport() telemetry.Report {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestReport
}

// LastReport returns the averaged report of the most recent evaluation.
func (fe *FitnessEvaluator) LastReport() telemetry.Report {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastReport
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	report  telemetry.Report
	err     error
}

// Evaluate computes fitness for raw ceiling values (lower = better).
// Invalid configurations score +Inf.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			report, err := fe.runSimulation(x, s)
			results[idx] = seedResult{
				fitness: fe.computeFitness(report),
				report:  report,
				err:     err,
			}
		}(i, seed)
	}
	wg.Wait()

	fitness := make([]float64, len(results))
	avgPop := make([]float64, len(results))
	extinctions := make([]float64, len(results))
	for i, r := range results {
		if r.err != nil {
			return math.Inf(1)
		}
		fitness[i] = r.fitness
		avgPop[i] = r.report.AveragePopulation
		extinctions[i] = float64(r.report.Extinctions)
	}

	avgFitness := stat.Mean(fitness, nil)
	summary := results[0].report
	summary.AveragePopulation = stat.Mean(avgPop, nil)
	summary.Extinctions = int(math.Round(stat.Mean(extinctions, nil)))

	// Update best tracking
	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestReport = summary
	}
	fe.lastReport = summary
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single silent run.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) (telemetry.Report, error) {
	cfg, err := copyConfig(fe.baseConfig)
	if err != nil {
		return telemetry.Report{}, err
	}
	fe.params.ApplyToConfig(cfg, x)

	w, err := world.New(cfg, world.Options{Seed: seed})
	if err != nil {
		return telemetry.Report{}, err
	}
	reports, err := w.Simulate(context.Background())
	if err != nil {
		return telemetry.Report{}, err
	}
	return reports[0], nil
}

// computeFitness is the squared relative distance from the target plus a
// penalty for the share of trials that went extinct.
func (fe *FitnessEvaluator) computeFitness(r telemetry.Report) float64 {
	rel := (r.AveragePopulation - fe.target) / fe.target
	fitness := rel * rel
	if r.Iterations > 0 {
		fitness += extinctionPenalty * float64(r.Extinctions) / float64(r.Iterations)
	}
	return fitness
}

// copyConfig creates a deep copy through a YAML round trip.
func copyConfig(cfg *config.Config) (*config.Config, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("copy config: %w", err)
	}
	out, err := config.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("copy config: %w", err)
	}
	return out, nil
}
