// Package main searches a habitat's monthly food and water ceilings for the
// values that hold a species at a target average population.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/popsim/config"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// EvalRow is one line of calibrate_log.csv.
type EvalRow struct {
	Eval              int     `csv:"eval"`
	Fitness           float64 `csv:"fitness"`
	MonthlyFood       float64 `csv:"monthly_food"`
	MonthlyWater      float64 `csv:"monthly_water"`
	AveragePopulation float64 `csv:"average_population"`
	Extinctions       int     `csv:"extinctions"`
}

// evalLog appends rows to a CSV file, writing the header once.
type evalLog struct {
	f             *os.File
	headerWritten bool
}

func (l *evalLog) write(row EvalRow) error {
	rows := []EvalRow{row}
	if !l.headerWritten {
		l.headerWritten = true
		return gocsv.Marshal(rows, l.f)
	}
	return gocsv.MarshalWithoutHeaders(rows, l.f)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	species := flag.String("species", "", "Species to calibrate (empty = first configured)")
	habitat := flag.String("habitat", "", "Habitat to calibrate (empty = first configured)")
	target := flag.Float64("target", 0, "Target average population")
	years := flag.Int("years", 0, "Years per trial (0 = use config)")
	iterations := flag.Int("iterations", 0, "Trials per evaluation (0 = use config)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 100, "Maximum number of evaluations")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if *target <= 0 {
		log.Fatal("--target must be positive")
	}

	// Create output directory
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	// Load base config
	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()
	if *years > 0 {
		baseCfg.Years = *years
	}
	if *iterations > 0 {
		baseCfg.Iterations = *iterations
	}
	if *species == "" {
		*species = baseCfg.Species[0].Name
	}
	if *habitat == "" {
		*habitat = baseCfg.Habitats[0].Name
	}

	params, err := NewParamVector(baseCfg, *habitat)
	if err != nil {
		log.Fatal(err)
	}

	// Generate seeds for evaluation
	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator, err := NewFitnessEvaluator(params, *species, *target, evalSeeds, baseCfg)
	if err != nil {
		log.Fatal(err)
	}

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	// Open log file
	logPath := filepath.Join(*outputDir, "calibrate_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()
	evals := &evalLog{f: logFile}

	// Track evaluations and timing
	evalCount := 0
	bestFitness := 1e9
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			// Values actually simulated
			clamped := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(clamped)
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			last := evaluator.LastReport()
			if err := evals.write(EvalRow{
				Eval:              evalCount,
				Fitness:           fitness,
				MonthlyFood:       clamped[0],
				MonthlyWater:      clamped[1],
				AveragePopulation: last.AveragePopulation,
				Extinctions:       last.Extinctions,
			}); err != nil {
				log.Printf("failed to write log row: %v", err)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval

			fmt.Printf("Eval %d/%d: food=%.0f water=%.0f avg_pop=%.1f (best=%.4f) | elapsed: %s, ETA: %s\n",
				evalCount, *maxEvals, clamped[0], clamped[1], last.AveragePopulation, bestFitness,
				formatDuration(elapsed), formatDuration(remaining))

			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation
	}
	method := &optimize.NelderMead{
		SimplexSize: 0.25,
	}

	fmt.Printf("Calibrating %s in %s: %d parameters, target=%.1f, max_evals=%d\n",
		*species, *habitat, dim, *target, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, %d trials of %d years\n", *seeds, baseCfg.Iterations, baseCfg.Years)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	// Use best params found (may be from any evaluation, not just final)
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluation completed")
	}

	totalTime := time.Since(startTime)
	best := evaluator.BestReport()
	fmt.Printf("\nCalibration complete after %d evaluations in %s\n", evalCount, formatDuration(totalTime))
	fmt.Printf("Best fitness: %.4f (average population %.1f, %d extinctions)\n",
		bestFitness, best.AveragePopulation, best.Extinctions)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.0f\n", spec.Path, bestParams[i])
	}

	// Save best config over the full base config
	bestCfg, err := copyConfig(baseCfg)
	if err != nil {
		log.Fatal(err)
	}
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}
