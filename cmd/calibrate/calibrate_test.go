package main

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/popsim/config"
)

const testDoc = `
years: 2
iterations: 2
species:
  - name: Generic
  - name: Other
habitats:
  - name: Meadow
    monthly_food: 1000
    monthly_water: 1000
    average_temperature: {winter: 50, spring: 50, summer: 50, fall: 50}
  - name: Dunes
    monthly_food: 10
    monthly_water: 0
    average_temperature: {winter: 50, spring: 50, summer: 50, fall: 50}
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(testDoc))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestParamVectorBounds(t *testing.T) {
	cfg := testConfig(t)

	if _, err := NewParamVector(cfg, "Nowhere"); err == nil {
		t.Error("unknown habitat should fail")
	}

	pv, err := NewParamVector(cfg, "Dunes")
	if err != nil {
		t.Fatal(err)
	}
	if pv.Dim() != 2 {
		t.Fatalf("dim = %d, want 2", pv.Dim())
	}
	// Small ceilings still get a usable range
	for _, spec := range pv.Specs {
		if spec.Min != 0 || spec.Max != minCeilingRange {
			t.Errorf("%s range = [%v, %v]", spec.Name, spec.Min, spec.Max)
		}
	}

	x := []float64{10, 0}
	back := pv.Denormalize(pv.Normalize(x))
	for i := range x {
		if math.Abs(back[i]-x[i]) > 1e-9 {
			t.Errorf("round trip %v -> %v", x, back)
		}
	}

	clamped := pv.Clamp([]float64{-5, 500})
	if clamped[0] != 0 || clamped[1] != minCeilingRange {
		t.Errorf("clamped = %v", clamped)
	}
}

func TestApplyToConfig(t *testing.T) {
	cfg := testConfig(t)
	pv, err := NewParamVector(cfg, "Dunes")
	if err != nil {
		t.Fatal(err)
	}

	pv.ApplyToConfig(cfg, []float64{40.4, 55.6})
	got := pv.ExtractFromConfig(cfg)
	if got[0] != 40 || got[1] != 56 {
		t.Errorf("extracted %v, want [40 56]", got)
	}
	if *cfg.Habitats[0].MonthlyFood != 1000 {
		t.Error("other habitats must be untouched")
	}
}

func TestEvaluateScoresDistanceFromTarget(t *testing.T) {
	cfg := testConfig(t)
	pv, err := NewParamVector(cfg, "Meadow")
	if err != nil {
		t.Fatal(err)
	}
	fe, err := NewFitnessEvaluator(pv, "Generic", 2, []int64{1, 2}, cfg)
	if err != nil {
		t.Fatal(err)
	}

	// Ample resources: the founding pair survives every trial
	if got := fe.Evaluate([]float64{1000, 1000}); got != 0 {
		t.Errorf("fitness on target = %v, want 0", got)
	}
	if r := fe.LastReport(); r.AveragePopulation != 2 || r.Extinctions != 0 {
		t.Errorf("last report = %+v", r)
	}

	// No water: extinct in the first month of every trial
	dry := fe.Evaluate([]float64{1000, 0})
	if want := 1 + extinctionPenalty; math.Abs(dry-want) > 1e-9 {
		t.Errorf("fitness when extinct = %v, want %v", dry, want)
	}
	if best := fe.BestReport(); best.AveragePopulation != 2 {
		t.Errorf("best report should keep the on-target run, got %+v", best)
	}
}

func TestNewFitnessEvaluatorNarrowsConfig(t *testing.T) {
	cfg := testConfig(t)
	pv, err := NewParamVector(cfg, "Dunes")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewFitnessEvaluator(pv, "Nobody", 2, []int64{1}, cfg); err == nil {
		t.Error("unknown species should fail")
	}
	if _, err := NewFitnessEvaluator(pv, "Generic", 0, []int64{1}, cfg); err == nil {
		t.Error("zero target should fail")
	}

	fe, err := NewFitnessEvaluator(pv, "Other", 2, []int64{1}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(fe.baseConfig.Species) != 1 || len(fe.baseConfig.Habitats) != 1 || fe.baseConfig.Habitats[0].Name != "Dunes" {
		t.Errorf("narrowed config: %d species, habitats %v", len(fe.baseConfig.Species), fe.baseConfig.Habitats)
	}
	if len(cfg.Species) != 2 || len(cfg.Habitats) != 2 {
		t.Error("base config must not be modified")
	}
}

func TestEvalLogWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	l := &evalLog{f: f}
	for i := 1; i <= 3; i++ {
		if err := l.write(EvalRow{Eval: i, Fitness: 0.5}); err != nil {
			t.Fatal(err)
		}
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "eval,fitness") {
		t.Errorf("log:\n%s", data)
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(0); got != "0m00s" {
		t.Errorf("formatDuration(0) = %q", got)
	}
}
