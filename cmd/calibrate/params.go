package main

import (
	"fmt"
	"math"

	"github.com/pthm-cable/popsim/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Starting value
}

// ParamVector holds the resource ceilings of one habitat.
type ParamVector struct {
	Habitat string
	Specs   []ParamSpec
}

// minCeilingRange keeps the search space open for habitats configured with
// tiny or zero ceilings.
const minCeilingRange = 100

// NewParamVector builds the food and water ceilings of the named habitat.
// Each may range from zero to four times its configured value.
func NewParamVector(cfg *config.Config, habitat string) (*ParamVector, error) {
	idx := habitatIndex(cfg, habitat)
	if idx < 0 {
		return nil, fmt.Errorf("unknown habitat %q", habitat)
	}
	h := cfg.Habitats[idx]

	spec := func(name string, v float64) ParamSpec {
		return ParamSpec{
			Name:    name,
			Path:    fmt.Sprintf("habitats[%s].%s", habitat, name),
			Min:     0,
			Max:     math.Max(4*v, minCeilingRange),
			Default: v,
		}
	}
	return &ParamVector{
		Habitat: habitat,
		Specs: []ParamSpec{
			spec("monthly_food", *h.MonthlyFood),
			spec("monthly_water", *h.MonthlyWater),
		},
	}, nil
}

func habitatIndex(cfg *config.Config, name string) int {
	for i, h := range cfg.Habitats {
		if h.Name == name {
			return i
		}
	}
	return -1
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the starting parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = math.Min(math.Max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig sets the habitat's ceilings, rounded to whole units.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	idx := habitatIndex(cfg, pv.Habitat)
	if idx < 0 {
		return
	}
	clamped := pv.Clamp(values)
	cfg.Habitats[idx].MonthlyFood = config.Float(math.Round(clamped[0]))
	cfg.Habitats[idx].MonthlyWater = config.Float(math.Round(clamped[1]))
}

// ExtractFromConfig reads the current ceilings of the habitat.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	idx := habitatIndex(cfg, pv.Habitat)
	if idx < 0 {
		return nil
	}
	h := cfg.Habitats[idx]
	return []float64{*h.MonthlyFood, *h.MonthlyWater}
}
