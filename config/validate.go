package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for values the simulation cannot run with.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Years <= 0 {
		add("years must be positive, got %d", c.Years)
	}
	if c.Iterations <= 0 {
		add("iterations must be positive, got %d", c.Iterations)
	}

	if len(c.Species) == 0 {
		add("at least one species is required")
	}
	seenSpecies := make(map[string]bool, len(c.Species))
	for i, sp := range c.Species {
		if sp.Name == "" {
			add("species[%d]: name is required", i)
			continue
		}
		if seenSpecies[sp.Name] {
			add("species %q: duplicate name", sp.Name)
		}
		seenSpecies[sp.Name] = true
	}
	for _, sp := range c.Derived.Species {
		if err := sp.Attributes.validate(); err != nil {
			add("species %q: %w", sp.Name, err)
		}
	}

	if len(c.Habitats) == 0 {
		add("at least one habitat is required")
	}
	seenHabitats := make(map[string]bool, len(c.Habitats))
	for i, h := range c.Habitats {
		name := h.Name
		if name == "" {
			add("habitats[%d]: name is required", i)
			name = fmt.Sprintf("habitats[%d]", i)
		} else if seenHabitats[name] {
			add("habitat %q: duplicate name", name)
		}
		seenHabitats[name] = true
		if err := h.validate(); err != nil {
			add("habitat %q: %w", name, err)
		}
	}

	if c.Log.MaxDepth < 0 {
		add("log.max_depth must not be negative, got %d", c.Log.MaxDepth)
	}
	if c.Log.FlushBytes < 0 {
		add("log.flush_bytes must not be negative, got %d", c.Log.FlushBytes)
	}

	return errors.Join(errs...)
}

func (a AttributesConfig) validate() error {
	var errs []error
	if a.MonthlyFoodConsumption < 0 {
		errs = append(errs, fmt.Errorf("monthly_food_consumption must not be negative, got %g", a.MonthlyFoodConsumption))
	}
	if a.MonthlyWaterConsumption < 0 {
		errs = append(errs, fmt.Errorf("monthly_water_consumption must not be negative, got %g", a.MonthlyWaterConsumption))
	}
	if a.LifeSpan <= 0 {
		errs = append(errs, fmt.Errorf("life_span must be positive, got %g", a.LifeSpan))
	}
	if a.MinimumBreedingAge < 0 {
		errs = append(errs, fmt.Errorf("minimum_breeding_age must not be negative, got %g", a.MinimumBreedingAge))
	}
	if a.MinimumBreedingAge > a.MaximumBreedingAge {
		errs = append(errs, fmt.Errorf("minimum_breeding_age %g exceeds maximum_breeding_age %g", a.MinimumBreedingAge, a.MaximumBreedingAge))
	}
	// A zero gestation period would make every non-pregnant female give birth monthly.
	if a.GestationPeriod < 1 {
		errs = append(errs, fmt.Errorf("gestation_period must be at least 1 month, got %d", a.GestationPeriod))
	}
	if a.MinimumTemperature > a.MaximumTemperature {
		errs = append(errs, fmt.Errorf("minimum_temperature %g exceeds maximum_temperature %g", a.MinimumTemperature, a.MaximumTemperature))
	}
	return errors.Join(errs...)
}

func (h HabitatConfig) validate() error {
	var errs []error
	checkResource := func(key string, v *float64) {
		switch {
		case v == nil:
			errs = append(errs, fmt.Errorf("%s is required", key))
		case *v < 0:
			errs = append(errs, fmt.Errorf("%s must not be negative, got %g", key, *v))
		}
	}
	checkResource("monthly_food", h.MonthlyFood)
	checkResource("monthly_water", h.MonthlyWater)

	seasons := []struct {
		key string
		v   *float64
	}{
		{"winter", h.AverageTemperature.Winter},
		{"spring", h.AverageTemperature.Spring},
		{"summer", h.AverageTemperature.Summer},
		{"fall", h.AverageTemperature.Fall},
	}
	for _, s := range seasons {
		if s.v == nil {
			errs = append(errs, fmt.Errorf("average_temperature.%s is required", s.key))
		}
	}
	return errors.Join(errs...)
}
