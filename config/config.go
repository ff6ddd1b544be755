// Package config provides configuration loading and access for the simulation.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Years      int   `yaml:"years"`
	Iterations int   `yaml:"iterations"`
	Seed       int64 `yaml:"seed"` // 0 = time-based unless overridden on the CLI

	SpeciesDefaults AttributesConfig `yaml:"species_defaults"`
	Species         []SpeciesConfig  `yaml:"species"`
	Habitats        []HabitatConfig  `yaml:"habitats"`

	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// AttributesConfig is the full attribute set a species is spawned from.
type AttributesConfig struct {
	MonthlyFoodConsumption  float64 `yaml:"monthly_food_consumption"`
	MonthlyWaterConsumption float64 `yaml:"monthly_water_consumption"`
	LifeSpan                float64 `yaml:"life_span"`            // years
	MinimumBreedingAge      float64 `yaml:"minimum_breeding_age"` // years
	MaximumBreedingAge      float64 `yaml:"maximum_breeding_age"` // years
	GestationPeriod         int     `yaml:"gestation_period"`     // months
	MinimumTemperature      float64 `yaml:"minimum_temperature"`
	MaximumTemperature      float64 `yaml:"maximum_temperature"`
}

// AttributeOverrides holds per-species overrides of SpeciesDefaults.
// Nil fields keep the default.
type AttributeOverrides struct {
	MonthlyFoodConsumption  *float64 `yaml:"monthly_food_consumption,omitempty"`
	MonthlyWaterConsumption *float64 `yaml:"monthly_water_consumption,omitempty"`
	LifeSpan                *float64 `yaml:"life_span,omitempty"`
	MinimumBreedingAge      *float64 `yaml:"minimum_breeding_age,omitempty"`
	MaximumBreedingAge      *float64 `yaml:"maximum_breeding_age,omitempty"`
	GestationPeriod         *int     `yaml:"gestation_period,omitempty"`
	MinimumTemperature      *float64 `yaml:"minimum_temperature,omitempty"`
	MaximumTemperature      *float64 `yaml:"maximum_temperature,omitempty"`
}

// SpeciesConfig defines one simulated species.
type SpeciesConfig struct {
	Name       string             `yaml:"name"`
	Attributes AttributeOverrides `yaml:"attributes,omitempty"`
}

// HabitatConfig defines one resource-bounded habitat.
// Ceilings and temperatures are pointers so a missing key can be told apart from zero.
type HabitatConfig struct {
	Name               string               `yaml:"name"`
	MonthlyFood        *float64             `yaml:"monthly_food"`
	MonthlyWater       *float64             `yaml:"monthly_water"`
	AverageTemperature SeasonalTemperatures `yaml:"average_temperature"`
}

// SeasonalTemperatures holds the average temperature of each season.
type SeasonalTemperatures struct {
	Winter *float64 `yaml:"winter"`
	Spring *float64 `yaml:"spring"`
	Summer *float64 `yaml:"summer"`
	Fall   *float64 `yaml:"fall"`
}

// LogConfig holds event log settings.
type LogConfig struct {
	File       string `yaml:"file"`        // event log (births, deaths, monthly stats)
	OutputFile string `yaml:"output_file"` // text report
	MaxDepth   int    `yaml:"max_depth"`   // deepest event depth recorded
	FlushBytes int    `yaml:"flush_bytes"` // buffered bytes that trigger a flush
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	LogStats            bool `yaml:"log_stats"`
	BookmarkHistorySize int  `yaml:"bookmark_history_size"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Species      []ResolvedSpecies // defaults merged with overrides, config order
	SpeciesIndex map[string]int    // name -> index into Species
}

// ResolvedSpecies is a species with every attribute filled in.
type ResolvedSpecies struct {
	Name       string
	Attributes AttributesConfig
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. A user file must set
// years, iterations, species and habitats. Unknown keys and invalid values
// are rejected.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := &Config{}
		if err := decodeStrict(defaultsYAML, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded defaults: %w", err)
		}
		if err := cfg.Finalize(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := decodeStrict(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	// Decode into same struct - only overwrites fields present in the document
	if err := decodeStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := errors.Join(missingKeys(data), cfg.Finalize()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// requiredKeys are the top-level keys a user document has to set itself.
type requiredKeys struct {
	Years      *yaml.Node `yaml:"years"`
	Iterations *yaml.Node `yaml:"iterations"`
	Species    *yaml.Node `yaml:"species"`
	Habitats   *yaml.Node `yaml:"habitats"`
}

func missingKeys(data []byte) error {
	var keys requiredKeys
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	var errs []error
	for _, k := range []struct {
		name string
		node *yaml.Node
	}{
		{"years", keys.Years},
		{"iterations", keys.Iterations},
		{"species", keys.Species},
		{"habitats", keys.Habitats},
	} {
		if k.node == nil || k.node.Tag == "!!null" {
			errs = append(errs, fmt.Errorf("%s is required", k.name))
		}
	}
	return errors.Join(errs...)
}

// Finalize computes derived values and validates the result.
// Call it after modifying a loaded Config in code.
func (c *Config) Finalize() error {
	c.computeDerived()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func decodeStrict(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Species = make([]ResolvedSpecies, len(c.Species))
	c.Derived.SpeciesIndex = make(map[string]int, len(c.Species))
	for i, sp := range c.Species {
		c.Derived.Species[i] = ResolvedSpecies{
			Name:       sp.Name,
			Attributes: sp.Attributes.apply(c.SpeciesDefaults),
		}
		c.Derived.SpeciesIndex[sp.Name] = i
	}
}

func (o AttributeOverrides) apply(a AttributesConfig) AttributesConfig {
	if o.MonthlyFoodConsumption != nil {
		a.MonthlyFoodConsumption = *o.MonthlyFoodConsumption
	}
	if o.MonthlyWaterConsumption != nil {
		a.MonthlyWaterConsumption = *o.MonthlyWaterConsumption
	}
	if o.LifeSpan != nil {
		a.LifeSpan = *o.LifeSpan
	}
	if o.MinimumBreedingAge != nil {
		a.MinimumBreedingAge = *o.MinimumBreedingAge
	}
	if o.MaximumBreedingAge != nil {
		a.MaximumBreedingAge = *o.MaximumBreedingAge
	}
	if o.GestationPeriod != nil {
		a.GestationPeriod = *o.GestationPeriod
	}
	if o.MinimumTemperature != nil {
		a.MinimumTemperature = *o.MinimumTemperature
	}
	if o.MaximumTemperature != nil {
		a.MaximumTemperature = *o.MaximumTemperature
	}
	return a
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Float returns a pointer to v, for building HabitatConfig and overrides in code.
func Float(v float64) *float64 { return &v }
