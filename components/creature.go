package components

import "math"

// Gender of an individual, fixed at spawn.
type Gender uint8

const (
	Female Gender = iota
	Male
)

func (g Gender) String() string {
	if g == Male {
		return "male"
	}
	return "female"
}

// Cause is an individual's life status: Alive, or the cause of death.
type Cause uint8

const (
	Alive Cause = iota
	Heat
	Cold
	Starvation
	Thirst
	OldAge
)

// NumCauses is the number of death causes (Alive excluded).
const NumCauses = 5

// Causes lists every death cause in report order.
var Causes = [NumCauses]Cause{Heat, Cold, Starvation, Thirst, OldAge}

func (c Cause) String() string {
	switch c {
	case Alive:
		return "ALIVE"
	case Heat:
		return "HEAT"
	case Cold:
		return "COLD"
	case Starvation:
		return "STARVATION"
	case Thirst:
		return "THIRST"
	case OldAge:
		return "OLD_AGE"
	}
	return "UNKNOWN"
}

// Label is the lowercase name used in reports and metric labels.
func (c Cause) Label() string {
	switch c {
	case Heat:
		return "hot_weather"
	case Cold:
		return "cold_weather"
	case Starvation:
		return "starvation"
	case Thirst:
		return "thirst"
	case OldAge:
		return "age"
	}
	return "alive"
}

// DeathCounts holds one counter per death cause.
type DeathCounts [NumCauses]int

// Add increments the counter for c. Alive is ignored.
func (d *DeathCounts) Add(c Cause) {
	if c == Alive || int(c) > NumCauses {
		return
	}
	d[c-1]++
}

// Get returns the counter for c.
func (d DeathCounts) Get(c Cause) int {
	if c == Alive || int(c) > NumCauses {
		return 0
	}
	return d[c-1]
}

// Total returns the sum over all causes.
func (d DeathCounts) Total() int {
	n := 0
	for _, v := range d {
		n += v
	}
	return n
}

// Attributes is the heritable attribute set of a species.
type Attributes struct {
	MonthlyFoodConsumption  float64
	MonthlyWaterConsumption float64
	LifeSpan                float64 // years
	MinimumBreedingAge      float64 // years
	MaximumBreedingAge      float64 // years
	GestationPeriod         int     // months
	MinimumTemperature      float64
	MaximumTemperature      float64
}

// Species is the read-only template individuals are spawned from.
type Species struct {
	Name       string
	Attributes Attributes
}

// Creature is one simulated individual. Attributes is a value copy of the
// species template taken at spawn.
type Creature struct {
	Name string
	Attributes

	AgeMonths         int
	Gender            Gender
	Status            Cause
	Gestation         int // months of gestation progress; 0 = not pregnant
	MonthsWithoutFood int
}

// Alive reports whether the creature has not died.
func (c *Creature) Alive() bool {
	return c.Status == Alive
}

// Pregnant reports whether a gestation is in progress.
func (c *Creature) Pregnant() bool {
	return c.Gestation > 0
}

// AgeInYears converts the age in months to years, rounded to 2 decimals.
// Every age-gated rule compares against this rounded value.
func (c *Creature) AgeInYears() float64 {
	return RoundTo(float64(c.AgeMonths)/12, 2)
}

// RoundTo rounds v half away from zero to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
