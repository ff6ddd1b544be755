// Package systems implements the monthly creature life cycle and the
// resource-bounded habitats creatures live in.
package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/popsim/components"
	"github.com/pthm-cable/popsim/config"
	"github.com/pthm-cable/popsim/telemetry"
)

// extremeTemperaturePerMille is the chance, out of 1000, of an extreme
// temperature swing in a month.
const extremeTemperaturePerMille = 5

// HabitatParams are the fixed properties of a habitat.
type HabitatParams struct {
	Name               string
	MonthlyFood        float64
	MonthlyWater       float64
	AverageTemperature [NumSeasons]float64
}

// ParamsFromConfig converts a validated habitat config.
func ParamsFromConfig(hc config.HabitatConfig) HabitatParams {
	t := hc.AverageTemperature
	return HabitatParams{
		Name:               hc.Name,
		MonthlyFood:        *hc.MonthlyFood,
		MonthlyWater:       *hc.MonthlyWater,
		AverageTemperature: [NumSeasons]float64{*t.Winter, *t.Spring, *t.Summer, *t.Fall},
	}
}

// Habitat hosts one species lineage per trial and advances it a month at a time.
// Living creatures are entities in the habitat's own ECS world.
type Habitat struct {
	params HabitatParams

	world     *ecs.World
	creatures *ecs.Map1[components.Creature]
	filter    *ecs.Filter1[components.Creature]
	order     []ecs.Entity
	newborns  []components.Creature

	species *components.Species

	food        float64
	water       float64
	temperature float64
	stressed    bool

	foodCoefficient  float64
	waterCoefficient float64

	count         int
	males         int
	maxCount      int
	populationSum int
	totalBirths   int
	totalDeaths   int
	deaths        components.DeathCounts

	rng       *rand.Rand
	sink      telemetry.Sink
	collector *telemetry.Collector
	lifetime  *telemetry.LifetimeTracker
}

// NewHabitat creates an empty habitat. A nil sink discards events.
func NewHabitat(p HabitatParams, rng *rand.Rand, sink telemetry.Sink) *Habitat {
	if sink == nil {
		sink = telemetry.Discard
	}
	world := ecs.NewWorld()
	h := &Habitat{
		params:    p,
		world:     world,
		creatures: ecs.NewMap1[components.Creature](world),
		filter:    ecs.NewFilter1[components.Creature](world),
		rng:       rng,
		sink:      sink,
		collector: telemetry.NewCollector(),
		lifetime:  telemetry.NewLifetimeTracker(),
	}
	h.RefreshResources()
	return h
}

// Seed discards the current population and starts sp's lineage with one
// female and one male. The founders count as births.
func (h *Habitat) Seed(sp *components.Species) {
	h.sink.Record(telemetry.SeedMessage(h.params.Name, sp.Name), telemetry.DepthMonth)

	h.clearPopulation()
	h.species = sp

	female := Spawn(sp, components.Female, h.sink)
	male := Spawn(sp, components.Male, h.sink)
	h.creatures.NewEntity(&female)
	h.creatures.NewEntity(&male)

	h.count = 2
	h.males = 1
	h.totalBirths += 2

	h.foodCoefficient = sp.Attributes.MonthlyFoodConsumption
	h.waterCoefficient = sp.Attributes.MonthlyWaterConsumption
	h.stressed = false

	h.RefreshResources()
}

func (h *Habitat) clearPopulation() {
	h.order = h.order[:0]
	query := h.filter.Query()
	for query.Next() {
		h.order = append(h.order, query.Entity())
	}
	for _, e := range h.order {
		h.world.RemoveEntity(e)
	}
	h.order = h.order[:0]
	h.newborns = h.newborns[:0]
	h.count = 0
	h.males = 0
}

// SetTemperature samples this month's temperature: the season's average
// shifted by a whole number of degrees in [-5, 5], or in [-15, 15] during an
// extreme month.
func (h *Habitat) SetTemperature(s Season) float64 {
	var offset int
	if h.rng.Intn(1000) >= extremeTemperaturePerMille {
		offset = h.rng.Intn(11) - 5
	} else {
		offset = h.rng.Intn(31) - 15
	}
	h.temperature = h.params.AverageTemperature[s] + float64(offset)
	return h.temperature
}

// ResourceStressTest flags the habitat as stressed when the current
// population's projected food or water demand exceeds the monthly ceiling.
func (h *Habitat) ResourceStressTest() bool {
	foodDemand := h.foodCoefficient * float64(h.count)
	waterDemand := h.waterCoefficient * float64(h.count)

	h.stressed = foodDemand > h.params.MonthlyFood || waterDemand > h.params.MonthlyWater
	if h.stressed {
		h.sink.Record(telemetry.StressMessage, telemetry.DepthEvent)
	}
	return h.stressed
}

// Simulate runs one month: stress test, every creature lives once in a
// freshly shuffled order (earlier creatures drink and eat first), the dead
// are removed, counters are updated and resources refilled.
func (h *Habitat) Simulate() telemetry.MonthStats {
	h.ResourceStressTest()

	h.order = h.order[:0]
	query := h.filter.Query()
	for query.Next() {
		h.order = append(h.order, query.Entity())
	}
	h.rng.Shuffle(len(h.order), func(i, j int) {
		h.order[i], h.order[j] = h.order[j], h.order[i]
	})

	for _, e := range h.order {
		c := h.creatures.Get(e)
		Live(c, h)
		if !c.Alive() {
			h.remove(e, c)
		}
	}

	// Newborns join after the pass so they don't live their birth month.
	for i := range h.newborns {
		h.creatures.NewEntity(&h.newborns[i])
	}
	h.newborns = h.newborns[:0]

	if h.count > h.maxCount {
		h.maxCount = h.count
	}
	h.populationSum += h.count

	stats := h.collector.Flush(telemetry.HabitatState{
		Habitat:       h.params.Name,
		Temperature:   h.temperature,
		Stressed:      h.stressed,
		Population:    h.count,
		Males:         h.males,
		MaxPopulation: h.maxCount,
		TotalBirths:   h.totalBirths,
		TotalDeaths:   h.totalDeaths,
		FoodLeft:      h.food,
		WaterLeft:     h.water,
	})
	if h.species != nil {
		stats.Species = h.species.Name
	}
	h.sink.Record(telemetry.MonthSummaryMessage(stats), telemetry.DepthEvent)

	h.RefreshResources()
	return stats
}

func (h *Habitat) addNewborn(c components.Creature) {
	h.newborns = append(h.newborns, c)
	h.count++
	h.totalBirths++
	if c.Gender == components.Male {
		h.males++
	}
	h.collector.RecordBirth()
}

func (h *Habitat) remove(e ecs.Entity, c *components.Creature) {
	h.count--
	h.totalDeaths++
	h.deaths.Add(c.Status)
	if c.Gender == components.Male {
		h.males--
	}
	h.collector.RecordDeath(c.Status)
	h.lifetime.RecordDeath(c.Status, c.AgeInYears())
	h.world.RemoveEntity(e)
}

// RefreshResources refills food and water to the monthly ceilings.
func (h *Habitat) RefreshResources() {
	h.food = h.params.MonthlyFood
	h.water = h.params.MonthlyWater
}

// Reset zeroes the birth and death counters before a new trial.
func (h *Habitat) Reset() {
	h.totalBirths = 0
	h.totalDeaths = 0
	h.deaths = components.DeathCounts{}
}

// BeginLineage zeroes the counters that accumulate across every trial of one
// species: max population, cumulative population and ages at death.
func (h *Habitat) BeginLineage() {
	h.maxCount = 0
	h.populationSum = 0
	h.lifetime.Reset()
}

// Creatures calls fn for every living creature.
func (h *Habitat) Creatures(fn func(*components.Creature)) {
	query := h.filter.Query()
	for query.Next() {
		fn(query.Get())
	}
}

// Living counts creature entities in the habitat's world.
func (h *Habitat) Living() int {
	n := 0
	query := h.filter.Query()
	for query.Next() {
		n++
	}
	return n
}

func (h *Habitat) Name() string { return h.params.Name }
func (h *Habitat) Temperature() float64 { return h.temperature }
func (h *Habitat) Stressed() bool { return h.stressed }
func (h *Habitat) Food() float64 { return h.food }
func (h *Habitat) Water() float64 { return h.water }
func (h *Habitat) Population() int { return h.count }
func (h *Habitat) Males() int { return h.males }
func (h *Habitat) MaxPopulation() int { return h.maxCount }
func (h *Habitat) CumulativePopulation() int { return h.populationSum }
func (h *Habitat) TotalBirths() int { return h.totalBirths }
func (h *Habitat) TotalDeaths() int { return h.totalDeaths }
func (h *Habitat) Deaths() components.DeathCounts { return h.deaths }
func (h *Habitat) Lifetime() *telemetry.LifetimeTracker { return h.lifetime }
