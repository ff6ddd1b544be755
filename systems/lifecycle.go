package systems

import (
	"github.com/pthm-cable/popsim/components"
	"github.com/pthm-cable/popsim/telemetry"
)

// starvationGraceMonths is how many consecutive food shortfalls are survived.
const starvationGraceMonths = 3

// stressedConceptionPerMille is the chance, out of 1000, that a female who is
// not yet pregnant conceives in a resource-stressed month.
const stressedConceptionPerMille = 5

// Live advances c through one month in h. The steps always run in this
// order and none is skipped after a death earlier in the month; a later
// death overwrites the recorded cause.
func Live(c *components.Creature, h *Habitat) {
	if c.Gestation == c.GestationPeriod {
		giveBirth(c, h)
	}

	drink(c, h)
	eat(c, h)

	if h.temperature < c.MinimumTemperature {
		die(c, components.Cold, h.sink)
	}
	if h.temperature > c.MaximumTemperature {
		die(c, components.Heat, h.sink)
	}

	breed(c, h)
	age(c, h.sink)
}

func giveBirth(c *components.Creature, h *Habitat) {
	c.Gestation = 0
	template := components.Species{Name: c.Name, Attributes: c.Attributes}
	h.addNewborn(SpawnRandom(&template, h.rng, h.sink))
}

// drink is fatal on the first month without enough water.
func drink(c *components.Creature, h *Habitat) {
	if h.water < c.MonthlyWaterConsumption {
		die(c, components.Thirst, h.sink)
		return
	}
	h.water -= c.MonthlyWaterConsumption
}

func eat(c *components.Creature, h *Habitat) {
	if h.food < c.MonthlyFoodConsumption {
		c.MonthsWithoutFood++
		if c.MonthsWithoutFood > starvationGraceMonths {
			die(c, components.Starvation, h.sink)
		}
		return
	}
	h.food -= c.MonthlyFoodConsumption
	c.MonthsWithoutFood = 0
}

// breed advances gestation for females inside their breeding window, or
// already pregnant past it.
func breed(c *components.Creature, h *Habitat) {
	if c.Gender != components.Female {
		return
	}
	years := c.AgeInYears()
	if years < c.MinimumBreedingAge {
		return
	}
	if years > c.MaximumBreedingAge && !c.Pregnant() {
		return
	}
	if !c.Pregnant() && h.stressed && h.rng.Intn(1000) >= stressedConceptionPerMille {
		return
	}
	c.Gestation++
}

// age advances a living creature by one month. A creature already dead this
// month keeps its age but can still be recorded as dying of old age.
func age(c *components.Creature, sink telemetry.Sink) {
	if c.AgeInYears() <= c.LifeSpan {
		if c.Alive() {
			c.AgeMonths++
		}
		return
	}
	die(c, components.OldAge, sink)
}

func die(c *components.Creature, cause components.Cause, sink telemetry.Sink) {
	c.Status = cause
	sink.Record(telemetry.DeathMessage(c.Name, cause, c.AgeInYears()), telemetry.DepthEvent)
}
