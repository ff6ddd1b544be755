package systems

import (
	"math/rand"

	"github.com/pthm-cable/popsim/components"
)

// genericSpecies mirrors the default attribute set.
func genericSpecies() *components.Species {
	return &components.Species{
		Name: "Generic",
		Attributes: components.Attributes{
			MonthlyFoodConsumption:  3,
			MonthlyWaterConsumption: 4,
			LifeSpan:                200,
			MinimumBreedingAge:      5,
			MaximumBreedingAge:      10,
			GestationPeriod:         9,
			MinimumTemperature:      0,
			MaximumTemperature:      95,
		},
	}
}

func newTestHabitat(food, water float64, seed int64) *Habitat {
	return NewHabitat(HabitatParams{
		Name:               "Test",
		MonthlyFood:        food,
		MonthlyWater:       water,
		AverageTemperature: [NumSeasons]float64{50, 50, 50, 50},
	}, rand.New(rand.NewSource(seed)), nil)
}

func newCreature(sp *components.Species, g components.Gender, ageMonths int) *components.Creature {
	return &components.Creature{
		Name:       sp.Name,
		Attributes: sp.Attributes,
		Gender:     g,
		AgeMonths:  ageMonths,
	}
}
