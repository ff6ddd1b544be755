package systems

import (
	"math/rand"

	"github.com/pthm-cable/popsim/components"
	"github.com/pthm-cable/popsim/telemetry"
)

// Spawn creates a newborn of sp. The creature gets its own copy of the
// species attributes and starts at age 0.
func Spawn(sp *components.Species, g components.Gender, sink telemetry.Sink) components.Creature {
	c := components.Creature{
		Name:       sp.Name,
		Attributes: sp.Attributes,
		Gender:     g,
	}
	sink.Record(telemetry.BirthMessage(c.Name, g), telemetry.DepthEvent)
	return c
}

// RandomGender picks either gender with equal probability.
func RandomGender(rng *rand.Rand) components.Gender {
	if rng.Intn(2) == 1 {
		return components.Male
	}
	return components.Female
}

// SpawnRandom is Spawn with a random gender.
func SpawnRandom(sp *components.Species, rng *rand.Rand, sink telemetry.Sink) components.Creature {
	return Spawn(sp, RandomGender(rng), sink)
}
