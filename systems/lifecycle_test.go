package systems

import (
	"testing"

	"github.com/pthm-cable/popsim/components"
)

func TestLiveThirstIsImmediate(t *testing.T) {
	h := newTestHabitat(100, 3, 1)
	h.temperature = 50
	c := newCreature(genericSpecies(), components.Male, 24)

	Live(c, h)

	if c.Status != components.Thirst {
		t.Fatalf("status = %s, want THIRST", c.Status)
	}
	if h.water != 3 {
		t.Errorf("water = %v, a thirsty creature must not drink", h.water)
	}
	// Later steps still run after the death
	if h.food != 97 {
		t.Errorf("food = %v, want 97: eating runs after death", h.food)
	}
	if c.AgeMonths != 24 {
		t.Errorf("age = %d, want 24: age is frozen at death", c.AgeMonths)
	}
}

func TestLiveStarvesOnFourthShortfall(t *testing.T) {
	h := newTestHabitat(0, 100, 1)
	h.temperature = 50
	c := newCreature(genericSpecies(), components.Male, 24)

	for month := 1; month <= 3; month++ {
		h.RefreshResources()
		Live(c, h)
		if !c.Alive() {
			t.Fatalf("died of %s after %d shortfalls", c.Status, month)
		}
		if c.MonthsWithoutFood != month {
			t.Errorf("months without food = %d, want %d", c.MonthsWithoutFood, month)
		}
	}

	h.RefreshResources()
	Live(c, h)
	if c.Status != components.Starvation {
		t.Errorf("status after 4th shortfall = %s, want STARVATION", c.Status)
	}
}

func TestLiveAdequateMealResetsHunger(t *testing.T) {
	h := newTestHabitat(0, 100, 1)
	h.temperature = 50
	c := newCreature(genericSpecies(), components.Male, 24)

	for i := 0; i < 3; i++ {
		h.RefreshResources()
		Live(c, h)
	}

	h.food = 3
	h.water = 100
	Live(c, h)
	if !c.Alive() || c.MonthsWithoutFood != 0 {
		t.Fatalf("after a meal: status %s, months without food %d", c.Status, c.MonthsWithoutFood)
	}
	if h.food != 0 {
		t.Errorf("food = %v, want 0", h.food)
	}

	// Three more shortfalls are survivable again
	for i := 0; i < 3; i++ {
		h.RefreshResources()
		Live(c, h)
	}
	if !c.Alive() {
		t.Errorf("died of %s; hunger counter should have restarted", c.Status)
	}
}

func TestLiveGivesBirthAtExactGestation(t *testing.T) {
	tests := []struct {
		name       string
		gestation  int
		wantBirth  bool
		wantGest   int
		ageInYears int
	}{
		{"term reached", 9, true, 1, 6},
		{"one month short", 8, false, 9, 6},
		{"past term never delivers", 10, false, 11, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHabitat(100, 100, 1)
			h.temperature = 50
			c := newCreature(genericSpecies(), components.Female, tt.ageInYears*12)
			c.Gestation = tt.gestation

			Live(c, h)

			born := len(h.newborns) == 1
			if born != tt.wantBirth {
				t.Fatalf("birth = %v, want %v", born, tt.wantBirth)
			}
			if c.Gestation != tt.wantGest {
				t.Errorf("gestation = %d, want %d", c.Gestation, tt.wantGest)
			}
			if born {
				if h.count != 1 || h.totalBirths != 1 {
					t.Errorf("count/births = %d/%d, want 1/1", h.count, h.totalBirths)
				}
				baby := h.newborns[0]
				if baby.AgeMonths != 0 || baby.Gestation != 0 || baby.Attributes != c.Attributes {
					t.Errorf("unexpected newborn %+v", baby)
				}
			}
		})
	}
}

func TestBreedEligibility(t *testing.T) {
	sp := genericSpecies()
	tests := []struct {
		name      string
		gender    components.Gender
		ageMonths int
		gestation int
		want      int
	}{
		{"male", components.Male, 72, 0, 0},
		{"too young", components.Female, 59, 0, 0}, // 4.92 years
		{"minimum age", components.Female, 60, 0, 1},
		{"maximum age", components.Female, 120, 0, 1},
		{"too old", components.Female, 121, 0, 0}, // 10.08 years
		{"too old but pregnant", components.Female, 130, 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHabitat(100, 100, 1)
			c := newCreature(sp, tt.gender, tt.ageMonths)
			c.Gestation = tt.gestation

			breed(c, h)
			if c.Gestation != tt.want {
				t.Errorf("gestation = %d, want %d", c.Gestation, tt.want)
			}
		})
	}
}

func TestBreedUnderStress(t *testing.T) {
	h := newTestHabitat(100, 100, 7)
	h.stressed = true
	sp := genericSpecies()

	const trials = 40000
	conceived := 0
	for i := 0; i < trials; i++ {
		c := newCreature(sp, components.Female, 72)
		breed(c, h)
		conceived += c.Gestation
	}
	// 0.5% expected: 200 of 40000
	if conceived < 120 || conceived > 290 {
		t.Errorf("conceived %d of %d under stress, want about 200", conceived, trials)
	}

	// An ongoing pregnancy is not gated
	c := newCreature(sp, components.Female, 72)
	c.Gestation = 2
	for i := 0; i < 5; i++ {
		breed(c, h)
	}
	if c.Gestation != 7 {
		t.Errorf("pregnant gestation = %d, want 7", c.Gestation)
	}
}

func TestLiveOldAge(t *testing.T) {
	sp := genericSpecies()
	sp.Attributes.LifeSpan = 1
	h := newTestHabitat(100, 100, 1)
	h.temperature = 50

	c := newCreature(sp, components.Male, 12)
	Live(c, h)
	if !c.Alive() || c.AgeMonths != 13 {
		t.Fatalf("at exactly the life span: status %s age %d, want alive at 13", c.Status, c.AgeMonths)
	}

	h.RefreshResources()
	Live(c, h)
	if c.Status != components.OldAge {
		t.Fatalf("status = %s, want OLD_AGE", c.Status)
	}
	if c.AgeMonths != 13 {
		t.Errorf("age advanced to %d on the month of death", c.AgeMonths)
	}
}

func TestLiveTemperature(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64
		temp     float64
		want     components.Cause
	}{
		{"comfortable", 0, 95, 50, components.Alive},
		{"at minimum", 0, 95, 0, components.Alive},
		{"at maximum", 0, 95, 95, components.Alive},
		{"too cold", 0, 95, -1, components.Cold},
		{"too hot", 0, 95, 96, components.Heat},
		{"inverted range resolves to heat", 60, 40, 50, components.Heat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := genericSpecies()
			sp.Attributes.MinimumTemperature = tt.min
			sp.Attributes.MaximumTemperature = tt.max
			h := newTestHabitat(100, 100, 1)
			h.temperature = tt.temp

			c := newCreature(sp, components.Male, 24)
			Live(c, h)
			if c.Status != tt.want {
				t.Errorf("status = %s, want %s", c.Status, tt.want)
			}
		})
	}
}

func TestLiveLaterDeathOverwritesCause(t *testing.T) {
	sp := genericSpecies()
	sp.Attributes.LifeSpan = 1
	h := newTestHabitat(100, 0, 1)
	h.temperature = 50

	c := newCreature(sp, components.Male, 13) // 1.08 years, past life span
	Live(c, h)
	if c.Status != components.OldAge {
		t.Errorf("status = %s, want OLD_AGE to overwrite THIRST", c.Status)
	}
}

func TestLiveBirthBeforeMotherDies(t *testing.T) {
	h := newTestHabitat(100, 0, 1)
	h.temperature = 50
	c := newCreature(genericSpecies(), components.Female, 72)
	c.Gestation = 9

	Live(c, h)
	if c.Status != components.Thirst {
		t.Fatalf("status = %s, want THIRST", c.Status)
	}
	if len(h.newborns) != 1 {
		t.Error("a mother dying the month she delivers still gives birth")
	}
}
