package telemetry

import "github.com/pthm-cable/popsim/components"

// LifetimeStats summarizes the lifespans of individuals that died.
type LifetimeStats struct {
	Deaths         int
	MeanAgeAtDeath float64 // years
	MaxAgeAtDeath  float64 // years
	MeanByCause    map[components.Cause]float64
}

// LifetimeTracker collects ages at death, per cause, for one species lineage
// in one habitat.
type LifetimeTracker struct {
	ages    []float64
	byCause [components.NumCauses][]float64
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{}
}

// RecordDeath records the age in years an individual died at.
func (lt *LifetimeTracker) RecordDeath(cause components.Cause, ageYears float64) {
	if cause == components.Alive {
		return
	}
	lt.ages = append(lt.ages, ageYears)
	lt.byCause[cause-1] = append(lt.byCause[cause-1], ageYears)
}

// Ages returns every recorded age at death.
func (lt *LifetimeTracker) Ages() []float64 {
	return lt.ages
}

// Count returns the number of recorded deaths.
func (lt *LifetimeTracker) Count() int {
	return len(lt.ages)
}

// Stats summarizes the recorded deaths.
func (lt *LifetimeTracker) Stats() LifetimeStats {
	s := LifetimeStats{
		Deaths:      len(lt.ages),
		MeanByCause: make(map[components.Cause]float64),
	}
	if len(lt.ages) == 0 {
		return s
	}

	sum := Summarize(lt.ages)
	s.MeanAgeAtDeath = sum.Mean
	for _, a := range lt.ages {
		if a > s.MaxAgeAtDeath {
			s.MaxAgeAtDeath = a
		}
	}
	for _, c := range components.Causes {
		if ages := lt.byCause[c-1]; len(ages) > 0 {
			s.MeanByCause[c] = Summarize(ages).Mean
		}
	}
	return s
}

// Reset discards all recorded deaths.
func (lt *LifetimeTracker) Reset() {
	lt.ages = lt.ages[:0]
	for i := range lt.byCause {
		lt.byCause[i] = lt.byCause[i][:0]
	}
}
