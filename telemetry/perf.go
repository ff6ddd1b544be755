package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one simulated month.
const (
	PhaseTemperature = "temperature"
	PhaseHabitat     = "habitat"
	PhaseTelemetry   = "telemetry"
)

// PerfCollector times the phases of every month in one trial.
// Reset starts a new trial.
type PerfCollector struct {
	months   int
	total    time.Duration
	min, max time.Duration
	phases   map[string]time.Duration

	monthStart time.Time
	phaseStart time.Time
	phase      string
}

func NewPerfCollector() *PerfCollector {
	return &PerfCollector{phases: make(map[string]time.Duration)}
}

// Reset drops everything timed so far.
func (p *PerfCollector) Reset() {
	*p = PerfCollector{phases: make(map[string]time.Duration)}
}

// StartMonth begins timing a new simulated month.
func (p *PerfCollector) StartMonth() {
	p.monthStart = time.Now()
	p.phase = ""
}

// StartPhase begins timing a phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	p.endPhase(now)
	p.phaseStart = now
	p.phase = phase
}

func (p *PerfCollector) endPhase(now time.Time) {
	if p.phase != "" {
		p.phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndMonth closes the open phase and adds the month to the trial.
func (p *PerfCollector) EndMonth() {
	now := time.Now()
	p.endPhase(now)
	p.phase = ""

	d := now.Sub(p.monthStart)
	if p.months == 0 || d < p.min {
		p.min = d
	}
	if d > p.max {
		p.max = d
	}
	p.total += d
	p.months++
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgMonthDuration time.Duration
	MinMonthDuration time.Duration
	MaxMonthDuration time.Duration

	// Share of month time spent in each phase
	PhasePct map[string]float64

	MonthsPerSecond float64
}

// Stats summarizes the months timed since the last Reset.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		MinMonthDuration: p.min,
		MaxMonthDuration: p.max,
		PhasePct:         make(map[string]float64, len(p.phases)),
	}
	if p.months == 0 || p.total <= 0 {
		return s
	}

	s.AvgMonthDuration = p.total / time.Duration(p.months)
	s.MonthsPerSecond = float64(p.months) / p.total.Seconds()
	for phase, d := range p.phases {
		s.PhasePct[phase] = float64(d) / float64(p.total) * 100
	}
	return s
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_month_us", s.AvgMonthDuration.Microseconds(),
		"min_month_us", s.MinMonthDuration.Microseconds(),
		"max_month_us", s.MaxMonthDuration.Microseconds(),
		"months_per_sec", int(s.MonthsPerSecond),
	}

	for _, phase := range []string{PhaseTemperature, PhaseHabitat, PhaseTelemetry} {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// PerfStatsCSV is one perf.csv row: a trial's timing summary.
type PerfStatsCSV struct {
	Species        string  `csv:"species"`
	Iteration      int     `csv:"iteration"`
	AvgMonthUS     int64   `csv:"avg_month_us"`
	MinMonthUS     int64   `csv:"min_month_us"`
	MaxMonthUS     int64   `csv:"max_month_us"`
	MonthsPerSec   float64 `csv:"months_per_sec"`
	TemperaturePct float64 `csv:"temperature_pct"`
	HabitatPct     float64 `csv:"habitat_pct"`
	TelemetryPct   float64 `csv:"telemetry_pct"`
}

func (s PerfStats) ToCSV(species string, iteration int) PerfStatsCSV {
	return PerfStatsCSV{
		Species:        species,
		Iteration:      iteration,
		AvgMonthUS:     s.AvgMonthDuration.Microseconds(),
		MinMonthUS:     s.MinMonthDuration.Microseconds(),
		MaxMonthUS:     s.MaxMonthDuration.Microseconds(),
		MonthsPerSec:   s.MonthsPerSecond,
		TemperaturePct: s.PhasePct[PhaseTemperature],
		HabitatPct:     s.PhasePct[PhaseHabitat],
		TelemetryPct:   s.PhasePct[PhaseTelemetry],
	}
}
