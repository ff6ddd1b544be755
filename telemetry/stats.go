package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MonthStats holds the state of one habitat at the end of one simulated month.
type MonthStats struct {
	Species   string `csv:"species"`
	Habitat   string `csv:"habitat"`
	Iteration int    `csv:"iteration"`
	Year      int    `csv:"year"`
	Month     int    `csv:"month"`
	Season    string `csv:"season"`

	Temperature float64 `csv:"temperature"`
	Stressed    bool    `csv:"stressed"`

	// Population at month end
	Population    int `csv:"population"`
	Males         int `csv:"males"`
	MaxPopulation int `csv:"max_population"`

	// Events during the month
	Births           int `csv:"births"`
	Deaths           int `csv:"deaths"`
	HeatDeaths       int `csv:"deaths_heat"`
	ColdDeaths       int `csv:"deaths_cold"`
	StarvationDeaths int `csv:"deaths_starvation"`
	ThirstDeaths     int `csv:"deaths_thirst"`
	OldAgeDeaths     int `csv:"deaths_old_age"`

	// Trial counters
	TotalBirths int `csv:"total_births"`
	TotalDeaths int `csv:"total_deaths"`

	// Resources left over before the monthly refresh
	FoodLeft  float64 `csv:"food_left"`
	WaterLeft float64 `csv:"water_left"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s MonthStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("species", s.Species),
		slog.String("habitat", s.Habitat),
		slog.Int("iteration", s.Iteration),
		slog.Int("year", s.Year),
		slog.Int("month", s.Month),
		slog.Float64("temperature", s.Temperature),
		slog.Bool("stressed", s.Stressed),
		slog.Int("population", s.Population),
		slog.Int("males", s.Males),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("total_births", s.TotalBirths),
		slog.Int("total_deaths", s.TotalDeaths),
	)
}

// LogStats logs the month stats using slog.
func (s MonthStats) LogStats() {
	slog.Info("month", "stats", s)
}

// Summary describes a sample of values.
type Summary struct {
	N      int
	Mean   float64
	StdDev float64
	P10    float64
	P50    float64
	P90    float64
}

// Summarize computes mean, sample standard deviation and empirical
// percentiles. An empty sample yields the zero Summary and a single value has
// zero deviation.
func Summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	s := Summary{N: n}
	if n == 1 {
		s.Mean = sorted[0]
	} else {
		s.Mean, s.StdDev = stat.MeanStdDev(sorted, nil)
	}
	s.P10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	s.P50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	s.P90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return s
}
