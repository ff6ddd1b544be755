package world

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pthm-cable/popsim/components"
	"github.com/pthm-cable/popsim/config"
	"github.com/pthm-cable/popsim/telemetry"
)

const quietDoc = `
years: 1
iterations: 2
seed: 7
species:
  - name: Generic
habitats:
  - name: Meadow
    monthly_food: 1000
    monthly_water: 1000
    average_temperature: {winter: 50, spring: 50, summer: 50, fall: 50}
`

func mustParse(t *testing.T, doc string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return cfg
}

// reportRecorder captures every WriteReports call.
type reportRecorder struct {
	species []string
	reports [][]telemetry.Report
}

func (r *reportRecorder) WriteReports(species string, reports []telemetry.Report) error {
	r.species = append(r.species, species)
	r.reports = append(r.reports, reports)
	return nil
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(nil, Options{}); err == nil {
		t.Error("nil config should fail")
	}

	cfg := mustParse(t, quietDoc)
	cfg.Years = 0
	cfg.Habitats[0].MonthlyWater = config.Float(-1)
	_, err := New(cfg, Options{})
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"years", "monthly_water"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestNewSeed(t *testing.T) {
	cfg := mustParse(t, quietDoc)

	w, err := New(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if w.Seed() != 7 {
		t.Errorf("seed = %d, want config seed 7", w.Seed())
	}

	w, err = New(cfg, Options{Seed: 99})
	if err != nil {
		t.Fatal(err)
	}
	if w.Seed() != 99 {
		t.Errorf("seed = %d, want override 99", w.Seed())
	}

	cfg.Seed = 0
	w, err = New(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if w.Seed() == 0 {
		t.Error("clock seed should be non-zero")
	}
}

func TestSimulateQuietYear(t *testing.T) {
	var months []telemetry.MonthStats
	w, err := New(mustParse(t, quietDoc), Options{
		StatsCallback: func(s telemetry.MonthStats) { months = append(months, s) },
	})
	if err != nil {
		t.Fatal(err)
	}

	reports, err := w.Simulate(context.Background())
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if len(months) != 24 {
		t.Fatalf("observed %d habitat months, want 24", len(months))
	}
	last := months[len(months)-1]
	if last.Species != "Generic" || last.Iteration != 2 || last.Year != 1 || last.Month != 12 || last.Season != "winter" {
		t.Errorf("last month position = %+v", last)
	}

	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
	r := reports[0]
	if r.AveragePopulation != 2 || r.MaxPopulation != 2 {
		t.Errorf("average/max = %v/%d, want 2/2", r.AveragePopulation, r.MaxPopulation)
	}
	if r.TotalBirths != 2 || r.TotalDeaths != 0 || r.MortalityRate != 0 {
		t.Errorf("births %d deaths %d mortality %v", r.TotalBirths, r.TotalDeaths, r.MortalityRate)
	}
	if r.FinalPopulationMean != 2 || r.FinalPopulationStdDev != 0 || r.Extinctions != 0 {
		t.Errorf("final mean %v stddev %v extinctions %d", r.FinalPopulationMean, r.FinalPopulationStdDev, r.Extinctions)
	}

	var genders []components.Gender
	w.Habitats()[0].Creatures(func(c *components.Creature) {
		if c.AgeMonths != 12 {
			t.Errorf("age = %d months, want 12", c.AgeMonths)
		}
		genders = append(genders, c.Gender)
	})
	if len(genders) != 2 {
		t.Errorf("survivors = %d, want 2", len(genders))
	}
}

func TestSimulateThirst(t *testing.T) {
	doc := strings.Replace(quietDoc, "monthly_water: 1000", "monthly_water: 3", 1)
	rec := &reportRecorder{}
	w, err := New(mustParse(t, doc), Options{Reports: rec})
	if err != nil {
		t.Fatal(err)
	}

	reports, err := w.Simulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	r := reports[0]
	if r.AveragePopulation != 0 || r.MaxPopulation != 0 {
		t.Errorf("average/max = %v/%d, want 0/0", r.AveragePopulation, r.MaxPopulation)
	}
	if r.TotalDeaths != 2 || r.MortalityRate != 100 || r.ThirstPct != 100 {
		t.Errorf("deaths %d mortality %v thirst %v", r.TotalDeaths, r.MortalityRate, r.ThirstPct)
	}
	if r.Extinctions != 2 {
		t.Errorf("extinctions = %d, want every trial", r.Extinctions)
	}

	if len(rec.species) != 1 || rec.species[0] != "Generic" {
		t.Fatalf("report sink calls = %v", rec.species)
	}
	if !reflect.DeepEqual(rec.reports[0], reports) {
		t.Error("sink and return value should carry the same reports")
	}
}

func TestSimulateEachSpeciesSeparately(t *testing.T) {
	doc := strings.Replace(quietDoc, "  - name: Generic\n", "  - name: Generic\n  - name: Hardy\n    attributes: {monthly_water_consumption: 1}\n", 1)
	doc = strings.Replace(doc, "monthly_water: 1000", "monthly_water: 3", 1)
	rec := &reportRecorder{}
	w, err := New(mustParse(t, doc), Options{Reports: rec})
	if err != nil {
		t.Fatal(err)
	}

	reports, err := w.Simulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rec.species, []string{"Generic", "Hardy"}) {
		t.Fatalf("species order = %v", rec.species)
	}
	if len(reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(reports))
	}
	if reports[0].Extinctions != 2 {
		t.Errorf("Generic extinctions = %d, want 2", reports[0].Extinctions)
	}
	// Two Hardy creatures drink 2 of 3 water: no trace of the previous species
	if reports[1].AveragePopulation != 2 || reports[1].MaxPopulation != 2 || reports[1].TotalDeaths != 0 {
		t.Errorf("Hardy report %+v", reports[1])
	}
}

func TestSimulateIsReproducible(t *testing.T) {
	doc := strings.Replace(quietDoc, "years: 1", "years: 6", 1)
	doc = strings.Replace(doc, "monthly_food: 1000", "monthly_food: 20", 1)
	cfg := mustParse(t, doc)
	cfg.SpeciesDefaults.MinimumBreedingAge = 1
	cfg.SpeciesDefaults.GestationPeriod = 2

	run := func() []telemetry.Report {
		w, err := New(cfg, Options{Seed: 42})
		if err != nil {
			t.Fatal(err)
		}
		reports, err := w.Simulate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return reports
	}

	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed gave different reports:\n%+v\n%+v", a, b)
	}
	if a[0].TotalBirths <= 2 {
		t.Errorf("births = %d, expected the population to grow", a[0].TotalBirths)
	}
}

func TestEventDepths(t *testing.T) {
	type event struct {
		msg   string
		depth int
	}
	var events []event
	w, err := New(mustParse(t, quietDoc), Options{
		Sink: telemetry.SinkFunc(func(msg string, depth int) { events = append(events, event{msg, depth}) }),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Simulate(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []event{
		{"Generic - iteration: 1", telemetry.DepthTrial},
		{"Seeding Meadow with 1 male & 1 female Generic", telemetry.DepthMonth},
		{"A new female Generic was born.", telemetry.DepthEvent},
		{"A new male Generic was born.", telemetry.DepthEvent},
		{"Year: 1 Month: 1 - winter", telemetry.DepthMonth},
	}
	if len(events) < len(want)+1 {
		t.Fatalf("only %d events", len(events))
	}
	for i, e := range want {
		if events[i] != e {
			t.Errorf("event %d = %+v, want %+v", i, events[i], e)
		}
	}
	temp := events[len(want)]
	if !strings.HasPrefix(temp.msg, "Habitat: Meadow - Temperature: ") || temp.depth != telemetry.DepthHabitat {
		t.Errorf("temperature event = %+v", temp)
	}

	trials := 0
	for _, e := range events {
		if e.depth == telemetry.DepthTrial {
			trials++
		}
	}
	if trials != 2 {
		t.Errorf("trial headers = %d, want 2", trials)
	}
}

func TestSimulateCancelled(t *testing.T) {
	w, err := New(mustParse(t, quietDoc), Options{})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := w.Simulate(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestReportSinkError(t *testing.T) {
	errSink := errors.New("disk full")
	w, err := New(mustParse(t, quietDoc), Options{
		Reports: telemetry.MultiReportSink{failingSink{errSink}},
	})
	if err != nil {
		t.Fatal(err)
	}
	reports, err := w.Simulate(context.Background())
	if !errors.Is(err, errSink) {
		t.Errorf("err = %v, want %v", err, errSink)
	}
	if len(reports) != 1 {
		t.Error("computed reports should still be returned")
	}
}

type failingSink struct{ err error }

func (f failingSink) WriteReports(string, []telemetry.Report) error { return f.err }

func TestTelemetryOutputs(t *testing.T) {
	// Life span under three months: the founders die of old age in month 3
	cfg := mustParse(t, quietDoc)
	cfg.SpeciesDefaults.LifeSpan = 0.1
	cfg.Iterations = 1

	dir := t.TempDir()
	om, err := telemetry.NewOutputManager(filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	metrics := telemetry.NewMetrics()
	snapDir := filepath.Join(dir, "snapshots")

	w, err := New(cfg, Options{
		Output:      om,
		Metrics:     metrics,
		Perf:        true,
		SnapshotDir: snapDir,
	})
	if err != nil {
		t.Fatal(err)
	}
	reports, err := w.Simulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if reports[0].OldAgePct != 100 {
		t.Errorf("old age share = %v, want 100", reports[0].OldAgePct)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	monthly, err := os.ReadFile(filepath.Join(dir, "out", "monthly.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(strings.Split(strings.TrimSpace(string(monthly)), "\n")); n != 13 {
		t.Errorf("monthly.csv lines = %d, want header + 12", n)
	}

	bookmarks, err := os.ReadFile(filepath.Join(dir, "out", "bookmarks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(bookmarks), "extinction") {
		t.Errorf("bookmarks.csv missing extinction:\n%s", bookmarks)
	}

	perf, err := os.ReadFile(filepath.Join(dir, "out", "perf.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(perf), "Generic") {
		t.Errorf("perf.csv should have a row for the trial:\n%s", perf)
	}

	snaps, err := filepath.Glob(filepath.Join(snapDir, "snapshot_*.json"))
	if err != nil || len(snaps) != 1 {
		t.Fatalf("snapshots = %v (%v), want 1", snaps, err)
	}
	snap, err := telemetry.LoadSnapshot(snaps[0])
	if err != nil {
		t.Fatal(err)
	}
	if snap.Bookmark == nil || snap.Bookmark.Type != telemetry.BookmarkExtinction {
		t.Errorf("snapshot bookmark = %+v", snap.Bookmark)
	}
	if snap.Month != 3 || snap.RNGSeed != 7 || len(snap.Creatures) != 0 {
		t.Errorf("snapshot month %d seed %d creatures %d", snap.Month, snap.RNGSeed, len(snap.Creatures))
	}

	path := filepath.Join(dir, "metrics.prom")
	if err := metrics.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	prom, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`popsim_trials_total{species="Generic"} 1`,
		`popsim_deaths_total{cause="age",habitat="Meadow",species="Generic"} 2`,
		`popsim_births_total{habitat="Meadow",species="Generic"} 2`,
	} {
		if !strings.Contains(string(prom), want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}
