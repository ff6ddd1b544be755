// Package store keeps run results in a SQLite database.
package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/popsim/config"
	"github.com/pthm-cable/popsim/telemetry"
)

// DB wraps a SQLite connection holding runs and their reports.
type DB struct {
	conn *sqlx.DB
}

// Run is one invocation of the simulator.
type Run struct {
	ID         int64  `db:"id"`
	StartedAt  string `db:"started_at"`
	Seed       int64  `db:"seed"`
	Years      int    `db:"years"`
	Iterations int    `db:"iterations"`
	ConfigYAML string `db:"config_yaml"`
}

// reportRow is a report tied to its run.
type reportRow struct {
	RunID int64 `db:"run_id"`
	telemetry.Report
}

const reportColumns = `species, habitat, iterations, years,
	average_population, max_population, total_births, total_deaths, mortality_rate,
	hot_weather_pct, cold_weather_pct, starvation_pct, thirst_pct, age_pct,
	final_population_mean, final_population_stddev, extinctions, mean_age_at_death`

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		seed INTEGER NOT NULL,
		years INTEGER NOT NULL,
		iterations INTEGER NOT NULL,
		config_yaml TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reports (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		species TEXT NOT NULL,
		habitat TEXT NOT NULL,
		iterations INTEGER NOT NULL,
		years INTEGER NOT NULL,
		average_population REAL NOT NULL,
		max_population INTEGER NOT NULL,
		total_births INTEGER NOT NULL,
		total_deaths INTEGER NOT NULL,
		mortality_rate REAL NOT NULL,
		hot_weather_pct REAL NOT NULL,
		cold_weather_pct REAL NOT NULL,
		starvation_pct REAL NOT NULL,
		thirst_pct REAL NOT NULL,
		age_pct REAL NOT NULL,
		final_population_mean REAL NOT NULL,
		final_population_stddev REAL NOT NULL,
		extinctions INTEGER NOT NULL,
		mean_age_at_death REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_run ON reports(run_id);
	CREATE INDEX IF NOT EXISTS idx_reports_species ON reports(species, habitat);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginRun records a new run and returns its id.
func (db *DB) BeginRun(seed int64, cfg *config.Config) (int64, error) {
	doc, err := yaml.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("marshal config: %w", err)
	}

	result, err := db.conn.Exec(
		"INSERT INTO runs (started_at, seed, years, iterations, config_yaml) VALUES (?, ?, ?, ?, ?)",
		time.Now().UTC().Format(time.RFC3339), seed, cfg.Years, cfg.Iterations, string(doc),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return result.LastInsertId()
}

// SaveReports appends reports to a run.
func (db *DB) SaveReports(runID int64, reports []telemetry.Report) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(`INSERT INTO reports (run_id, ` + reportColumns + `)
		VALUES (:run_id, :species, :habitat, :iterations, :years,
		 :average_population, :max_population, :total_births, :total_deaths, :mortality_rate,
		 :hot_weather_pct, :cold_weather_pct, :starvation_pct, :thirst_pct, :age_pct,
		 :final_population_mean, :final_population_stddev, :extinctions, :mean_age_at_death)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range reports {
		if _, err := stmt.Exec(reportRow{RunID: runID, Report: r}); err != nil {
			return fmt.Errorf("insert report %s/%s: %w", r.Species, r.Habitat, err)
		}
	}

	return tx.Commit()
}

// Reports returns a run's reports in insertion order.
func (db *DB) Reports(runID int64) ([]telemetry.Report, error) {
	var reports []telemetry.Report
	err := db.conn.Select(&reports,
		"SELECT "+reportColumns+" FROM reports WHERE run_id = ? ORDER BY rowid", runID)
	if err != nil {
		return nil, fmt.Errorf("select reports: %w", err)
	}
	return reports, nil
}

// SpeciesHistory returns every stored report of one species and habitat,
// oldest run first.
func (db *DB) SpeciesHistory(species, habitat string) ([]telemetry.Report, error) {
	var reports []telemetry.Report
	err := db.conn.Select(&reports,
		"SELECT "+reportColumns+" FROM reports WHERE species = ? AND habitat = ? ORDER BY run_id, rowid",
		species, habitat)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	return reports, nil
}

// Runs lists recorded runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	if err := db.conn.Select(&runs, "SELECT * FROM runs ORDER BY id DESC"); err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	return runs, nil
}

// Run loads one run.
func (db *DB) Run(id int64) (Run, error) {
	var r Run
	if err := db.conn.Get(&r, "SELECT * FROM runs WHERE id = ?", id); err != nil {
		return Run{}, fmt.Errorf("get run %d: %w", id, err)
	}
	return r, nil
}

// RunReports writes reports into one run. It implements telemetry.ReportSink.
type RunReports struct {
	db    *DB
	runID int64
}

// Reporter returns a report sink bound to runID.
func (db *DB) Reporter(runID int64) *RunReports {
	return &RunReports{db: db, runID: runID}
}

// WriteReports implements telemetry.ReportSink.
func (rr *RunReports) WriteReports(_ string, reports []telemetry.Report) error {
	return rr.db.SaveReports(rr.runID, reports)
}
