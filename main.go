package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/popsim/config"
	"github.com/pthm-cable/popsim/store"
	"github.com/pthm-cable/popsim/telemetry"
	"github.com/pthm-cable/popsim/world"
)

type flags struct {
	configPath  string
	seed        int64
	outputDir   string
	snapshotDir string
	logFile     string
	reportFile  string
	logDepth    int
	logStats    bool
	dbPath      string
	metricsFile string
	quiet       bool
	perf        bool
}

func main() {
	// CLI flags
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to config.yaml (empty = use defaults)")
	flag.Int64Var(&f.seed, "seed", 0, "RNG seed (0 = config seed, then time-based)")
	flag.StringVar(&f.outputDir, "output-dir", "", "Output directory for CSV logs and config snapshot")
	flag.StringVar(&f.snapshotDir, "snapshot-dir", "", "Directory for bookmark snapshot files")
	flag.StringVar(&f.logFile, "log-file", "", "Event log path (empty = config log.file, \"-\" = off)")
	flag.StringVar(&f.reportFile, "report-file", "", "Text report path (empty = config log.output_file, \"-\" = off)")
	flag.IntVar(&f.logDepth, "log-depth", -1, "Deepest event depth written to the event log (-1 = config)")
	flag.BoolVar(&f.logStats, "log-stats", false, "Output month stats and bookmarks via slog")
	flag.StringVar(&f.dbPath, "db", "", "SQLite results database (empty = off)")
	flag.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile at exit")
	flag.BoolVar(&f.quiet, "quiet", false, "Skip the console summary")
	flag.BoolVar(&f.perf, "perf", false, "Time simulation phases")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(f); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	// Initialize config before anything else
	if err := config.Init(f.configPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := config.Cfg()

	if f.logDepth >= 0 {
		cfg.Log.MaxDepth = f.logDepth
	}
	logPath := pick(f.logFile, cfg.Log.File)
	reportPath := pick(f.reportFile, cfg.Log.OutputFile)

	// Set up seed
	rngSeed := f.seed
	if rngSeed == 0 {
		rngSeed = cfg.Seed
	}
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := world.Options{
		Seed:        rngSeed,
		LogStats:    f.logStats || cfg.Telemetry.LogStats,
		Perf:        f.perf,
		SnapshotDir: f.snapshotDir,
	}
	var reports telemetry.MultiReportSink

	// Event log, cleared at start
	if logPath != "" {
		eventLog, err := telemetry.CreateFileLog(logPath, cfg.Log.FlushBytes)
		if err != nil {
			return fmt.Errorf("create event log: %w", err)
		}
		defer closeLog("event log", eventLog)
		opts.Sink = eventLog
	}
	if opts.LogStats {
		opts.Sink = telemetry.Tee(opts.Sink, telemetry.SlogSink{Logger: slog.Default(), Level: slog.LevelInfo})
	}
	if opts.Sink != nil {
		opts.Sink = telemetry.MaxDepth(opts.Sink, cfg.Log.MaxDepth)
	}

	// Text report, cleared at start
	if reportPath != "" {
		reportLog, err := telemetry.CreateFileLog(reportPath, cfg.Log.FlushBytes)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer closeLog("report file", reportLog)
		reports = append(reports, telemetry.NewTextReporter(reportLog))
	}

	om, err := telemetry.NewOutputManager(f.outputDir)
	if err != nil {
		return err
	}
	if om != nil {
		defer closeOutput(om)
		slog.Info("writing telemetry", "dir", om.Dir())
		if err := om.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config", "error", err)
		}
		opts.Output = om
		reports = append(reports, om)
	}

	if f.dbPath != "" {
		db, err := store.Open(f.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		runID, err := db.BeginRun(rngSeed, cfg)
		if err != nil {
			return err
		}
		reports = append(reports, db.Reporter(runID))
		slog.Info("recording results", "db", f.dbPath, "run_id", runID)
	}

	if f.metricsFile != "" {
		opts.Metrics = telemetry.NewMetrics()
	}

	if !f.quiet {
		reports = append(reports, telemetry.NewConsoleReporter(os.Stdout, isTerminal(os.Stdout)))
	}
	opts.Reports = reports

	w, err := world.New(cfg, opts)
	if err != nil {
		return err
	}

	slog.Info("starting simulation",
		"seed", w.Seed(),
		"species", len(cfg.Species),
		"habitats", len(cfg.Habitats),
		"years", cfg.Years,
		"iterations", cfg.Iterations,
	)

	start := time.Now()
	results, err := w.Simulate(ctx)
	if err != nil {
		return err
	}
	slog.Info("simulation finished", "reports", len(results), "elapsed", time.Since(start).Round(time.Millisecond))

	if err := om.WriteRunSummary(telemetry.NewRunSummary(cfg, w.Seed(), results)); err != nil {
		slog.Error("failed to write run summary", "error", err)
	}
	if err := opts.Metrics.WriteTextfile(f.metricsFile); err != nil {
		slog.Error("failed to write metrics", "error", err)
	}
	return nil
}

// pick returns the flag value if set, else the config value. "-" disables.
func pick(flagValue, configValue string) string {
	switch flagValue {
	case "":
		return configValue
	case "-":
		return ""
	}
	return flagValue
}

func closeLog(name string, l *telemetry.FileLog) {
	if err := l.Close(); err != nil {
		slog.Error("failed to close "+name, "error", err)
	}
}

func closeOutput(om *telemetry.OutputManager) {
	if err := om.Close(); err != nil {
		slog.Error("failed to close telemetry output", "error", err)
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
