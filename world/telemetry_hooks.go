package world

import (
	"log/slog"

	"github.com/pthm-cable/popsim/components"
	"github.com/pthm-cable/popsim/telemetry"
)

// flushTelemetry publishes one habitat month and handles bookmarks.
func (w *World) flushTelemetry(habitat int, stats telemetry.MonthStats) {
	if w.statsCallback != nil {
		w.statsCallback(stats)
	}

	if w.logStats {
		stats.LogStats()
	}

	w.metrics.ObserveMonth(stats)

	if w.outputManager != nil {
		if err := w.outputManager.WriteMonth(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
	}

	bookmarks := w.bookmarkDetector[habitat].Check(stats)
	for _, bm := range bookmarks {
		if w.logStats {
			bm.LogBookmark()
		}
		w.metrics.ObserveBookmark(bm)

		if w.outputManager != nil {
			if err := w.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}

		if w.snapshotDir != "" {
			w.saveSnapshot(habitat, &bm)
		}
	}
}

func (w *World) writePerf(stats telemetry.PerfStats) {
	if w.outputManager == nil {
		return
	}
	if err := w.outputManager.WritePerf(stats, w.current.Name, w.iteration); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}

// saveSnapshot creates and saves a snapshot to disk.
func (w *World) saveSnapshot(habitat int, bookmark *telemetry.Bookmark) {
	snapshot := w.createSnapshot(habitat, bookmark)

	path, err := telemetry.SaveSnapshot(snapshot, w.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}

	slog.Info("snapshot saved", "path", path, "iteration", w.iteration, "year", w.year, "month", w.month)
}

// createSnapshot captures the living population of one habitat.
func (w *World) createSnapshot(habitat int, bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	h := w.habitats[habitat]
	snapshot := &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		RNGSeed:     w.rngSeed,
		Species:     w.current.Name,
		Habitat:     h.Name(),
		Iteration:   w.iteration,
		Year:        w.year,
		Month:       w.month,
		Temperature: h.Temperature(),
		Stressed:    h.Stressed(),
		Bookmark:    bookmark,
	}

	h.Creatures(func(c *components.Creature) {
		snapshot.Creatures = append(snapshot.Creatures, telemetry.NewCreatureState(c))
	})

	return snapshot
}
