package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkExtinction       BookmarkType = "extinction"
	BookmarkPopulationBoom   BookmarkType = "population_boom"
	BookmarkPopulationCrash  BookmarkType = "population_crash"
	BookmarkStressOnset      BookmarkType = "stress_onset"
	BookmarkStablePopulation BookmarkType = "stable_population"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Species     string       `csv:"species"`
	Habitat     string       `csv:"habitat"`
	Iteration   int          `csv:"iteration"`
	Year        int          `csv:"year"`
	Month       int          `csv:"month"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"species", b.Species,
		"habitat", b.Habitat,
		"iteration", b.Iteration,
		"year", b.Year,
		"month", b.Month,
		"description", b.Description,
	)
}

const stableMonths = 12

// BookmarkDetector detects notable months in one habitat's trial.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []MonthStats
	historySize int
	historyIdx  int
	historyFull bool

	recentPeak        int
	prevStressed      bool
	stableMonthsCount int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < stableMonths {
		historySize = stableMonths
	}
	return &BookmarkDetector{
		history:     make([]MonthStats, historySize),
		historySize: historySize,
	}
}

// Reset clears history at the start of a new trial.
func (bd *BookmarkDetector) Reset() {
	bd.historyIdx = 0
	bd.historyFull = false
	bd.recentPeak = 0
	bd.prevStressed = false
	bd.stableMonthsCount = 0
}

// Check analyzes the latest month and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats MonthStats) []Bookmark {
	var bookmarks []Bookmark
	add := func(t BookmarkType, format string, args ...any) {
		bookmarks = append(bookmarks, Bookmark{
			Type:        t,
			Species:     stats.Species,
			Habitat:     stats.Habitat,
			Iteration:   stats.Iteration,
			Year:        stats.Year,
			Month:       stats.Month,
			Description: fmt.Sprintf(format, args...),
		})
	}

	history := bd.getHistory()
	if len(history) > 0 {
		prev := history[len(history)-1]

		if prev.Population > 0 && stats.Population == 0 {
			add(BookmarkExtinction, "Population died out (last %d, %d deaths this month)", prev.Population, stats.Deaths)
		}

		// Boom: more than double the rolling average
		if len(history) >= 3 {
			var sum float64
			for _, h := range history {
				sum += float64(h.Population)
			}
			avg := sum / float64(len(history))
			if avg > 0 && float64(stats.Population) > avg*2 && stats.Population >= 10 {
				add(BookmarkPopulationBoom, "Population %d is %.1fx the recent average (%.1f)", stats.Population, float64(stats.Population)/avg, avg)
			}
		}

		// Crash: dropped more than half from recent peak
		if bd.recentPeak >= 10 && stats.Population > 0 {
			drop := 1 - float64(stats.Population)/float64(bd.recentPeak)
			if drop > 0.5 {
				add(BookmarkPopulationCrash, "Population crashed %.0f%% from peak %d to %d", drop*100, bd.recentPeak, stats.Population)
				bd.recentPeak = stats.Population
			}
		}
	}

	if stats.Stressed && !bd.prevStressed {
		add(BookmarkStressOnset, "Resources stressed at population %d", stats.Population)
	}
	bd.prevStressed = stats.Stressed

	bd.addToHistory(stats)

	if bd.checkStable(stats) {
		add(BookmarkStablePopulation, "Population steady around %d for %d months", stats.Population, stableMonths)
	}

	if stats.Population > bd.recentPeak {
		bd.recentPeak = stats.Population
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats MonthStats) {
	if bd.historyFull {
		copy(bd.history, bd.history[1:])
		bd.history[bd.historySize-1] = stats
		return
	}
	bd.history[bd.historyIdx] = stats
	bd.historyIdx++
	if bd.historyIdx == bd.historySize {
		bd.historyFull = true
	}
}

// getHistory returns recorded months, oldest first.
func (bd *BookmarkDetector) getHistory() []MonthStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// checkStable reports true exactly once per run of stableMonths months
// whose population has a coefficient of variation under 10%.
func (bd *BookmarkDetector) checkStable(stats MonthStats) bool {
	if stats.Population < 10 {
		bd.stableMonthsCount = 0
		return false
	}

	history := bd.getHistory()
	if len(history) < stableMonths {
		return false
	}

	pops := make([]float64, stableMonths)
	for i, h := range history[len(history)-stableMonths:] {
		pops[i] = float64(h.Population)
	}
	mean, variance := stat.MeanVariance(pops, nil)
	if mean > 0 && variance/(mean*mean) < 0.01 {
		bd.stableMonthsCount++
	} else {
		bd.stableMonthsCount = 0
	}

	return bd.stableMonthsCount == 1
}
