package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/popsim/config"
)

// csvFile appends records to a CSV file, writing the header once.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func createCSV(dir, name string) (*csvFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvFile{f: f}, nil
}

func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, c.f); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir          string
	monthlyFile  *csvFile
	reportFile   *csvFile
	bookmarkFile *csvFile
	perfFile     *csvFile
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  **csvFile
	}{
		{"monthly.csv", &om.monthlyFile},
		{"reports.csv", &om.reportFile},
		{"bookmarks.csv", &om.bookmarkFile},
		{"perf.csv", &om.perfFile},
	}
	for _, spec := range files {
		f, err := createCSV(dir, spec.name)
		if err != nil {
			om.Close()
			return nil, err
		}
		*spec.dst = f
	}

	return om, nil
}

// WriteConfig saves the run configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteMonth writes a month stats record to monthly.csv.
func (om *OutputManager) WriteMonth(stats MonthStats) error {
	if om == nil {
		return nil
	}
	if err := om.monthlyFile.write([]MonthStats{stats}); err != nil {
		return fmt.Errorf("writing month stats: %w", err)
	}
	return nil
}

// WriteReports writes one species' reports to reports.csv.
func (om *OutputManager) WriteReports(_ string, reports []Report) error {
	if om == nil || len(reports) == 0 {
		return nil
	}
	if err := om.reportFile.write(reports); err != nil {
		return fmt.Errorf("writing reports: %w", err)
	}
	return nil
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := om.bookmarkFile.write([]Bookmark{b}); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, species string, iteration int) error {
	if om == nil {
		return nil
	}
	if err := om.perfFile.write([]PerfStatsCSV{stats.ToCSV(species, iteration)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// RunSummary describes a finished run.
type RunSummary struct {
	Seed       int64    `json:"seed"`
	Years      int      `json:"years"`
	Iterations int      `json:"iterations"`
	Species    []string `json:"species"`
	Habitats   []string `json:"habitats"`
	Reports    []Report `json:"reports"`
}

// NewRunSummary collects the run parameters of cfg.
func NewRunSummary(cfg *config.Config, seed int64, reports []Report) RunSummary {
	s := RunSummary{
		Seed:       seed,
		Years:      cfg.Years,
		Iterations: cfg.Iterations,
		Reports:    reports,
	}
	for _, sp := range cfg.Species {
		s.Species = append(s.Species, sp.Name)
	}
	for _, h := range cfg.Habitats {
		s.Habitats = append(s.Habitats, h.Name)
	}
	return s
}

// WriteRunSummary writes run.json.
func (om *OutputManager) WriteRunSummary(s RunSummary) error {
	if om == nil {
		return nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "run.json"), data, 0644); err != nil {
		return fmt.Errorf("writing run summary: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, c := range []*csvFile{om.monthlyFile, om.reportFile, om.bookmarkFile, om.perfFile} {
		if c == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ReadReports parses a reports.csv written by an OutputManager.
func ReadReports(r io.Reader) ([]Report, error) {
	var reports []Report
	if err := gocsv.Unmarshal(r, &reports); err != nil {
		return nil, fmt.Errorf("reading reports: %w", err)
	}
	return reports, nil
}
