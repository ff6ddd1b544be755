// Package telemetry provides event logging, monthly statistics, bookmarks and
// per-species reports for the simulation.
package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pthm-cable/popsim/components"
)

// Event depths. Deeper messages are nested under shallower ones.
const (
	DepthTrial   = 0 // species/iteration headers
	DepthMonth   = 1 // calendar and seeding
	DepthHabitat = 2 // per-habitat temperature
	DepthEvent   = 3 // births, deaths, stress, month summaries
)

// Sink receives simulation event messages at a nesting depth.
type Sink interface {
	Record(msg string, depth int)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(msg string, depth int)

// Record calls f.
func (f SinkFunc) Record(msg string, depth int) { f(msg, depth) }

type discard struct{}

func (discard) Record(string, int) {}

// Discard drops every message.
var Discard Sink = discard{}

type tee []Sink

func (t tee) Record(msg string, depth int) {
	for _, s := range t {
		s.Record(msg, depth)
	}
}

// Tee returns a Sink that forwards to every non-nil sink.
func Tee(sinks ...Sink) Sink {
	var out tee
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return Discard
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// MaxDepth drops messages nested deeper than max.
func MaxDepth(s Sink, max int) Sink {
	return SinkFunc(func(msg string, depth int) {
		if depth <= max {
			s.Record(msg, depth)
		}
	})
}

// BufferedLog accumulates tab-indented lines in memory and writes them out
// once the buffer grows past flushBytes. Flush writes whatever is pending.
type BufferedLog struct {
	w          io.Writer
	buf        bytes.Buffer
	flushBytes int
	err        error
}

// NewBufferedLog creates a buffered log over w. flushBytes <= 0 buffers
// until an explicit Flush.
func NewBufferedLog(w io.Writer, flushBytes int) *BufferedLog {
	return &BufferedLog{w: w, flushBytes: flushBytes}
}

// Record appends msg indented by depth tabs. After a failed write the log
// drops every further message.
func (l *BufferedLog) Record(msg string, depth int) {
	if l.err != nil {
		return
	}
	for i := 0; i < depth; i++ {
		l.buf.WriteByte('\t')
	}
	l.buf.WriteString(msg)
	l.buf.WriteByte('\n')

	if l.flushBytes > 0 && l.buf.Len() > l.flushBytes {
		l.Flush()
	}
}

// Flush writes the pending buffer. The first write error is kept and returned
// by every later Flush.
func (l *BufferedLog) Flush() error {
	if l.err != nil {
		return l.err
	}
	if l.buf.Len() == 0 {
		return nil
	}
	if _, err := l.buf.WriteTo(l.w); err != nil {
		l.err = fmt.Errorf("flushing log: %w", err)
		slog.Error("event log disabled", "error", err)
	}
	l.buf.Reset()
	return l.err
}

// Buffered returns the number of bytes waiting to be flushed.
func (l *BufferedLog) Buffered() int {
	return l.buf.Len()
}

// FileLog is a BufferedLog backed by a file.
type FileLog struct {
	*BufferedLog
	f *os.File
}

// CreateFileLog truncates (or creates) path and returns a buffered log writing to it.
func CreateFileLog(path string, flushBytes int) (*FileLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}
	return &FileLog{BufferedLog: NewBufferedLog(f, flushBytes), f: f}, nil
}

// Close flushes pending output and closes the file.
func (fl *FileLog) Close() error {
	flushErr := fl.Flush()
	closeErr := fl.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// SlogSink forwards events to a slog.Logger with the depth as an attribute.
type SlogSink struct {
	Logger *slog.Logger
	Level  slog.Level
}

// Record logs msg.
func (s SlogSink) Record(msg string, depth int) {
	s.Logger.Log(context.Background(), s.Level, msg, "depth", depth)
}

// formatNumber prints v without trailing zeros (2, 2.5, 5.08).
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TrialMessage heads one trial of a species.
func TrialMessage(species string, iteration int) string {
	return fmt.Sprintf("%s - iteration: %d", species, iteration)
}

// SeedMessage announces the founding pair of a habitat.
func SeedMessage(habitat, species string) string {
	return fmt.Sprintf("Seeding %s with 1 male & 1 female %s", habitat, species)
}

// MonthMessage heads one calendar month.
func MonthMessage(year, month int, season string) string {
	return fmt.Sprintf("Year: %d Month: %d - %s", year, month, season)
}

// TemperatureMessage reports a habitat's sampled temperature.
func TemperatureMessage(habitat string, temperature float64) string {
	return fmt.Sprintf("Habitat: %s - Temperature: %s", habitat, formatNumber(temperature))
}

// BirthMessage announces a spawned individual.
func BirthMessage(species string, g components.Gender) string {
	return fmt.Sprintf("A new %s %s was born.", g, species)
}

// DeathMessage announces a death with its cause and age.
func DeathMessage(species string, cause components.Cause, ageYears float64) string {
	return fmt.Sprintf("1 %s died of %s at %s years of age.", species, cause, formatNumber(ageYears))
}

// StressMessage is recorded when projected demand exceeds a habitat's supply.
const StressMessage = "Food and/or water resources are currently stressed!"

// MonthSummaryMessage renders the end-of-month counters of a habitat.
func MonthSummaryMessage(s MonthStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "END OF MONTH STATS >> Current Species Count: %d", s.Population)
	fmt.Fprintf(&b, " - Current Males: %d", s.Males)
	fmt.Fprintf(&b, " - Max Count: %d", s.MaxPopulation)
	fmt.Fprintf(&b, " - Total Births: %d", s.TotalBirths)
	fmt.Fprintf(&b, " - Total Deaths: %d", s.TotalDeaths)
	return b.String()
}
