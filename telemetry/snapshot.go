package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/popsim/components"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds one habitat's population at the end of a month.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	Species   string `json:"species"`
	Habitat   string `json:"habitat"`
	Iteration int    `json:"iteration"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`

	Temperature float64 `json:"temperature"`
	Stressed    bool    `json:"stressed"`

	Creatures []CreatureState `json:"creatures"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// CreatureState holds one individual's mutable state.
type CreatureState struct {
	AgeMonths         int    `json:"age_months"`
	Gender            string `json:"gender"`
	Gestation         int    `json:"gestation"`
	MonthsWithoutFood int    `json:"months_without_food"`
}

// NewCreatureState captures c.
func NewCreatureState(c *components.Creature) CreatureState {
	return CreatureState{
		AgeMonths:         c.AgeMonths,
		Gender:            c.Gender.String(),
		Gestation:         c.Gestation,
		MonthsWithoutFood: c.MonthsWithoutFood,
	}
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%s_%s_i%d_y%d_m%d",
		sanitize(snapshot.Species), sanitize(snapshot.Habitat),
		snapshot.Iteration, snapshot.Year, snapshot.Month)
	if snapshot.Bookmark != nil {
		name += "_" + sanitize(string(snapshot.Bookmark.Type))
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snapshot.Version)
	}
	return &snapshot, nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
