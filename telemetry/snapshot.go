package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/herd/components"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the living population for later restore.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	Width    int `json:"width"`
	Height   int `json:"height"`
	Capacity int `json:"capacity"`

	Tick int32 `json:"tick"`

	Organisms []OrganismState `json:"organisms"`
}

// OrganismState is the JSON form of one organism record.
type OrganismState struct {
	Species   float32 `json:"species"`
	X         float32 `json:"x"`
	Y         float32 `json:"y"`
	Angle     float32 `json:"angle"`
	MoveSpeed float32 `json:"move_speed"`
	TurnSpeed float32 `json:"turn_speed"`
	Herding   float32 `json:"herding"`
	Food      float32 `json:"food"`
	Water     float32 `json:"water"`
	Vision    float32 `json:"vision"`
}

// NewOrganismState converts a record to its JSON form.
func NewOrganismState(o components.Organism) OrganismState {
	return OrganismState{
		Species:   o.SpeciesID,
		X:         o.Position.X,
		Y:         o.Position.Y,
		Angle:     o.Angle,
		MoveSpeed: o.MovementSpeed,
		TurnSpeed: o.TurnSpeed,
		Herding:   o.HerdingFactor,
		Food:      o.FoodLevel,
		Water:     o.WaterLevel,
		Vision:    o.VisionRadius,
	}
}

// Organism converts the JSON form back to a record.
func (s OrganismState) Organism() components.Organism {
	return components.Organism{
		SpeciesID:     s.Species,
		Position:      components.Position{X: s.X, Y: s.Y},
		Angle:         s.Angle,
		MovementSpeed: s.MoveSpeed,
		TurnSpeed:     s.TurnSpeed,
		HerdingFactor: s.Herding,
		FoodLevel:     s.Food,
		WaterLevel:    s.Water,
		VisionRadius:  s.Vision,
	}
}

// OrganismRecords returns the snapshot's records.
func (s *Snapshot) OrganismRecords() []components.Organism {
	out := make([]components.Organism, len(s.Organisms))
	for i, st := range s.Organisms {
		out[i] = st.Organism()
	}
	return out
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Tick))

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
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	if len(snapshot.Organisms) > snapshot.Capacity {
		return nil, fmt.Errorf("snapshot holds %d organisms over capacity %d", len(snapshot.Organisms), snapshot.Capacity)
	}

	return &snapshot, nil
}
