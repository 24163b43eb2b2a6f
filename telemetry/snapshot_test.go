package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/herd/components"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	orgs := []components.Organism{
		{SpeciesID: 1, Position: components.Position{X: 10, Y: 20}, Angle: 1.5, MovementSpeed: 2, FoodLevel: 0.5, WaterLevel: 0.25, VisionRadius: 3},
		{SpeciesID: 0, Position: components.Position{X: 0, Y: 575}, TurnSpeed: 1, HerdingFactor: 0.75},
	}
	snapshot := &Snapshot{
		Version:  SnapshotVersion,
		Seed:     42,
		Width:    1024,
		Height:   576,
		Capacity: 1000,
		Tick:     600,
	}
	for _, o := range orgs {
		snapshot.Organisms = append(snapshot.Organisms, NewOrganismState(o))
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if filepath.Base(path) != "snapshot_600.json" {
		t.Errorf("path = %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.Seed != 42 || loaded.Tick != 600 || loaded.Width != 1024 || loaded.Capacity != 1000 {
		t.Errorf("header = %+v", loaded)
	}
	got := loaded.OrganismRecords()
	if len(got) != len(orgs) {
		t.Fatalf("loaded %d organisms, want %d", len(got), len(orgs))
	}
	for i := range orgs {
		if got[i] != orgs[i] {
			t.Errorf("organism %d = %+v, want %+v", i, got[i], orgs[i])
		}
	}
}

func TestSnapshotJSONFields(t *testing.T) {
	data, err := json.Marshal(NewOrganismState(components.Organism{MovementSpeed: 2}))
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"species"`, `"x"`, `"move_speed"`, `"herding"`, `"vision"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("missing %s in %s", field, data)
		}
	}
}

func TestLoadSnapshotRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"wrong version", `{"version": 99, "capacity": 10}`},
		{"over capacity", `{"version": 1, "capacity": 1, "organisms": [{}, {}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".json")
			if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadSnapshot(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadSnapshot(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
