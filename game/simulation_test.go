package game

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/gpu"
	"github.com/pthm-cable/herd/systems"
	"github.com/pthm-cable/herd/telemetry"
)

func testOptions() Options {
	return Options{
		Seed:           42,
		Resolution:     components.Resolution{Width: 32, Height: 24},
		Capacity:       100,
		Batch:          10,
		Terrain:        systems.TerrainParams{Scale: 0.05, Octaves: 2, Gain: 0.5},
		DT:             0.1,
		StatsWindowSec: 1,
		PerfWindow:     10,
	}
}

func testProgram(t *testing.T) (*gpu.SoftDevice, *gpu.Program) {
	t.Helper()
	dev := gpu.NewSoftDevice(2)
	prog, err := dev.LoadProgram(gpu.ReferenceKernels(), gpu.ProgramInfo{
		Threads: [gpu.NumKernels][3]int{
			gpu.KernelAppend:  {64, 1, 1},
			gpu.KernelConsume: {64, 1, 1},
			gpu.KernelUpdate:  {64, 1, 1},
			gpu.KernelDraw:    {8, 8, 1},
		},
		OrganismStride: components.OrganismStride,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(prog.Release)
	return dev, prog
}

func newTestSimulation(t *testing.T, opts Options) (*gpu.SoftDevice, *Simulation) {
	t.Helper()
	dev, prog := testProgram(t)
	sim, err := NewSimulation(prog, opts)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	t.Cleanup(func() { sim.Close() })
	return dev, sim
}

func TestSimulationFrame(t *testing.T) {
	dev, sim := newTestSimulation(t, testOptions())

	if err := sim.Tick(0.1); err != nil {
		t.Fatal(err)
	}
	if sim.LivingPopulation() != 0 {
		t.Fatalf("living = %d, want 0", sim.LivingPopulation())
	}
	if n := dev.Stats().Dispatches[gpu.KernelUpdate]; n != 0 {
		t.Errorf("update dispatched %d times on empty population", n)
	}

	tex, err := sim.Render()
	if err != nil {
		t.Fatal(err)
	}
	texels, err := tex.Read()
	if err != nil {
		t.Fatal(err)
	}
	// Empty population shows dimmed terrain everywhere.
	for i := 3; i < len(texels); i += 4 {
		if texels[i] != 1 {
			t.Fatalf("display texel %d alpha = %v after draw", i/4, texels[i])
		}
	}
}

func TestSimulationTriggers(t *testing.T) {
	dev, sim := newTestSimulation(t, testOptions())
	if err := sim.Tick(0.1); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		if err := sim.AppendTrigger(); err != nil {
			t.Fatal(err)
		}
	}
	if sim.LivingPopulation() != 100 {
		t.Fatalf("living = %d, want 100", sim.LivingPopulation())
	}

	before := dev.Stats().Dispatches[gpu.KernelAppend]
	if err := sim.AppendTrigger(); err != nil {
		t.Fatalf("rejected append surfaced as error: %v", err)
	}
	if dev.Stats().Dispatches[gpu.KernelAppend] != before {
		t.Error("rejected append dispatched a kernel")
	}

	if err := sim.ConsumeTrigger(); err != nil {
		t.Fatal(err)
	}
	if sim.LivingPopulation() != 90 {
		t.Errorf("living after consume = %d, want 90", sim.LivingPopulation())
	}

	if err := sim.Tick(0.1); err != nil {
		t.Fatal(err)
	}
	if n := dev.Stats().Dispatches[gpu.KernelUpdate]; n != 1 {
		t.Errorf("update dispatched %d times, want 1", n)
	}
	if _, _, oob := dev.Faults(); oob != 0 {
		t.Errorf("%d out-of-bounds texel writes", oob)
	}
}

func TestSimulationCensus(t *testing.T) {
	_, sim := newTestSimulation(t, testOptions())
	if err := sim.Tick(0.1); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := sim.AppendTrigger(); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := sim.Census()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Species != 0 || rows[0].Count != 30 {
		t.Fatalf("census = %+v, want 30 of species 0", rows)
	}
	if rows[0].MeanFood != 1 || rows[0].MeanSpeed != 1 {
		t.Errorf("census means = %+v, want seeded values", rows[0])
	}
}

func TestSimulationTelemetryOutput(t *testing.T) {
	opts := testOptions()
	opts.OutputDir = t.TempDir()
	opts.CensusEvery = 1
	_, sim := newTestSimulation(t, opts)

	if err := sim.AppendTrigger(); err != nil {
		t.Fatal(err)
	}
	// 1s windows at dt 0.1: two flushes in 20 ticks.
	for i := 0; i < 20; i++ {
		if err := sim.Tick(0.1); err != nil {
			t.Fatal(err)
		}
		if _, err := sim.Render(); err != nil {
			t.Fatal(err)
		}
	}
	if err := sim.Close(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"population.csv", "perf.csv", "census.csv"} {
		data, err := os.ReadFile(filepath.Join(opts.OutputDir, name))
		if err != nil {
			t.Fatal(err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestSimulationSnapshotRoundTrip(t *testing.T) {
	opts := testOptions()
	opts.SnapshotDir = t.TempDir()
	_, sim := newTestSimulation(t, opts)

	if err := sim.Tick(0.1); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if err := sim.AppendTrigger(); err != nil {
			t.Fatal(err)
		}
	}
	if err := sim.Tick(0.1); err != nil {
		t.Fatal(err)
	}
	path, err := sim.SaveSnapshot()
	if err != nil {
		t.Fatal(err)
	}

	snap, err := telemetry.LoadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Organisms) != 40 || snap.Tick != 2 {
		t.Fatalf("snapshot has %d organisms at tick %d, want 40 at 2", len(snap.Organisms), snap.Tick)
	}

	_, other := newTestSimulation(t, opts)
	if err := other.RestoreSnapshot(snap); err != nil {
		t.Fatal(err)
	}
	if other.LivingPopulation() != 40 {
		t.Errorf("restored living = %d, want 40", other.LivingPopulation())
	}

	snap.Width++
	if err := other.RestoreSnapshot(snap); err == nil {
		t.Error("expected domain mismatch error")
	}
}

func TestSimulationClose(t *testing.T) {
	dev, prog := testProgram(t)
	sim, err := NewSimulation(prog, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sim.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if buffers, textures := dev.Live(); buffers != 0 || textures != 0 {
		t.Errorf("leaked %d buffers and %d textures", buffers, textures)
	}

	if err := sim.Tick(0.1); !errors.Is(err, gpu.ErrReleased) {
		t.Errorf("Tick after Close = %v, want ErrReleased", err)
	}
	if _, err := sim.Render(); !errors.Is(err, gpu.ErrReleased) {
		t.Errorf("Render after Close = %v, want ErrReleased", err)
	}
	if err := sim.AppendTrigger(); !errors.Is(err, gpu.ErrReleased) {
		t.Errorf("AppendTrigger after Close = %v, want ErrReleased", err)
	}
}

func TestNewSimulationRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		want   error
	}{
		{"zero capacity", func(o *Options) { o.Capacity = 0 }, systems.ErrInvalidCapacity},
		{"zero width", func(o *Options) { o.Resolution.Width = 0 }, systems.ErrInvalidResolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, prog := testProgram(t)
			opts := testOptions()
			tt.modify(&opts)
			if _, err := NewSimulation(prog, opts); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if buffers, textures := dev.Live(); buffers != 0 || textures != 0 {
				t.Errorf("leaked %d buffers and %d textures", buffers, textures)
			}
		})
	}
}
