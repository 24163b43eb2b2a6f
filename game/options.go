package game

import (
	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/config"
	"github.com/pthm-cable/herd/gpu"
	"github.com/pthm-cable/herd/systems"
)

// Options configures a Simulation.
type Options struct {
	Seed       int64
	Resolution components.Resolution
	Capacity   int
	Batch      int // organisms added or removed per trigger
	Terrain    systems.TerrainParams

	// Telemetry
	DT             float32 // nominal seconds per tick, used for window sizing
	LogStats       bool
	StatsWindowSec float64
	PerfWindow     int
	CensusEvery    int    // stats windows between census snapshots (0 = off)
	OutputDir      string // CSV and config output (empty = disabled)
	SnapshotDir    string // population snapshots (empty = disabled)
}

// OptionsFromConfig builds simulation options from the loaded configuration.
// Run-specific fields (seed, output paths) are left for the caller.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Resolution: components.Resolution{
			Width:  cfg.Simulation.Width,
			Height: cfg.Simulation.Height,
		},
		Capacity: cfg.Population.Max,
		Batch:    cfg.Population.Batch,
		Terrain: systems.TerrainParams{
			Scale:   cfg.Terrain.Scale,
			Octaves: cfg.Terrain.Octaves,
			Gain:    cfg.Terrain.Gain,
		},
		DT:             cfg.Derived.DT32,
		StatsWindowSec: cfg.Telemetry.StatsWindow,
		PerfWindow:     cfg.Telemetry.PerfCollectorWindow,
		CensusEvery:    cfg.Telemetry.CensusEvery,
	}
}

// ProgramInfoFromConfig describes the kernel interface the configuration
// expects. The thread sizes must match the local sizes compiled into the
// kernels.
func ProgramInfoFromConfig(cfg *config.Config) gpu.ProgramInfo {
	linear := [3]int{cfg.GPU.ThreadsX, 1, 1}
	return gpu.ProgramInfo{
		Threads: [gpu.NumKernels][3]int{
			gpu.KernelAppend:  linear,
			gpu.KernelConsume: linear,
			gpu.KernelUpdate:  linear,
			gpu.KernelDraw:    {cfg.GPU.DrawThreadsX, cfg.GPU.DrawThreadsY, 1},
		},
		OrganismStride: cfg.GPU.OrganismStride,
	}
}
