// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Simulation SimulationConfig `yaml:"simulation"`
	Population PopulationConfig `yaml:"population"`
	GPU        GPUConfig        `yaml:"gpu"`
	Terrain    TerrainConfig    `yaml:"terrain"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
	PanelW    int `yaml:"panel_width"` // Inspector panel width in pixels (0 = hidden)
}

// SimulationConfig holds the simulation domain.
// The resolution sizes both organism positions and the display textures.
type SimulationConfig struct {
	Width  int     `yaml:"width"`  // Domain width in cells
	Height int     `yaml:"height"` // Domain height in cells
	DT     float64 `yaml:"dt"`     // Fixed timestep for headless runs
}

// PopulationConfig holds population pool parameters.
type PopulationConfig struct {
	Max   int `yaml:"max"`   // Buffer capacity, immutable after init
	Batch int `yaml:"batch"` // Organisms added or removed per trigger
}

// GPUConfig holds compute backend parameters.
type GPUConfig struct {
	KernelDir      string `yaml:"kernel_dir"`      // Directory with append/consume/update/draw .comp sources
	ThreadsX       int    `yaml:"threads_x"`       // Local size for the 1D kernels
	DrawThreadsX   int    `yaml:"draw_threads_x"`  // Local size X for the draw kernel
	DrawThreadsY   int    `yaml:"draw_threads_y"`  // Local size Y for the draw kernel
	OrganismStride int    `yaml:"organism_stride"` // Bytes per organism as declared by the kernels
	SoftWorkers    int    `yaml:"soft_workers"`    // Goroutines per software dispatch (0 = GOMAXPROCS)
}

// TerrainConfig holds terrain map noise parameters.
type TerrainConfig struct {
	Scale   float64 `yaml:"scale"`   // Base noise frequency
	Octaves int     `yaml:"octaves"` // FBM octaves
	Gain    float64 `yaml:"gain"`    // Amplitude multiplier per octave
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`          // Seconds per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // Ticks averaged by the perf collector
	CensusEvery         int     `yaml:"census_every"`          // Windows between census snapshots (0 = off)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32        float32 // Simulation.DT as float32
	StatsTicks  int32   // Telemetry.StatsWindow expressed in ticks
	KernelPaths [4]string
}

// Validation errors.
var (
	ErrResolution = errors.New("config: resolution must be positive")
	ErrPopulation = errors.New("config: population max must be a positive multiple of batch")
	ErrThreads    = errors.New("config: thread group sizes must be positive")
)

// kernelFiles are the source file names in slot order.
var kernelFiles = [4]string{"append.comp", "consume.comp", "update.comp", "draw.comp"}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks the invariants the simulation relies on at init.
func (c *Config) Validate() error {
	if c.Simulation.Width <= 0 || c.Simulation.Height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrResolution, c.Simulation.Width, c.Simulation.Height)
	}
	p := c.Population
	if p.Max <= 0 || p.Batch <= 0 || p.Batch > p.Max || p.Max%p.Batch != 0 {
		return fmt.Errorf("%w: max=%d batch=%d", ErrPopulation, p.Max, p.Batch)
	}
	g := c.GPU
	if g.ThreadsX <= 0 || g.DrawThreadsX <= 0 || g.DrawThreadsY <= 0 {
		return fmt.Errorf("%w: threads_x=%d draw=%dx%d", ErrThreads, g.ThreadsX, g.DrawThreadsX, g.DrawThreadsY)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Simulation.DT)

	ticks := int32(1)
	if c.Simulation.DT > 0 {
		ticks = int32(math.Round(c.Telemetry.StatsWindow / c.Simulation.DT))
	}
	if ticks < 1 {
		ticks = 1
	}
	c.Derived.StatsTicks = ticks

	for i, name := range kernelFiles {
		c.Derived.KernelPaths[i] = filepath.Join(c.GPU.KernelDir, name)
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
