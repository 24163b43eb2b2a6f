// Package game drives the organism population frame by frame.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pthm-cable/herd/gpu"
	"github.com/pthm-cable/herd/systems"
	"github.com/pthm-cable/herd/telemetry"
)

// Simulation owns the population pool, its textures, and the per-frame
// command sequence. All methods must be called from one goroutine.
type Simulation struct {
	opts Options
	prog *gpu.Program
	disp *systems.Dispatcher
	pool *systems.Pool

	display *gpu.Texture
	player  *gpu.Texture
	terrain *gpu.Texture

	// Telemetry
	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	census    *telemetry.Census
	output    *telemetry.OutputManager
	windows   int

	tick    int32
	elapsed float32
	inTick  bool
	closed  bool
}

// NewSimulation creates the textures, seeds the terrain map, and builds the
// population pool on prog's device. Nothing is left allocated when it fails.
func NewSimulation(prog *gpu.Program, opts Options) (*Simulation, error) {
	if opts.Batch <= 0 {
		return nil, fmt.Errorf("game: batch must be positive, got %d", opts.Batch)
	}

	s := &Simulation{
		opts:      opts,
		prog:      prog,
		disp:      systems.NewDispatcher(prog, opts.Resolution),
		collector: telemetry.NewCollector(opts.StatsWindowSec, opts.DT),
		perf:      telemetry.NewPerfCollector(opts.PerfWindow),
		census:    telemetry.NewCensus(),
	}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}

	slog.Info("simulation ready",
		"seed", opts.Seed,
		"width", opts.Resolution.Width,
		"height", opts.Resolution.Height,
		"capacity", opts.Capacity,
		"batch", opts.Batch,
	)
	return s, nil
}

func (s *Simulation) init() error {
	res := s.opts.Resolution
	if !res.Valid() {
		return fmt.Errorf("%w: %dx%d", systems.ErrInvalidResolution, res.Width, res.Height)
	}
	dev := s.prog.Device()

	var err error
	for _, t := range []**gpu.Texture{&s.display, &s.player, &s.terrain} {
		if *t, err = gpu.NewTexture(dev, res.Width, res.Height); err != nil {
			return fmt.Errorf("creating texture: %w", err)
		}
	}

	terrain := systems.GenerateTerrain(res, s.opts.Terrain, s.opts.Seed)
	if err := s.terrain.Write(terrain.RGBA()); err != nil {
		return fmt.Errorf("seeding terrain map: %w", err)
	}

	rng := rand.New(rand.NewSource(s.opts.Seed))
	if s.pool, err = systems.NewPool(s.disp, s.opts.Capacity, res, rng); err != nil {
		return err
	}
	if err := s.disp.BindTextures(s.display, s.player, s.terrain); err != nil {
		return err
	}

	if s.opts.OutputDir != "" {
		if s.output, err = telemetry.NewOutputManager(s.opts.OutputDir); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) check() error {
	if s.closed {
		return fmt.Errorf("simulation closed: %w", gpu.ErrReleased)
	}
	return nil
}

// Tick advances one frame: clears the player and display maps, refreshes
// the frame uniforms and living count, then runs the update kernel when
// anything is alive.
func (s *Simulation) Tick(dt float32) error {
	if err := s.check(); err != nil {
		return err
	}
	if s.inTick {
		s.perf.EndTick()
	}
	s.perf.StartTick()
	s.inTick = true

	s.perf.StartPhase(telemetry.PhaseClear)
	if err := s.player.Clear(); err != nil {
		return err
	}
	if err := s.display.Clear(); err != nil {
		return err
	}

	s.perf.StartPhase(telemetry.PhaseRefresh)
	s.elapsed += dt
	start := time.Now()
	if err := s.pool.RefreshParameters(dt, s.elapsed); err != nil {
		return err
	}
	s.collector.RecordReadback(time.Since(start))

	s.perf.StartPhase(telemetry.PhaseUpdate)
	ran, err := s.disp.Update(s.pool.Living())
	if err != nil {
		return err
	}
	s.collector.RecordUpdate(ran)
	s.collector.RecordLiving(s.pool.Living())

	s.tick++
	return s.flushTelemetry()
}

// Render runs the draw kernel over the whole domain and returns the
// display texture.
func (s *Simulation) Render() (*gpu.Texture, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	s.perf.StartPhase(telemetry.PhaseDraw)
	if err := s.disp.Draw(); err != nil {
		return nil, err
	}
	if s.inTick {
		s.perf.EndTick()
		s.inTick = false
	}
	s.perf.RecordFrame()
	return s.display, nil
}

// AppendTrigger requests one batch of new organisms.
// A capacity rejection is logged by the pool and not returned.
func (s *Simulation) AppendTrigger() error {
	return s.mutate(s.pool.TryAppend, s.collector.RecordAppend, s.collector.RecordAppendRejected, systems.ErrCapacityExceeded)
}

// ConsumeTrigger requests removal of one batch of organisms.
// An underflow rejection is logged by the pool and not returned.
func (s *Simulation) ConsumeTrigger() error {
	return s.mutate(s.pool.TryConsume, s.collector.RecordConsume, s.collector.RecordConsumeRejected, systems.ErrCapacityUnderflow)
}

func (s *Simulation) mutate(try func(int) error, accepted, rejected func(), advisory error) error {
	if err := s.check(); err != nil {
		return err
	}
	s.perf.StartPhase(telemetry.PhaseMutate)
	start := time.Now()
	err := try(s.opts.Batch)
	switch {
	case err == nil:
		s.collector.RecordReadback(time.Since(start))
		accepted()
		return nil
	case errors.Is(err, advisory):
		rejected()
		return nil
	default:
		return err
	}
}

// LivingPopulation returns the living count as of the last counter read.
func (s *Simulation) LivingPopulation() int {
	if s.pool == nil {
		return 0
	}
	return s.pool.Living()
}

// Capacity returns the maximum population.
func (s *Simulation) Capacity() int { return s.opts.Capacity }

// Batch returns the organisms added or removed per trigger.
func (s *Simulation) Batch() int { return s.opts.Batch }

// TickCount returns the number of completed ticks.
func (s *Simulation) TickCount() int32 { return s.tick }

// Census reads back the living organisms and aggregates them per species.
// This is a sync point.
func (s *Simulation) Census() ([]telemetry.SpeciesCensus, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	s.perf.StartPhase(telemetry.PhaseCensus)
	living, err := s.pool.ReadLiving()
	if err != nil {
		return nil, err
	}
	s.census.Load(living)
	return s.census.Summarize(s.tick), nil
}

// Close releases the pool and textures and closes telemetry output.
// Safe to call more than once.
func (s *Simulation) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.pool != nil {
		s.pool.Teardown()
	}
	s.display.Release()
	s.player.Release()
	s.terrain.Release()

	err := s.output.Close()
	slog.Info("simulation closed", "tick", s.tick, "living", s.LivingPopulation())
	return err
}
