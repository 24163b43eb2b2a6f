package systems

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/gpu"
)

var (
	// ErrCapacityExceeded rejects an append that would exceed capacity. Advisory.
	ErrCapacityExceeded = errors.New("population: append would exceed capacity")
	// ErrCapacityUnderflow rejects a consume that would go below zero. Advisory.
	ErrCapacityUnderflow = errors.New("population: consume would go below zero")
	// ErrStrideMismatch means the host record layout disagrees with the kernels.
	ErrStrideMismatch = errors.New("population: organism stride mismatch")
	// ErrInvalidCapacity rejects a non-positive capacity.
	ErrInvalidCapacity = errors.New("population: capacity must be positive")
	// ErrInvalidResolution rejects a domain with a non-positive side.
	ErrInvalidResolution = errors.New("population: resolution must be positive")
	// ErrCounterRange means the device counter left [0, capacity].
	ErrCounterRange = errors.New("population: counter out of range")
)

// Pool owns the organism buffer and its counter readback buffer.
//
// The living count is a mirror of the device counter, updated only by
// counter reads. TryAppend and TryConsume check against the last value
// read, not a fresh one; call RefreshParameters first when the decision
// must see every earlier kernel's effect.
type Pool struct {
	disp      *Dispatcher
	organisms *gpu.Buffer
	counter   *gpu.Counter

	capacity int
	res      components.Resolution
	living   int
	torn     bool
}

// CheckStride validates the organism layout against the host struct and the kernels.
func CheckStride(info gpu.ProgramInfo) error {
	if host := components.HostStride(); host != components.OrganismStride {
		return fmt.Errorf("%w: host struct is %d bytes, wire is %d", ErrStrideMismatch, host, components.OrganismStride)
	}
	if info.OrganismStride != components.OrganismStride {
		return fmt.Errorf("%w: kernels expect %d bytes, host writes %d", ErrStrideMismatch, info.OrganismStride, components.OrganismStride)
	}
	return nil
}

// NewPool allocates and seeds the organism buffer with capacity records,
// resets the counter to zero, and binds the buffer roles and static uniforms.
// Nothing is left allocated when it fails.
func NewPool(disp *Dispatcher, capacity int, res components.Resolution, rng *rand.Rand) (*Pool, error) {
	prog := disp.Program()
	if err := CheckStride(prog.Info()); err != nil {
		return nil, err
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if !res.Valid() {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidResolution, res.Width, res.Height)
	}

	p := &Pool{disp: disp, capacity: capacity, res: res}
	if err := p.init(rng); err != nil {
		p.Teardown()
		return nil, err
	}

	slog.Info("population pool ready",
		"device", prog.Device().Name(),
		"capacity", capacity,
		"width", res.Width,
		"height", res.Height,
		"stride", components.OrganismStride,
	)
	return p, nil
}

func (p *Pool) init(rng *rand.Rand) error {
	dev := p.disp.Program().Device()

	var err error
	p.counter, err = gpu.CreateCounter(dev)
	if err != nil {
		return err
	}
	p.organisms, err = gpu.NewBuffer(dev, gpu.BufferAppend, p.capacity, components.OrganismStride)
	if err != nil {
		return err
	}

	seed := make([]components.Organism, p.capacity)
	for i := range seed {
		seed[i] = components.NewSeedOrganism(rng, p.res.Width, p.res.Height)
	}
	if err := p.organisms.SetCounterValue(0); err != nil {
		return err
	}
	if err := p.organisms.SetData(components.EncodeOrganisms(seed)); err != nil {
		return err
	}
	if err := p.disp.BindOrganisms(p.organisms); err != nil {
		return err
	}

	prog := p.disp.Program()
	for name, v := range map[string]int{
		gpu.UniformWidth:            p.res.Width,
		gpu.UniformHeight:           p.res.Height,
		gpu.UniformMaxPopulation:    p.capacity,
		gpu.UniformLivingPopulation: 0,
	} {
		if err := prog.SetInt(name, v); err != nil {
			return err
		}
	}
	return nil
}

// Capacity returns the fixed maximum population.
func (p *Pool) Capacity() int { return p.capacity }

// Living returns the last counter value read from the device.
func (p *Pool) Living() int { return p.living }

// Resolution returns the domain the pool was seeded over.
func (p *Pool) Resolution() components.Resolution { return p.res }

func (p *Pool) check() error {
	if p.torn {
		return fmt.Errorf("population pool: %w", gpu.ErrReleased)
	}
	return nil
}

// readLiving re-reads the device counter and pushes it to the kernels.
// This waits for all submitted work on the organism buffer.
func (p *Pool) readLiving() error {
	n, err := gpu.ReadCounter(p.organisms, p.counter)
	if err != nil {
		return fmt.Errorf("reading population counter: %w", err)
	}
	if int64(n) > int64(p.capacity) {
		return fmt.Errorf("%w: %d > %d", ErrCounterRange, n, p.capacity)
	}
	p.living = int(n)
	return p.disp.Program().SetInt(gpu.UniformLivingPopulation, p.living)
}

// RefreshParameters pushes the frame timing uniforms and re-reads the living count.
// It must run before the update dispatch of the frame.
func (p *Pool) RefreshParameters(deltaTime, elapsed float32) error {
	if err := p.check(); err != nil {
		return err
	}
	prog := p.disp.Program()
	if err := prog.SetFloat(gpu.UniformDeltaTime, deltaTime); err != nil {
		return err
	}
	if err := prog.SetFloat(gpu.UniformTime, elapsed); err != nil {
		return err
	}
	return p.readLiving()
}

// TryAppend activates batch more organisms. It is rejected with
// ErrCapacityExceeded, without any device work, when the last-read living
// count plus batch exceeds capacity.
func (p *Pool) TryAppend(batch int) error {
	if err := p.check(); err != nil {
		return err
	}
	if batch <= 0 {
		return fmt.Errorf("population: batch must be positive, got %d", batch)
	}
	if p.living+batch > p.capacity {
		slog.Warn("append rejected",
			"living", p.living,
			"batch", batch,
			"capacity", p.capacity,
		)
		return fmt.Errorf("%w: %d + %d > %d", ErrCapacityExceeded, p.living, batch, p.capacity)
	}
	if err := p.disp.Append(batch); err != nil {
		return fmt.Errorf("dispatching append: %w", err)
	}
	if err := p.readLiving(); err != nil {
		return err
	}
	slog.Debug("appended", "batch", batch, "living", p.living)
	return nil
}

// TryConsume retires batch organisms. It is rejected with
// ErrCapacityUnderflow, without any device work, when the last-read living
// count minus batch is negative.
func (p *Pool) TryConsume(batch int) error {
	if err := p.check(); err != nil {
		return err
	}
	if batch <= 0 {
		return fmt.Errorf("population: batch must be positive, got %d", batch)
	}
	if p.living-batch < 0 {
		slog.Warn("consume rejected",
			"living", p.living,
			"batch", batch,
		)
		return fmt.Errorf("%w: %d - %d < 0", ErrCapacityUnderflow, p.living, batch)
	}
	if err := p.disp.Consume(batch); err != nil {
		return fmt.Errorf("dispatching consume: %w", err)
	}
	if err := p.readLiving(); err != nil {
		return err
	}
	slog.Debug("consumed", "batch", batch, "living", p.living)
	return nil
}

// WriteOrganisms uploads records into the first len(orgs) slots.
// Slots past len(orgs) keep their contents, which costs a readback when
// fewer than capacity records are written. The counter is not changed.
func (p *Pool) WriteOrganisms(orgs []components.Organism) error {
	if err := p.check(); err != nil {
		return err
	}
	if len(orgs) > p.capacity {
		return fmt.Errorf("population: %d records exceed capacity %d", len(orgs), p.capacity)
	}

	data := make([]byte, p.organisms.Size())
	if len(orgs) < p.capacity {
		if err := p.organisms.GetData(data); err != nil {
			return err
		}
	}
	copy(data, components.EncodeOrganisms(orgs))
	return p.organisms.SetData(data)
}

// Restore replaces the living population with orgs: they are written to the
// leading slots and the counter is set to len(orgs).
func (p *Pool) Restore(orgs []components.Organism) error {
	if err := p.WriteOrganisms(orgs); err != nil {
		return err
	}
	if err := p.organisms.SetCounterValue(uint32(len(orgs))); err != nil {
		return err
	}
	if err := p.readLiving(); err != nil {
		return err
	}
	slog.Info("population restored", "living", p.living)
	return nil
}

// ReadOrganisms reads back every slot, living or not. This is a sync point.
func (p *Pool) ReadOrganisms() ([]components.Organism, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	data := make([]byte, p.organisms.Size())
	if err := p.organisms.GetData(data); err != nil {
		return nil, err
	}
	return components.DecodeOrganisms(data)
}

// ReadLiving re-reads the counter and returns the living slots.
func (p *Pool) ReadLiving() ([]components.Organism, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	if err := p.readLiving(); err != nil {
		return nil, err
	}
	all, err := p.ReadOrganisms()
	if err != nil {
		return nil, err
	}
	return all[:p.living], nil
}

// Teardown releases the organism and counter buffers. Safe to call more than once.
func (p *Pool) Teardown() {
	if p.torn {
		return
	}
	p.torn = true
	p.organisms.Release()
	p.counter.Release()
	slog.Debug("population pool released", "capacity", p.capacity)
}
