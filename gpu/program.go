package gpu

import (
	"fmt"
)

// ProgramInfo describes the interface a loaded kernel program was compiled against.
type ProgramInfo struct {
	// Threads is the local work-group size of each kernel.
	Threads [NumKernels][3]int
	// OrganismStride is the element size the kernels declare for the organism buffer.
	OrganismStride int
}

// Program is a loaded four-kernel compute program with its resource bindings.
type Program struct {
	dev      Device
	id       uint32
	info     ProgramInfo
	released bool

	// Bound resources per kernel, checked for release before each dispatch.
	buffers  [NumKernels]map[string]*Buffer
	textures [NumKernels]map[string]*Texture
}

// NewProgram wraps a program handle already created on dev.
// Backends call this from their loaders.
func NewProgram(dev Device, id uint32, info ProgramInfo) *Program {
	p := &Program{dev: dev, id: id, info: info}
	for k := range p.buffers {
		p.buffers[k] = make(map[string]*Buffer)
		p.textures[k] = make(map[string]*Texture)
	}
	return p
}

// ID returns the device handle.
func (p *Program) ID() uint32 { return p.id }

// Info returns the compiled interface description.
func (p *Program) Info() ProgramInfo { return p.info }

// Threads returns the local work-group size of k.
func (p *Program) Threads(k Kernel) [3]int { return p.info.Threads[k] }

// Device returns the device the program was loaded on.
func (p *Program) Device() Device { return p.dev }

func (p *Program) check(k Kernel) error {
	if p == nil || p.released {
		return fmt.Errorf("program: %w", ErrReleased)
	}
	if !k.Valid() {
		return fmt.Errorf("gpu: invalid kernel slot %d", int(k))
	}
	return nil
}

// SetBuffer binds b to name for kernel k.
func (p *Program) SetBuffer(k Kernel, name string, b *Buffer) error {
	if err := p.check(k); err != nil {
		return err
	}
	if err := b.check(); err != nil {
		return fmt.Errorf("binding %s to %s: %w", name, k, err)
	}
	if err := p.dev.BindBuffer(p.id, k, name, b.id); err != nil {
		return fmt.Errorf("binding %s to %s: %w", name, k, err)
	}
	p.buffers[k][name] = b
	return nil
}

// SetTexture binds t to name for kernel k.
func (p *Program) SetTexture(k Kernel, name string, t *Texture) error {
	if err := p.check(k); err != nil {
		return err
	}
	if err := t.check(); err != nil {
		return fmt.Errorf("binding %s to %s: %w", name, k, err)
	}
	if err := p.dev.BindTexture(p.id, k, name, t.id); err != nil {
		return fmt.Errorf("binding %s to %s: %w", name, k, err)
	}
	p.textures[k][name] = t
	return nil
}

// SetInt sets an integer uniform shared by all kernels.
func (p *Program) SetInt(name string, v int) error {
	if err := p.check(KernelAppend); err != nil {
		return err
	}
	return p.dev.SetInt(p.id, name, int32(v))
}

// SetFloat sets a float uniform shared by all kernels.
func (p *Program) SetFloat(name string, v float32) error {
	if err := p.check(KernelAppend); err != nil {
		return err
	}
	return p.dev.SetFloat(p.id, name, v)
}

// Dispatch submits kernel k over x*y*z work groups.
// Dispatching with a released resource bound is an error; nothing is submitted.
func (p *Program) Dispatch(k Kernel, x, y, z int) error {
	if err := p.check(k); err != nil {
		return err
	}
	for name, b := range p.buffers[k] {
		if b.released {
			return fmt.Errorf("dispatch %s: buffer %s: %w", k, name, ErrReleased)
		}
	}
	for name, t := range p.textures[k] {
		if t.released {
			return fmt.Errorf("dispatch %s: texture %s: %w", k, name, ErrReleased)
		}
	}
	if x <= 0 || y <= 0 || z <= 0 {
		return fmt.Errorf("dispatch %s: empty grid %dx%dx%d", k, x, y, z)
	}
	return p.dev.Dispatch(p.id, k, x, y, z)
}

// Release frees the program. Bound resources are not released.
func (p *Program) Release() {
	if p == nil || p.released {
		return
	}
	p.dev.DestroyProgram(p.id)
	p.released = true
}
