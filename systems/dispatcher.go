// Package systems manages the organism population and the kernels that act on it.
package systems

import (
	"fmt"

	"github.com/pthm-cable/herd/components"
	"github.com/pthm-cable/herd/gpu"
)

// organismRoles maps each kernel that touches the organism buffer to the
// binding name of its access pattern.
var organismRoles = map[gpu.Kernel]string{
	gpu.KernelAppend:  gpu.BufOrganismsAppend,
	gpu.KernelConsume: gpu.BufOrganismsConsume,
	gpu.KernelUpdate:  gpu.BufOrganismsRead,
}

// Dispatcher binds resources to the four kernel slots and sizes their dispatches.
type Dispatcher struct {
	prog *gpu.Program
	res  components.Resolution
}

// NewDispatcher creates a dispatcher for prog over the given domain.
func NewDispatcher(prog *gpu.Program, res components.Resolution) *Dispatcher {
	return &Dispatcher{prog: prog, res: res}
}

// Program returns the kernel program.
func (d *Dispatcher) Program() *gpu.Program { return d.prog }

// BindTextures binds the display, player, and terrain textures to every kernel.
func (d *Dispatcher) BindTextures(display, player, terrain *gpu.Texture) error {
	for k := gpu.Kernel(0); k < gpu.NumKernels; k++ {
		if err := d.prog.SetTexture(k, gpu.TexDisplay, display); err != nil {
			return err
		}
		if err := d.prog.SetTexture(k, gpu.TexPlayer, player); err != nil {
			return err
		}
		if err := d.prog.SetTexture(k, gpu.TexTerrain, terrain); err != nil {
			return err
		}
	}
	return nil
}

// BindOrganisms binds buf under its append, consume, and read roles.
// The draw kernel takes the read role as well.
func (d *Dispatcher) BindOrganisms(buf *gpu.Buffer) error {
	for k, name := range organismRoles {
		if err := d.prog.SetBuffer(k, name, buf); err != nil {
			return err
		}
	}
	return d.prog.SetBuffer(gpu.KernelDraw, gpu.BufOrganismsRead, buf)
}

// linearGroups sizes a 1D kernel over n items.
func (d *Dispatcher) linearGroups(k gpu.Kernel, n int) int {
	return gpu.GroupCount(n, d.prog.Threads(k)[0])
}

// mutate dispatches append or consume over batch work items. The batch is
// pushed as the batchSize uniform so the kernel bound matches the dispatch.
func (d *Dispatcher) mutate(k gpu.Kernel, batch int) error {
	if batch <= 0 {
		return fmt.Errorf("%s: batch must be positive, got %d", k, batch)
	}
	if err := d.prog.SetInt(gpu.UniformBatchSize, batch); err != nil {
		return err
	}
	return d.prog.Dispatch(k, d.linearGroups(k, batch), 1, 1)
}

// Append dispatches the append kernel sized by batch.
func (d *Dispatcher) Append(batch int) error {
	return d.mutate(gpu.KernelAppend, batch)
}

// Consume dispatches the consume kernel sized by batch.
func (d *Dispatcher) Consume(batch int) error {
	return d.mutate(gpu.KernelConsume, batch)
}

// Update dispatches the update kernel over the living population.
// With no living organisms nothing is submitted and false is returned.
func (d *Dispatcher) Update(living int) (bool, error) {
	if living <= 0 {
		return false, nil
	}
	if err := d.prog.Dispatch(gpu.KernelUpdate, d.linearGroups(gpu.KernelUpdate, living), 1, 1); err != nil {
		return false, err
	}
	return true, nil
}

// DrawGrid returns the work-group grid covering the domain.
func (d *Dispatcher) DrawGrid() [3]int {
	return gpu.Grid(d.res.Width, d.res.Height, 1, d.prog.Threads(gpu.KernelDraw))
}

// Draw dispatches the draw kernel over the whole domain, independent of population.
func (d *Dispatcher) Draw() error {
	g := d.DrawGrid()
	return d.prog.Dispatch(gpu.KernelDraw, g[0], g[1], g[2])
}
