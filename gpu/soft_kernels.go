package gpu

import (
	"math"

	"github.com/pthm-cable/herd/components"
)

// cellsPerSecond scales MovementSpeed into domain cells per second.
const cellsPerSecond = 30

// speciesPalette colors organisms in the player map by species tag.
var speciesPalette = [...][4]float32{
	{0.95, 0.85, 0.30, 1},
	{0.35, 0.75, 0.95, 1},
	{0.95, 0.40, 0.35, 1},
	{0.70, 0.50, 0.95, 1},
}

// SpeciesColor returns the player map color of a species tag.
func SpeciesColor(species int) [4]float32 {
	if species < 0 {
		species = -species
	}
	return speciesPalette[species%len(speciesPalette)]
}

// ReferenceKernels returns Go equivalents of the shaders/*.comp kernels.
// They implement the binding contract with a minimal behavior model:
// append activates seeded slots, consume retires the newest ones,
// update moves organisms along their heading and stamps the player map,
// and draw composites the player map over the terrain.
func ReferenceKernels() [NumKernels]SoftKernel {
	return [NumKernels]SoftKernel{
		KernelAppend:  appendKernel,
		KernelConsume: consumeKernel,
		KernelUpdate:  updateKernel,
		KernelDraw:    drawKernel,
	}
}

func appendKernel(inv Invocation) {
	if inv.ID[0] >= inv.Env.Int(UniformBatchSize) {
		return
	}
	inv.Env.Append(BufOrganismsAppend, nil)
}

func consumeKernel(inv Invocation) {
	if inv.ID[0] >= inv.Env.Int(UniformBatchSize) {
		return
	}
	inv.Env.Consume(BufOrganismsConsume)
}

func updateKernel(inv Invocation) {
	env := inv.Env
	i := inv.ID[0]
	if i >= env.Int(UniformLivingPopulation) {
		return
	}
	rec := env.Element(BufOrganismsRead, i)
	if rec == nil {
		return
	}

	o := components.GetOrganism(rec)
	w := float32(env.Int(UniformWidth))
	h := float32(env.Int(UniformHeight))
	step := o.MovementSpeed * cellsPerSecond * env.Float(UniformDeltaTime)
	sin, cos := math.Sincos(float64(o.Angle))
	o.Position.X = wrap(o.Position.X+float32(cos)*step, w)
	o.Position.Y = wrap(o.Position.Y+float32(sin)*step, h)
	components.PutOrganism(rec, &o)

	env.Texture(TexPlayer).Set(int(o.Position.X), int(o.Position.Y), SpeciesColor(o.Species()))
}

func drawKernel(inv Invocation) {
	env := inv.Env
	x, y := inv.ID[0], inv.ID[1]
	if x >= env.Int(UniformWidth) || y >= env.Int(UniformHeight) {
		return
	}

	display := env.Texture(TexDisplay)
	if p := env.Texture(TexPlayer).Get(x, y); p[3] > 0 {
		display.Set(x, y, p)
		return
	}
	t := env.Texture(TexTerrain).Get(x, y)
	display.Set(x, y, [4]float32{t[0] * 0.5, t[1] * 0.5, t[2] * 0.5, 1})
}

// wrap maps v into [0, size) toroidally.
func wrap(v, size float32) float32 {
	if size <= 0 {
		return 0
	}
	v = float32(math.Mod(float64(v), float64(size)))
	if v < 0 {
		v += size
	}
	if v >= size {
		v = 0
	}
	return v
}
