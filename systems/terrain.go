package systems

import (
	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/herd/components"
)

// TerrainCell represents the type of terrain in a cell.
type TerrainCell uint8

const (
	TerrainWater TerrainCell = iota
	TerrainSand
	TerrainGrass
	TerrainRock
)

// Height thresholds between terrain cells.
const (
	waterLevel = 0.38
	sandLevel  = 0.44
	rockLevel  = 0.72
)

// terrainColors are the TerrainMap texel colors per cell type.
var terrainColors = [...][4]float32{
	TerrainWater: {0.12, 0.32, 0.58, 1},
	TerrainSand:  {0.78, 0.72, 0.50, 1},
	TerrainGrass: {0.28, 0.55, 0.25, 1},
	TerrainRock:  {0.48, 0.45, 0.42, 1},
}

// TerrainParams configures the height field noise.
type TerrainParams struct {
	Scale   float64 // base frequency in cycles per cell
	Octaves int
	Gain    float64 // amplitude multiplier per octave
}

// Terrain is a height field over the simulation domain.
type Terrain struct {
	res    components.Resolution
	height []float32
}

// GenerateTerrain builds a height field from fractal OpenSimplex noise.
// Heights are normalized to [0,1].
func GenerateTerrain(res components.Resolution, p TerrainParams, seed int64) *Terrain {
	noise := opensimplex.NewNormalized(seed)
	octaves := max(p.Octaves, 1)

	t := &Terrain{res: res, height: make([]float32, res.Cells())}
	for y := 0; y < res.Height; y++ {
		for x := 0; x < res.Width; x++ {
			var sum, norm float64
			amp, freq := 1.0, p.Scale
			for o := 0; o < octaves; o++ {
				sum += amp * noise.Eval2(float64(x)*freq, float64(y)*freq)
				norm += amp
				amp *= p.Gain
				freq *= 2
			}
			t.height[y*res.Width+x] = float32(sum / norm)
		}
	}
	return t
}

// Height returns the normalized height at (x, y).
func (t *Terrain) Height(x, y int) float32 {
	return t.height[y*t.res.Width+x]
}

// Cell classifies the height at (x, y).
func (t *Terrain) Cell(x, y int) TerrainCell {
	return classify(t.Height(x, y))
}

func classify(h float32) TerrainCell {
	switch {
	case h < waterLevel:
		return TerrainWater
	case h < sandLevel:
		return TerrainSand
	case h < rockLevel:
		return TerrainGrass
	default:
		return TerrainRock
	}
}

// RGBA renders the height field as TerrainMap texels, row-major.
// Cell color is shaded by height so relief stays visible within a band.
func (t *Terrain) RGBA() []float32 {
	out := make([]float32, 4*len(t.height))
	for i, h := range t.height {
		c := terrainColors[classify(h)]
		shade := 0.75 + 0.5*h
		out[4*i+0] = min(c[0]*shade, 1)
		out[4*i+1] = min(c[1]*shade, 1)
		out[4*i+2] = min(c[2]*shade, 1)
		out[4*i+3] = 1
	}
	return out
}
