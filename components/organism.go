// Package components defines the organism record shared with the compute kernels.
package components

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"unsafe"
)

// OrganismStride is the byte size of one organism element in the GPU buffer.
// The kernels declare the same struct as ten consecutive floats.
const OrganismStride = 40

// organismWords is the number of float32 words per record.
const organismWords = OrganismStride / 4

// Position is a 2D coordinate in the simulation domain.
type Position struct {
	X, Y float32
}

// Organism is one agent as laid out in the organism buffer.
// Field order is the wire order; do not reorder.
type Organism struct {
	SpeciesID     float32 // float-encoded species tag
	Position      Position
	Angle         float32 // heading in radians
	MovementSpeed float32
	TurnSpeed     float32
	HerdingFactor float32
	FoodLevel     float32 // expected [0,1], not enforced
	WaterLevel    float32 // expected [0,1], not enforced
	VisionRadius  float32
}

// HostStride returns the in-memory size of Organism.
// It must equal OrganismStride for the encoder to be a plain copy of the layout.
func HostStride() int {
	return int(unsafe.Sizeof(Organism{}))
}

// Species returns the species tag as an integer.
func (o Organism) Species() int {
	return int(o.SpeciesID)
}

// NewSeedOrganism builds an initial record scattered uniformly in [0,width) x [0,height).
func NewSeedOrganism(rng *rand.Rand, width, height int) Organism {
	return Organism{
		SpeciesID: 0,
		Position: Position{
			X: float32(rng.Intn(width)),
			Y: float32(rng.Intn(height)),
		},
		Angle:         rng.Float32() * 2 * math.Pi,
		MovementSpeed: 1,
		TurnSpeed:     1,
		HerdingFactor: 0,
		FoodLevel:     1,
		WaterLevel:    1,
		VisionRadius:  1,
	}
}

// words returns the record in wire order.
func (o *Organism) words() [organismWords]float32 {
	return [organismWords]float32{
		o.SpeciesID,
		o.Position.X, o.Position.Y,
		o.Angle,
		o.MovementSpeed,
		o.TurnSpeed,
		o.HerdingFactor,
		o.FoodLevel,
		o.WaterLevel,
		o.VisionRadius,
	}
}

func (o *Organism) setWords(w [organismWords]float32) {
	o.SpeciesID = w[0]
	o.Position.X, o.Position.Y = w[1], w[2]
	o.Angle = w[3]
	o.MovementSpeed = w[4]
	o.TurnSpeed = w[5]
	o.HerdingFactor = w[6]
	o.FoodLevel = w[7]
	o.WaterLevel = w[8]
	o.VisionRadius = w[9]
}

// PutOrganism writes o into buf, which must hold at least OrganismStride bytes.
func PutOrganism(buf []byte, o *Organism) {
	le := binary.LittleEndian
	for i, w := range o.words() {
		le.PutUint32(buf[i*4:], math.Float32bits(w))
	}
}

// GetOrganism reads one record from buf.
func GetOrganism(buf []byte) Organism {
	le := binary.LittleEndian
	var w [organismWords]float32
	for i := range w {
		w[i] = math.Float32frombits(le.Uint32(buf[i*4:]))
	}
	var o Organism
	o.setWords(w)
	return o
}

// EncodeOrganisms serializes records in buffer layout.
func EncodeOrganisms(orgs []Organism) []byte {
	buf := make([]byte, len(orgs)*OrganismStride)
	for i := range orgs {
		PutOrganism(buf[i*OrganismStride:], &orgs[i])
	}
	return buf
}

// DecodeOrganisms parses a buffer image. The length must be a whole number of records.
func DecodeOrganisms(buf []byte) ([]Organism, error) {
	if len(buf)%OrganismStride != 0 {
		return nil, fmt.Errorf("organism buffer length %d is not a multiple of stride %d", len(buf), OrganismStride)
	}
	orgs := make([]Organism, len(buf)/OrganismStride)
	for i := range orgs {
		orgs[i] = GetOrganism(buf[i*OrganismStride:])
	}
	return orgs, nil
}
