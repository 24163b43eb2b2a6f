package components

import (
	"math"
	"math/rand"
	"testing"
)

func TestHostStrideMatchesWire(t *testing.T) {
	if got := HostStride(); got != OrganismStride {
		t.Fatalf("HostStride() = %d, want %d", got, OrganismStride)
	}
}

func TestNewSeedOrganismInDomain(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const w, h = 64, 32

	for i := 0; i < 1000; i++ {
		o := NewSeedOrganism(rng, w, h)
		if o.Position.X < 0 || o.Position.X >= w || o.Position.Y < 0 || o.Position.Y >= h {
			t.Fatalf("seed %d out of domain: %+v", i, o.Position)
		}
		if o.Angle < 0 || o.Angle >= 2*math.Pi {
			t.Fatalf("seed %d angle out of range: %v", i, o.Angle)
		}
		if o.Species() != 0 {
			t.Fatalf("seed %d species = %d, want 0", i, o.Species())
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	o := Organism{
		SpeciesID:     3,
		Position:      Position{X: 1.5, Y: 2.5},
		Angle:         0.25,
		MovementSpeed: 4,
		TurnSpeed:     5,
		HerdingFactor: 6,
		FoodLevel:     0.7,
		WaterLevel:    0.8,
		VisionRadius:  9,
	}
	buf := EncodeOrganisms([]Organism{o})
	if len(buf) != OrganismStride {
		t.Fatalf("encoded length = %d, want %d", len(buf), OrganismStride)
	}

	// Spot-check offsets against the kernel struct
	offsets := []struct {
		name   string
		offset int
		want   float32
	}{
		{"species", 0, 3},
		{"pos.x", 4, 1.5},
		{"pos.y", 8, 2.5},
		{"angle", 12, 0.25},
		{"food", 28, 0.7},
		{"vision", 36, 9},
	}
	for _, tt := range offsets {
		var word [4]byte
		copy(word[:], buf[tt.offset:tt.offset+4])
		got := math.Float32frombits(uint32(word[0]) | uint32(word[1])<<8 | uint32(word[2])<<16 | uint32(word[3])<<24)
		if got != tt.want {
			t.Errorf("%s at offset %d = %v, want %v", tt.name, tt.offset, got, tt.want)
		}
	}
}

func TestDecodeBitIdentical(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	orgs := make([]Organism, 50)
	for i := range orgs {
		orgs[i] = NewSeedOrganism(rng, 640, 480)
		orgs[i].SpeciesID = float32(i % 4)
		orgs[i].FoodLevel = rng.Float32()
	}
	// NaN payloads must survive too
	orgs[3].HerdingFactor = math.Float32frombits(0x7fc00001)

	got, err := DecodeOrganisms(EncodeOrganisms(orgs))
	if err != nil {
		t.Fatalf("DecodeOrganisms: %v", err)
	}
	for i := range orgs {
		a, b := got[i].words(), orgs[i].words()
		for j := range a {
			if math.Float32bits(a[j]) != math.Float32bits(b[j]) {
				t.Fatalf("record %d word %d: %08x != %08x", i, j, math.Float32bits(a[j]), math.Float32bits(b[j]))
			}
		}
	}
}

func TestDecodeRejectsPartialRecord(t *testing.T) {
	if _, err := DecodeOrganisms(make([]byte, OrganismStride+3)); err == nil {
		t.Error("expected error for truncated buffer")
	}
}
