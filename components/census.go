package components

// Census components. A host snapshot of the organism buffer is split into
// these when loaded into an ECS world for per-species queries.

// SpeciesTag identifies the species an organism belongs to.
type SpeciesTag struct {
	ID int
}

// Vitals holds an organism's resource levels.
type Vitals struct {
	Food  float32
	Water float32
}

// Motion holds an organism's locomotion traits.
type Motion struct {
	Speed   float32
	Turn    float32
	Herding float32
}

// CensusParts splits an organism record into its census components.
func CensusParts(o Organism) (SpeciesTag, Vitals, Motion) {
	return SpeciesTag{ID: o.Species()},
		Vitals{Food: o.FoodLevel, Water: o.WaterLevel},
		Motion{Speed: o.MovementSpeed, Turn: o.TurnSpeed, Herding: o.HerdingFactor}
}
