package components

// Resolution is the simulation domain size in cells.
// It bounds organism positions and sizes the display textures.
type Resolution struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Valid reports whether both dimensions are positive.
func (r Resolution) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Cells returns Width*Height.
func (r Resolution) Cells() int {
	return r.Width * r.Height
}
