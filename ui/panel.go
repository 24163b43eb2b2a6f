package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// PanelState is what the population panel displays.
type PanelState struct {
	Device   string
	Width    int
	Height   int
	Capacity int
	Living   int
	Batch    int
	FPS      int32
}

// Fill returns the living fraction of capacity.
func (s PanelState) Fill() float32 {
	if s.Capacity <= 0 {
		return 0
	}
	return float32(s.Living) / float32(s.Capacity)
}

// Rows returns the label/value pairs shown above the fill bar.
func (s PanelState) Rows() [][2]string {
	return [][2]string{
		{"Device", s.Device},
		{"Resolution", fmt.Sprintf("%dx%d", s.Width, s.Height)},
		{"Max", fmt.Sprintf("%d", s.Capacity)},
		{"Living", fmt.Sprintf("%d", s.Living)},
		{"Batch", fmt.Sprintf("%d", s.Batch)},
		{"FPS", fmt.Sprintf("%d", s.FPS)},
	}
}

// PanelAction is a button pressed on the panel this frame.
type PanelAction int

const (
	ActionNone PanelAction = iota
	ActionIncrease
	ActionDecrease
)

// Panel is the population side panel.
type Panel struct {
	Theme Theme
	x, y  int32
	width int32
}

// NewPanel creates a panel anchored at (x, y).
func NewPanel(x, y, width int32) *Panel {
	return &Panel{Theme: DefaultTheme(), x: x, y: y, width: width}
}

// Draw renders the panel and returns the button pressed, if any.
func (p *Panel) Draw(s PanelState) PanelAction {
	t := p.Theme
	rows := s.Rows()
	height := t.Padding*4 + t.LineHeight*int32(len(rows)+2) + t.ButtonHeight*2 + t.Padding

	rl.DrawRectangle(p.x, p.y, p.width, height, t.PanelBg)
	gui.GroupBox(rl.Rectangle{
		X:      float32(p.x + t.Padding/2),
		Y:      float32(p.y + t.Padding),
		Width:  float32(p.width - t.Padding),
		Height: float32(height - t.Padding*2),
	}, "Population")

	x := p.x + t.Padding
	y := p.y + t.Padding*2
	for _, row := range rows {
		gui.Label(rl.Rectangle{X: float32(x), Y: float32(y), Width: float32(t.LabelWidth), Height: float32(t.LineHeight)}, row[0])
		rl.DrawText(row[1], x+t.LabelWidth, y+3, t.FontSize, t.ValueColor)
		y += t.LineHeight
	}

	y = p.drawFill(x, y+t.Padding/2, s.Fill())

	inner := float32(p.width - 2*t.Padding)
	action := ActionNone
	if gui.Button(rl.Rectangle{X: float32(x), Y: float32(y), Width: inner, Height: float32(t.ButtonHeight)}, "Increase (E)") {
		action = ActionIncrease
	}
	y += t.ButtonHeight + t.Padding/2
	if gui.Button(rl.Rectangle{X: float32(x), Y: float32(y), Width: inner, Height: float32(t.ButtonHeight)}, "Decrease (Q)") {
		action = ActionDecrease
	}
	return action
}

// drawFill draws the capacity bar and returns the next Y position.
func (p *Panel) drawFill(x, y int32, ratio float32) int32 {
	t := p.Theme
	ratio = min(max(ratio, 0), 1)
	width := p.width - 2*t.Padding

	rl.DrawRectangle(x, y, width, t.BarHeight, t.BarBg)
	rl.DrawRectangle(x, y, int32(float32(width)*ratio), t.BarHeight, t.FillColor(ratio))
	rl.DrawRectangleLines(x, y, width, t.BarHeight, t.PanelBorder)
	return y + t.BarHeight + t.Padding
}
