package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/herd/camera"
)

// HandleInput processes keyboard input. E appends a batch, Q consumes one.
func (s *Simulation) HandleInput() error {
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeyE) {
		if err := s.AppendTrigger(); err != nil {
			return err
		}
	}
	if rl.IsKeyPressed(rl.KeyQ) {
		if err := s.ConsumeTrigger(); err != nil {
			return err
		}
	}

	if rl.IsKeyPressed(rl.KeyF5) {
		if _, err := s.SaveSnapshot(); err != nil {
			slog.Error("failed to save snapshot", "error", err)
		}
	}
	return nil
}

// HandleViewInput processes pan and zoom controls for the display view.
func HandleViewInput(view *camera.View) {
	// Pan speed in screen pixels per frame
	const panSpeed = float32(8.0)

	if rl.IsKeyDown(rl.KeyRight) {
		view.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		view.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		view.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		view.Pan(0, -panSpeed)
	}

	// Zoom controls: mouse wheel or +/- keys
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		view.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		view.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		view.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		view.Reset()
	}
}
