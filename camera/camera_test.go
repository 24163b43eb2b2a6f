package camera

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 0.001
}

func TestNewFitsDomain(t *testing.T) {
	v := New(1280, 720, 320, 180)

	if v.X != 160 || v.Y != 90 {
		t.Errorf("expected view at (160, 90), got (%f, %f)", v.X, v.Y)
	}
	if v.Zoom != 4 || v.MinZoom != 4 {
		t.Errorf("expected fitted zoom 4, got zoom=%f min=%f", v.Zoom, v.MinZoom)
	}

	x, y, w, h := v.Source()
	if !near(x, 0) || !near(y, 0) || !near(w, 320) || !near(h, 180) {
		t.Errorf("expected source (0, 0, 320, 180), got (%f, %f, %f, %f)", x, y, w, h)
	}
}

func TestFitUsesLimitingAxis(t *testing.T) {
	// Domain is relatively taller than the viewport
	v := New(800, 600, 100, 100)
	if !near(v.MinZoom, 6) {
		t.Errorf("expected MinZoom 6, got %f", v.MinZoom)
	}
	_, _, w, h := v.Source()
	if !near(h, 100) || w <= 100 {
		t.Errorf("at fitted zoom the height should fit exactly, got %fx%f", w, h)
	}
}

func TestScreenToDomain(t *testing.T) {
	v := New(1280, 720, 320, 180)

	tests := []struct {
		sx, sy float32
		dx, dy float32
	}{
		{640, 360, 160, 90}, // center
		{0, 0, 0, 0},        // top-left corner
		{1276, 716, 319, 179},
	}
	for _, tt := range tests {
		dx, dy := v.ScreenToDomain(tt.sx, tt.sy)
		if !near(dx, tt.dx) || !near(dy, tt.dy) {
			t.Errorf("ScreenToDomain(%v, %v) = (%f, %f), want (%v, %v)", tt.sx, tt.sy, dx, dy, tt.dx, tt.dy)
		}
	}
}

func TestScreenToDomainWraps(t *testing.T) {
	v := New(1280, 720, 320, 180)
	v.SetZoom(8)
	v.X = 10

	// Left of the view center crosses the domain's left edge
	dx, _ := v.ScreenToDomain(0, 360)
	if dx < 200 || dx >= 320 {
		t.Errorf("expected wrapped x near the right edge, got %f", dx)
	}
}

func TestPanWraps(t *testing.T) {
	v := New(1280, 720, 320, 180)
	v.X = 10

	// 100 screen pixels at zoom 4 is 25 cells
	v.Pan(-100, 0)
	if !near(v.X, 305) {
		t.Errorf("expected X to wrap to 305, got %f", v.X)
	}
}

func TestZoomClamp(t *testing.T) {
	v := New(1280, 720, 320, 180)

	v.SetZoom(0.1)
	if v.Zoom != v.MinZoom {
		t.Errorf("expected zoom clamped to %f, got %f", v.MinZoom, v.Zoom)
	}

	v.ZoomBy(1000)
	if v.Zoom != v.MaxZoom {
		t.Errorf("expected zoom clamped to %f, got %f", v.MaxZoom, v.Zoom)
	}
}

func TestResizeRescalesLimits(t *testing.T) {
	v := New(1280, 720, 320, 180)
	v.Resize(640, 360)

	if !near(v.MinZoom, 2) {
		t.Errorf("expected MinZoom 2 after resize, got %f", v.MinZoom)
	}
	if v.Zoom != 4 {
		t.Errorf("zoom within limits should be kept, got %f", v.Zoom)
	}
}

func TestReset(t *testing.T) {
	v := New(1280, 720, 320, 180)
	v.X = 50
	v.Y = 20
	v.SetZoom(12)

	v.Reset()

	if v.X != 160 || v.Y != 90 {
		t.Errorf("expected position (160, 90), got (%f, %f)", v.X, v.Y)
	}
	if v.Zoom != v.MinZoom {
		t.Errorf("expected fitted zoom, got %f", v.Zoom)
	}
}
