package ui

import "testing"

func TestPanelStateFill(t *testing.T) {
	tests := []struct {
		living, capacity int
		want             float32
	}{
		{0, 1000, 0},
		{500, 1000, 0.5},
		{1000, 1000, 1},
		{10, 0, 0},
	}
	for _, tt := range tests {
		s := PanelState{Living: tt.living, Capacity: tt.capacity}
		if got := s.Fill(); got != tt.want {
			t.Errorf("Fill(%d/%d) = %v, want %v", tt.living, tt.capacity, got, tt.want)
		}
	}
}

func TestPanelStateRows(t *testing.T) {
	s := PanelState{Device: "opengl", Width: 1024, Height: 576, Capacity: 1000, Living: 300, Batch: 100, FPS: 60}
	rows := s.Rows()
	want := map[string]string{
		"Device":     "opengl",
		"Resolution": "1024x576",
		"Max":        "1000",
		"Living":     "300",
		"Batch":      "100",
	}
	for _, row := range rows {
		if v, ok := want[row[0]]; ok && v != row[1] {
			t.Errorf("%s = %q, want %q", row[0], row[1], v)
		}
		delete(want, row[0])
	}
	if len(want) != 0 {
		t.Errorf("missing rows: %v", want)
	}
}

func TestFillColorThresholds(t *testing.T) {
	th := DefaultTheme()
	if th.FillColor(0.1) != th.BarFillLow {
		t.Error("low fill should use the low color")
	}
	if th.FillColor(0.7) != th.BarFillMedium {
		t.Error("medium fill should use the medium color")
	}
	if th.FillColor(0.95) != th.BarFillHigh {
		t.Error("near-full should use the high color")
	}
}
