package telemetry

import (
	"math"
	"testing"
	"time"
)

func TestSeriesStats(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		mean   float64
		std    float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{5}, 5, 0},
		{"constant", []float64{3, 3, 3, 3}, 3, 0},
		{"spread", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 5, math.Sqrt(32.0 / 7.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, std := SeriesStats(tt.values)
			if math.Abs(mean-tt.mean) > 1e-9 {
				t.Errorf("mean = %v, want %v", mean, tt.mean)
			}
			if math.Abs(std-tt.std) > 1e-9 {
				t.Errorf("std = %v, want %v", std, tt.std)
			}
		})
	}
}

func TestLatencyQuantiles(t *testing.T) {
	if p50, p99 := LatencyQuantiles(nil); p50 != 0 || p99 != 0 {
		t.Errorf("empty = %v, %v; want 0, 0", p50, p99)
	}

	ds := make([]time.Duration, 100)
	for i := range ds {
		// Reverse order to exercise sorting
		ds[i] = time.Duration(100-i) * time.Microsecond
	}
	p50, p99 := LatencyQuantiles(ds)
	if p50 != 50*time.Microsecond {
		t.Errorf("p50 = %v, want 50µs", p50)
	}
	if p99 < 98*time.Microsecond || p99 > 100*time.Microsecond {
		t.Errorf("p99 = %v, want ~99µs", p99)
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(1.0, 0.1)
	if c.WindowDurationTicks() != 10 {
		t.Fatalf("window ticks = %d, want 10", c.WindowDurationTicks())
	}

	for tick := int32(1); tick <= 10; tick++ {
		c.RecordLiving(int(tick) * 10)
		c.RecordUpdate(tick > 1)
		c.RecordReadback(time.Duration(tick) * time.Microsecond)
		if tick < 10 && c.ShouldFlush(tick) {
			t.Fatalf("ShouldFlush(%d) before window end", tick)
		}
	}
	c.RecordAppend()
	c.RecordAppend()
	c.RecordAppendRejected()
	c.RecordConsume()
	c.RecordConsumeRejected()

	if !c.ShouldFlush(10) {
		t.Fatal("ShouldFlush(10) = false at window end")
	}
	s := c.Flush(10, 100, 200)

	if s.WindowStartTick != 0 || s.WindowEndTick != 10 {
		t.Errorf("window = [%d, %d], want [0, 10]", s.WindowStartTick, s.WindowEndTick)
	}
	if math.Abs(s.SimTimeSec-1.0) > 1e-6 {
		t.Errorf("sim time = %v, want 1.0", s.SimTimeSec)
	}
	if s.Fill != 0.5 {
		t.Errorf("fill = %v, want 0.5", s.Fill)
	}
	if s.LivingMean != 55 {
		t.Errorf("living mean = %v, want 55", s.LivingMean)
	}
	if s.Appends != 2 || s.AppendRejects != 1 || s.Consumes != 1 || s.ConsumeRejects != 1 {
		t.Errorf("events = %+v", s)
	}
	if s.Updates != 9 || s.UpdatesSkipped != 1 {
		t.Errorf("updates = %d ran, %d skipped; want 9, 1", s.Updates, s.UpdatesSkipped)
	}
	if s.Readbacks != 10 || s.ReadbackP50US != 5 {
		t.Errorf("readbacks = %d p50=%dus; want 10, 5us", s.Readbacks, s.ReadbackP50US)
	}

	// Counters reset for the next window
	next := c.Flush(20, 100, 200)
	if next.Appends != 0 || next.Readbacks != 0 || next.LivingMean != 0 || next.WindowStartTick != 10 {
		t.Errorf("second window not reset: %+v", next)
	}
}
