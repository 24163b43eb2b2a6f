package telemetry

import (
	"math"
	"time"
)

// Collector accumulates population events within time windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32
	dt                  float32

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	appends        int
	consumes       int
	appendRejects  int
	consumeRejects int
	updates        int
	updatesSkipped int

	living    []float64       // living count sampled once per tick
	readbacks []time.Duration // counter readback latencies
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	ticksPerWindow := int32(1)
	if dt > 0 {
		ticksPerWindow = int32(math.Round(windowDurationSec / float64(dt)))
	}
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		living:              make([]float64, 0, ticksPerWindow),
	}
}

// RecordAppend records an accepted append.
func (c *Collector) RecordAppend() { c.appends++ }

// RecordConsume records an accepted consume.
func (c *Collector) RecordConsume() { c.consumes++ }

// RecordAppendRejected records an append rejected by the capacity check.
func (c *Collector) RecordAppendRejected() { c.appendRejects++ }

// RecordConsumeRejected records a consume rejected by the underflow check.
func (c *Collector) RecordConsumeRejected() { c.consumeRejects++ }

// RecordUpdate records whether the update kernel ran this tick.
func (c *Collector) RecordUpdate(ran bool) {
	if ran {
		c.updates++
	} else {
		c.updatesSkipped++
	}
}

// RecordLiving samples the living population.
func (c *Collector) RecordLiving(n int) {
	c.living = append(c.living, float64(n))
}

// RecordReadback records the wall time of one counter readback.
func (c *Collector) RecordReadback(d time.Duration) {
	c.readbacks = append(c.readbacks, d)
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, living, capacity int) WindowStats {
	mean, std := SeriesStats(c.living)
	p50, p99 := LatencyQuantiles(c.readbacks)

	var fill float64
	if capacity > 0 {
		fill = float64(living) / float64(capacity)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),

		Living:   living,
		Capacity: capacity,
		Fill:     fill,

		LivingMean: mean,
		LivingStd:  std,

		Appends:        c.appends,
		Consumes:       c.consumes,
		AppendRejects:  c.appendRejects,
		ConsumeRejects: c.consumeRejects,
		Updates:        c.updates,
		UpdatesSkipped: c.updatesSkipped,

		Readbacks:     len(c.readbacks),
		ReadbackP50US: p50.Microseconds(),
		ReadbackP99US: p99.Microseconds(),
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.appends = 0
	c.consumes = 0
	c.appendRejects = 0
	c.consumeRejects = 0
	c.updates = 0
	c.updatesSkipped = 0
	c.living = c.living[:0]
	c.readbacks = c.readbacks[:0]

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
