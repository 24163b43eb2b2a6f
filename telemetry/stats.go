// Package telemetry aggregates population statistics and tick timing for
// structured logs and CSV output.
package telemetry

import (
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated population statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	Living   int     `csv:"living"`
	Capacity int     `csv:"capacity"`
	Fill     float64 `csv:"fill"`

	// Living count over the window
	LivingMean float64 `csv:"living_mean"`
	LivingStd  float64 `csv:"living_std"`

	// Mutation requests during window
	Appends        int `csv:"appends"`
	Consumes       int `csv:"consumes"`
	AppendRejects  int `csv:"append_rejects"`
	ConsumeRejects int `csv:"consume_rejects"`

	// Kernel activity
	Updates        int `csv:"updates"`
	UpdatesSkipped int `csv:"updates_skipped"`

	// Counter readbacks (sync points)
	Readbacks     int   `csv:"readbacks"`
	ReadbackP50US int64 `csv:"readback_p50_us"`
	ReadbackP99US int64 `csv:"readback_p99_us"`
}

// SeriesStats returns the mean and sample standard deviation of values.
// Fewer than two samples have zero deviation.
func SeriesStats(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// LatencyQuantiles returns the empirical median and 99th percentile of ds.
func LatencyQuantiles(ds []time.Duration) (p50, p99 time.Duration) {
	if len(ds) == 0 {
		return 0, 0
	}
	sorted := make([]float64, len(ds))
	for i, d := range ds {
		sorted[i] = float64(d)
	}
	slices.Sort(sorted)
	p50 = time.Duration(stat.Quantile(0.5, stat.Empirical, sorted, nil))
	p99 = time.Duration(stat.Quantile(0.99, stat.Empirical, sorted, nil))
	return p50, p99
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("living", s.Living),
		slog.Int("capacity", s.Capacity),
		slog.Float64("fill", s.Fill),
		slog.Float64("living_mean", s.LivingMean),
		slog.Float64("living_std", s.LivingStd),
		slog.Int("appends", s.Appends),
		slog.Int("consumes", s.Consumes),
		slog.Int("append_rejects", s.AppendRejects),
		slog.Int("consume_rejects", s.ConsumeRejects),
		slog.Int("updates", s.Updates),
		slog.Int("updates_skipped", s.UpdatesSkipped),
		slog.Int("readbacks", s.Readbacks),
		slog.Int64("readback_p50_us", s.ReadbackP50US),
		slog.Int64("readback_p99_us", s.ReadbackP99US),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"living", s.Living,
		"capacity", s.Capacity,
		"living_mean", s.LivingMean,
		"living_std", s.LivingStd,
		"appends", s.Appends,
		"consumes", s.Consumes,
		"append_rejects", s.AppendRejects,
		"consume_rejects", s.ConsumeRejects,
		"updates_skipped", s.UpdatesSkipped,
		"readbacks", s.Readbacks,
		"readback_p99_us", s.ReadbackP99US,
	)
}
