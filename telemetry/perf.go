package telemetry

import (
	"log/slog"
	"time"
)

// Phase is a timed section of a frame.
type Phase int

// Frame phases, in the order they normally run.
const (
	PhaseClear Phase = iota
	PhaseRefresh
	PhaseUpdate
	PhaseDraw
	PhaseMutate
	PhaseCensus
	numPhases
)

var phaseNames = [numPhases]string{"clear", "refresh", "update", "draw", "mutate", "census"}

func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// frameSample is the timing of one frame.
type frameSample struct {
	total  time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector times frame phases over a ring of recent frames.
//
// A frame opens on StartTick or on the first StartPhase after the previous
// EndTick, so mutations requested between frames are charged to the next one.
type PerfCollector struct {
	ring   []frameSample
	next   int
	filled int

	open       bool
	cur        frameSample
	frameStart time.Time
	phase      Phase
	phaseStart time.Time

	// Wall time between presented frames
	lastPresent time.Time
	present     time.Duration
}

// NewPerfCollector creates a collector averaging over window frames.
// A non-positive window defaults to 60.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{ring: make([]frameSample, window), phase: -1}
}

func (p *PerfCollector) begin(now time.Time) {
	if p.open {
		return
	}
	p.open = true
	p.cur = frameSample{}
	p.frameStart = now
	p.phase = -1
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase >= 0 {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
		p.phase = -1
	}
}

// StartTick opens a frame if none is open.
func (p *PerfCollector) StartTick() {
	p.begin(time.Now())
}

// StartPhase ends the running phase and starts timing phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.begin(now)
	p.closePhase(now)
	p.phase = phase
	p.phaseStart = now
}

// EndTick closes the open frame and stores it in the ring.
func (p *PerfCollector) EndTick() {
	if !p.open {
		return
	}
	now := time.Now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.frameStart)
	p.open = false

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	if p.filled < len(p.ring) {
		p.filled++
	}
}

// RecordFrame marks a presented frame for FPS measurement.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastPresent.IsZero() {
		p.present = now.Sub(p.lastPresent)
	}
	p.lastPresent = now
}

// PhaseStats is the average cost of one phase.
type PhaseStats struct {
	Avg time.Duration
	Pct float64 // share of the average frame
}

// PerfStats holds frame timing aggregated over the collector window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	TickStdUS       float64 // frame time jitter

	Phases [numPhases]PhaseStats

	TicksPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Pct returns the share of frame time spent in phase.
func (s PerfStats) Pct(phase Phase) float64 {
	if phase < 0 || phase >= numPhases {
		return 0
	}
	return s.Phases[phase].Pct
}

// Stats aggregates the frames currently in the window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{FrameDuration: p.present}
	if p.present > 0 {
		s.FPS = float64(time.Second) / float64(p.present)
	}
	if p.filled == 0 {
		return s
	}

	totals := make([]float64, p.filled)
	var phaseSum [numPhases]time.Duration
	for i, f := range p.ring[:p.filled] {
		totals[i] = float64(f.total)
		if i == 0 || f.total < s.MinTickDuration {
			s.MinTickDuration = f.total
		}
		s.MaxTickDuration = max(s.MaxTickDuration, f.total)
		for ph, d := range f.phases {
			phaseSum[ph] += d
		}
	}

	mean, std := SeriesStats(totals)
	s.AvgTickDuration = time.Duration(mean)
	s.TickStdUS = std / float64(time.Microsecond)
	if mean > 0 {
		s.TicksPerSecond = float64(time.Second) / mean
	}

	n := time.Duration(p.filled)
	for ph := range phaseSum {
		avg := phaseSum[ph] / n
		s.Phases[ph].Avg = avg
		if mean > 0 {
			s.Phases[ph].Pct = float64(avg) / mean * 100
		}
	}
	return s
}

// LogStats logs frame timing, omitting phases below 0.1% of the frame.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"min_tick_us", s.MinTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"tick_std_us", int64(s.TickStdUS),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for ph := range numPhases {
		if pct := s.Pct(ph); pct > 0.1 {
			attrs = append(attrs, ph.String()+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd   int32   `csv:"window_end"`
	AvgTickUS   int64   `csv:"avg_tick_us"`
	MinTickUS   int64   `csv:"min_tick_us"`
	MaxTickUS   int64   `csv:"max_tick_us"`
	TickStdUS   float64 `csv:"tick_std_us"`
	TicksPerSec float64 `csv:"ticks_per_sec"`
	FPS         float64 `csv:"fps"`
	ClearPct    float64 `csv:"clear_pct"`
	RefreshPct  float64 `csv:"refresh_pct"`
	UpdatePct   float64 `csv:"update_pct"`
	DrawPct     float64 `csv:"draw_pct"`
	MutatePct   float64 `csv:"mutate_pct"`
	CensusPct   float64 `csv:"census_pct"`
}

// ToCSV flattens the stats into a perf.csv row.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:   windowEnd,
		AvgTickUS:   s.AvgTickDuration.Microseconds(),
		MinTickUS:   s.MinTickDuration.Microseconds(),
		MaxTickUS:   s.MaxTickDuration.Microseconds(),
		TickStdUS:   s.TickStdUS,
		TicksPerSec: s.TicksPerSecond,
		FPS:         s.FPS,
		ClearPct:    s.Pct(PhaseClear),
		RefreshPct:  s.Pct(PhaseRefresh),
		UpdatePct:   s.Pct(PhaseUpdate),
		DrawPct:     s.Pct(PhaseDraw),
		MutatePct:   s.Pct(PhaseMutate),
		CensusPct:   s.Pct(PhaseCensus),
	}
}
