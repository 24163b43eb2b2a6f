package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollectorTracksPhases(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseClear)
		pc.StartPhase(PhaseUpdate)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseRefresh)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}
	if stats.Phases[PhaseUpdate].Avg < 100*time.Microsecond {
		t.Errorf("update avg = %v, want >= 100us", stats.Phases[PhaseUpdate].Avg)
	}
	if stats.Pct(PhaseRefresh) <= stats.Pct(PhaseClear) {
		t.Errorf("refresh %.1f%% <= clear %.1f%%", stats.Pct(PhaseRefresh), stats.Pct(PhaseClear))
	}
	if stats.Pct(PhaseDraw) != 0 {
		t.Errorf("draw never ran, got %.1f%%", stats.Pct(PhaseDraw))
	}
}

func TestPerfCollectorPhaseOpensFrame(t *testing.T) {
	pc := NewPerfCollector(4)

	// A mutation between frames is charged to the next frame
	pc.StartPhase(PhaseMutate)
	time.Sleep(100 * time.Microsecond)
	pc.StartTick()
	pc.StartPhase(PhaseDraw)
	pc.EndTick()

	stats := pc.Stats()
	if stats.Phases[PhaseMutate].Avg < 100*time.Microsecond {
		t.Errorf("mutate avg = %v, want >= 100us", stats.Phases[PhaseMutate].Avg)
	}
	if stats.AvgTickDuration < stats.Phases[PhaseMutate].Avg {
		t.Errorf("frame %v shorter than its mutate phase", stats.AvgTickDuration)
	}

	// EndTick without an open frame records nothing
	pc.EndTick()
	if got := pc.Stats(); got.AvgTickDuration != stats.AvgTickDuration {
		t.Errorf("extra EndTick changed stats: %v -> %v", stats.AvgTickDuration, got.AvgTickDuration)
	}
}

func TestPerfCollectorRollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 12; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseDraw)
		pc.EndTick()
	}

	if pc.filled != 5 {
		t.Errorf("filled = %d, want 5", pc.filled)
	}
	stats := pc.Stats()
	if stats.MinTickDuration > stats.MaxTickDuration {
		t.Errorf("min %v > max %v", stats.MinTickDuration, stats.MaxTickDuration)
	}
	if stats.TickStdUS < 0 {
		t.Errorf("negative jitter %v", stats.TickStdUS)
	}
}

func TestPerfCollectorEmpty(t *testing.T) {
	stats := NewPerfCollector(0).Stats()
	if stats.AvgTickDuration != 0 || stats.TicksPerSecond != 0 {
		t.Errorf("empty collector stats = %+v", stats)
	}
	if stats.Pct(numPhases) != 0 || stats.Pct(-1) != 0 {
		t.Error("out of range phase should report zero")
	}
}

func TestPerfCollectorFrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("frame duration = %v, want >= 15ms", stats.FrameDuration)
	}
	if stats.FPS <= 0 || stats.FPS > 70 {
		t.Errorf("FPS = %v, want (0, 70]", stats.FPS)
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseRefresh.String() != "refresh" || PhaseCensus.String() != "census" {
		t.Errorf("names = %s, %s", PhaseRefresh, PhaseCensus)
	}
	if Phase(99).String() != "unknown" {
		t.Errorf("Phase(99) = %s", Phase(99))
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	var s PerfStats
	s.AvgTickDuration = 2 * time.Millisecond
	s.TicksPerSecond = 500
	s.Phases[PhaseUpdate].Pct = 40
	s.Phases[PhaseDraw].Pct = 35
	s.Phases[PhaseRefresh].Pct = 25

	row := s.ToCSV(120)
	if row.WindowEnd != 120 || row.AvgTickUS != 2000 {
		t.Errorf("row = %+v", row)
	}
	if row.UpdatePct != 40 || row.DrawPct != 35 || row.RefreshPct != 25 || row.MutatePct != 0 {
		t.Errorf("phase columns = %+v", row)
	}
}
