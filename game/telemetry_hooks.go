package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/herd/config"
	"github.com/pthm-cable/herd/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and runs the
// census on its schedule.
func (s *Simulation) flushTelemetry() error {
	if !s.collector.ShouldFlush(s.tick) {
		return nil
	}

	stats := s.collector.Flush(s.tick, s.pool.Living(), s.pool.Capacity())
	perfStats := s.perf.Stats()
	s.windows++

	if s.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := s.output.WritePopulation(stats); err != nil {
		slog.Error("failed to write population stats", "error", err)
	}
	if err := s.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	if s.opts.CensusEvery <= 0 || s.windows%s.opts.CensusEvery != 0 {
		return nil
	}
	rows, err := s.Census()
	if err != nil {
		return fmt.Errorf("census: %w", err)
	}
	if s.opts.LogStats {
		telemetry.LogCensus(rows)
	}
	if err := s.output.WriteCensus(rows); err != nil {
		slog.Error("failed to write census", "error", err)
	}
	return nil
}

// WriteConfig records the effective configuration alongside the CSV output.
func (s *Simulation) WriteConfig(cfg *config.Config) error {
	return s.output.WriteConfig(cfg)
}

// SaveSnapshot writes the living population to the snapshot directory.
// Returns the path written, or "" when snapshots are disabled.
func (s *Simulation) SaveSnapshot() (string, error) {
	if s.opts.SnapshotDir == "" {
		return "", nil
	}
	if err := s.check(); err != nil {
		return "", err
	}
	living, err := s.pool.ReadLiving()
	if err != nil {
		return "", err
	}

	snap := &telemetry.Snapshot{
		Version:   telemetry.SnapshotVersion,
		Seed:      s.opts.Seed,
		Width:     s.opts.Resolution.Width,
		Height:    s.opts.Resolution.Height,
		Capacity:  s.opts.Capacity,
		Tick:      s.tick,
		Organisms: make([]telemetry.OrganismState, len(living)),
	}
	for i, o := range living {
		snap.Organisms[i] = telemetry.NewOrganismState(o)
	}

	path, err := telemetry.SaveSnapshot(snap, s.opts.SnapshotDir)
	if err != nil {
		return "", err
	}
	slog.Info("snapshot saved", "path", path, "tick", s.tick, "living", len(living))
	return path, nil
}

// RestoreSnapshot replaces the living population with a saved one.
// The snapshot must fit the simulation's domain and capacity.
func (s *Simulation) RestoreSnapshot(snap *telemetry.Snapshot) error {
	if err := s.check(); err != nil {
		return err
	}
	if snap.Width != s.opts.Resolution.Width || snap.Height != s.opts.Resolution.Height {
		return fmt.Errorf("snapshot domain %dx%d does not match %dx%d",
			snap.Width, snap.Height, s.opts.Resolution.Width, s.opts.Resolution.Height)
	}
	if len(snap.Organisms) > s.opts.Capacity {
		return fmt.Errorf("snapshot holds %d organisms over capacity %d", len(snap.Organisms), s.opts.Capacity)
	}
	return s.pool.Restore(snap.OrganismRecords())
}
