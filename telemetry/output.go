package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/herd/config"
)

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir        string
	population csvFile
	perf       csvFile
	census     csvFile
}

// csvFile is an append-only CSV file that writes its header once.
type csvFile struct {
	name          string
	f             *os.File
	headerWritten bool
}

func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		if err := gocsv.Marshal(records, c.f); err != nil {
			return fmt.Errorf("writing %s: %w", c.name, err)
		}
		c.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, c.f); err != nil {
		return fmt.Errorf("writing %s: %w", c.name, err)
	}
	return nil
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{
		dir:        dir,
		population: csvFile{name: "population.csv"},
		perf:       csvFile{name: "perf.csv"},
		census:     csvFile{name: "census.csv"},
	}
	for _, c := range []*csvFile{&om.population, &om.perf, &om.census} {
		f, err := os.Create(filepath.Join(dir, c.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", c.name, err)
		}
		c.f = f
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WritePopulation appends a window stats record to population.csv.
func (om *OutputManager) WritePopulation(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return om.population.write([]WindowStats{stats})
}

// WritePerf appends a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	return om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)})
}

// WriteCensus appends per-species rows to census.csv.
func (om *OutputManager) WriteCensus(rows []SpeciesCensus) error {
	if om == nil || len(rows) == 0 {
		return nil
	}
	return om.census.write(rows)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, c := range []*csvFile{&om.population, &om.perf, &om.census} {
		if c.f == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.f = nil
	}
	return firstErr
}
