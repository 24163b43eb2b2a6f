package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}

	if cfg.Population.Max%cfg.Population.Batch != 0 {
		t.Errorf("default max %d is not a multiple of batch %d", cfg.Population.Max, cfg.Population.Batch)
	}
	if cfg.GPU.OrganismStride != 40 {
		t.Errorf("organism_stride = %d, want 40", cfg.GPU.OrganismStride)
	}
	if cfg.Derived.StatsTicks < 1 {
		t.Errorf("StatsTicks = %d, want >= 1", cfg.Derived.StatsTicks)
	}
	if got := cfg.Derived.KernelPaths[3]; got != filepath.Join("shaders", "draw.comp") {
		t.Errorf("draw kernel path = %q", got)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user.yaml")
	data := []byte("population:\n  max: 100\n  batch: 10\nsimulation:\n  width: 64\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Population.Max != 100 || cfg.Population.Batch != 10 {
		t.Errorf("population = %+v, want max=100 batch=10", cfg.Population)
	}
	if cfg.Simulation.Width != 64 {
		t.Errorf("width = %d, want 64", cfg.Simulation.Width)
	}
	// Untouched keys keep their defaults
	if cfg.Simulation.Height != 576 {
		t.Errorf("height = %d, want default 576", cfg.Simulation.Height)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero width", func(c *Config) { c.Simulation.Width = 0 }, ErrResolution},
		{"negative height", func(c *Config) { c.Simulation.Height = -1 }, ErrResolution},
		{"zero max", func(c *Config) { c.Population.Max = 0 }, ErrPopulation},
		{"batch above max", func(c *Config) { c.Population.Max = 10; c.Population.Batch = 20 }, ErrPopulation},
		{"max not multiple", func(c *Config) { c.Population.Max = 105; c.Population.Batch = 10 }, ErrPopulation},
		{"zero threads", func(c *Config) { c.GPU.ThreadsX = 0 }, ErrThreads},
		{"valid", func(c *Config) {}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Population.Max = 300
	cfg.Population.Batch = 30

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	if got.Population != cfg.Population {
		t.Errorf("population = %+v, want %+v", got.Population, cfg.Population)
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	saved := global
	global = nil
	defer func() { global = saved }()

	defer func() {
		if recover() == nil {
			t.Error("expected panic from Cfg() before Init()")
		}
	}()
	Cfg()
}
