package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/herd/camera"
	"github.com/pthm-cable/herd/config"
	"github.com/pthm-cable/herd/game"
	"github.com/pthm-cable/herd/gpu"
	"github.com/pthm-cable/herd/renderer"
	"github.com/pthm-cable/herd/telemetry"
	"github.com/pthm-cable/herd/ui"
)

// runFlags holds the parsed command line.
type runFlags struct {
	configPath  string
	headless    bool
	soft        bool
	logStats    bool
	outputDir   string
	snapshotDir string
	restore     string
	seed        int64
	maxTicks    int
	autoAppend  int
}

func main() {
	var f runFlags
	flag.StringVar(&f.configPath, "config", "", "Path to config.yaml (empty = use defaults)")
	flag.BoolVar(&f.headless, "headless", false, "Run without graphics on the software device")
	flag.BoolVar(&f.soft, "soft", false, "Run kernels on the software device in graphical mode")
	flag.BoolVar(&f.logStats, "log-stats", false, "Output stats via slog")
	flag.StringVar(&f.outputDir, "output-dir", "", "Output directory for CSV logs and config snapshot")
	flag.StringVar(&f.snapshotDir, "snapshot-dir", "", "Directory for population snapshots (F5)")
	flag.StringVar(&f.restore, "restore", "", "Population snapshot to restore at startup")
	flag.Int64Var(&f.seed, "seed", 0, "RNG seed (0 = time-based)")
	flag.IntVar(&f.maxTicks, "max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	flag.IntVar(&f.autoAppend, "auto-append", 0, "Trigger an append every N ticks (0 = off)")
	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(f.configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if f.seed == 0 {
		f.seed = time.Now().UnixNano()
	}

	var err error
	if f.headless {
		err = runHeadless(f)
	} else {
		err = runWindow(f)
	}
	if err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func buildOptions(f runFlags) game.Options {
	opts := game.OptionsFromConfig(config.Cfg())
	opts.Seed = f.seed
	opts.LogStats = f.logStats
	opts.OutputDir = f.outputDir
	opts.SnapshotDir = f.snapshotDir
	return opts
}

// startSimulation builds the simulation on prog and applies the run flags
// that need a live simulation.
func startSimulation(prog *gpu.Program, f runFlags) (*game.Simulation, error) {
	sim, err := game.NewSimulation(prog, buildOptions(f))
	if err != nil {
		return nil, err
	}
	if err := sim.WriteConfig(config.Cfg()); err != nil {
		slog.Error("failed to write config", "error", err)
	}
	if f.restore != "" {
		snap, err := telemetry.LoadSnapshot(f.restore)
		if err == nil {
			err = sim.RestoreSnapshot(snap)
		}
		if err != nil {
			sim.Close()
			return nil, err
		}
	}
	return sim, nil
}

// autoAppend triggers an append every n ticks when enabled.
func autoAppend(sim *game.Simulation, n int) error {
	if n <= 0 || sim.TickCount()%int32(n) != 0 {
		return nil
	}
	return sim.AppendTrigger()
}

func runHeadless(f runFlags) error {
	cfg := config.Cfg()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dev := gpu.NewSoftDevice(cfg.GPU.SoftWorkers)
	prog, err := dev.LoadProgram(gpu.ReferenceKernels(), game.ProgramInfoFromConfig(cfg))
	if err != nil {
		return err
	}
	defer prog.Release()

	sim, err := startSimulation(prog, f)
	if err != nil {
		return err
	}
	defer sim.Close()

	slog.Info("starting headless simulation",
		"seed", f.seed,
		"max_ticks", f.maxTicks,
		"auto_append", f.autoAppend,
	)

	dt := cfg.Derived.DT32
	for ctx.Err() == nil {
		if err := sim.Tick(dt); err != nil {
			return err
		}
		if err := autoAppend(sim, f.autoAppend); err != nil {
			return err
		}
		if _, err := sim.Render(); err != nil {
			return err
		}

		if f.maxTicks > 0 && int(sim.TickCount()) >= f.maxTicks {
			slog.Info("max ticks reached", "tick", sim.TickCount(), "living", sim.LivingPopulation())
			return nil
		}
	}
	slog.Info("interrupted", "tick", sim.TickCount())
	return nil
}

func runWindow(f runFlags) error {
	cfg := config.Cfg()

	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Herd")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	var prog *gpu.Program
	var err error
	info := game.ProgramInfoFromConfig(cfg)
	if f.soft {
		prog, err = gpu.NewSoftDevice(cfg.GPU.SoftWorkers).LoadProgram(gpu.ReferenceKernels(), info)
	} else {
		prog, err = renderer.NewGLDevice().LoadProgram(cfg.Derived.KernelPaths, info)
	}
	if err != nil {
		return err
	}
	defer prog.Release()

	sim, err := startSimulation(prog, f)
	if err != nil {
		return err
	}
	defer sim.Close()

	presenter := renderer.NewPresenter(prog.Device())
	defer presenter.Unload()

	panelW := int32(cfg.Screen.PanelW)
	panel := ui.NewPanel(int32(cfg.Screen.Width)-panelW, 0, panelW)
	view := camera.New(
		float32(int32(cfg.Screen.Width)-panelW), float32(cfg.Screen.Height),
		float32(cfg.Simulation.Width), float32(cfg.Simulation.Height),
	)

	for !rl.WindowShouldClose() {
		if err := sim.HandleInput(); err != nil {
			return err
		}
		view.Resize(float32(int32(rl.GetScreenWidth())-panelW), float32(rl.GetScreenHeight()))
		game.HandleViewInput(view)
		if err := sim.Tick(rl.GetFrameTime()); err != nil {
			return err
		}
		if err := autoAppend(sim, f.autoAppend); err != nil {
			return err
		}
		tex, err := sim.Render()
		if err != nil {
			return err
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		sx, sy, sw, sh := view.Source()
		err = presenter.Present(tex,
			rl.Rectangle{X: sx, Y: sy, Width: sw, Height: sh},
			rl.Rectangle{Width: view.ViewportW, Height: view.ViewportH},
		)
		var action ui.PanelAction
		if panelW > 0 {
			action = panel.Draw(ui.PanelState{
				Device:   prog.Device().Name(),
				Width:    cfg.Simulation.Width,
				Height:   cfg.Simulation.Height,
				Capacity: sim.Capacity(),
				Living:   sim.LivingPopulation(),
				Batch:    sim.Batch(),
				FPS:      rl.GetFPS(),
			})
		}
		rl.EndDrawing()
		if err != nil {
			return err
		}

		switch action {
		case ui.ActionIncrease:
			err = sim.AppendTrigger()
		case ui.ActionDecrease:
			err = sim.ConsumeTrigger()
		}
		if err != nil {
			return err
		}

		if f.maxTicks > 0 && int(sim.TickCount()) >= f.maxTicks {
			break
		}
	}
	slog.Info("window closed", "tick", sim.TickCount(), "living", sim.LivingPopulation())
	return nil
}
