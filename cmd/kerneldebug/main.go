// Kernel debug tool - runs the organism kernels for a few frames and writes
// the display texture to a PNG file for inspection.
//
// Usage: go run -tags opengl43 ./cmd/kerneldebug -frames 120 -out debug.png
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/herd/config"
	"github.com/pthm-cable/herd/game"
	"github.com/pthm-cable/herd/gpu"
	"github.com/pthm-cable/herd/renderer"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outPath := flag.String("out", "debug.png", "Output PNG path")
	frames := flag.Int("frames", 120, "Frames to run before capture")
	appendEvery := flag.Int("append-every", 10, "Trigger an append every N frames (0 = off)")
	soft := flag.Bool("soft", false, "Use the software device instead of OpenGL")
	seed := flag.Int64("seed", 1, "RNG seed")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Initialize raylib with hidden window for the GL context
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(int32(cfg.Simulation.Width), int32(cfg.Simulation.Height), "Kernel Debug")
	defer rl.CloseWindow()

	if err := run(cfg, *outPath, *frames, *appendEvery, *soft, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		rl.CloseWindow()
		os.Exit(1)
	}
}

func run(cfg *config.Config, outPath string, frames, appendEvery int, soft bool, seed int64) error {
	info := game.ProgramInfoFromConfig(cfg)
	var prog *gpu.Program
	var err error
	if soft {
		prog, err = gpu.NewSoftDevice(cfg.GPU.SoftWorkers).LoadProgram(gpu.ReferenceKernels(), info)
	} else {
		prog, err = renderer.NewGLDevice().LoadProgram(cfg.Derived.KernelPaths, info)
	}
	if err != nil {
		return fmt.Errorf("loading kernels: %w", err)
	}
	defer prog.Release()

	opts := game.OptionsFromConfig(cfg)
	opts.Seed = seed
	sim, err := game.NewSimulation(prog, opts)
	if err != nil {
		return err
	}
	defer sim.Close()

	var display *gpu.Texture
	for i := 1; i <= frames; i++ {
		if appendEvery > 0 && i%appendEvery == 0 {
			if err := sim.AppendTrigger(); err != nil {
				return err
			}
		}
		if err := sim.Tick(cfg.Derived.DT32); err != nil {
			return err
		}
		if display, err = sim.Render(); err != nil {
			return err
		}
	}
	if display == nil {
		return fmt.Errorf("no frames rendered")
	}

	texels, err := display.Read()
	if err != nil {
		return fmt.Errorf("reading display texture: %w", err)
	}
	w, h := display.Width(), display.Height()
	pix := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := 4 * (y*w + x)
			pix.SetRGBA(x, y, color.RGBA{
				R: uint8(clamp01(texels[i+0])*255 + 0.5),
				G: uint8(clamp01(texels[i+1])*255 + 0.5),
				B: uint8(clamp01(texels[i+2])*255 + 0.5),
				A: 255,
			})
		}
	}

	// Export to PNG
	img := rl.NewImageFromImage(pix)
	ok := rl.ExportImage(*img, outPath)
	rl.UnloadImage(img)
	if !ok {
		return fmt.Errorf("failed to export image")
	}

	fmt.Printf("Display captured to: %s (%dx%d, %d living, %s)\n",
		outPath, w, h, sim.LivingPopulation(), prog.Device().Name())
	return nil
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
