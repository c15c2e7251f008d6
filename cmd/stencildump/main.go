// Command stencildump replays raw framebuffer dumps through stencil
// reconstruction and writes each resulting stencil plane as an 8-bit gray
// TIFF.
//
// Usage:
//
//	stencildump -format 8888 -width 480 -height 272 -stride 512 fb0.raw fb1.zst
//
// Dumps may be raw, zstd (.zst) or lz4 frame (.lz4) compressed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/gogpu/fbstencil"
	"github.com/gogpu/fbstencil/backend"
)

type config struct {
	format   fbstencil.PixelFormat
	width    int
	height   int
	stride   int
	outDir   string
	backend  string
	jobs     int
	skipZero bool
}

func main() {
	var (
		format   = flag.String("format", "8888", "pixel format: 5551, 4444 or 8888")
		width    = flag.Int("width", 480, "framebuffer width in pixels")
		height   = flag.Int("height", 272, "framebuffer height in pixels")
		stride   = flag.Int("stride", 0, "row pitch in pixels (default: width)")
		outDir   = flag.String("out", ".", "output directory")
		name     = flag.String("backend", backend.BackendSoftware, "device backend")
		jobs     = flag.Int("jobs", runtime.GOMAXPROCS(0), "dumps replayed concurrently")
		skipZero = flag.Bool("skip-zero", false, "leave the stencil untouched for all-zero dumps")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	backend.SetLogger(logger)

	pf, err := fbstencil.ParsePixelFormat(*format)
	if err != nil {
		logger.Error("bad -format", "error", err)
		os.Exit(2)
	}
	cfg := config{
		format:   pf,
		width:    *width,
		height:   *height,
		stride:   *stride,
		outDir:   *outDir,
		backend:  *name,
		jobs:     *jobs,
		skipZero: *skipZero,
	}
	if cfg.stride == 0 {
		cfg.stride = cfg.width
	}
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: stencildump [flags] dump...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	reports, err := run(context.Background(), cfg, flag.Args(), logger)
	for _, r := range reports {
		logger.Info("replayed", "dump", r.Input, "out", r.Output,
			"path", r.Result.Path, "reason", r.Result.Reason,
			"usedBits", fmt.Sprintf("%#02x", r.Result.UsedBits), "draws", r.Result.Draws)
	}
	if err != nil {
		logger.Error("stencildump failed", "error", err)
		os.Exit(1)
	}
}
