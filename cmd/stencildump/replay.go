package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/fbstencil"
	"github.com/gogpu/fbstencil/backend"
	"github.com/gogpu/fbstencil/gpucore"
)

// dumpAddress is where a dump is mapped in the replayed address space:
// the start of video memory.
const dumpAddress uint32 = 0x04000000

var (
	errNoStencilReadback = errors.New("stencildump: backend cannot read stencil back")
	errBadGeometry       = errors.New("stencildump: invalid framebuffer geometry")
)

// report is the outcome of one replayed dump.
type report struct {
	Input  string
	Output string
	Result fbstencil.Result
}

// run replays every dump on its own device, at most cfg.jobs at a time.
// Reports come back in input order; failed dumps leave a zero report.
func run(ctx context.Context, cfg config, inputs []string, logger *slog.Logger) ([]report, error) {
	if cfg.width <= 0 || cfg.height <= 0 || cfg.stride < cfg.width {
		return nil, fmt.Errorf("%w: %dx%d stride %d", errBadGeometry, cfg.width, cfg.height, cfg.stride)
	}
	if !cfg.format.HasStencil() {
		return nil, fmt.Errorf("%w: %s", fbstencil.ErrUnsupportedFormat, cfg.format)
	}
	b := backend.Get(cfg.backend)
	if b == nil {
		return nil, fmt.Errorf("%w: %q", backend.ErrBackendNotAvailable, cfg.backend)
	}
	if err := b.Init(); err != nil {
		return nil, err
	}
	defer b.Close()
	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		return nil, err
	}

	reports := make([]report, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	if cfg.jobs > 0 {
		g.SetLimit(cfg.jobs)
	}
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dev, err := b.NewDevice()
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			r, err := replay(cfg, dev, in, logger.With("dump", filepath.Base(in)))
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			reports[i] = r
			return nil
		})
	}
	return reports, g.Wait()
}

// replay uploads one dump into a fresh framebuffer and exports the
// reconstructed stencil plane.
func replay(cfg config, dev backend.Device, input string, logger *slog.Logger) (report, error) {
	reader, ok := dev.(gpucore.StencilReader)
	if !ok {
		return report{}, errNoStencilReadback
	}
	data, err := readDump(input)
	if err != nil {
		return report{}, err
	}

	rt, err := dev.CreateRenderTarget(uint32(cfg.width), uint32(cfg.height))
	if err != nil {
		return report{}, err
	}
	defer dev.DestroyRenderTarget(rt)

	vfb := &fbstencil.VirtualFramebuffer{
		Address:      dumpAddress,
		Stride:       cfg.stride,
		Width:        cfg.width,
		Height:       cfg.height,
		RenderWidth:  cfg.width,
		RenderHeight: cfg.height,
		Format:       cfg.format,
		Target:       rt,
	}
	if len(data) < vfb.SizeBytes() {
		return report{}, fmt.Errorf("%w: %d bytes, framebuffer needs %d", fbstencil.ErrShortSource, len(data), vfb.SizeBytes())
	}
	tracker := fbstencil.NewTracker()
	tracker.Add(vfb)
	mem := &fbstencil.FlatMemory{Base: dumpAddress, Data: data}

	r, err := fbstencil.New(dev, tracker, mem, fbstencil.WithLogger(logger))
	if err != nil {
		return report{}, err
	}
	defer r.Release()

	scope := fbstencil.SaveRenderTarget(dev)
	res := r.Notify(dumpAddress, len(data), cfg.skipZero)
	if err := scope.Restore(); err != nil {
		return report{}, err
	}
	if res.Err != nil {
		return report{}, res.Err
	}
	if err := dev.Flush(); err != nil {
		return report{}, err
	}

	stencil, err := reader.ReadStencil(rt)
	if err != nil {
		return report{}, err
	}
	out := filepath.Join(cfg.outDir, trimDumpExt(filepath.Base(input))+".stencil.tiff")
	if err := writeStencilTIFF(out, stencil, cfg.width, cfg.height); err != nil {
		return report{}, err
	}
	return report{Input: input, Output: out, Result: res}, nil
}

// readDump reads a dump, decompressing by file extension.
func readDump(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		return io.ReadAll(dec)
	case ".lz4":
		return io.ReadAll(lz4.NewReader(f))
	default:
		return io.ReadAll(f)
	}
}

func trimDumpExt(name string) string {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".zst", ".zstd", ".lz4":
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// writeStencilTIFF writes one stencil byte per pixel as 8-bit gray.
func writeStencilTIFF(path string, stencil []byte, width, height int) error {
	if len(stencil) < width*height {
		return fmt.Errorf("stencil plane has %d bytes, want %d", len(stencil), width*height)
	}
	img := &image.Gray{
		Pix:    stencil[:width*height],
		Stride: width,
		Rect:   image.Rect(0, 0, width, height),
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("encode tiff: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
