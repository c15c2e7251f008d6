// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"errors"
	"testing"

	"github.com/gogpu/fbstencil/gpucore"
)

func newTarget(t *testing.T, d *Device, w, h uint32) gpucore.RenderTargetID {
	t.Helper()
	rt, err := d.CreateRenderTarget(w, h)
	if err != nil {
		t.Fatalf("CreateRenderTarget() error = %v", err)
	}
	if err := d.BindRenderTarget(rt); err != nil {
		t.Fatalf("BindRenderTarget() error = %v", err)
	}
	d.SetViewport(gpucore.Viewport{Width: float32(w), Height: float32(h), MaxDepth: 1})
	return rt
}

// constantProgram writes c everywhere.
func constantProgram(t *testing.T, d *Device, c [4]float32) gpucore.ShaderProgramID {
	t.Helper()
	id, err := d.CreateShaderProgram(&gpucore.ShaderProgramDesc{
		Label: "constant",
		Fragment: func(_, _ [4]float32) ([4]float32, bool) {
			return c, true
		},
	})
	if err != nil {
		t.Fatalf("CreateShaderProgram() error = %v", err)
	}
	return id
}

func fullQuad() gpucore.Quad { return fullScreenQuad }

func bindTexture(t *testing.T, d *Device, w, h uint32, data []byte) {
	t.Helper()
	tex, err := d.CreateTexture(&gpucore.TextureDesc{Width: w, Height: h, Format: gpucore.TextureFormatRGBA8Unorm})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	if err := d.WriteTexture(tex, data, w*4); err != nil {
		t.Fatalf("WriteTexture() error = %v", err)
	}
	d.SetTexture(tex)
}

func TestDrawQuadCoversEveryPixelOnce(t *testing.T) {
	d := NewDevice()
	rt := newTarget(t, d, 7, 5)
	bindTexture(t, d, 1, 1, []byte{0, 0, 0, 0})
	d.SetShaderProgram(constantProgram(t, d, [4]float32{1, 1, 1, 1}))
	if err := d.SetQuad(fullQuad()); err != nil {
		t.Fatal(err)
	}
	ds, err := d.CreateDepthStencilState(&gpucore.DepthStencilDesc{
		StencilEnable:      true,
		StencilReadMask:    0xFF,
		StencilWriteMask:   0xFF,
		StencilCompare:     gpucore.CompareAlways,
		StencilFailOp:      gpucore.StencilOpKeep,
		StencilDepthFailOp: gpucore.StencilOpKeep,
		StencilPassOp:      gpucore.StencilOpIncrementWrap,
	})
	if err != nil {
		t.Fatal(err)
	}
	d.SetDepthStencilState(ds, 0)
	if err := d.DrawQuad(); err != nil {
		t.Fatalf("DrawQuad() error = %v", err)
	}

	st, _ := d.ReadStencil(rt)
	for i, s := range st {
		if s != 1 {
			t.Fatalf("stencil[%d] = %d, want 1 (covered exactly once)", i, s)
		}
	}
	if got := d.Stats().Fragments; got != 35 {
		t.Errorf("Fragments = %d, want 35", got)
	}
}

func TestDrawQuadSamplesNearest(t *testing.T) {
	d := NewDevice()
	rt := newTarget(t, d, 2, 2)
	bindTexture(t, d, 2, 2, []byte{
		10, 0, 0, 255, 20, 0, 0, 255,
		30, 0, 0, 255, 40, 0, 0, 255,
	})
	prog, _ := d.CreateShaderProgram(&gpucore.ShaderProgramDesc{
		Fragment: func(texel, _ [4]float32) ([4]float32, bool) { return texel, true },
	})
	d.SetShaderProgram(prog)
	if err := d.SetQuad(fullQuad()); err != nil {
		t.Fatal(err)
	}
	if err := d.DrawQuad(); err != nil {
		t.Fatal(err)
	}
	c, _ := d.ReadColor(rt)
	for i, want := range []byte{10, 20, 30, 40} {
		if c[i*4] != want {
			t.Errorf("pixel %d red = %d, want %d", i, c[i*4], want)
		}
	}
}

func TestStencilWriteMaskAndDiscard(t *testing.T) {
	d := NewDevice()
	rt := newTarget(t, d, 4, 1)
	if err := d.Clear(gpucore.ClearStencil|gpucore.ClearColor, [4]float32{0, 0, 0, 0}, 1, 0xF0); err != nil {
		t.Fatal(err)
	}
	bindTexture(t, d, 4, 1, []byte{
		0, 0, 0, 0, 0, 0, 0, 255, 0, 0, 0, 0, 0, 0, 0, 255,
	})
	prog, _ := d.CreateShaderProgram(&gpucore.ShaderProgramDesc{
		Fragment: func(texel, _ [4]float32) ([4]float32, bool) {
			return [4]float32{1, 1, 1, 1}, texel[3] > 0.5
		},
	})
	d.SetShaderProgram(prog)
	_ = d.SetQuad(fullQuad())
	ds, _ := d.CreateDepthStencilState(&gpucore.DepthStencilDesc{
		StencilEnable:      true,
		StencilReadMask:    0xFF,
		StencilWriteMask:   0x0C,
		StencilCompare:     gpucore.CompareAlways,
		StencilFailOp:      gpucore.StencilOpReplace,
		StencilDepthFailOp: gpucore.StencilOpReplace,
		StencilPassOp:      gpucore.StencilOpReplace,
	})
	d.SetDepthStencilState(ds, 0x0F)
	d.SetColorWriteMask(gpucore.ColorWriteGreen)
	if err := d.DrawQuad(); err != nil {
		t.Fatal(err)
	}

	st, _ := d.ReadStencil(rt)
	want := []byte{0xF0, 0xFC, 0xF0, 0xFC}
	for i := range want {
		if st[i] != want[i] {
			t.Errorf("stencil[%d] = %#02x, want %#02x", i, st[i], want[i])
		}
	}
	c, _ := d.ReadColor(rt)
	if c[4] != 0 || c[5] != 255 || c[6] != 0 || c[7] != 0 {
		t.Errorf("kept pixel color = %v, want green only", c[4:8])
	}
	if c[1] != 0 {
		t.Errorf("discarded pixel green = %d, want 0", c[1])
	}
}

func TestStencilTestFailKeepsColor(t *testing.T) {
	d := NewDevice()
	rt := newTarget(t, d, 2, 1)
	_ = d.Clear(gpucore.ClearStencil, [4]float32{}, 1, 3)
	bindTexture(t, d, 1, 1, []byte{0, 0, 0, 0})
	d.SetShaderProgram(constantProgram(t, d, [4]float32{1, 1, 1, 1}))
	_ = d.SetQuad(fullQuad())
	ds, _ := d.CreateDepthStencilState(&gpucore.DepthStencilDesc{
		StencilEnable:      true,
		StencilReadMask:    0xFF,
		StencilWriteMask:   0xFF,
		StencilCompare:     gpucore.CompareEqual,
		StencilFailOp:      gpucore.StencilOpZero,
		StencilDepthFailOp: gpucore.StencilOpKeep,
		StencilPassOp:      gpucore.StencilOpKeep,
	})
	d.SetDepthStencilState(ds, 7)
	if err := d.DrawQuad(); err != nil {
		t.Fatal(err)
	}
	st, _ := d.ReadStencil(rt)
	c, _ := d.ReadColor(rt)
	if st[0] != 0 || c[0] != 0 {
		t.Errorf("stencil = %d color = %d, want 0 and untouched", st[0], c[0])
	}
}

func TestDrawStencilClear(t *testing.T) {
	d := NewDevice()
	rt := newTarget(t, d, 3, 3)
	_ = d.Clear(gpucore.ClearColor|gpucore.ClearStencil, [4]float32{1, 1, 1, 1}, 1, 0x77)
	d.SetColorWriteMask(gpucore.ColorWriteRed)

	if err := d.DrawStencilClear(gpucore.ColorWriteAlpha, 0); err != nil {
		t.Fatalf("DrawStencilClear() error = %v", err)
	}
	st, _ := d.ReadStencil(rt)
	c, _ := d.ReadColor(rt)
	for i := range st {
		if st[i] != 0 {
			t.Fatalf("stencil[%d] = %#02x, want 0", i, st[i])
		}
		if got := c[i*4 : i*4+4]; got[0] != 255 || got[1] != 255 || got[2] != 255 || got[3] != 0 {
			t.Fatalf("pixel %d = %v, want rgb kept and alpha 0", i, got)
		}
	}
	if d.colorMask != gpucore.ColorWriteRed {
		t.Errorf("color mask changed to %#x", d.colorMask)
	}
}

func TestViewportClipsDraw(t *testing.T) {
	d := NewDevice()
	rt := newTarget(t, d, 4, 4)
	d.SetViewport(gpucore.Viewport{Width: 2, Height: 2, MaxDepth: 1})
	if err := d.DrawStencilClear(gpucore.ColorWriteNone, 9); err != nil {
		t.Fatal(err)
	}
	st, _ := d.ReadStencil(rt)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := byte(0)
			if x < 2 && y < 2 {
				want = 9
			}
			if got := st[y*4+x]; got != want {
				t.Errorf("stencil(%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestDeviceErrors(t *testing.T) {
	d := NewDevice()
	if err := d.DrawQuad(); !errors.Is(err, gpucore.ErrNoRenderTarget) {
		t.Errorf("DrawQuad() unbound error = %v", err)
	}
	if err := d.Clear(gpucore.ClearStencil, [4]float32{}, 0, 0); !errors.Is(err, gpucore.ErrNoRenderTarget) {
		t.Errorf("Clear() unbound error = %v", err)
	}
	if err := d.BindRenderTarget(99); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("BindRenderTarget(99) error = %v", err)
	}
	newTarget(t, d, 2, 2)
	if err := d.DrawQuad(); !errors.Is(err, gpucore.ErrIncompleteState) {
		t.Errorf("DrawQuad() without program error = %v", err)
	}
	if _, err := d.CreateShaderProgram(&gpucore.ShaderProgramDesc{WGSL: "fn main() {}"}); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("CreateShaderProgram(no CPU form) error = %v", err)
	}
	if _, err := d.CreateDepthStencilState(&gpucore.DepthStencilDesc{StencilEnable: true}); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("CreateDepthStencilState(incomplete) error = %v", err)
	}
	tex, _ := d.CreateTexture(&gpucore.TextureDesc{Width: 2, Height: 2, Format: gpucore.TextureFormatRGBA8Unorm})
	if err := d.WriteTexture(tex, make([]byte, 8), 8); !errors.Is(err, gpucore.ErrInvalidDescriptor) {
		t.Errorf("WriteTexture(short) error = %v", err)
	}
	if err := d.WriteTexture(12345, nil, 0); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("WriteTexture(unknown) error = %v", err)
	}
}

func TestDestroyUnbinds(t *testing.T) {
	d := NewDevice()
	rt := newTarget(t, d, 2, 2)
	d.DestroyRenderTarget(rt)
	if d.RenderTarget() != gpucore.InvalidID {
		t.Error("destroyed render target still bound")
	}
	d.DestroyTexture(777)
	d.DestroyShaderProgram(777)
	d.DestroyDepthStencilState(777)
}
