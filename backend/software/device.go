// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"fmt"
	"math"

	"github.com/gogpu/fbstencil/gpucore"
)

type texture struct {
	width, height uint32
	data          []byte // RGBA8
}

type renderTarget struct {
	width, height int
	color         []byte // RGBA8
	depth         []float32
	stencil       []byte
}

// Stats counts executed commands.
type Stats struct {
	Draws         int
	StencilClears int
	Clears        int
	Fragments     int
}

// Device is a CPU implementation of gpucore.Device.
//
// Device is not safe for concurrent use.
type Device struct {
	nextID uint64

	textures map[gpucore.TextureID]*texture
	programs map[gpucore.ShaderProgramID]gpucore.FragmentFunc
	states   map[gpucore.DepthStencilStateID]gpucore.DepthStencilDesc
	targets  map[gpucore.RenderTargetID]*renderTarget

	bound      gpucore.RenderTargetID
	viewport   gpucore.Viewport
	colorMask  gpucore.ColorWriteMask
	state      gpucore.DepthStencilStateID
	stencilRef uint8
	program    gpucore.ShaderProgramID
	texture    gpucore.TextureID
	uniforms   [4]float32
	quad       gpucore.Quad
	hasQuad    bool

	stats Stats
}

var (
	_ gpucore.Device        = (*Device)(nil)
	_ gpucore.StencilReader = (*Device)(nil)
	_ gpucore.ColorReader   = (*Device)(nil)
)

// NewDevice returns an empty device with all color channels writable.
func NewDevice() *Device {
	return &Device{
		textures:  make(map[gpucore.TextureID]*texture),
		programs:  make(map[gpucore.ShaderProgramID]gpucore.FragmentFunc),
		states:    make(map[gpucore.DepthStencilStateID]gpucore.DepthStencilDesc),
		targets:   make(map[gpucore.RenderTargetID]*renderTarget),
		colorMask: gpucore.ColorWriteAll,
	}
}

func (d *Device) newID() uint64 {
	d.nextID++
	return d.nextID
}

// Stats returns the command counters.
func (d *Device) Stats() Stats { return d.stats }

// CreateRenderTarget allocates a width×height target with zeroed color and
// stencil and depth cleared to 1.
func (d *Device) CreateRenderTarget(width, height uint32) (gpucore.RenderTargetID, error) {
	if width == 0 || height == 0 {
		return gpucore.InvalidID, fmt.Errorf("render target %dx%d: %w", width, height, gpucore.ErrInvalidDescriptor)
	}
	n := int(width) * int(height)
	rt := &renderTarget{
		width:   int(width),
		height:  int(height),
		color:   make([]byte, n*4),
		depth:   make([]float32, n),
		stencil: make([]byte, n),
	}
	for i := range rt.depth {
		rt.depth[i] = 1
	}
	id := gpucore.RenderTargetID(d.newID())
	d.targets[id] = rt
	return id, nil
}

// DestroyRenderTarget releases a render target, unbinding it if bound.
func (d *Device) DestroyRenderTarget(id gpucore.RenderTargetID) {
	delete(d.targets, id)
	if d.bound == id {
		d.bound = gpucore.InvalidID
	}
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if desc == nil || desc.Width == 0 || desc.Height == 0 || desc.Format != gpucore.TextureFormatRGBA8Unorm {
		return gpucore.InvalidID, fmt.Errorf("texture: %w", gpucore.ErrInvalidDescriptor)
	}
	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{
		width:  desc.Width,
		height: desc.Height,
		data:   make([]byte, int(desc.Width)*int(desc.Height)*4),
	}
	return id, nil
}

// WriteTexture implements gpucore.Device.
func (d *Device) WriteTexture(id gpucore.TextureID, data []byte, bytesPerRow uint32) error {
	tex, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("write texture %d: %w", id, gpucore.ErrUnknownResource)
	}
	rowBytes := int(tex.width) * 4
	if int(bytesPerRow) < rowBytes || len(data) < int(bytesPerRow)*(int(tex.height)-1)+rowBytes {
		return fmt.Errorf("write texture %d: %d bytes at pitch %d for %dx%d: %w",
			id, len(data), bytesPerRow, tex.width, tex.height, gpucore.ErrInvalidDescriptor)
	}
	for y := 0; y < int(tex.height); y++ {
		copy(tex.data[y*rowBytes:(y+1)*rowBytes], data[y*int(bytesPerRow):])
	}
	return nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	delete(d.textures, id)
	if d.texture == id {
		d.texture = gpucore.InvalidID
	}
}

// CreateShaderProgram implements gpucore.Device. The WGSL source is not
// compiled; the program's Fragment function is required.
func (d *Device) CreateShaderProgram(desc *gpucore.ShaderProgramDesc) (gpucore.ShaderProgramID, error) {
	if desc == nil || desc.Fragment == nil {
		return gpucore.InvalidID, fmt.Errorf("shader program: no CPU fragment function: %w", gpucore.ErrInvalidDescriptor)
	}
	id := gpucore.ShaderProgramID(d.newID())
	d.programs[id] = desc.Fragment
	return id, nil
}

// DestroyShaderProgram implements gpucore.Device.
func (d *Device) DestroyShaderProgram(id gpucore.ShaderProgramID) {
	delete(d.programs, id)
	if d.program == id {
		d.program = gpucore.InvalidID
	}
}

// CreateDepthStencilState implements gpucore.Device.
func (d *Device) CreateDepthStencilState(desc *gpucore.DepthStencilDesc) (gpucore.DepthStencilStateID, error) {
	if err := desc.Validate(); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.DepthStencilStateID(d.newID())
	d.states[id] = *desc
	return id, nil
}

// DestroyDepthStencilState implements gpucore.Device.
func (d *Device) DestroyDepthStencilState(id gpucore.DepthStencilStateID) {
	delete(d.states, id)
	if d.state == id {
		d.state = gpucore.InvalidID
	}
}

// BindRenderTarget implements gpucore.Device.
func (d *Device) BindRenderTarget(id gpucore.RenderTargetID) error {
	if id != gpucore.InvalidID {
		if _, ok := d.targets[id]; !ok {
			return fmt.Errorf("bind render target %d: %w", id, gpucore.ErrUnknownResource)
		}
	}
	d.bound = id
	return nil
}

// RenderTarget implements gpucore.Device.
func (d *Device) RenderTarget() gpucore.RenderTargetID { return d.bound }

// SetViewport implements gpucore.Device.
func (d *Device) SetViewport(vp gpucore.Viewport) { d.viewport = vp }

// SetColorWriteMask implements gpucore.Device.
func (d *Device) SetColorWriteMask(mask gpucore.ColorWriteMask) { d.colorMask = mask }

// SetDepthStencilState implements gpucore.Device.
func (d *Device) SetDepthStencilState(id gpucore.DepthStencilStateID, ref uint8) {
	d.state = id
	d.stencilRef = ref
}

// SetShaderProgram implements gpucore.Device.
func (d *Device) SetShaderProgram(id gpucore.ShaderProgramID) { d.program = id }

// SetTexture implements gpucore.Device.
func (d *Device) SetTexture(id gpucore.TextureID) { d.texture = id }

// SetUniforms implements gpucore.Device.
func (d *Device) SetUniforms(values [4]float32) { d.uniforms = values }

// SetQuad implements gpucore.Device.
func (d *Device) SetQuad(q gpucore.Quad) error {
	d.quad = q
	d.hasQuad = true
	return nil
}

func (d *Device) target() (*renderTarget, error) {
	if d.bound == gpucore.InvalidID {
		return nil, gpucore.ErrNoRenderTarget
	}
	rt, ok := d.targets[d.bound]
	if !ok {
		return nil, fmt.Errorf("render target %d: %w", d.bound, gpucore.ErrUnknownResource)
	}
	return rt, nil
}

// Clear implements gpucore.Device.
func (d *Device) Clear(flags gpucore.ClearFlags, color [4]float32, depth float32, stencil uint8) error {
	rt, err := d.target()
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	d.stats.Clears++
	if flags&gpucore.ClearColor != 0 {
		var px [4]byte
		for c := range px {
			px[c] = unorm8(color[c])
		}
		for i := 0; i < len(rt.color); i += 4 {
			copy(rt.color[i:i+4], px[:])
		}
	}
	if flags&gpucore.ClearDepth != 0 {
		for i := range rt.depth {
			rt.depth[i] = depth
		}
	}
	if flags&gpucore.ClearStencil != 0 {
		for i := range rt.stencil {
			rt.stencil[i] = stencil
		}
	}
	return nil
}

// DrawQuad implements gpucore.Device.
func (d *Device) DrawQuad() error {
	rt, err := d.target()
	if err != nil {
		return fmt.Errorf("draw quad: %w", err)
	}
	frag, ok := d.programs[d.program]
	if !ok {
		return fmt.Errorf("draw quad: program %d: %w", d.program, gpucore.ErrIncompleteState)
	}
	tex, ok := d.textures[d.texture]
	if !ok {
		return fmt.Errorf("draw quad: texture %d: %w", d.texture, gpucore.ErrIncompleteState)
	}
	if !d.hasQuad {
		return fmt.Errorf("draw quad: no geometry: %w", gpucore.ErrIncompleteState)
	}
	var ds gpucore.DepthStencilDesc
	if d.state != gpucore.InvalidID {
		if ds, ok = d.states[d.state]; !ok {
			return fmt.Errorf("draw quad: depth/stencil state %d: %w", d.state, gpucore.ErrUnknownResource)
		}
	}
	d.stats.Draws++
	uniforms := d.uniforms
	d.rasterize(rt, d.quad, &ds, d.stencilRef, d.colorMask, func(u, v float32) ([4]float32, bool) {
		return frag(tex.sample(u, v), uniforms)
	})
	return nil
}

// fullScreenQuad spans the whole viewport.
var fullScreenQuad = gpucore.Quad{
	{X: -1, Y: 1, U: 0, V: 0},
	{X: 1, Y: 1, U: 1, V: 0},
	{X: 1, Y: -1, U: 1, V: 1},
	{X: -1, Y: -1, U: 0, V: 1},
}

var stencilClearState = gpucore.DepthStencilDesc{
	Label:              "stencil_clear",
	StencilEnable:      true,
	StencilReadMask:    0xFF,
	StencilWriteMask:   0xFF,
	StencilCompare:     gpucore.CompareAlways,
	StencilFailOp:      gpucore.StencilOpReplace,
	StencilDepthFailOp: gpucore.StencilOpReplace,
	StencilPassOp:      gpucore.StencilOpReplace,
}

// DrawStencilClear implements gpucore.Device.
func (d *Device) DrawStencilClear(mask gpucore.ColorWriteMask, stencil uint8) error {
	rt, err := d.target()
	if err != nil {
		return fmt.Errorf("stencil clear: %w", err)
	}
	d.stats.Draws++
	d.stats.StencilClears++
	d.rasterize(rt, fullScreenQuad, &stencilClearState, stencil, mask, func(float32, float32) ([4]float32, bool) {
		return [4]float32{}, true
	})
	return nil
}

// Flush implements gpucore.Device. Commands already executed.
func (d *Device) Flush() error { return nil }

// ReadStencil implements gpucore.StencilReader.
func (d *Device) ReadStencil(id gpucore.RenderTargetID) ([]byte, error) {
	rt, ok := d.targets[id]
	if !ok {
		return nil, fmt.Errorf("read stencil %d: %w", id, gpucore.ErrUnknownResource)
	}
	return append([]byte(nil), rt.stencil...), nil
}

// ReadColor implements gpucore.ColorReader.
func (d *Device) ReadColor(id gpucore.RenderTargetID) ([]byte, error) {
	rt, ok := d.targets[id]
	if !ok {
		return nil, fmt.Errorf("read color %d: %w", id, gpucore.ErrUnknownResource)
	}
	return append([]byte(nil), rt.color...), nil
}

// sample fetches the nearest texel with clamp-to-edge addressing.
func (t *texture) sample(u, v float32) [4]float32 {
	x := clampIndex(int(math.Floor(float64(u*float32(t.width)))), int(t.width))
	y := clampIndex(int(math.Floor(float64(v*float32(t.height)))), int(t.height))
	i := (y*int(t.width) + x) * 4
	return [4]float32{
		float32(t.data[i]) / 255,
		float32(t.data[i+1]) / 255,
		float32(t.data[i+2]) / 255,
		float32(t.data[i+3]) / 255,
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func unorm8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
