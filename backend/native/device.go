// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fbstencil/gpucore"
	"github.com/gogpu/fbstencil/internal/cache"
)

type texture struct {
	tex           hal.Texture
	view          hal.TextureView
	width, height uint32
}

type renderTarget struct {
	color, depthStencil         hal.Texture
	colorView, depthStencilView hal.TextureView
	width, height               uint32
}

// Device implements gpucore.Device on a hal.Device and hal.Queue.
//
// Device is not safe for concurrent use.
type Device struct {
	device hal.Device
	queue  hal.Queue

	nextID uint64

	textures map[gpucore.TextureID]*texture
	programs map[gpucore.ShaderProgramID]*program
	states   map[gpucore.DepthStencilStateID]*gpucore.DepthStencilDesc
	targets  map[gpucore.RenderTargetID]*renderTarget

	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	sampler    hal.Sampler
	pipelines  *cache.Cache[pipelineKey, hal.RenderPipeline]

	// Stock program of DrawStencilClear, built on first use.
	clearProgram   gpucore.ShaderProgramID
	clearState     gpucore.DepthStencilStateID
	dummyTexture   gpucore.TextureID
	fullScreenQuad hal.Buffer

	rec recording

	bound      gpucore.RenderTargetID
	viewport   gpucore.Viewport
	colorMask  gpucore.ColorWriteMask
	state      gpucore.DepthStencilStateID
	stencilRef uint8
	program    gpucore.ShaderProgramID
	texture    gpucore.TextureID
	uniforms   [4]float32
	quad       hal.Buffer
}

var (
	_ gpucore.Device      = (*Device)(nil)
	_ gpucore.ColorReader = (*Device)(nil)
)

// New creates a device recording into hal device and queue. The caller
// keeps ownership of both.
func New(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilHALDevice
	}
	d := &Device{
		device:    device,
		queue:     queue,
		textures:  make(map[gpucore.TextureID]*texture),
		programs:  make(map[gpucore.ShaderProgramID]*program),
		states:    make(map[gpucore.DepthStencilStateID]*gpucore.DepthStencilDesc),
		targets:   make(map[gpucore.RenderTargetID]*renderTarget),
		colorMask: gpucore.ColorWriteAll,
	}
	d.pipelines = cache.New[pipelineKey, hal.RenderPipeline](pipelineCacheSize,
		cache.WithOnEvict(func(_ pipelineKey, p hal.RenderPipeline) {
			d.retire(func() { d.device.DestroyRenderPipeline(p) })
		}))
	if err := d.createLayouts(); err != nil {
		d.destroyLayouts()
		return nil, err
	}
	return d, nil
}

// NewFromProvider creates a device on the GPU shared by a host
// application. The provider must also implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProviderNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProviderNotHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProviderNotHAL)
	}
	slogger().Info("native: using provider device", "surfaceFormat", provider.SurfaceFormat())
	return New(device, queue)
}

func (d *Device) newID() uint64 {
	d.nextID++
	return d.nextID
}

// createLayouts builds the bind group layout shared by all programs:
//
//	Binding 0: uniform vec4 (vertex | fragment)
//	Binding 1: texture_2d<f32> (fragment)
//	Binding 2: sampler (fragment)
func (d *Device) createLayouts() error {
	bindLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "fbstencil_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	d.bindLayout = bindLayout

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "fbstencil_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	d.pipeLayout = pipeLayout

	// Nearest filtering keeps texels exact for bit extraction.
	sampler, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "fbstencil_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	d.sampler = sampler
	return nil
}

func (d *Device) destroyLayouts() {
	if d.sampler != nil {
		d.device.DestroySampler(d.sampler)
		d.sampler = nil
	}
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.bindLayout != nil {
		d.device.DestroyBindGroupLayout(d.bindLayout)
		d.bindLayout = nil
	}
}

// CreateRenderTarget allocates an RGBA8 color texture and a
// Depth24PlusStencil8 texture of the given size.
func (d *Device) CreateRenderTarget(width, height uint32) (gpucore.RenderTargetID, error) {
	if width == 0 || height == 0 {
		return gpucore.InvalidID, fmt.Errorf("render target %dx%d: %w", width, height, ErrInvalidDimensions)
	}
	rt := &renderTarget{width: width, height: height}
	var err error
	rt.color, rt.colorView, err = d.createTexture("fbstencil_rt_color", width, height, colorFormat,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopySrc)
	if err != nil {
		return gpucore.InvalidID, err
	}
	rt.depthStencil, rt.depthStencilView, err = d.createTexture("fbstencil_rt_depth_stencil", width, height, depthStencilFormat,
		gputypes.TextureUsageRenderAttachment)
	if err != nil {
		d.device.DestroyTextureView(rt.colorView)
		d.device.DestroyTexture(rt.color)
		return gpucore.InvalidID, err
	}
	id := gpucore.RenderTargetID(d.newID())
	d.targets[id] = rt
	slogger().Debug("native: render target created", "id", id, "width", width, "height", height)
	return id, nil
}

// DestroyRenderTarget flushes pending work and releases a render target.
func (d *Device) DestroyRenderTarget(id gpucore.RenderTargetID) {
	rt, ok := d.targets[id]
	if !ok {
		return
	}
	if err := d.Flush(); err != nil {
		slogger().Warn("native: flush before render target release failed", "error", err)
	}
	delete(d.targets, id)
	if d.bound == id {
		d.bound = gpucore.InvalidID
	}
	d.device.DestroyTextureView(rt.depthStencilView)
	d.device.DestroyTexture(rt.depthStencil)
	d.device.DestroyTextureView(rt.colorView)
	d.device.DestroyTexture(rt.color)
}

func (d *Device) createTexture(label string, width, height uint32, format gputypes.TextureFormat,
	usage gputypes.TextureUsage,
) (hal.Texture, hal.TextureView, error) {
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create texture %s: %w", label, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("create texture view %s: %w", label, err)
	}
	return tex, view, nil
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if desc == nil || desc.Format != gpucore.TextureFormatRGBA8Unorm {
		return gpucore.InvalidID, fmt.Errorf("texture: %w", gpucore.ErrInvalidDescriptor)
	}
	if desc.Width == 0 || desc.Height == 0 {
		return gpucore.InvalidID, fmt.Errorf("texture %q: %w", desc.Label, ErrInvalidDimensions)
	}
	tex, view, err := d.createTexture(desc.Label, desc.Width, desc.Height, colorFormat,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopyDst)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{tex: tex, view: view, width: desc.Width, height: desc.Height}
	return id, nil
}

// WriteTexture implements gpucore.Device. Queue writes land before the
// next submission, so recorded draws are flushed first to keep them
// sampling the old contents.
func (d *Device) WriteTexture(id gpucore.TextureID, data []byte, bytesPerRow uint32) error {
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("write texture %d: %w", id, gpucore.ErrUnknownResource)
	}
	if bytesPerRow < t.width*4 || uint64(len(data)) < uint64(bytesPerRow)*uint64(t.height-1)+uint64(t.width)*4 {
		return fmt.Errorf("write texture %d: %d bytes at pitch %d for %dx%d: %w",
			id, len(data), bytesPerRow, t.width, t.height, gpucore.ErrInvalidDescriptor)
	}
	if err := d.Flush(); err != nil {
		return fmt.Errorf("write texture %d: %w", id, err)
	}
	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: t.height,
		},
		&hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("write texture %d: %w", id, err)
	}
	return nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	t, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	if d.texture == id {
		d.texture = gpucore.InvalidID
	}
	d.retire(func() {
		d.device.DestroyTextureView(t.view)
		d.device.DestroyTexture(t.tex)
	})
}

// CreateShaderProgram implements gpucore.Device.
func (d *Device) CreateShaderProgram(desc *gpucore.ShaderProgramDesc) (gpucore.ShaderProgramID, error) {
	if desc == nil || desc.WGSL == "" || desc.VertexEntry == "" || desc.FragmentEntry == "" {
		return gpucore.InvalidID, fmt.Errorf("shader program: %w", gpucore.ErrInvalidDescriptor)
	}
	module, err := createShaderModule(d.device, desc.Label, desc.WGSL)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ShaderProgramID(d.newID())
	d.programs[id] = &program{
		label:         desc.Label,
		module:        module,
		vertexEntry:   desc.VertexEntry,
		fragmentEntry: desc.FragmentEntry,
	}
	return id, nil
}

// DestroyShaderProgram implements gpucore.Device.
func (d *Device) DestroyShaderProgram(id gpucore.ShaderProgramID) {
	p, ok := d.programs[id]
	if !ok {
		return
	}
	delete(d.programs, id)
	if d.program == id {
		d.program = gpucore.InvalidID
	}
	d.dropPipelines(func(k pipelineKey) bool { return k.program == id })
	d.retire(func() { d.device.DestroyShaderModule(p.module) })
}

// CreateDepthStencilState implements gpucore.Device. HAL has no separate
// depth/stencil object; the state is folded into render pipelines.
func (d *Device) CreateDepthStencilState(desc *gpucore.DepthStencilDesc) (gpucore.DepthStencilStateID, error) {
	if err := desc.Validate(); err != nil {
		return gpucore.InvalidID, err
	}
	copied := *desc
	id := gpucore.DepthStencilStateID(d.newID())
	d.states[id] = &copied
	return id, nil
}

// DestroyDepthStencilState implements gpucore.Device.
func (d *Device) DestroyDepthStencilState(id gpucore.DepthStencilStateID) {
	if _, ok := d.states[id]; !ok {
		return
	}
	delete(d.states, id)
	if d.state == id {
		d.state = gpucore.InvalidID
	}
	d.dropPipelines(func(k pipelineKey) bool { return k.state == id })
}

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

// Release flushes pending work and destroys every object the device
// created. The hal device and queue are left alive.
func (d *Device) Release() {
	if err := d.Flush(); err != nil {
		slogger().Warn("native: flush during release failed", "error", err)
	}
	for id := range d.targets {
		d.DestroyRenderTarget(id)
	}
	for id := range d.textures {
		d.DestroyTexture(id)
	}
	for id := range d.programs {
		d.DestroyShaderProgram(id)
	}
	d.clearProgram, d.clearState, d.dummyTexture = gpucore.InvalidID, gpucore.InvalidID, gpucore.InvalidID
	d.pipelines.Clear()
	if d.quad != nil {
		q := d.quad
		d.retire(func() { d.device.DestroyBuffer(q) })
		d.quad = nil
	}
	if d.fullScreenQuad != nil {
		q := d.fullScreenQuad
		d.retire(func() { d.device.DestroyBuffer(q) })
		d.fullScreenQuad = nil
	}
	d.rec.runRetired()
	d.destroyLayouts()
}
