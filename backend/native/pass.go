// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fbstencil/gpucore"
)

// submitTimeout bounds the wait for one submission.
const submitTimeout = 5 * time.Second

// recording is the open command encoder and render pass. Objects used by
// recorded commands are retired, not destroyed, until the work completes.
type recording struct {
	encoder    hal.CommandEncoder
	pass       hal.RenderPassEncoder
	passTarget gpucore.RenderTargetID
	commands   int
	retired    []func()
}

func (r *recording) runRetired() {
	for _, fn := range r.retired {
		fn()
	}
	r.retired = r.retired[:0]
}

// retire defers fn until recorded work has been submitted and finished.
func (d *Device) retire(fn func()) {
	if d.rec.encoder == nil {
		fn()
		return
	}
	d.rec.retired = append(d.rec.retired, fn)
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
func (d *Device) SetViewport(vp gpucore.Viewport) {
	d.viewport = vp
	if d.rec.pass != nil {
		d.applyViewport()
	}
}

func (d *Device) applyViewport() {
	vp := d.viewport
	if vp.Width == 0 || vp.Height == 0 {
		rt := d.targets[d.rec.passTarget]
		vp = gpucore.Viewport{Width: float32(rt.width), Height: float32(rt.height), MaxDepth: 1}
	}
	d.rec.pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
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

func (d *Device) beginEncoding() error {
	if d.rec.encoder != nil {
		return nil
	}
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "fbstencil_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("fbstencil"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	d.rec.encoder = encoder
	return nil
}

func (d *Device) endPass() {
	if d.rec.pass != nil {
		d.rec.pass.End()
		d.rec.pass = nil
		d.rec.passTarget = gpucore.InvalidID
	}
}

// beginPass opens a render pass on the bound target. A nil clear loads the
// existing contents of every plane.
func (d *Device) beginPass(rt *renderTarget, clear *passClear) error {
	if err := d.beginEncoding(); err != nil {
		return err
	}
	d.endPass()

	color := hal.RenderPassColorAttachment{
		View:    rt.colorView,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	ds := &hal.RenderPassDepthStencilAttachment{
		View:           rt.depthStencilView,
		DepthLoadOp:    gputypes.LoadOpLoad,
		DepthStoreOp:   gputypes.StoreOpStore,
		StencilLoadOp:  gputypes.LoadOpLoad,
		StencilStoreOp: gputypes.StoreOpStore,
	}
	if clear != nil {
		if clear.flags&gpucore.ClearColor != 0 {
			color.LoadOp = gputypes.LoadOpClear
			color.ClearValue = gputypes.Color{
				R: float64(clear.color[0]),
				G: float64(clear.color[1]),
				B: float64(clear.color[2]),
				A: float64(clear.color[3]),
			}
		}
		if clear.flags&gpucore.ClearDepth != 0 {
			ds.DepthLoadOp = gputypes.LoadOpClear
			ds.DepthClearValue = clear.depth
		}
		if clear.flags&gpucore.ClearStencil != 0 {
			ds.StencilLoadOp = gputypes.LoadOpClear
			ds.StencilClearValue = uint32(clear.stencil)
		}
	}

	d.rec.pass = d.rec.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:                  "fbstencil_pass",
		ColorAttachments:       []hal.RenderPassColorAttachment{color},
		DepthStencilAttachment: ds,
	})
	d.rec.passTarget = d.bound
	d.rec.commands++
	d.applyViewport()
	return nil
}

type passClear struct {
	flags   gpucore.ClearFlags
	color   [4]float32
	depth   float32
	stencil uint8
}

// ensurePass keeps the open pass when it already renders to the bound
// target.
func (d *Device) ensurePass() (*renderTarget, error) {
	rt, err := d.target()
	if err != nil {
		return nil, err
	}
	if d.rec.pass != nil && d.rec.passTarget == d.bound {
		return rt, nil
	}
	if err := d.beginPass(rt, nil); err != nil {
		return nil, err
	}
	return rt, nil
}

// Clear implements gpucore.Device. The cleared planes become the load
// operations of a fresh render pass.
func (d *Device) Clear(flags gpucore.ClearFlags, color [4]float32, depth float32, stencil uint8) error {
	rt, err := d.target()
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	err = d.beginPass(rt, &passClear{flags: flags, color: color, depth: depth, stencil: stencil})
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// encodeQuad expands a quad into the triangle list drawn by every
// pipeline.
func encodeQuad(q gpucore.Quad) []byte {
	out := make([]byte, 0, len(gpucore.QuadIndices)*gpucore.QuadVertexStride)
	for _, i := range gpucore.QuadIndices {
		v := q[i]
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v.X))
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v.Y))
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v.U))
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v.V))
	}
	return out
}

func (d *Device) uploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if err := d.queue.WriteBuffer(buf, 0, data); err != nil {
		d.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("write %s: %w", label, err)
	}
	return buf, nil
}

// SetQuad implements gpucore.Device. Each call uploads a new vertex
// buffer; the previous one is retired.
func (d *Device) SetQuad(q gpucore.Quad) error {
	buf, err := d.uploadBuffer("fbstencil_quad", encodeQuad(q), gputypes.BufferUsageVertex)
	if err != nil {
		return err
	}
	if old := d.quad; old != nil {
		d.retire(func() { d.device.DestroyBuffer(old) })
	}
	d.quad = buf
	return nil
}

func encodeUniforms(values [4]float32) []byte {
	out := make([]byte, 0, uniformSize)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

// bindGroup creates the per-draw bind group. It and its uniform buffer
// are retired at once.
func (d *Device) bindGroup(tex *texture, uniforms [4]float32) (hal.BindGroup, error) {
	ub, err := d.uploadBuffer("fbstencil_uniforms", encodeUniforms(uniforms), gputypes.BufferUsageUniform)
	if err != nil {
		return nil, err
	}
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "fbstencil_bind",
		Layout: d.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: uniformSize}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: tex.view.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: d.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		d.device.DestroyBuffer(ub)
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	d.retire(func() {
		d.device.DestroyBindGroup(group)
		d.device.DestroyBuffer(ub)
	})
	return group, nil
}

// draw records one quad with the given pipeline inputs.
func (d *Device) draw(prog *program, ds *gpucore.DepthStencilDesc, key pipelineKey,
	tex *texture, uniforms [4]float32, quad hal.Buffer, ref uint8,
) error {
	if _, err := d.ensurePass(); err != nil {
		return err
	}
	pipeline, err := d.pipelineFor(key, prog, ds)
	if err != nil {
		return err
	}
	group, err := d.bindGroup(tex, uniforms)
	if err != nil {
		return err
	}
	pass := d.rec.pass
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.SetVertexBuffer(0, quad, 0)
	pass.SetStencilReference(uint32(ref))
	pass.Draw(uint32(len(gpucore.QuadIndices)), 1, 0, 0)
	d.rec.commands++
	return nil
}

// DrawQuad implements gpucore.Device.
func (d *Device) DrawQuad() error {
	if _, err := d.target(); err != nil {
		return fmt.Errorf("draw quad: %w", err)
	}
	prog, ok := d.programs[d.program]
	if !ok {
		return fmt.Errorf("draw quad: program %d: %w", d.program, gpucore.ErrIncompleteState)
	}
	tex, ok := d.textures[d.texture]
	if !ok {
		return fmt.Errorf("draw quad: texture %d: %w", d.texture, gpucore.ErrIncompleteState)
	}
	if d.quad == nil {
		return fmt.Errorf("draw quad: no geometry: %w", gpucore.ErrIncompleteState)
	}
	ds := &disabledDepthStencil
	if d.state != gpucore.InvalidID {
		if ds, ok = d.states[d.state]; !ok {
			return fmt.Errorf("draw quad: depth/stencil state %d: %w", d.state, gpucore.ErrUnknownResource)
		}
	}
	key := pipelineKey{program: d.program, state: d.state, colorMask: d.colorMask}
	if err := d.draw(prog, ds, key, tex, d.uniforms, d.quad, d.stencilRef); err != nil {
		return fmt.Errorf("draw quad: %w", err)
	}
	return nil
}

// ensureClearResources builds the stock program, state, placeholder
// texture and full-screen quad used by DrawStencilClear.
func (d *Device) ensureClearResources() error {
	if d.clearProgram == gpucore.InvalidID {
		id, err := d.CreateShaderProgram(&gpucore.ShaderProgramDesc{
			Label:         "fbstencil_stencil_clear",
			WGSL:          stencilClearWGSL,
			VertexEntry:   "vs_main",
			FragmentEntry: "fs_main",
		})
		if err != nil {
			return err
		}
		d.clearProgram = id
	}
	if d.clearState == gpucore.InvalidID {
		id, err := d.CreateDepthStencilState(&stencilClearDepthStencil)
		if err != nil {
			return err
		}
		d.clearState = id
	}
	if d.dummyTexture == gpucore.InvalidID {
		id, err := d.CreateTexture(&gpucore.TextureDesc{
			Label:  "fbstencil_placeholder",
			Width:  1,
			Height: 1,
			Format: gpucore.TextureFormatRGBA8Unorm,
		})
		if err != nil {
			return err
		}
		d.dummyTexture = id
	}
	if d.fullScreenQuad == nil {
		buf, err := d.uploadBuffer("fbstencil_fullscreen", encodeQuad(fullScreenQuad), gputypes.BufferUsageVertex)
		if err != nil {
			return err
		}
		d.fullScreenQuad = buf
	}
	return nil
}

var fullScreenQuad = gpucore.Quad{
	{X: -1, Y: 1, U: 0, V: 0},
	{X: 1, Y: 1, U: 1, V: 0},
	{X: 1, Y: -1, U: 1, V: 1},
	{X: -1, Y: -1, U: 0, V: 1},
}

// DrawStencilClear implements gpucore.Device.
func (d *Device) DrawStencilClear(mask gpucore.ColorWriteMask, stencil uint8) error {
	if _, err := d.target(); err != nil {
		return fmt.Errorf("stencil clear: %w", err)
	}
	if err := d.ensureClearResources(); err != nil {
		return fmt.Errorf("stencil clear: %w", err)
	}
	key := pipelineKey{program: d.clearProgram, state: d.clearState, colorMask: mask}
	err := d.draw(d.programs[d.clearProgram], d.states[d.clearState], key,
		d.textures[d.dummyTexture], [4]float32{}, d.fullScreenQuad, stencil)
	if err != nil {
		return fmt.Errorf("stencil clear: %w", err)
	}
	return nil
}

// Flush implements gpucore.Device. It submits recorded work and waits for
// it to finish.
func (d *Device) Flush() error {
	return d.submit(nil)
}

// submit ends recording, lets extra encode copy commands after the render
// pass and waits for the GPU.
func (d *Device) submit(extra func(hal.CommandEncoder)) error {
	if d.rec.encoder == nil {
		if extra == nil {
			return nil
		}
		if err := d.beginEncoding(); err != nil {
			return err
		}
	}
	d.endPass()
	encoder := d.rec.encoder
	if extra != nil {
		extra(encoder)
	}
	d.rec.encoder = nil
	commands := d.rec.commands
	d.rec.commands = 0
	defer d.rec.runRetired()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	index, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := d.wait(index); err != nil {
		return err
	}
	slogger().Debug("native: submitted", "commands", commands, "index", index)
	return nil
}

func (d *Device) wait(index uint64) error {
	deadline := time.Now().Add(submitTimeout)
	for d.queue.PollCompleted() < index {
		if time.Now().After(deadline) {
			return fmt.Errorf("submission %d: %w", index, ErrGPUTimeout)
		}
		time.Sleep(100 * time.Microsecond)
	}
	return nil
}
