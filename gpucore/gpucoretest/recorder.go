// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpucoretest provides helpers for testing code that drives a
// gpucore.Device.
package gpucoretest

import (
	"fmt"

	"github.com/gogpu/fbstencil/gpucore"
)

// Op identifies a recorded command.
type Op string

// Recorded commands.
const (
	OpCreateTexture           Op = "CreateTexture"
	OpWriteTexture            Op = "WriteTexture"
	OpDestroyTexture          Op = "DestroyTexture"
	OpCreateShaderProgram     Op = "CreateShaderProgram"
	OpDestroyShaderProgram    Op = "DestroyShaderProgram"
	OpCreateDepthStencilState Op = "CreateDepthStencilState"
	OpDestroyDepthStencil     Op = "DestroyDepthStencilState"
	OpBindRenderTarget        Op = "BindRenderTarget"
	OpSetViewport             Op = "SetViewport"
	OpClear                   Op = "Clear"
	OpSetColorWriteMask       Op = "SetColorWriteMask"
	OpSetDepthStencilState    Op = "SetDepthStencilState"
	OpSetShaderProgram        Op = "SetShaderProgram"
	OpSetTexture              Op = "SetTexture"
	OpSetUniforms             Op = "SetUniforms"
	OpSetQuad                 Op = "SetQuad"
	OpDrawQuad                Op = "DrawQuad"
	OpDrawStencilClear        Op = "DrawStencilClear"
	OpFlush                   Op = "Flush"
)

// Command is one recorded call.
type Command struct {
	Op Op

	// Filled depending on Op.
	RenderTarget gpucore.RenderTargetID
	State        gpucore.DepthStencilStateID
	StencilRef   uint8
	ColorMask    gpucore.ColorWriteMask
	ClearFlags   gpucore.ClearFlags
	Viewport     gpucore.Viewport
	Uniforms     [4]float32
	Quad         gpucore.Quad
	DepthStencil *gpucore.DepthStencilDesc
	Err          error
}

func (c Command) String() string {
	return fmt.Sprintf("%s(rt=%d state=%d ref=%#02x mask=%#x)", c.Op, c.RenderTarget, c.State, c.StencilRef, c.ColorMask)
}

// Recorder is a gpucore.Device that forwards to another device and records
// every call. Inject failures with FailOn.
type Recorder struct {
	Inner    gpucore.Device
	Commands []Command

	fail map[Op]error
}

var _ gpucore.Device = (*Recorder)(nil)

// NewRecorder wraps inner.
func NewRecorder(inner gpucore.Device) *Recorder {
	return &Recorder{Inner: inner, fail: make(map[Op]error)}
}

// FailOn makes every later call of op return err without reaching the
// inner device. A nil err removes the failure.
func (r *Recorder) FailOn(op Op, err error) {
	if err == nil {
		delete(r.fail, op)
		return
	}
	r.fail[op] = err
}

// Reset forgets the recorded commands.
func (r *Recorder) Reset() { r.Commands = r.Commands[:0] }

// Count returns how many times op was recorded.
func (r *Recorder) Count(op Op) int {
	n := 0
	for _, c := range r.Commands {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Filter returns the recorded commands with one of the given ops, in order.
func (r *Recorder) Filter(ops ...Op) []Command {
	var out []Command
	for _, c := range r.Commands {
		for _, op := range ops {
			if c.Op == op {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func (r *Recorder) record(c Command) error {
	if err, ok := r.fail[c.Op]; ok {
		c.Err = err
		r.Commands = append(r.Commands, c)
		return err
	}
	r.Commands = append(r.Commands, c)
	return nil
}

func (r *Recorder) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if err := r.record(Command{Op: OpCreateTexture}); err != nil {
		return gpucore.InvalidID, err
	}
	return r.Inner.CreateTexture(desc)
}

func (r *Recorder) WriteTexture(tex gpucore.TextureID, data []byte, bytesPerRow uint32) error {
	if err := r.record(Command{Op: OpWriteTexture}); err != nil {
		return err
	}
	return r.Inner.WriteTexture(tex, data, bytesPerRow)
}

func (r *Recorder) DestroyTexture(tex gpucore.TextureID) {
	_ = r.record(Command{Op: OpDestroyTexture})
	r.Inner.DestroyTexture(tex)
}

func (r *Recorder) CreateShaderProgram(desc *gpucore.ShaderProgramDesc) (gpucore.ShaderProgramID, error) {
	if err := r.record(Command{Op: OpCreateShaderProgram}); err != nil {
		return gpucore.InvalidID, err
	}
	return r.Inner.CreateShaderProgram(desc)
}

func (r *Recorder) DestroyShaderProgram(prog gpucore.ShaderProgramID) {
	_ = r.record(Command{Op: OpDestroyShaderProgram})
	r.Inner.DestroyShaderProgram(prog)
}

func (r *Recorder) CreateDepthStencilState(desc *gpucore.DepthStencilDesc) (gpucore.DepthStencilStateID, error) {
	var copied *gpucore.DepthStencilDesc
	if desc != nil {
		d := *desc
		copied = &d
	}
	if err := r.record(Command{Op: OpCreateDepthStencilState, DepthStencil: copied}); err != nil {
		return gpucore.InvalidID, err
	}
	return r.Inner.CreateDepthStencilState(desc)
}

func (r *Recorder) DestroyDepthStencilState(state gpucore.DepthStencilStateID) {
	_ = r.record(Command{Op: OpDestroyDepthStencil, State: state})
	r.Inner.DestroyDepthStencilState(state)
}

func (r *Recorder) BindRenderTarget(rt gpucore.RenderTargetID) error {
	if err := r.record(Command{Op: OpBindRenderTarget, RenderTarget: rt}); err != nil {
		return err
	}
	return r.Inner.BindRenderTarget(rt)
}

func (r *Recorder) RenderTarget() gpucore.RenderTargetID { return r.Inner.RenderTarget() }

func (r *Recorder) SetViewport(vp gpucore.Viewport) {
	_ = r.record(Command{Op: OpSetViewport, Viewport: vp})
	r.Inner.SetViewport(vp)
}

func (r *Recorder) Clear(flags gpucore.ClearFlags, color [4]float32, depth float32, stencil uint8) error {
	if err := r.record(Command{Op: OpClear, ClearFlags: flags, StencilRef: stencil, RenderTarget: r.Inner.RenderTarget()}); err != nil {
		return err
	}
	return r.Inner.Clear(flags, color, depth, stencil)
}

func (r *Recorder) SetColorWriteMask(mask gpucore.ColorWriteMask) {
	_ = r.record(Command{Op: OpSetColorWriteMask, ColorMask: mask})
	r.Inner.SetColorWriteMask(mask)
}

func (r *Recorder) SetDepthStencilState(state gpucore.DepthStencilStateID, ref uint8) {
	_ = r.record(Command{Op: OpSetDepthStencilState, State: state, StencilRef: ref})
	r.Inner.SetDepthStencilState(state, ref)
}

func (r *Recorder) SetShaderProgram(prog gpucore.ShaderProgramID) {
	_ = r.record(Command{Op: OpSetShaderProgram})
	r.Inner.SetShaderProgram(prog)
}

func (r *Recorder) SetTexture(tex gpucore.TextureID) {
	_ = r.record(Command{Op: OpSetTexture})
	r.Inner.SetTexture(tex)
}

func (r *Recorder) SetUniforms(values [4]float32) {
	_ = r.record(Command{Op: OpSetUniforms, Uniforms: values})
	r.Inner.SetUniforms(values)
}

func (r *Recorder) SetQuad(quad gpucore.Quad) error {
	if err := r.record(Command{Op: OpSetQuad, Quad: quad}); err != nil {
		return err
	}
	return r.Inner.SetQuad(quad)
}

func (r *Recorder) DrawQuad() error {
	if err := r.record(Command{Op: OpDrawQuad, RenderTarget: r.Inner.RenderTarget()}); err != nil {
		return err
	}
	return r.Inner.DrawQuad()
}

func (r *Recorder) DrawStencilClear(mask gpucore.ColorWriteMask, stencil uint8) error {
	if err := r.record(Command{Op: OpDrawStencilClear, ColorMask: mask, StencilRef: stencil, RenderTarget: r.Inner.RenderTarget()}); err != nil {
		return err
	}
	return r.Inner.DrawStencilClear(mask, stencil)
}

func (r *Recorder) Flush() error {
	if err := r.record(Command{Op: OpFlush}); err != nil {
		return err
	}
	return r.Inner.Flush()
}
