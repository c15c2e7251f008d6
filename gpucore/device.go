// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

// Device is a GPU command stream with in-place mutable state.
//
// Resource creation may fail; state setters never do. Errors caused by
// inconsistent state surface from Clear, DrawQuad and DrawStencilClear.
type Device interface {
	// CreateTexture allocates a sampleable texture.
	CreateTexture(desc *TextureDesc) (TextureID, error)

	// WriteTexture replaces the texture contents. data holds rows of
	// bytesPerRow bytes, tightly covering Width×Height texels.
	WriteTexture(tex TextureID, data []byte, bytesPerRow uint32) error

	// DestroyTexture releases a texture.
	DestroyTexture(tex TextureID)

	// CreateShaderProgram compiles and links a program.
	CreateShaderProgram(desc *ShaderProgramDesc) (ShaderProgramID, error)

	// DestroyShaderProgram releases a program.
	DestroyShaderProgram(prog ShaderProgramID)

	// CreateDepthStencilState creates an immutable depth/stencil state.
	CreateDepthStencilState(desc *DepthStencilDesc) (DepthStencilStateID, error)

	// DestroyDepthStencilState releases a depth/stencil state.
	DestroyDepthStencilState(state DepthStencilStateID)

	// BindRenderTarget makes rt the destination of subsequent clears and
	// draws. Binding InvalidID unbinds.
	BindRenderTarget(rt RenderTargetID) error

	// RenderTarget returns the currently bound render target.
	RenderTarget() RenderTargetID

	// SetViewport sets the clip-to-window mapping.
	SetViewport(vp Viewport)

	// Clear fills the selected planes of the whole bound render target.
	Clear(flags ClearFlags, color [4]float32, depth float32, stencil uint8) error

	// SetColorWriteMask restricts color writes of subsequent draws.
	SetColorWriteMask(mask ColorWriteMask)

	// SetDepthStencilState binds a depth/stencil state and the stencil
	// reference value. InvalidID restores the default (depth and stencil
	// disabled).
	SetDepthStencilState(state DepthStencilStateID, ref uint8)

	// SetShaderProgram binds the program used by DrawQuad.
	SetShaderProgram(prog ShaderProgramID)

	// SetTexture binds the texture sampled by the program.
	SetTexture(tex TextureID)

	// SetUniforms sets the program's vec4 uniform.
	SetUniforms(values [4]float32)

	// SetQuad sets the geometry drawn by DrawQuad.
	SetQuad(quad Quad) error

	// DrawQuad draws the current quad with the current state.
	DrawQuad() error

	// DrawStencilClear draws the device's shared full-screen quad with a
	// stock program that writes zero to the color channels in mask, depth
	// disabled, and replaces every stencil bit with stencil. Bound program,
	// texture, quad, color mask and depth/stencil state are not consulted
	// and not changed.
	DrawStencilClear(mask ColorWriteMask, stencil uint8) error

	// Flush submits recorded work. Immediate devices return nil.
	Flush() error
}

// StencilReader is implemented by devices that can read back a render
// target's stencil plane, row-major, one byte per pixel.
type StencilReader interface {
	ReadStencil(rt RenderTargetID) ([]byte, error)
}

// ColorReader is implemented by devices that can read back a render
// target's color plane as tightly packed RGBA8.
type ColorReader interface {
	ReadColor(rt RenderTargetID) ([]byte, error)
}
