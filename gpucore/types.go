// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "errors"

// Resource IDs
//
// These opaque IDs represent GPU resources. Each device implementation
// maintains a mapping between IDs and actual backend resources.

// TextureID is an opaque handle to a sampleable texture.
type TextureID uint64

// ShaderProgramID is an opaque handle to a linked vertex+fragment program.
type ShaderProgramID uint64

// DepthStencilStateID is an opaque handle to an immutable depth/stencil
// state object.
type DepthStencilStateID uint64

// RenderTargetID is an opaque handle to a color+depth/stencil attachment
// pair.
type RenderTargetID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Errors reported by device implementations.
var (
	// ErrUnknownResource is returned when an ID does not name a live resource.
	ErrUnknownResource = errors.New("gpucore: unknown resource")

	// ErrNoRenderTarget is returned by clears and draws issued while no
	// render target is bound.
	ErrNoRenderTarget = errors.New("gpucore: no render target bound")

	// ErrInvalidDescriptor is returned for nil or inconsistent descriptors.
	ErrInvalidDescriptor = errors.New("gpucore: invalid descriptor")

	// ErrIncompleteState is returned by DrawQuad when the program, texture
	// or quad has not been set.
	ErrIncompleteState = errors.New("gpucore: incomplete draw state")
)

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm TextureFormat = iota + 1
)

// BytesPerPixel returns the size of one texel in bytes.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatRGBA8Unorm:
		return 4
	default:
		return 0
	}
}

// TextureDesc describes a sampleable 2D texture.
type TextureDesc struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the texture dimensions in texels.
	Width, Height uint32

	// Format is the texel format.
	Format TextureFormat
}

// ColorWriteMask selects which color channels a draw may modify.
// Bit values match WebGPU's GPUColorWrite flags.
type ColorWriteMask uint8

// Color write mask bits.
const (
	ColorWriteRed   ColorWriteMask = 1 << 0
	ColorWriteGreen ColorWriteMask = 1 << 1
	ColorWriteBlue  ColorWriteMask = 1 << 2
	ColorWriteAlpha ColorWriteMask = 1 << 3

	ColorWriteNone ColorWriteMask = 0
	ColorWriteAll  ColorWriteMask = ColorWriteRed | ColorWriteGreen | ColorWriteBlue | ColorWriteAlpha
)

// ClearFlags selects the planes affected by Device.Clear.
type ClearFlags uint8

// Clear flags.
const (
	ClearColor   ClearFlags = 1 << 0
	ClearDepth   ClearFlags = 1 << 1
	ClearStencil ClearFlags = 1 << 2
)

// Viewport maps clip space onto the bound render target.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// QuadVertex is one vertex of the fixed program vertex layout:
// clip-space position at location 0, texture coordinate at location 1.
type QuadVertex struct {
	X, Y float32
	U, V float32
}

// QuadVertexStride is the byte size of one QuadVertex.
const QuadVertexStride = 16

// Quad is four corners in order top-left, top-right, bottom-right,
// bottom-left. Devices draw it as the triangle list (0,1,2) (0,2,3).
type Quad [4]QuadVertex

// QuadIndices is the triangle-list expansion of a Quad.
var QuadIndices = [6]int{0, 1, 2, 0, 2, 3}
