// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "fmt"

// CompareFunction is a depth or stencil comparison.
type CompareFunction uint8

// Comparison functions. The reference value is the left operand.
const (
	CompareNever CompareFunction = iota + 1
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

// String returns the comparison name.
func (c CompareFunction) String() string {
	switch c {
	case CompareNever:
		return "Never"
	case CompareLess:
		return "Less"
	case CompareEqual:
		return "Equal"
	case CompareLessEqual:
		return "LessEqual"
	case CompareGreater:
		return "Greater"
	case CompareNotEqual:
		return "NotEqual"
	case CompareGreaterEqual:
		return "GreaterEqual"
	case CompareAlways:
		return "Always"
	default:
		return fmt.Sprintf("CompareFunction(%d)", uint8(c))
	}
}

// Compare evaluates ref <op> value.
func (c CompareFunction) Compare(ref, value uint8) bool {
	switch c {
	case CompareLess:
		return ref < value
	case CompareEqual:
		return ref == value
	case CompareLessEqual:
		return ref <= value
	case CompareGreater:
		return ref > value
	case CompareNotEqual:
		return ref != value
	case CompareGreaterEqual:
		return ref >= value
	case CompareAlways:
		return true
	default:
		return false
	}
}

// StencilOp is the update applied to a stencil value.
type StencilOp uint8

// Stencil operations.
const (
	StencilOpKeep StencilOp = iota + 1
	StencilOpZero
	StencilOpReplace
	StencilOpInvert
	StencilOpIncrementWrap
	StencilOpDecrementWrap
)

// Apply returns the new stencil value for old, before write masking.
func (op StencilOp) Apply(old, ref uint8) uint8 {
	switch op {
	case StencilOpZero:
		return 0
	case StencilOpReplace:
		return ref
	case StencilOpInvert:
		return ^old
	case StencilOpIncrementWrap:
		return old + 1
	case StencilOpDecrementWrap:
		return old - 1
	default:
		return old
	}
}

// DepthStencilDesc describes an immutable depth/stencil state object.
// The same stencil function applies to front and back faces.
type DepthStencilDesc struct {
	// Label is an optional debug label.
	Label string

	// DepthEnable turns the depth test on. When false, depth always passes
	// and is never written.
	DepthEnable bool

	// StencilEnable turns the stencil test and stencil writes on.
	StencilEnable bool

	StencilReadMask  uint8
	StencilWriteMask uint8

	StencilCompare     CompareFunction
	StencilFailOp      StencilOp
	StencilDepthFailOp StencilOp
	StencilPassOp      StencilOp
}

// Validate reports whether the descriptor is complete.
func (d *DepthStencilDesc) Validate() error {
	if d == nil {
		return fmt.Errorf("depth/stencil: %w", ErrInvalidDescriptor)
	}
	if !d.StencilEnable {
		return nil
	}
	if d.StencilCompare == 0 || d.StencilFailOp == 0 || d.StencilDepthFailOp == 0 || d.StencilPassOp == 0 {
		return fmt.Errorf("depth/stencil %q: stencil enabled without compare/ops: %w", d.Label, ErrInvalidDescriptor)
	}
	return nil
}

// FragmentFunc is the CPU form of a fragment program. It receives the
// sampled texel and the four uniform floats, and returns the output color
// and whether the fragment survives (false means discard).
type FragmentFunc func(texel, uniforms [4]float32) (out [4]float32, keep bool)

// ShaderProgramDesc describes a vertex+fragment program using the fixed
// quad vertex layout (position at location 0, texcoord at location 1),
// one vec4 uniform at binding 0, a 2D texture at binding 1 and a sampler
// at binding 2, all in group 0.
type ShaderProgramDesc struct {
	// Label is an optional debug label.
	Label string

	// WGSL is the program source used by GPU devices.
	WGSL string

	// VertexEntry and FragmentEntry name the WGSL entry points.
	VertexEntry   string
	FragmentEntry string

	// Fragment is the CPU form used by software devices.
	Fragment FragmentFunc
}
