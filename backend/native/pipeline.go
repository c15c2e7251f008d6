// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fbstencil/gpucore"
)

const (
	colorFormat        = gputypes.TextureFormatRGBA8Unorm
	depthStencilFormat = gputypes.TextureFormatDepth24PlusStencil8

	// uniformSize is one vec4<f32>.
	uniformSize = 16

	// pipelineCacheSize bounds the number of live render pipelines.
	pipelineCacheSize = 64
)

// pipelineKey identifies one render pipeline variant.
type pipelineKey struct {
	program   gpucore.ShaderProgramID
	state     gpucore.DepthStencilStateID
	colorMask gpucore.ColorWriteMask
}

// program is a compiled shader module with its entry points.
type program struct {
	label         string
	module        hal.ShaderModule
	vertexEntry   string
	fragmentEntry string
}

// disabledDepthStencil is used when no depth/stencil state is bound.
var disabledDepthStencil = gpucore.DepthStencilDesc{Label: "disabled"}

// stencilClearDepthStencil is the state of DrawStencilClear.
var stencilClearDepthStencil = gpucore.DepthStencilDesc{
	Label:              "stencil_clear",
	StencilEnable:      true,
	StencilReadMask:    0xFF,
	StencilWriteMask:   0xFF,
	StencilCompare:     gpucore.CompareAlways,
	StencilFailOp:      gpucore.StencilOpReplace,
	StencilDepthFailOp: gpucore.StencilOpReplace,
	StencilPassOp:      gpucore.StencilOpReplace,
}

func quadVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: gpucore.QuadVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1}, // uv
			},
		},
	}
}

func convertCompare(c gpucore.CompareFunction) gputypes.CompareFunction {
	switch c {
	case gpucore.CompareNever:
		return gputypes.CompareFunctionNever
	case gpucore.CompareLess:
		return gputypes.CompareFunctionLess
	case gpucore.CompareEqual:
		return gputypes.CompareFunctionEqual
	case gpucore.CompareLessEqual:
		return gputypes.CompareFunctionLessEqual
	case gpucore.CompareGreater:
		return gputypes.CompareFunctionGreater
	case gpucore.CompareNotEqual:
		return gputypes.CompareFunctionNotEqual
	case gpucore.CompareGreaterEqual:
		return gputypes.CompareFunctionGreaterEqual
	default:
		return gputypes.CompareFunctionAlways
	}
}

func convertStencilOp(op gpucore.StencilOp) hal.StencilOperation {
	switch op {
	case gpucore.StencilOpZero:
		return hal.StencilOperationZero
	case gpucore.StencilOpReplace:
		return hal.StencilOperationReplace
	case gpucore.StencilOpInvert:
		return hal.StencilOperationInvert
	case gpucore.StencilOpIncrementWrap:
		return hal.StencilOperationIncrementWrap
	case gpucore.StencilOpDecrementWrap:
		return hal.StencilOperationDecrementWrap
	default:
		return hal.StencilOperationKeep
	}
}

// convertDepthStencil maps a gpucore state onto the HAL form for the
// Depth24PlusStencil8 attachment every render target carries.
func convertDepthStencil(d *gpucore.DepthStencilDesc) *hal.DepthStencilState {
	ds := &hal.DepthStencilState{
		Format:            depthStencilFormat,
		DepthWriteEnabled: false,
		DepthCompare:      gputypes.CompareFunctionAlways,
	}
	if d.DepthEnable {
		ds.DepthWriteEnabled = true
		ds.DepthCompare = gputypes.CompareFunctionLessEqual
	}
	if !d.StencilEnable {
		face := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		ds.StencilFront, ds.StencilBack = face, face
		return ds
	}
	face := hal.StencilFaceState{
		Compare:     convertCompare(d.StencilCompare),
		FailOp:      convertStencilOp(d.StencilFailOp),
		DepthFailOp: convertStencilOp(d.StencilDepthFailOp),
		PassOp:      convertStencilOp(d.StencilPassOp),
	}
	ds.StencilFront, ds.StencilBack = face, face
	ds.StencilReadMask = uint32(d.StencilReadMask)
	ds.StencilWriteMask = uint32(d.StencilWriteMask)
	return ds
}

// buildPipeline creates the render pipeline for one variant.
func (d *Device) buildPipeline(prog *program, ds *gpucore.DepthStencilDesc, mask gpucore.ColorWriteMask) (hal.RenderPipeline, error) {
	label := fmt.Sprintf("%s/%s/mask%x", prog.label, ds.Label, uint8(mask))
	pipeline, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: d.pipeLayout,
		Vertex: hal.VertexState{
			Module:     prog.module,
			EntryPoint: prog.vertexEntry,
			Buffers:    quadVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     prog.module,
			EntryPoint: prog.fragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    colorFormat,
					WriteMask: gputypes.ColorWriteMask(mask),
				},
			},
		},
		DepthStencil: convertDepthStencil(ds),
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create render pipeline %s: %w", label, err)
	}
	slogger().Debug("native: render pipeline created", "label", label)
	return pipeline, nil
}

// pipelineFor returns the cached pipeline for key, building it on a miss.
func (d *Device) pipelineFor(key pipelineKey, prog *program, ds *gpucore.DepthStencilDesc) (hal.RenderPipeline, error) {
	return d.pipelines.GetOrCreate(key, func() (hal.RenderPipeline, error) {
		return d.buildPipeline(prog, ds, key.colorMask)
	})
}

// dropPipelines evicts every cached pipeline built from prog or state.
func (d *Device) dropPipelines(match func(pipelineKey) bool) {
	d.pipelines.DeleteFunc(match)
}
