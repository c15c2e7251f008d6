// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fbstencil/gpucore"
)

// copyPitchAlignment is the row alignment of texture-to-buffer copies.
const copyPitchAlignment = 256

func alignPitch(n uint32) uint32 {
	return (n + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// ReadColor implements gpucore.ColorReader. It submits pending work, copies
// the color plane to a staging buffer and returns tightly packed RGBA8
// rows.
func (d *Device) ReadColor(id gpucore.RenderTargetID) ([]byte, error) {
	rt, ok := d.targets[id]
	if !ok {
		return nil, fmt.Errorf("read color %d: %w", id, gpucore.ErrUnknownResource)
	}
	row := rt.width * 4
	pitch := alignPitch(row)
	size := uint64(pitch) * uint64(rt.height)

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "fbstencil_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("read color %d: create staging buffer: %w", id, err)
	}
	defer d.device.DestroyBuffer(staging)

	err = d.submit(func(encoder hal.CommandEncoder) {
		// Render attachments must move to copy-source layout first. No-op
		// on backends without explicit layouts.
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: rt.color,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}})
		encoder.CopyTextureToBuffer(rt.color, staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: pitch, RowsPerImage: rt.height},
			TextureBase:  hal.ImageCopyTexture{Texture: rt.color, MipLevel: 0},
			Size:         hal.Extent3D{Width: rt.width, Height: rt.height, DepthOrArrayLayers: 1},
		}})
	})
	if err != nil {
		return nil, fmt.Errorf("read color %d: %w", id, err)
	}

	mapping, err := d.device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("read color %d: map: %w", id, err)
	}
	mapped := unsafe.Slice((*byte)(mapping.Ptr), size)
	out := make([]byte, int(row)*int(rt.height))
	for y := range int(rt.height) {
		copy(out[y*int(row):(y+1)*int(row)], mapped[y*int(pitch):])
	}
	if err := d.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("read color %d: unmap: %w", id, err)
	}
	return out, nil
}
