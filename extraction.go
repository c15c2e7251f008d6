package fbstencil

import (
	_ "embed"
	"fmt"
	"math"

	"github.com/gogpu/fbstencil/gpucore"
)

//go:embed shaders/stencil_upload.wgsl
var extractionWGSL string

// extractionProgramDesc describes the bit-plane extraction program. The
// CPU form mirrors the WGSL in float32.
func extractionProgramDesc(wgsl string) *gpucore.ShaderProgramDesc {
	return &gpucore.ShaderProgramDesc{
		Label:         "stencil_upload",
		WGSL:          wgsl,
		VertexEntry:   "vs_main",
		FragmentEntry: "fs_main",
		Fragment:      extractBitFragment,
	}
}

func toByte(x float32) float32 {
	return float32(math.Floor(float64(x * 255.99)))
}

// extractBitFragment keeps the fragment iff the bit-plane whose value is
// uniforms[0]*255 is set in the texel's alpha byte.
func extractBitFragment(texel, uniforms [4]float32) ([4]float32, bool) {
	a := texel[3]
	shifted := float32(math.Floor(float64(toByte(a) / toByte(uniforms[0]))))
	bit := shifted - 2*float32(math.Floor(float64(shifted*0.5)))
	if bit < 0.99 {
		return [4]float32{}, false
	}
	return [4]float32{a, a, a, a}, true
}

// buildQuad returns the quad covering width×height pixels of a
// width×height viewport, texture coordinates spanning the whole texture.
func buildQuad(width, height int) gpucore.Quad {
	w, h := float32(width), float32(height)
	corner := func(x, y, u, v float32) gpucore.QuadVertex {
		return gpucore.QuadVertex{
			X: x*(2/w) - 1,
			Y: -(y*(2/h) - 1),
			U: u,
			V: v,
		}
	}
	return gpucore.Quad{
		corner(0, 0, 0, 0),
		corner(w, 0, 1, 0),
		corner(w, h, 1, 1),
		corner(0, h, 0, 1),
	}
}

// uploadTexture is a reusable sampleable texture, recreated when the
// requested size changes.
type uploadTexture struct {
	id            gpucore.TextureID
	width, height uint32
}

func (t *uploadTexture) ensure(device gpucore.Device, width, height uint32) (gpucore.TextureID, error) {
	if t.id != gpucore.InvalidID && t.width == width && t.height == height {
		return t.id, nil
	}
	t.release(device)
	id, err := device.CreateTexture(&gpucore.TextureDesc{
		Label:  "stencil_upload_src",
		Width:  width,
		Height: height,
		Format: gpucore.TextureFormatRGBA8Unorm,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("upload texture %dx%d: %w", width, height, err)
	}
	t.id, t.width, t.height = id, width, height
	return id, nil
}

func (t *uploadTexture) release(device gpucore.Device) {
	if t.id != gpucore.InvalidID && device != nil {
		device.DestroyTexture(t.id)
	}
	t.invalidate()
}

func (t *uploadTexture) invalidate() {
	t.id, t.width, t.height = gpucore.InvalidID, 0, 0
}
