// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"math"

	"github.com/gogpu/fbstencil/gpucore"
)

// shadeFunc returns the fragment color for interpolated texture
// coordinates, or false to discard.
type shadeFunc func(u, v float32) ([4]float32, bool)

type windowVertex struct {
	x, y float32
	u, v float32
}

// toWindow maps a clip-space vertex through the viewport. Window y grows
// downward.
func toWindow(vp gpucore.Viewport, q gpucore.QuadVertex) windowVertex {
	return windowVertex{
		x: vp.X + (q.X+1)*0.5*vp.Width,
		y: vp.Y + (1-q.Y)*0.5*vp.Height,
		u: q.U,
		v: q.V,
	}
}

func edgeFunc(a, b windowVertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// topLeft reports whether edge a→b of a positively wound triangle owns the
// samples lying exactly on it.
func topLeft(a, b windowVertex) bool {
	return (a.y == b.y && b.x > a.x) || b.y < a.y
}

func (d *Device) rasterize(rt *renderTarget, quad gpucore.Quad, ds *gpucore.DepthStencilDesc,
	ref uint8, mask gpucore.ColorWriteMask, shade shadeFunc,
) {
	var w [4]windowVertex
	for i := range quad {
		w[i] = toWindow(d.viewport, quad[i])
	}
	for t := 0; t < len(gpucore.QuadIndices); t += 3 {
		d.rasterTriangle(rt,
			w[gpucore.QuadIndices[t]], w[gpucore.QuadIndices[t+1]], w[gpucore.QuadIndices[t+2]],
			ds, ref, mask, shade)
	}
}

func (d *Device) rasterTriangle(rt *renderTarget, v0, v1, v2 windowVertex,
	ds *gpucore.DepthStencilDesc, ref uint8, mask gpucore.ColorWriteMask, shade shadeFunc,
) {
	area := edgeFunc(v0, v1, v2.x, v2.y)
	if area == 0 {
		return
	}
	if area < 0 {
		v1, v2 = v2, v1
		area = -area
	}

	vp := d.viewport
	minX := maxInt(floorInt(min(v0.x, v1.x, v2.x)), floorInt(vp.X), 0)
	minY := maxInt(floorInt(min(v0.y, v1.y, v2.y)), floorInt(vp.Y), 0)
	maxX := minInt(ceilInt(max(v0.x, v1.x, v2.x)), ceilInt(vp.X+vp.Width), rt.width)
	maxY := minInt(ceilInt(max(v0.y, v1.y, v2.y)), ceilInt(vp.Y+vp.Height), rt.height)

	tl0, tl1, tl2 := topLeft(v1, v2), topLeft(v2, v0), topLeft(v0, v1)
	for y := minY; y < maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x < maxX; x++ {
			px := float32(x) + 0.5
			w0 := edgeFunc(v1, v2, px, py)
			w1 := edgeFunc(v2, v0, px, py)
			w2 := edgeFunc(v0, v1, px, py)
			if !covers(w0, tl0) || !covers(w1, tl1) || !covers(w2, tl2) {
				continue
			}
			l0, l1, l2 := w0/area, w1/area, w2/area
			u := l0*v0.u + l1*v1.u + l2*v2.u
			v := l0*v0.v + l1*v1.v + l2*v2.v
			d.shadeFragment(rt, y*rt.width+x, u, v, ds, ref, mask, shade)
		}
	}
}

func covers(w float32, owner bool) bool {
	return w > 0 || (w == 0 && owner)
}

// shadeFragment runs the fragment program and the per-sample operations
// for pixel index i. Discarded fragments leave every plane untouched.
func (d *Device) shadeFragment(rt *renderTarget, i int, u, v float32,
	ds *gpucore.DepthStencilDesc, ref uint8, mask gpucore.ColorWriteMask, shade shadeFunc,
) {
	out, keep := shade(u, v)
	if !keep {
		return
	}
	d.stats.Fragments++

	const z = 0
	depthPass := !ds.DepthEnable || z <= rt.depth[i]

	if ds.StencilEnable {
		old := rt.stencil[i]
		stencilPass := ds.StencilCompare.Compare(ref&ds.StencilReadMask, old&ds.StencilReadMask)
		op := ds.StencilPassOp
		switch {
		case !stencilPass:
			op = ds.StencilFailOp
		case !depthPass:
			op = ds.StencilDepthFailOp
		}
		rt.stencil[i] = old&^ds.StencilWriteMask | op.Apply(old, ref)&ds.StencilWriteMask
		if !stencilPass {
			return
		}
	}
	if !depthPass {
		return
	}
	if ds.DepthEnable {
		rt.depth[i] = z
	}

	px := rt.color[i*4 : i*4+4]
	for c := 0; c < 4; c++ {
		if mask&(1<<c) != 0 {
			px[c] = unorm8(out[c])
		}
	}
}

func floorInt(v float32) int { return int(math.Floor(float64(v))) }
func ceilInt(v float32) int  { return int(math.Ceil(float64(v))) }

func maxInt(a int, rest ...int) int {
	for _, b := range rest {
		if b > a {
			a = b
		}
	}
	return a
}

func minInt(a int, rest ...int) int {
	for _, b := range rest {
		if b < a {
			a = b
		}
	}
	return a
}
