// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native implements gpucore.Device on gogpu/wgpu's hal layer.
//
// Commands are recorded into one hal command encoder. A render pass is
// open while a render target is bound; Clear restarts the pass with clear
// load operations. Flush ends encoding, submits, and polls the queue until
// the submission completes. Per-draw buffers and bind groups are released
// after that.
//
// Programs are WGSL, compiled to SPIR-V by naga. Each distinct
// (program, depth/stencil state, color write mask) triple becomes one
// render pipeline, kept in an LRU cache.
//
// Render targets are RGBA8 color plus Depth24PlusStencil8:
//
//	dev, err := native.New(halDevice, halQueue)
//	rt, err := dev.CreateRenderTarget(480, 272)
package native
