// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpucore defines the graphics command object used by fbstencil.
//
// The [Device] interface is a small immediate-mode view of a GPU command
// stream: resources are referenced by opaque IDs, state is mutated in place
// (bound render target, viewport, color write mask, depth/stencil state,
// shader program, texture, quad geometry), and draws are issued in program
// order. Every draw observes the state set before it.
//
// Two implementations ship with the module:
//   - backend/native records the stream into gogpu/wgpu hal command
//     encoders and submits it on [Device.Flush].
//   - backend/software executes each command immediately on CPU-side
//     color and stencil planes. It is the reference used by tests.
//
// # Resource Management
//
// IDs are never reused by an implementation during its lifetime. The zero
// value [InvalidID] never names a live resource. Destroying an unknown ID
// is a no-op.
//
// # Threading
//
// A Device is owned by one goroutine, the one that records commands.
// Implementations do not lock.
package gpucore
