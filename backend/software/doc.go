// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software implements gpucore.Device on the CPU.
//
// Every command executes immediately against render targets held in
// memory: an RGBA8 color plane, a float32 depth plane and an 8-bit stencil
// plane. Rasterization samples pixel centers with a top-left fill rule, so
// the two triangles of a quad never touch a pixel twice. Fragment programs
// run through their CPU form ([gpucore.ShaderProgramDesc.Fragment]).
//
// The device exists to make stencil reconstruction observable pixel by
// pixel: tests and the stencildump tool read the planes back with
// ReadStencil and ReadColor.
package software
