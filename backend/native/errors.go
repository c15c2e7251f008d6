// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "errors"

// Package errors for the HAL device.
var (
	// ErrNilHALDevice is returned when no HAL device or queue is given.
	ErrNilHALDevice = errors.New("native: HAL device is nil")

	// ErrProviderNotHAL is returned when a device provider does not expose
	// hal.Device and hal.Queue.
	ErrProviderNotHAL = errors.New("native: provider does not expose HAL types")

	// ErrInvalidDimensions is returned when width or height is zero.
	ErrInvalidDimensions = errors.New("native: invalid dimensions")

	// ErrShaderCompile is returned when WGSL fails to compile.
	ErrShaderCompile = errors.New("native: shader compilation failed")

	// ErrGPUTimeout is returned when submitted work does not finish in time.
	ErrGPUTimeout = errors.New("native: timed out waiting for GPU")
)
