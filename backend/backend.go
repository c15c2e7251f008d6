package backend

import (
	"errors"

	"github.com/gogpu/fbstencil/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Device is a gpucore.Device that owns its render targets. Hosts create
// the targets of their virtual framebuffers through it.
type Device interface {
	gpucore.Device
	gpucore.ColorReader

	// CreateRenderTarget allocates a color plane and a depth/stencil
	// plane of the given size.
	CreateRenderTarget(width, height uint32) (gpucore.RenderTargetID, error)

	// DestroyRenderTarget releases a render target. Unknown IDs are
	// ignored.
	DestroyRenderTarget(id gpucore.RenderTargetID)
}

// RenderBackend is the interface for rendering backends.
// It abstracts the device implementation, allowing stencil reconstruction
// to run on the CPU rasterizer or on a GPU via gogpu/wgpu.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type RenderBackend interface {
	// Name returns the backend identifier (e.g., "software", "native").
	Name() string

	// Init initializes the backend.
	// This should be called before any device is created.
	Init() error

	// Close releases all backend resources, including every device it
	// created. The backend should not be used after Close is called.
	Close()

	// NewDevice creates a device. Devices are not safe for concurrent
	// use; create one per goroutine.
	NewDevice() (Device, error)
}
