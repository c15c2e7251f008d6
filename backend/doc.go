// Package backend provides a pluggable device backend abstraction.
//
// Stencil reconstruction only needs a gpucore.Device. This package
// registers the implementations available in the process and hands out
// devices that also own render targets.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// Both built-in backends are registered on import:
//
//	import "github.com/gogpu/fbstencil/backend"
//
// # Backend Selection
//
// Use InitDefault() to get the best backend that initializes, or Get()
// to request a specific backend by name:
//
//	b, err := backend.InitDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	dev, err := b.NewDevice()
//
// # Sharing a GPU
//
// A host that already owns a gogpu device passes it through
// SetDeviceProvider before Init; native devices then record into the
// host's queue.
//
// # Available Backends
//
// - "software": CPU rasterizer with stencil readback (always available)
// - "native": gogpu/wgpu HAL; needs a provider or a registered HAL backend
package backend
