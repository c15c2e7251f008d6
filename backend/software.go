package backend

import (
	"sync"

	"github.com/gogpu/fbstencil/backend/software"
)

// Backend name constants.
const (
	// BackendSoftware is the name of the CPU rasterizer backend.
	BackendSoftware = "software"
	// BackendNative is the name of the Pure Go GPU backend (gogpu/wgpu).
	BackendNative = "native"
)

// SoftwareBackend is a CPU-based backend. Its devices also implement
// gpucore.StencilReader.
type SoftwareBackend struct {
	mu          sync.Mutex
	initialized bool
	devices     int
}

// init registers the software backend on package import.
func init() {
	Register(BackendSoftware, func() RenderBackend {
		return &SoftwareBackend{}
	})
}

// NewSoftwareBackend creates a new software rendering backend.
func NewSoftwareBackend() *SoftwareBackend {
	return &SoftwareBackend{}
}

// Name returns the backend identifier.
func (b *SoftwareBackend) Name() string {
	return BackendSoftware
}

// Init initializes the backend.
func (b *SoftwareBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = true
	return nil
}

// Close releases all backend resources.
func (b *SoftwareBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices = 0
	b.initialized = false
}

// NewDevice creates a software device.
func (b *SoftwareBackend) NewDevice() (Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return nil, ErrNotInitialized
	}
	b.devices++
	return software.NewDevice(), nil
}

// Devices returns the number of devices created since Init.
func (b *SoftwareBackend) Devices() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.devices
}
