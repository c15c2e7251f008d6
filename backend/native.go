package backend

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fbstencil/backend/native"
)

var (
	providerMu sync.RWMutex
	provider   gpucontext.DeviceProvider
)

// SetDeviceProvider makes native backends share the GPU of a host
// application instead of opening their own. Pass nil to go back to
// opening a device from the registered HAL backends.
func SetDeviceProvider(p gpucontext.DeviceProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	provider = p
}

func deviceProvider() gpucontext.DeviceProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider
}

// NativeBackend renders through gogpu/wgpu HAL. Without a device
// provider it opens the best HAL backend registered in the process.
type NativeBackend struct {
	mu       sync.Mutex
	provider gpucontext.DeviceProvider
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	devices  []*native.Device
}

func init() {
	Register(BackendNative, func() RenderBackend {
		return &NativeBackend{}
	})
}

// NewNativeBackend creates a GPU backend. A nil provider falls back to
// the one set by SetDeviceProvider.
func NewNativeBackend(p gpucontext.DeviceProvider) *NativeBackend {
	return &NativeBackend{provider: p}
}

// Name returns the backend identifier.
func (b *NativeBackend) Name() string {
	return BackendNative
}

// Init resolves the GPU to render on.
func (b *NativeBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device != nil || b.provider != nil {
		return nil
	}
	if p := deviceProvider(); p != nil {
		b.provider = p
		return nil
	}
	return b.openHAL()
}

// openHAL opens a device on the first discrete or integrated adapter of
// the best registered HAL backend.
func (b *NativeBackend) openHAL() error {
	halBackend, err := hal.SelectBestBackend()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBackendNotAvailable, BackendNative, err)
	}
	instance, err := halBackend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return fmt.Errorf("%w: %s: no GPU adapters found", ErrBackendNotAvailable, BackendNative)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("open device: %w", err)
	}
	b.instance = instance
	b.device = openDev.Device
	b.queue = openDev.Queue
	return nil
}

// Close releases every device and, when the backend opened it, the GPU.
func (b *NativeBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.devices {
		d.Release()
	}
	b.devices = nil
	if b.device != nil {
		b.device.Destroy()
		b.device, b.queue = nil, nil
	}
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}
}

// NewDevice creates a device on the backend's GPU.
func (b *NativeBackend) NewDevice() (Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var (
		d   *native.Device
		err error
	)
	switch {
	case b.provider != nil:
		d, err = native.NewFromProvider(b.provider)
	case b.device != nil:
		d, err = native.New(b.device, b.queue)
	default:
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	b.devices = append(b.devices, d)
	return d, nil
}
