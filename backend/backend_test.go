package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"testing"
	"weak"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	_ "github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/fbstencil"
	"github.com/gogpu/fbstencil/backend/software"
	"github.com/gogpu/fbstencil/gpucore"
)

func TestSoftwareBackendName(t *testing.T) {
	b := NewSoftwareBackend()
	if b.Name() != "software" {
		t.Errorf("Name() = %q, want %q", b.Name(), "software")
	}
}

func TestSoftwareBackendInit(t *testing.T) {
	b := NewSoftwareBackend()
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	b.Close()
}

func TestSoftwareBackendNewDeviceBeforeInit(t *testing.T) {
	b := NewSoftwareBackend()
	if _, err := b.NewDevice(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("NewDevice() before Init error = %v, want ErrNotInitialized", err)
	}
}

func TestSoftwareBackendNewDevice(t *testing.T) {
	b := NewSoftwareBackend()
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer b.Close()

	dev, err := b.NewDevice()
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	if _, ok := dev.(gpucore.StencilReader); !ok {
		t.Error("software device should read stencil back")
	}
	rt, err := dev.CreateRenderTarget(4, 4)
	if err != nil {
		t.Fatalf("CreateRenderTarget() error = %v", err)
	}
	if err := dev.BindRenderTarget(rt); err != nil {
		t.Fatalf("BindRenderTarget() error = %v", err)
	}
	if err := dev.Clear(gpucore.ClearColor, [4]float32{1, 0, 0, 1}, 0, 0); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	px, err := dev.ReadColor(rt)
	if err != nil {
		t.Fatalf("ReadColor() error = %v", err)
	}
	if px[0] != 0xFF || px[1] != 0 || px[3] != 0xFF {
		t.Errorf("first pixel = %v, want opaque red", px[:4])
	}
	if b.Devices() != 1 {
		t.Errorf("Devices() = %d, want 1", b.Devices())
	}
}

func TestSoftwareBackendClose(t *testing.T) {
	b := NewSoftwareBackend()
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := b.NewDevice(); err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	b.Close()
	if b.Devices() != 0 {
		t.Errorf("Devices() after Close = %d, want 0", b.Devices())
	}
	if _, err := b.NewDevice(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("NewDevice() after Close error = %v, want ErrNotInitialized", err)
	}
}

func TestSoftwareBackendDoesNotRetainDevices(t *testing.T) {
	b := NewSoftwareBackend()
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer b.Close()

	dev, err := b.NewDevice()
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	w := weak.Make(dev.(*software.Device))
	dev = nil

	for i := 0; i < 5 && w.Value() != nil; i++ {
		runtime.GC()
	}
	if w.Value() != nil {
		t.Error("device still reachable after the caller dropped it")
	}
	if b.Devices() != 1 {
		t.Errorf("Devices() = %d, want 1", b.Devices())
	}
}

func TestNativeBackendOpensHAL(t *testing.T) {
	// The noop HAL backend is registered by the blank import above.
	b := NewNativeBackend(nil)
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer b.Close()

	dev, err := b.NewDevice()
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	rt, err := dev.CreateRenderTarget(8, 8)
	if err != nil {
		t.Fatalf("CreateRenderTarget() error = %v", err)
	}
	if err := dev.BindRenderTarget(rt); err != nil {
		t.Fatalf("BindRenderTarget() error = %v", err)
	}
	if err := dev.DrawStencilClear(gpucore.ColorWriteAlpha, 0); err != nil {
		t.Fatalf("DrawStencilClear() error = %v", err)
	}
	if err := dev.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestNativeBackendNewDeviceBeforeInit(t *testing.T) {
	b := NewNativeBackend(nil)
	if _, err := b.NewDevice(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("NewDevice() before Init error = %v, want ErrNotInitialized", err)
	}
}

type testProvider struct{}

func (testProvider) Device() gpucontext.Device             { return nil }
func (testProvider) Queue() gpucontext.Queue               { return nil }
func (testProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (testProvider) Adapter() gpucontext.Adapter           { return nil }
func (testProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }

func TestNativeBackendUsesDeviceProvider(t *testing.T) {
	SetDeviceProvider(testProvider{})
	t.Cleanup(func() { SetDeviceProvider(nil) })

	b := NewNativeBackend(nil)
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer b.Close()
	// testProvider exposes no HAL device.
	if _, err := b.NewDevice(); err == nil {
		t.Error("NewDevice() with a non-HAL provider should fail")
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	// Both backends are auto-registered via init()
	for _, name := range []string{BackendSoftware, BackendNative} {
		if !IsRegistered(name) {
			t.Errorf("%s backend should be auto-registered", name)
		}
		b := Get(name)
		if b == nil {
			t.Fatalf("Get(%s) returned nil", name)
		}
		if b.Name() != name {
			t.Errorf("Get(%s).Name() = %q", name, b.Name())
		}
	}
}

func TestRegistryGetUnregistered(t *testing.T) {
	b := Get("nonexistent")
	if b != nil {
		t.Error("Get(nonexistent) should return nil")
	}
}

func TestRegistryAvailable(t *testing.T) {
	available := Available()
	if !slices.Contains(available, "software") {
		t.Error("Available() should include 'software'")
	}
}

func TestRegistryDefault(t *testing.T) {
	b := Default()
	if b == nil {
		t.Fatal("Default() returned nil")
	}
	if b.Name() != BackendNative {
		t.Errorf("Default() = %q, want %q by priority", b.Name(), BackendNative)
	}
}

func TestRegistryMustDefault(t *testing.T) {
	// Should not panic when software backend is available
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustDefault() panicked: %v", r)
		}
	}()
	b := MustDefault()
	if b == nil {
		t.Error("MustDefault() returned nil")
	}
}

func TestRegistryInitDefault(t *testing.T) {
	b, err := InitDefault()
	if err != nil {
		t.Fatalf("InitDefault() error = %v", err)
	}
	if b == nil {
		t.Fatal("InitDefault() returned nil backend")
	}
	defer b.Close()

	// Verify it's initialized by using it
	if _, err := b.NewDevice(); err != nil {
		t.Errorf("Backend from InitDefault() should be usable: %v", err)
	}
}

type failingBackend struct{ SoftwareBackend }

func (*failingBackend) Name() string { return "failing" }
func (*failingBackend) Init() error  { return errors.New("no device") }

func TestRegistryInitDefaultFallsThrough(t *testing.T) {
	Register(BackendNative, func() RenderBackend { return &failingBackend{} })
	t.Cleanup(func() {
		Register(BackendNative, func() RenderBackend { return &NativeBackend{} })
	})

	b, err := InitDefault()
	if err != nil {
		t.Fatalf("InitDefault() error = %v", err)
	}
	defer b.Close()
	if b.Name() != BackendSoftware {
		t.Errorf("InitDefault() = %q, want fallback to software", b.Name())
	}
}

func TestRegistryInitDefaultNothingWorks(t *testing.T) {
	Register(BackendNative, func() RenderBackend { return &failingBackend{} })
	Register(BackendSoftware, func() RenderBackend { return &failingBackend{} })
	t.Cleanup(func() {
		Register(BackendNative, func() RenderBackend { return &NativeBackend{} })
		Register(BackendSoftware, func() RenderBackend { return &SoftwareBackend{} })
	})

	if _, err := InitDefault(); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("InitDefault() error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegistryUnregister(t *testing.T) {
	// Register a test backend
	testFactory := func() RenderBackend {
		return &SoftwareBackend{}
	}
	Register("test-backend", testFactory)

	if !IsRegistered("test-backend") {
		t.Error("test-backend should be registered")
	}

	Unregister("test-backend")

	if IsRegistered("test-backend") {
		t.Error("test-backend should be unregistered")
	}
}

func TestRegistryIsRegistered(t *testing.T) {
	if !IsRegistered("software") {
		t.Error("software should be registered")
	}
	if IsRegistered("nonexistent") {
		t.Error("nonexistent should not be registered")
	}
}

func TestSetLoggerPropagates(t *testing.T) {
	orig := fbstencil.Logger()
	t.Cleanup(func() { SetLogger(orig) })

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	SetLogger(l)
	if fbstencil.Logger() != l {
		t.Error("fbstencil logger not set")
	}
	SetLogger(nil)
	if fbstencil.Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should silence fbstencil")
	}
}
