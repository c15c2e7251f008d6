package fbstencil

import (
	"errors"
	"testing"

	"github.com/gogpu/fbstencil/backend/software"
	"github.com/gogpu/fbstencil/gpucore"
	"github.com/gogpu/fbstencil/gpucore/gpucoretest"
)

func TestMaskStateCacheDedupes(t *testing.T) {
	rec := gpucoretest.NewRecorder(software.NewDevice())
	c := NewMaskStateCache(rec)

	a, err := c.GetOrCreate(0x0F)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	b, err := c.GetOrCreate(0x0F)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if a != b {
		t.Errorf("GetOrCreate twice = %d, %d; want same id", a, b)
	}
	if _, err := c.GetOrCreate(0xF0); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if n := rec.Count(gpucoretest.OpCreateDepthStencilState); n != 2 {
		t.Errorf("created %d states, want 2", n)
	}

	created := rec.Filter(gpucoretest.OpCreateDepthStencilState)[0].DepthStencil
	if created.StencilWriteMask != 0x0F || created.StencilReadMask != 0xFF {
		t.Errorf("masks = %#02x/%#02x, want write 0x0f read 0xff", created.StencilWriteMask, created.StencilReadMask)
	}
	if created.DepthEnable || !created.StencilEnable {
		t.Errorf("depth=%v stencil=%v, want depth off stencil on", created.DepthEnable, created.StencilEnable)
	}
	if created.StencilCompare != gpucore.CompareAlways ||
		created.StencilPassOp != gpucore.StencilOpReplace ||
		created.StencilFailOp != gpucore.StencilOpReplace ||
		created.StencilDepthFailOp != gpucore.StencilOpReplace {
		t.Errorf("stencil func = %+v, want always/replace", created)
	}
}

func TestMaskStateCacheFailureNotCached(t *testing.T) {
	rec := gpucoretest.NewRecorder(software.NewDevice())
	c := NewMaskStateCache(rec)
	boom := errors.New("boom")

	rec.FailOn(gpucoretest.OpCreateDepthStencilState, boom)
	if _, err := c.GetOrCreate(0x01); !errors.Is(err, boom) {
		t.Fatalf("GetOrCreate() error = %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after failure = %d, want 0", c.Len())
	}

	rec.FailOn(gpucoretest.OpCreateDepthStencilState, nil)
	if _, err := c.GetOrCreate(0x01); err != nil {
		t.Fatalf("GetOrCreate() retry error = %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestMaskStateCacheInvalidateAndRelease(t *testing.T) {
	rec := gpucoretest.NewRecorder(software.NewDevice())
	c := NewMaskStateCache(rec)
	for _, m := range []uint8{1, 2, 4} {
		if _, err := c.GetOrCreate(m); err != nil {
			t.Fatal(err)
		}
	}

	c.Invalidate()
	if c.Len() != 0 {
		t.Errorf("Len() after Invalidate = %d, want 0", c.Len())
	}
	if n := rec.Count(gpucoretest.OpDestroyDepthStencil); n != 0 {
		t.Errorf("Invalidate destroyed %d states, want 0", n)
	}

	if _, err := c.GetOrCreate(1); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrCreate(0xFF); err != nil {
		t.Fatal(err)
	}
	c.Release()
	if n := rec.Count(gpucoretest.OpDestroyDepthStencil); n != 2 {
		t.Errorf("Release destroyed %d states, want 2", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after Release = %d, want 0", c.Len())
	}
}
