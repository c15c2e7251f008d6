package fbstencil

import (
	"testing"

	"github.com/gogpu/fbstencil/backend/software"
	"github.com/gogpu/fbstencil/gpucore"
)

func TestRenderTargetScopeRestores(t *testing.T) {
	dev := software.NewDevice()
	a, _ := dev.CreateRenderTarget(4, 4)
	b, _ := dev.CreateRenderTarget(4, 4)
	if err := dev.BindRenderTarget(a); err != nil {
		t.Fatal(err)
	}

	func() {
		scope := SaveRenderTarget(dev)
		defer scope.Restore()
		if scope.Previous() != a {
			t.Errorf("Previous() = %d, want %d", scope.Previous(), a)
		}
		if err := dev.BindRenderTarget(b); err != nil {
			t.Fatal(err)
		}
	}()

	if got := dev.RenderTarget(); got != a {
		t.Errorf("RenderTarget() after scope = %d, want %d", got, a)
	}
}

func TestRenderTargetScopeRestoresNone(t *testing.T) {
	dev := software.NewDevice()
	a, _ := dev.CreateRenderTarget(4, 4)

	scope := SaveRenderTarget(dev)
	if err := dev.BindRenderTarget(a); err != nil {
		t.Fatal(err)
	}
	if err := scope.Restore(); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if got := dev.RenderTarget(); got != gpucore.InvalidID {
		t.Errorf("RenderTarget() = %d, want none", got)
	}

	// Only the first Restore has an effect.
	if err := dev.BindRenderTarget(a); err != nil {
		t.Fatal(err)
	}
	if err := scope.Restore(); err != nil {
		t.Fatalf("second Restore() error = %v", err)
	}
	if got := dev.RenderTarget(); got != a {
		t.Errorf("RenderTarget() after second Restore = %d, want %d", got, a)
	}
}
