package fbstencil

import "github.com/gogpu/fbstencil/gpucore"

// RenderTargetScope remembers the render target bound on a device so it
// can be restored after temporary rebinding.
//
//	scope := fbstencil.SaveRenderTarget(dev)
//	defer scope.Restore()
//	r.NotifyStencilUpload(addr, size, false)
type RenderTargetScope struct {
	device   gpucore.Device
	previous gpucore.RenderTargetID
	done     bool
}

// SaveRenderTarget captures the render target currently bound on device.
func SaveRenderTarget(device gpucore.Device) *RenderTargetScope {
	return &RenderTargetScope{device: device, previous: device.RenderTarget()}
}

// Previous returns the captured render target.
func (s *RenderTargetScope) Previous() gpucore.RenderTargetID { return s.previous }

// Restore rebinds the captured render target. Only the first call has an
// effect.
func (s *RenderTargetScope) Restore() error {
	if s.done {
		return nil
	}
	s.done = true
	if s.device.RenderTarget() == s.previous {
		return nil
	}
	return s.device.BindRenderTarget(s.previous)
}
