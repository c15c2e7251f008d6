// Package fbstencil rebuilds a GPU stencil buffer from a guest framebuffer
// whose pixels carry stencil in their alpha bits.
//
// # Overview
//
// Emulated consoles such as the PSP keep stencil in the alpha channel of the
// color framebuffer. When a guest writes such a framebuffer directly into
// video memory, the host GPU's real stencil plane no longer matches. A
// [Reconstructor] watches those uploads and re-creates the stencil values on
// the host render target, leaving color untouched.
//
// # Quick Start
//
//	tracker := fbstencil.NewTracker()
//	tracker.Add(&fbstencil.VirtualFramebuffer{
//		Address: 0x04000000, Stride: 512, Width: 480, Height: 272,
//		RenderWidth: 480, RenderHeight: 272,
//		Format: fbstencil.Format8888, Target: rt,
//	})
//
//	r, err := fbstencil.New(device, tracker, mem)
//	if err != nil {
//		return err
//	}
//	defer r.Release()
//
//	res := r.Notify(0x04000000, size, false)
//
// # Paths
//
// An upload whose stencil bits are all zero is handled by a single
// stencil-only clear draw. Otherwise one extraction draw runs per used
// bit-plane: the draw discards every fragment whose alpha lacks that bit,
// and the depth/stencil state replaces the surviving stencil samples with
// the plane's bit under a write mask limited to that bit.
//
// # Devices
//
// The reconstructor drives any [gpucore.Device]. The backend package
// provides a software device and a device on top of gogpu/wgpu's HAL.
//
// # Logging
//
// Logging goes through log/slog and is silent by default. See [SetLogger]
// and [WithLogger].
package fbstencil
