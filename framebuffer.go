package fbstencil

import "github.com/gogpu/fbstencil/gpucore"

// DefaultAddressMask keeps the low 26 bits of an address, folding the
// mirrored views of video memory onto one another.
const DefaultAddressMask uint32 = 0x03FFFFFF

// VirtualFramebuffer is a framebuffer living in emulated memory together
// with the host render target that shadows it.
type VirtualFramebuffer struct {
	// Address is the start of the pixel data in emulated memory.
	Address uint32
	// Stride is the row pitch in pixels.
	Stride int
	// Width and Height are the logical size in pixels.
	Width, Height int
	// RenderWidth and RenderHeight are the host render target size.
	RenderWidth, RenderHeight int
	// Format is the packed pixel layout.
	Format PixelFormat
	// Target is the host render target, or InvalidID when none exists.
	Target gpucore.RenderTargetID
}

// NumPixels returns stride × height, the extent scanned for stencil.
func (vfb *VirtualFramebuffer) NumPixels() int {
	return vfb.Stride * vfb.Height
}

// SizeBytes returns the byte size of the scanned extent.
func (vfb *VirtualFramebuffer) SizeBytes() int {
	return vfb.NumPixels() * vfb.Format.BytesPerPixel()
}

// validGeometry reports whether the logical size, stride and render size
// are all positive.
func (vfb *VirtualFramebuffer) validGeometry() bool {
	return vfb.Width > 0 && vfb.Height > 0 && vfb.Stride > 0 &&
		vfb.RenderWidth > 0 && vfb.RenderHeight > 0
}

// FramebufferLookup resolves an address to the framebuffer stored there.
type FramebufferLookup interface {
	// Lookup returns the framebuffer whose start address matches addr, or
	// nil.
	Lookup(addr uint32) *VirtualFramebuffer
}

// MaskedEqual compares two addresses on the bits kept by mask.
func MaskedEqual(a, b, mask uint32) bool {
	return (a^b)&mask == 0
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithAddressMask sets the bits compared when matching addresses.
func WithAddressMask(mask uint32) TrackerOption {
	return func(t *Tracker) {
		t.mask = mask
	}
}

// Tracker is a FramebufferLookup over a list of framebuffers. When several
// framebuffers share a start address, the most recently added wins.
//
// Tracker is not safe for concurrent use.
type Tracker struct {
	mask uint32
	fbs  []*VirtualFramebuffer
}

// NewTracker returns an empty tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{mask: DefaultAddressMask}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Add starts tracking vfb.
func (t *Tracker) Add(vfb *VirtualFramebuffer) {
	t.fbs = append(t.fbs, vfb)
}

// Remove stops tracking vfb. It reports whether vfb was tracked.
func (t *Tracker) Remove(vfb *VirtualFramebuffer) bool {
	for i, fb := range t.fbs {
		if fb == vfb {
			t.fbs = append(t.fbs[:i], t.fbs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of tracked framebuffers.
func (t *Tracker) Len() int { return len(t.fbs) }

// MayIntersect reports whether addr falls inside the address range spanned
// by any tracked framebuffer. It is a cheap filter ahead of Lookup.
func (t *Tracker) MayIntersect(addr uint32) bool {
	a := uint64(addr & t.mask)
	for _, fb := range t.fbs {
		start := uint64(fb.Address & t.mask)
		end := start + uint64(fb.SizeBytes())
		if a >= start && a < end {
			return true
		}
	}
	return false
}

// Lookup implements FramebufferLookup.
func (t *Tracker) Lookup(addr uint32) *VirtualFramebuffer {
	if !t.MayIntersect(addr) {
		return nil
	}
	var match *VirtualFramebuffer
	for _, fb := range t.fbs {
		if MaskedEqual(fb.Address, addr, t.mask) {
			match = fb
		}
	}
	return match
}
