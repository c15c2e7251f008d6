package fbstencil

import (
	"encoding/binary"
	"fmt"
)

// PixelFormat is the packed pixel layout of a source framebuffer.
type PixelFormat uint8

// Pixel formats. Channel names read from the least significant bits up.
const (
	// FormatInvalid is the zero value and never carries stencil.
	FormatInvalid PixelFormat = iota
	// Format565 is 16-bit RGB with no alpha channel.
	Format565
	// Format5551 is 16-bit RGBA with a 1-bit alpha in bit 15.
	Format5551
	// Format4444 is 16-bit RGBA with a 4-bit alpha in bits 12-15.
	Format4444
	// Format8888 is 32-bit RGBA with an 8-bit alpha in the top byte.
	Format8888
)

// String returns the format name.
func (f PixelFormat) String() string {
	switch f {
	case Format565:
		return "565"
	case Format5551:
		return "5551"
	case Format4444:
		return "4444"
	case Format8888:
		return "8888"
	case FormatInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("PixelFormat(%d)", uint8(f))
	}
}

// ParsePixelFormat parses the names produced by String.
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch s {
	case "565":
		return Format565, nil
	case "5551":
		return Format5551, nil
	case "4444":
		return Format4444, nil
	case "8888":
		return Format8888, nil
	}
	return FormatInvalid, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// BytesPerPixel returns the pixel size, or 0 for FormatInvalid.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case Format565, Format5551, Format4444:
		return 2
	case Format8888:
		return 4
	default:
		return 0
	}
}

// StencilBits returns the width of the stencil channel carried in alpha.
func (f PixelFormat) StencilBits() int {
	if l := layoutOf(f); l != nil {
		return l.bits()
	}
	return 0
}

// HasStencil reports whether the format carries a stencil channel.
func (f PixelFormat) HasStencil() bool { return layoutOf(f) != nil }

// StencilOf returns the host stencil value that reconstruction leaves for
// the pixel starting at px. It reports false for formats without stencil
// or when px is shorter than one pixel.
func (f PixelFormat) StencilOf(px []byte) (uint8, bool) {
	l := layoutOf(f)
	if l == nil || len(px) < f.BytesPerPixel() {
		return 0, false
	}
	return l.stencilOf(px), true
}

// stencilLayout is the per-format capability set used by scanning,
// texture upload and bit-plane reconstruction.
type stencilLayout interface {
	// bits is the stencil channel width.
	bits() int
	// scan returns the used-bits mask over n 32-bit words.
	scan(src []byte, words int) uint8
	// maskAndValue returns the stencil write mask and reference value
	// for the bit-plane whose value is bit.
	maskAndValue(bit int) (mask, ref uint8)
	// stencilOf is the reconstructed host stencil value of one pixel.
	stencilOf(px []byte) uint8
	// toRGBA8 expands one pixel into dst[0:4].
	toRGBA8(dst, px []byte)
}

var (
	layout5551Impl stencilLayout = layout5551{}
	layout4444Impl stencilLayout = layout4444{}
	layout8888Impl stencilLayout = layout8888{}
)

func layoutOf(f PixelFormat) stencilLayout {
	switch f {
	case Format5551:
		return layout5551Impl
	case Format4444:
		return layout4444Impl
	case Format8888:
		return layout8888Impl
	default:
		return nil
	}
}

type layout5551 struct{}

func (layout5551) bits() int { return 1 }

func (layout5551) scan(src []byte, words int) uint8 {
	for i := 0; i < words; i++ {
		if binary.LittleEndian.Uint32(src[i*4:])&0x80008000 != 0 {
			return 1
		}
	}
	return 0
}

func (layout5551) maskAndValue(bit int) (uint8, uint8) {
	return 0xFF, uint8(bit * 128)
}

func (layout5551) stencilOf(px []byte) uint8 {
	if px[1]&0x80 != 0 {
		return 0x80
	}
	return 0
}

func (layout5551) toRGBA8(dst, px []byte) {
	v := binary.LittleEndian.Uint16(px)
	dst[0] = expand5(uint8(v & 0x1F))
	dst[1] = expand5(uint8(v >> 5 & 0x1F))
	dst[2] = expand5(uint8(v >> 10 & 0x1F))
	if v&0x8000 != 0 {
		dst[3] = 0xFF
	} else {
		dst[3] = 0
	}
}

type layout4444 struct{}

func (layout4444) bits() int { return 4 }

func (layout4444) scan(src []byte, words int) uint8 {
	var bits uint32
	for i := 0; i < words; i++ {
		bits |= binary.LittleEndian.Uint32(src[i*4:])
	}
	return uint8((bits>>12)&0xF | bits>>28)
}

func (layout4444) maskAndValue(bit int) (uint8, uint8) {
	return uint8(bit | bit<<4), uint8(bit * 16)
}

func (layout4444) stencilOf(px []byte) uint8 {
	return px[1] & 0xF0
}

func (layout4444) toRGBA8(dst, px []byte) {
	dst[0] = (px[0] & 0xF) * 17
	dst[1] = (px[0] >> 4) * 17
	dst[2] = (px[1] & 0xF) * 17
	dst[3] = (px[1] >> 4) * 17
}

type layout8888 struct{}

func (layout8888) bits() int { return 8 }

func (layout8888) scan(src []byte, words int) uint8 {
	var bits uint32
	for i := 0; i < words; i++ {
		bits |= binary.LittleEndian.Uint32(src[i*4:])
	}
	return uint8(bits >> 24)
}

func (layout8888) maskAndValue(bit int) (uint8, uint8) {
	return uint8(bit), uint8(bit)
}

func (layout8888) stencilOf(px []byte) uint8 { return px[3] }

func (layout8888) toRGBA8(dst, px []byte) { copy(dst[:4], px[:4]) }

// expand5 widens a 5-bit channel to 8 bits by bit replication.
func expand5(v uint8) uint8 { return v<<3 | v>>2 }

// convertToRGBA8 expands a width×height window of packed rows, stride
// pixels apart, into a tightly packed RGBA8 buffer.
func convertToRGBA8(l stencilLayout, bpp int, src []byte, stride, width, height int) []byte {
	out := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		row := src[y*stride*bpp:]
		dst := out[y*width*4:]
		for x := 0; x < width; x++ {
			l.toRGBA8(dst[x*4:], row[x*bpp:])
		}
	}
	return out
}
