package fbstencil

import "fmt"

// UsedBits returns the bit-planes of the stencil channel that are nonzero
// in at least one of the first numPixels pixels of src. Bits above the
// format's stencil width are always zero.
//
// The scan reads 32-bit little-endian words. For 16-bit formats with an
// odd pixel count the last pixel is zero-extended into a final word. 5551
// stops at the first word with a set alpha bit.
func UsedBits(format PixelFormat, src []byte, numPixels int) (uint8, error) {
	l := layoutOf(format)
	if l == nil {
		return 0, fmt.Errorf("used bits of %s: %w", format, ErrUnsupportedFormat)
	}
	if numPixels < 0 {
		return 0, fmt.Errorf("used bits: negative pixel count %d: %w", numPixels, ErrShortSource)
	}
	n := numPixels * format.BytesPerPixel()
	if len(src) < n {
		return 0, fmt.Errorf("used bits of %s: have %d bytes, need %d: %w",
			format, len(src), n, ErrShortSource)
	}
	words := n / 4
	used := l.scan(src, words)
	if tail := src[words*4 : n]; len(tail) > 0 {
		var last [4]byte
		copy(last[:], tail)
		used |= l.scan(last[:], 1)
	}
	return used, nil
}
