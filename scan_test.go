package fbstencil

import (
	"encoding/binary"
	"errors"
	"testing"
)

func put16(buf []byte, i int, v uint16) { binary.LittleEndian.PutUint16(buf[i*2:], v) }
func put32(buf []byte, i int, v uint32) { binary.LittleEndian.PutUint32(buf[i*4:], v) }

func TestUsedBits8888(t *testing.T) {
	tests := []struct {
		name   string
		pixels []uint32
		want   uint8
	}{
		{"all zero alpha", []uint32{0x00FFFFFF, 0x00123456, 0x00000000, 0x00ABCDEF}, 0},
		{"one 0x40", []uint32{0x00FFFFFF, 0x40000000, 0x00FFFFFF, 0x00000000}, 0x40},
		{"0x40 with others", []uint32{0x01000000, 0x40FFFFFF, 0x80000000, 0x04000000}, 0xC5},
		{"full", []uint32{0xFF000000}, 0xFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, len(tt.pixels)*4)
			for i, p := range tt.pixels {
				put32(buf, i, p)
			}
			got, err := UsedBits(Format8888, buf, len(tt.pixels))
			if err != nil {
				t.Fatalf("UsedBits() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("UsedBits() = %#02x, want %#02x", got, tt.want)
			}
		})
	}
}

func TestUsedBits5551(t *testing.T) {
	const n = 64
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		put16(buf, i, 0x7FFF)
	}
	got, err := UsedBits(Format5551, buf, n)
	if err != nil {
		t.Fatalf("UsedBits() error = %v", err)
	}
	if got != 0 {
		t.Errorf("UsedBits(no alpha) = %d, want 0", got)
	}

	// The early exit must still find a bit placed in the last word, in
	// either half.
	for _, last := range []int{n - 2, n - 1} {
		b := append([]byte(nil), buf...)
		put16(b, last, 0x8000)
		got, err := UsedBits(Format5551, b, n)
		if err != nil {
			t.Fatalf("UsedBits() error = %v", err)
		}
		if got != 1 {
			t.Errorf("UsedBits(alpha at pixel %d) = %d, want 1", last, got)
		}
	}
}

func TestUsedBits4444(t *testing.T) {
	buf := make([]byte, 8)
	put16(buf, 0, 0x1ABC) // nibble 0001
	put16(buf, 1, 0x0FFF)
	put16(buf, 2, 0x2000) // nibble 0010
	put16(buf, 3, 0x0123)
	got, err := UsedBits(Format4444, buf, 4)
	if err != nil {
		t.Fatalf("UsedBits() error = %v", err)
	}
	if got != 0x3 {
		t.Errorf("UsedBits() = %#b, want 0b11", got)
	}
}

func TestUsedBitsNeverExceedsWidth(t *testing.T) {
	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = 0xFF
	}
	for _, f := range []PixelFormat{Format5551, Format4444, Format8888} {
		got, err := UsedBits(f, buf, len(buf)/f.BytesPerPixel())
		if err != nil {
			t.Fatalf("UsedBits(%s) error = %v", f, err)
		}
		want := uint8(1<<f.StencilBits() - 1)
		if got != want {
			t.Errorf("UsedBits(%s, all ones) = %#02x, want %#02x", f, got, want)
		}
	}
}

func TestUsedBitsScansPadding(t *testing.T) {
	// stride 4, width 2, height 2: alpha only in the padding column.
	buf := make([]byte, 4*2*4)
	put32(buf, 7, 0x10000000)
	got, err := UsedBits(Format8888, buf, 8)
	if err != nil {
		t.Fatalf("UsedBits() error = %v", err)
	}
	if got != 0x10 {
		t.Errorf("UsedBits() = %#02x, want 0x10", got)
	}
}

func TestUsedBitsOddPixelCount(t *testing.T) {
	// 5x3 pixels: the last one sits alone in the upper half of no word.
	tests := []struct {
		format PixelFormat
		last   uint16
		want   uint8
	}{
		{Format5551, 0x8000, 1},
		{Format4444, 0x4000, 0x4},
		{Format4444, 0xF000, 0xF},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			buf := make([]byte, 15*2)
			put16(buf, 14, tt.last)
			got, err := UsedBits(tt.format, buf, 15)
			if err != nil {
				t.Fatalf("UsedBits() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("UsedBits(last pixel %#04x) = %#02x, want %#02x", tt.last, got, tt.want)
			}
		})
	}
}

func TestUsedBitsErrors(t *testing.T) {
	tests := []struct {
		name    string
		format  PixelFormat
		src     []byte
		n       int
		wantErr error
	}{
		{"565", Format565, make([]byte, 8), 4, ErrUnsupportedFormat},
		{"invalid", FormatInvalid, make([]byte, 8), 4, ErrUnsupportedFormat},
		{"short 8888", Format8888, make([]byte, 12), 4, ErrShortSource},
		{"short 4444", Format4444, make([]byte, 6), 4, ErrShortSource},
		{"short odd 5551", Format5551, make([]byte, 28), 15, ErrShortSource},
		{"negative", Format8888, nil, -1, ErrShortSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UsedBits(tt.format, tt.src, tt.n)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("UsedBits() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUsedBitsEmpty(t *testing.T) {
	got, err := UsedBits(Format8888, nil, 0)
	if err != nil || got != 0 {
		t.Errorf("UsedBits(empty) = %d, %v; want 0, nil", got, err)
	}
}
