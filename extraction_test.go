package fbstencil

import (
	"math"
	"strings"
	"testing"
)

func TestExtractBitFragment(t *testing.T) {
	// Every alpha byte against every bit-plane value used by 8888.
	for a := 0; a < 256; a++ {
		texel := [4]float32{0.25, 0.5, 0.75, float32(a) / 255}
		for bit := 1; bit < 256; bit <<= 1 {
			out, keep := extractBitFragment(texel, [4]float32{float32(bit) / 255})
			want := a&bit != 0
			if keep != want {
				t.Fatalf("alpha %#02x bit %#02x: keep = %v, want %v", a, bit, keep, want)
			}
			if keep && out != [4]float32{texel[3], texel[3], texel[3], texel[3]} {
				t.Fatalf("alpha %#02x: out = %v, want alpha splat", a, out)
			}
		}
	}
}

func TestExtractBitFragment4444(t *testing.T) {
	l := layoutOf(Format4444)
	for n := 0; n < 16; n++ {
		var rgba [4]byte
		l.toRGBA8(rgba[:], []byte{0, byte(n << 4)})
		texel := [4]float32{0, 0, 0, float32(rgba[3]) / 255}
		for bit := 1; bit < 16; bit <<= 1 {
			_, ref := l.maskAndValue(bit)
			_, keep := extractBitFragment(texel, [4]float32{float32(ref) / 255})
			if want := n&bit != 0; keep != want {
				t.Errorf("nibble %#x bit %d: keep = %v, want %v", n, bit, keep, want)
			}
		}
	}
}

func TestExtractBitFragment5551(t *testing.T) {
	l := layoutOf(Format5551)
	_, ref := l.maskAndValue(1)
	for _, tc := range []struct {
		alpha float32
		want  bool
	}{{0, false}, {1, true}} {
		_, keep := extractBitFragment([4]float32{0, 0, 0, tc.alpha}, [4]float32{float32(ref) / 255})
		if keep != tc.want {
			t.Errorf("alpha %v: keep = %v, want %v", tc.alpha, keep, tc.want)
		}
	}
}

func TestMaskAndValue(t *testing.T) {
	tests := []struct {
		format   PixelFormat
		bit      int
		mask     uint8
		refValue uint8
	}{
		{Format4444, 1, 0x11, 0x10},
		{Format4444, 8, 0x88, 0x80},
		{Format5551, 1, 0xFF, 0x80},
		{Format8888, 1, 0x01, 0x01},
		{Format8888, 0x80, 0x80, 0x80},
	}
	for _, tt := range tests {
		mask, ref := layoutOf(tt.format).maskAndValue(tt.bit)
		if mask != tt.mask || ref != tt.refValue {
			t.Errorf("%s bit %d = (%#02x, %#02x), want (%#02x, %#02x)",
				tt.format, tt.bit, mask, ref, tt.mask, tt.refValue)
		}
	}
}

func TestBuildQuad(t *testing.T) {
	q := buildQuad(480, 272)
	want := [4][4]float32{
		{-1, 1, 0, 0},
		{1, 1, 1, 0},
		{1, -1, 1, 1},
		{-1, -1, 0, 1},
	}
	for i, v := range q {
		got := [4]float32{v.X, v.Y, v.U, v.V}
		for c := range got {
			if math.Abs(float64(got[c]-want[i][c])) > 1e-6 {
				t.Errorf("corner %d = %v, want %v", i, got, want[i])
				break
			}
		}
	}
}

func TestEmbeddedProgram(t *testing.T) {
	for _, s := range []string{"fn vs_main", "fn fs_main", "discard", "255.99"} {
		if !strings.Contains(extractionWGSL, s) {
			t.Errorf("embedded WGSL lacks %q", s)
		}
	}
	desc := extractionProgramDesc(extractionWGSL)
	if desc.VertexEntry != "vs_main" || desc.FragmentEntry != "fs_main" || desc.Fragment == nil {
		t.Errorf("program desc = %+v", desc)
	}
}
