package format

import "testing"

func TestLayoutInfo(t *testing.T) {
	cases := []struct {
		name   string
		format Format
		want   Info
	}{
		{"rgba8", RGBA8Unorm, Info{4, 1, 1}},
		{"rgba32f", RGBA32Float, Info{16, 1, 1}},
		{"bc1", BC1RGBAUnorm, Info{8, 4, 4}},
		{"bc7 srgb", BC7RGBAUnormSrgb, Info{16, 4, 4}},
		{"astc8x8", ASTC8x8Unorm, Info{16, 8, 8}},
		{"depth32", Depth32Float, Info{4, 1, 1}},
		{"undefined", Undefined, Info{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.format.LayoutInfo(); got != tc.want {
				t.Fatalf("LayoutInfo() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRowPitchRoundsUpToBlocks(t *testing.T) {
	// A 10-pixel row of BC1 needs three 4-pixel blocks at 8 bytes each.
	if got := BC1RGBAUnorm.RowPitch(10); got != 24 {
		t.Fatalf("RowPitch(10) = %d, want 24", got)
	}
	if got := RGBA8Unorm.RowPitch(10); got != 40 {
		t.Fatalf("RowPitch(10) = %d, want 40", got)
	}
}

func TestSubresourceSize(t *testing.T) {
	// 10x10 BC1: 3x3 blocks of 8 bytes.
	if got := BC1RGBAUnorm.SubresourceSize(10, 10); got != 72 {
		t.Fatalf("SubresourceSize(10,10) = %d, want 72", got)
	}
	if got := RGBA8Unorm.SubresourceSize(16, 16); got != 1024 {
		t.Fatalf("SubresourceSize(16,16) = %d, want 1024", got)
	}
}

func TestMipExtentClampsToOne(t *testing.T) {
	if got := MipExtent(256, 3); got != 32 {
		t.Fatalf("MipExtent(256, 3) = %d, want 32", got)
	}
	if got := MipExtent(4, 6); got != 1 {
		t.Fatalf("MipExtent(4, 6) = %d, want 1", got)
	}
}

func TestIsCompressed(t *testing.T) {
	if RGBA8Unorm.IsCompressed() {
		t.Fatalf("RGBA8Unorm reported compressed")
	}
	if !ETC2RGB8Unorm.IsCompressed() {
		t.Fatalf("ETC2RGB8Unorm reported uncompressed")
	}
}
