// Package format defines the RHI pixel format enumeration: a DXGI-style
// superset format list shared by textures, render targets and swapchain
// surfaces, along with the small set of predicates (HDR-ness, block size,
// depth/stencil-ness) the rest of the RHI needs to make layout decisions.
package format

// Format identifies a pixel format.
type Format uint32

const (
	Undefined Format = iota

	// 8-bit
	R8Unorm
	R8Snorm
	R8Uint
	R8Sint

	// 16-bit
	R16Uint
	R16Sint
	R16Float
	RG8Unorm
	RG8Snorm
	RG8Uint
	RG8Sint

	// 32-bit
	R32Uint
	R32Sint
	R32Float
	RG16Uint
	RG16Sint
	RG16Float
	RGBA8Unorm
	RGBA8UnormSrgb
	RGBA8Snorm
	RGBA8Uint
	RGBA8Sint
	BGRA8Unorm
	BGRA8UnormSrgb

	// Packed HDR-capable formats
	RGB9E5Ufloat
	RGB10A2Uint
	RGB10A2Unorm
	RG11B10Ufloat

	// 64-bit
	RG32Uint
	RG32Sint
	RG32Float
	RGBA16Uint
	RGBA16Sint
	RGBA16Float

	// 128-bit
	RGBA32Uint
	RGBA32Sint
	RGBA32Float

	// Depth/stencil
	Stencil8
	Depth16Unorm
	Depth24Plus
	Depth24PlusStencil8
	Depth32Float
	Depth32FloatStencil8

	// BC compressed
	BC1RGBAUnorm
	BC1RGBAUnormSrgb
	BC2RGBAUnorm
	BC2RGBAUnormSrgb
	BC3RGBAUnorm
	BC3RGBAUnormSrgb
	BC4RUnorm
	BC4RSnorm
	BC5RGUnorm
	BC5RGSnorm
	BC6HRGBUfloat
	BC6HRGBFloat
	BC7RGBAUnorm
	BC7RGBAUnormSrgb

	// ETC2/EAC compressed
	ETC2RGB8Unorm
	ETC2RGB8UnormSrgb
	ETC2RGB8A1Unorm
	ETC2RGB8A1UnormSrgb
	ETC2RGBA8Unorm
	ETC2RGBA8UnormSrgb
	EACR11Unorm
	EACR11Snorm
	EACRG11Unorm
	EACRG11Snorm

	// ASTC compressed
	ASTC4x4Unorm
	ASTC4x4UnormSrgb
	ASTC8x8Unorm
	ASTC8x8UnormSrgb
)

var hdrFormats = map[Format]bool{
	R16Float:       true,
	RG16Float:      true,
	RGBA16Float:    true,
	R32Float:       true,
	RG32Float:      true,
	RGBA32Float:    true,
	RGB9E5Ufloat:   true,
	RG11B10Ufloat:  true,
	BC6HRGBUfloat:  true,
	BC6HRGBFloat:   true,
}

var depthStencilFormats = map[Format]bool{
	Stencil8:              true,
	Depth16Unorm:          true,
	Depth24Plus:           true,
	Depth24PlusStencil8:   true,
	Depth32Float:          true,
	Depth32FloatStencil8:  true,
}

var srgbFormats = map[Format]bool{
	RGBA8UnormSrgb:    true,
	BGRA8UnormSrgb:    true,
	BC1RGBAUnormSrgb:  true,
	BC2RGBAUnormSrgb:  true,
	BC3RGBAUnormSrgb:  true,
	BC7RGBAUnormSrgb:  true,
	ETC2RGB8UnormSrgb: true,
	ETC2RGB8A1UnormSrgb: true,
	ETC2RGBA8UnormSrgb: true,
	ASTC4x4UnormSrgb:  true,
	ASTC8x8UnormSrgb:  true,
}

// IsHDR reports whether f stores values outside the [0,1] unorm range —
// floating-point and shared-exponent formats.
func (f Format) IsHDR() bool {
	return hdrFormats[f]
}

// IsDepthStencil reports whether f is a depth and/or stencil format,
// usable only as a depth-stencil attachment, never a color one.
func (f Format) IsDepthStencil() bool {
	return depthStencilFormats[f]
}

// IsSRGB reports whether f applies an sRGB transfer function on read/write.
func (f Format) IsSRGB() bool {
	return srgbFormats[f]
}
