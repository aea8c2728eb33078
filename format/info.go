package format

// Info describes a format's memory layout: the byte size of one block
// and the pixel footprint a block covers. Uncompressed formats are 1x1
// blocks; BC/ETC2/ASTC formats cover 4x4 (or 8x8 for ASTC8x8) pixels per
// block. Copy and upload code derives row pitches from this.
type Info struct {
	BytesPerBlock uint32
	BlockWidth    uint32
	BlockHeight   uint32
}

var infos = map[Format]Info{
	R8Unorm: {1, 1, 1},
	R8Snorm: {1, 1, 1},
	R8Uint:  {1, 1, 1},
	R8Sint:  {1, 1, 1},

	R16Uint:  {2, 1, 1},
	R16Sint:  {2, 1, 1},
	R16Float: {2, 1, 1},
	RG8Unorm: {2, 1, 1},
	RG8Snorm: {2, 1, 1},
	RG8Uint:  {2, 1, 1},
	RG8Sint:  {2, 1, 1},

	R32Uint:        {4, 1, 1},
	R32Sint:        {4, 1, 1},
	R32Float:       {4, 1, 1},
	RG16Uint:       {4, 1, 1},
	RG16Sint:       {4, 1, 1},
	RG16Float:      {4, 1, 1},
	RGBA8Unorm:     {4, 1, 1},
	RGBA8UnormSrgb: {4, 1, 1},
	RGBA8Snorm:     {4, 1, 1},
	RGBA8Uint:      {4, 1, 1},
	RGBA8Sint:      {4, 1, 1},
	BGRA8Unorm:     {4, 1, 1},
	BGRA8UnormSrgb: {4, 1, 1},

	RGB9E5Ufloat:  {4, 1, 1},
	RGB10A2Uint:   {4, 1, 1},
	RGB10A2Unorm:  {4, 1, 1},
	RG11B10Ufloat: {4, 1, 1},

	RG32Uint:    {8, 1, 1},
	RG32Sint:    {8, 1, 1},
	RG32Float:   {8, 1, 1},
	RGBA16Uint:  {8, 1, 1},
	RGBA16Sint:  {8, 1, 1},
	RGBA16Float: {8, 1, 1},

	RGBA32Uint:  {16, 1, 1},
	RGBA32Sint:  {16, 1, 1},
	RGBA32Float: {16, 1, 1},

	Stencil8:             {1, 1, 1},
	Depth16Unorm:         {2, 1, 1},
	Depth24Plus:          {4, 1, 1},
	Depth24PlusStencil8:  {4, 1, 1},
	Depth32Float:         {4, 1, 1},
	Depth32FloatStencil8: {8, 1, 1},

	BC1RGBAUnorm:     {8, 4, 4},
	BC1RGBAUnormSrgb: {8, 4, 4},
	BC2RGBAUnorm:     {16, 4, 4},
	BC2RGBAUnormSrgb: {16, 4, 4},
	BC3RGBAUnorm:     {16, 4, 4},
	BC3RGBAUnormSrgb: {16, 4, 4},
	BC4RUnorm:        {8, 4, 4},
	BC4RSnorm:        {8, 4, 4},
	BC5RGUnorm:       {16, 4, 4},
	BC5RGSnorm:       {16, 4, 4},
	BC6HRGBUfloat:    {16, 4, 4},
	BC6HRGBFloat:     {16, 4, 4},
	BC7RGBAUnorm:     {16, 4, 4},
	BC7RGBAUnormSrgb: {16, 4, 4},

	ETC2RGB8Unorm:       {8, 4, 4},
	ETC2RGB8UnormSrgb:   {8, 4, 4},
	ETC2RGB8A1Unorm:     {8, 4, 4},
	ETC2RGB8A1UnormSrgb: {8, 4, 4},
	ETC2RGBA8Unorm:      {16, 4, 4},
	ETC2RGBA8UnormSrgb:  {16, 4, 4},
	EACR11Unorm:         {8, 4, 4},
	EACR11Snorm:         {8, 4, 4},
	EACRG11Unorm:        {16, 4, 4},
	EACRG11Snorm:        {16, 4, 4},

	ASTC4x4Unorm:     {16, 4, 4},
	ASTC4x4UnormSrgb: {16, 4, 4},
	ASTC8x8Unorm:     {16, 8, 8},
	ASTC8x8UnormSrgb: {16, 8, 8},
}

// LayoutInfo returns f's block layout. Undefined and unknown formats
// report a zero Info.
func (f Format) LayoutInfo() Info {
	return infos[f]
}

// IsCompressed reports whether f is block-compressed.
func (f Format) IsCompressed() bool {
	info := infos[f]
	return info.BlockWidth > 1
}

// RowPitch returns the byte size of one row of blocks for a surface
// width pixels wide, or 0 for Undefined.
func (f Format) RowPitch(width uint32) uint32 {
	info := infos[f]
	if info.BlockWidth == 0 {
		return 0
	}
	blocks := (width + info.BlockWidth - 1) / info.BlockWidth
	return blocks * info.BytesPerBlock
}

// SubresourceSize returns the byte size of one full subresource of the
// given pixel extent, or 0 for Undefined.
func (f Format) SubresourceSize(width, height uint32) uint32 {
	info := infos[f]
	if info.BlockHeight == 0 {
		return 0
	}
	rows := (height + info.BlockHeight - 1) / info.BlockHeight
	return f.RowPitch(width) * rows
}

// MipExtent returns the pixel extent of mip level mip for a base extent,
// clamped to 1.
func MipExtent(base uint32, mip uint32) uint32 {
	e := base >> mip
	if e == 0 {
		return 1
	}
	return e
}
