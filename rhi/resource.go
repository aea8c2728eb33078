package rhi

import (
	"github.com/ashfall-engine/rhi/command"
	"github.com/ashfall-engine/rhi/format"
	"github.com/ashfall-engine/rhi/internal/backend"
)

// BufferUsage is a bitmask of the ways a buffer may be bound.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageStructured
	BufferUsageRaw
	BufferUsageUpload
)

// BufferSRVDesc describes a shader-read view over a buffer: a run of
// elements of a fixed stride, or a raw byte-address view.
type BufferSRVDesc struct {
	FirstElement  uint32
	ElementCount  uint32
	ElementStride uint32
	Raw           bool
}

// BufferUAVDesc describes a shader-read-write view over a buffer.
type BufferUAVDesc struct {
	FirstElement  uint32
	ElementCount  uint32
	ElementStride uint32
	Raw           bool
}

// BufferDesc describes a buffer at creation time.
type BufferDesc struct {
	Size  uint32
	Usage BufferUsage

	// SRV and UAV, when non-nil, allocate persistent bindless descriptor
	// indices at creation.
	SRV *BufferSRVDesc
	UAV *BufferUAVDesc

	// Dynamic buffers hold one physical instance per frame in flight,
	// rotated implicitly with the frame index. Contents written in frame
	// F are valid only for frame F.
	Dynamic bool

	// InitialData, when non-empty, is staged through the async upload
	// ring at creation.
	InitialData []byte

	DebugName string
}

// bufferInstance is one physical allocation behind a buffer handle.
// Non-dynamic buffers have exactly one; dynamic buffers have one per
// frame in flight, each with its own bindless descriptor indices.
type bufferInstance struct {
	data     []byte
	srvIndex uint32
	uavIndex uint32
}

type bufferResource struct {
	desc      BufferDesc
	instances []*bufferInstance
}

// TextureDimension selects the texture's shape.
type TextureDimension uint8

const (
	Texture1D TextureDimension = iota
	Texture2D
	Texture3D
	TextureCube
	Texture2DArray
)

// TextureDesc describes a texture at creation time.
type TextureDesc struct {
	Dimension   TextureDimension
	Width       uint32
	Height      uint32
	Depth       uint32
	MipCount    uint32
	SampleCount uint32
	Format      format.Format

	// InitialData holds one byte slice per subresource (mip-major), each
	// RowStride bytes per row. Nil means uninitialized contents.
	InitialData [][]byte
	RowStride   uint32

	// RenderTarget and DepthStencil allocate RTV/DSV descriptors from
	// the CPU-side view arenas. UAV allocates a per-mip set of bindless
	// unordered-access indices.
	RenderTarget bool
	DepthStencil bool
	UAV          bool

	DebugName string
}

type textureResource struct {
	desc TextureDesc

	// image is the top-mip pixel storage the portable backends render
	// into and sample from. Depth formats carry depth instead.
	image *backend.Image
	depth []float32

	srvIndex   uint32
	uavIndices []uint32
	rtvIndex   uint32
	dsvIndex   uint32
}

// FillMode selects polygon fill for rasterization.
type FillMode uint8

const (
	FillSolid FillMode = iota
	FillWireframe
)

// CullMode selects which winding is discarded.
type CullMode uint8

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// RasterizerState is the fixed-function raster portion of a graphics PSO.
type RasterizerState struct {
	Fill     FillMode
	Cull     CullMode
	FrontCCW bool
}

// CompareFunc is a depth/stencil comparison.
type CompareFunc uint8

const (
	CompareAlways CompareFunc = iota
	CompareNever
	CompareLess
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
	CompareEqual
	CompareNotEqual
)

// DepthStencilState is the depth portion of a graphics PSO.
type DepthStencilState struct {
	DepthEnable bool
	DepthWrite  bool
	DepthFunc   CompareFunc
}

// BlendFactor and BlendOp describe one render target's blend equation.
type BlendFactor uint8

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendInvSrcColor
	BlendSrcAlpha
	BlendInvSrcAlpha
	BlendDstColor
	BlendInvDstColor
	BlendDstAlpha
	BlendInvDstAlpha
)

type BlendOp uint8

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpRevSubtract
	BlendOpMin
	BlendOpMax
)

// BlendState is one render target's blend configuration.
type BlendState struct {
	Enable    bool
	SrcColor  BlendFactor
	DstColor  BlendFactor
	ColorOp   BlendOp
	SrcAlpha  BlendFactor
	DstAlpha  BlendFactor
	AlphaOp   BlendOp
	WriteMask uint8
}

// GraphicsPSODesc is the immutable bundle a graphics pipeline is compiled
// from: shader bytecode plus every piece of fixed-function state, frozen
// at creation.
type GraphicsPSODesc struct {
	VS []byte
	PS []byte

	Rasterizer   RasterizerState
	DepthStencil DepthStencilState
	Blend        [8]BlendState
	SampleMask   uint32
	Topology     command.Topology

	RTVFormats  [8]format.Format
	RTVCount    int
	DSVFormat   format.Format
	SampleCount uint32

	DebugName string
}

// ComputePSODesc describes a compute pipeline.
type ComputePSODesc struct {
	CS        []byte
	DebugName string
}

// psoResource holds whichever pipeline flavor the handle was created as.
// The error-sentinel PSO holds neither and draws through it are no-ops.
type psoResource struct {
	graphics *GraphicsPSODesc
	compute  *ComputePSODesc
}
