package command

import (
	mgl "github.com/go-gl/mathgl/mgl32"

	"github.com/ashfall-engine/rhi/handle"
)

// Slot identifies one of the three root-constant parameter blocks a
// command list can bind. Setting a higher slot never disturbs a lower one
// bound earlier in the same pass, and vice versa — each slot is tracked
// independently.
type Slot uint8

const (
	SlotDraw Slot = iota
	SlotPass
	SlotView
	slotCount
)

// MaxParameterBytes is the root-constant budget for one parameter block:
// 60 32-bit constants, matching the shader ABI's root-signature layout.
const MaxParameterBytes = 60 * 4

// LoadOp describes how a pass attachment's prior contents are treated at
// pass start.
type LoadOp uint8

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDiscard
)

// Viewport is the rasterizer viewport rect in pixels, plus its depth
// range. Position and extent are carried as an mgl32.Vec4 (x, y, w, h)
// rather than four loose floats, consistent with the rest of the RHI's
// use of mathgl for small fixed-size numeric tuples.
type Viewport struct {
	Rect     mgl.Vec4
	MinDepth float32
	MaxDepth float32
}

// Scissor is an integer pixel-space clip rect.
type Scissor struct {
	X, Y, Width, Height int32
}

// ColorAttachment binds one render target slot for a graphics pass.
type ColorAttachment struct {
	Target     handle.TextureHandle
	LoadOp     LoadOp
	ClearColor mgl.Vec4
}

// DepthStencilAttachment binds the depth-stencil target for a graphics
// pass.
type DepthStencilAttachment struct {
	Target       handle.TextureHandle
	DepthLoadOp  LoadOp
	ClearDepth   float32
	ClearStencil uint8
}

// Topology selects the primitive assembler's input topology.
type Topology uint8

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyPointList
)

// GraphicsPassDesc describes a graphics pass begun with BeginGraphicsPass.
// Up to 8 render targets may be bound simultaneously, matching the root
// signature's descriptor table budget for simultaneous RTVs.
type GraphicsPassDesc struct {
	ColorAttachments [8]ColorAttachment
	ColorCount       int
	DepthStencil     *DepthStencilAttachment
	Viewport         Viewport
	Scissor          Scissor
	Topology         Topology
}

// UploadFrequency selects which transient allocator backs a buffer
// upload: the per-frame arena for data that only needs to live one frame,
// or the async copy-queue ring for larger initial uploads.
type UploadFrequency uint8

const (
	FrequencyFrame UploadFrequency = iota
	FrequencyAsync
)

// OpKind discriminates the recorded entries in a List's op stream.
type OpKind uint8

const (
	OpBeginGraphicsPass OpKind = iota
	OpEndGraphicsPass
	OpSetPSO
	OpSetParameters
	OpDraw
	OpDrawIndexed
	OpDrawIndirect
	OpDispatch
	OpUploadBuffer
)

// Op is one recorded command-list entry. Only the fields relevant to Kind
// are populated; a software backend (or a real GPU backend translating to
// native calls) switches on Kind to interpret the rest.
type Op struct {
	Kind OpKind

	Pass GraphicsPassDesc

	PSO handle.PSOHandle

	Slot   Slot
	Params []byte

	VertexCount  uint32
	VertexOffset int32

	IndexBuffer handle.BufferHandle
	IndexCount  uint32
	IndexOffset uint32

	ArgsBuffer handle.BufferHandle
	ArgsOffset uint32

	DispatchX, DispatchY, DispatchZ uint32

	UploadBuffer    handle.BufferHandle
	UploadOffset    uint32
	UploadData      []byte
	UploadFrequency UploadFrequency
}

// BeginGraphicsPass opens a graphics pass: records render-target and
// depth-stencil transitions, the per-attachment load op, and the
// viewport/scissor/topology state. At most one pass may be open on a list
// at a time — opening a second is a state-misuse error and panics, per
// the RHI's fatal-in-all-builds policy for command list misuse.
func (l *List) BeginGraphicsPass(desc GraphicsPassDesc) {
	l.requireState(StateRecording, "BeginGraphicsPass")
	if l.passOpen {
		panic("command: BeginGraphicsPass called with a pass already open")
	}

	for i := 0; i < desc.ColorCount; i++ {
		l.Transition(desc.ColorAttachments[i].Target, ResourceStateRenderTarget)
	}
	if desc.DepthStencil != nil {
		l.Transition(desc.DepthStencil.Target, ResourceStateDepthWrite)
	}

	l.passOpen = true
	l.boundSlots = [slotCount][]byte{}
	l.ops = append(l.ops, Op{Kind: OpBeginGraphicsPass, Pass: desc})
}

// BeginSimpleGraphicsPass opens a single-render-target, no-depth pass
// that clears to clearColor and covers the full width x height extent —
// the common case for post/UI passes.
func (l *List) BeginSimpleGraphicsPass(rt handle.TextureHandle, clearColor mgl.Vec4, width, height uint32) {
	desc := GraphicsPassDesc{
		ColorCount: 1,
		Viewport: Viewport{
			Rect:     mgl.Vec4{0, 0, float32(width), float32(height)},
			MaxDepth: 1,
		},
		Scissor:  Scissor{Width: int32(width), Height: int32(height)},
		Topology: TopologyTriangleList,
	}
	desc.ColorAttachments[0] = ColorAttachment{
		Target:     rt,
		LoadOp:     LoadOpClear,
		ClearColor: clearColor,
	}
	l.BeginGraphicsPass(desc)
}

// EndGraphicsPass closes the currently open pass. It records no MSAA
// resolve and no state transition for the pass's targets. Calling it with
// no pass open panics.
func (l *List) EndGraphicsPass() {
	l.requireState(StateRecording, "EndGraphicsPass")
	if !l.passOpen {
		panic("command: EndGraphicsPass called with no pass open")
	}
	l.passOpen = false
	l.ops = append(l.ops, Op{Kind: OpEndGraphicsPass})
}

// SetPSO binds the pipeline state object used by subsequent draws or
// dispatches.
func (l *List) SetPSO(pso handle.PSOHandle) {
	l.requireState(StateRecording, "SetPSO")
	l.ops = append(l.ops, Op{Kind: OpSetPSO, PSO: pso})
}

// SetParameters writes data as root constants for slot. data's length must
// be a multiple of 4 and fit within MaxParameterBytes; exceeding the
// budget is a state-misuse error and panics in every build, matching the
// shader ABI's compile-time root-constant limit. Binding a different slot
// never disturbs the contents previously bound to another slot.
func (l *List) SetParameters(slot Slot, data []byte) {
	l.requireState(StateRecording, "SetParameters")
	if len(data) > MaxParameterBytes {
		panic("command: SetParameters exceeds root-constant budget")
	}
	if len(data)%4 != 0 {
		panic("command: SetParameters data must be a multiple of 4 bytes")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	l.boundSlots[slot] = cp
	l.ops = append(l.ops, Op{Kind: OpSetParameters, Slot: slot, Params: cp})
}

// Parameters returns the bytes last bound to slot in the current pass, or
// nil if nothing has been bound yet.
func (l *List) Parameters(slot Slot) []byte {
	return l.boundSlots[slot]
}

// Draw records a non-indexed draw of vertexCount vertices.
func (l *List) Draw(vertexCount uint32, vertexOffset int32) {
	l.requireState(StateRecording, "Draw")
	l.ops = append(l.ops, Op{Kind: OpDraw, VertexCount: vertexCount, VertexOffset: vertexOffset})
}

// DrawIndexed records an indexed draw.
func (l *List) DrawIndexed(indexBuffer handle.BufferHandle, indexCount, indexOffset uint32, vertexOffset int32) {
	l.requireState(StateRecording, "DrawIndexed")
	l.ops = append(l.ops, Op{
		Kind:         OpDrawIndexed,
		IndexBuffer:  indexBuffer,
		IndexCount:   indexCount,
		IndexOffset:  indexOffset,
		VertexOffset: vertexOffset,
	})
}

// DrawIndirect records a draw whose arguments live in argsBuffer at
// argsOffset, optionally indexed through indexBuffer. The draw stream
// submitter uses this so packet submission never has to read draw
// arguments back to the CPU.
func (l *List) DrawIndirect(argsBuffer handle.BufferHandle, argsOffset uint32, indexBuffer handle.BufferHandle) {
	l.requireState(StateRecording, "DrawIndirect")
	l.ops = append(l.ops, Op{
		Kind:        OpDrawIndirect,
		ArgsBuffer:  argsBuffer,
		ArgsOffset:  argsOffset,
		IndexBuffer: indexBuffer,
	})
}

// Dispatch records a compute dispatch of x*y*z thread groups.
func (l *List) Dispatch(x, y, z uint32) {
	l.requireState(StateRecording, "Dispatch")
	l.ops = append(l.ops, Op{Kind: OpDispatch, DispatchX: x, DispatchY: y, DispatchZ: z})
}

// UploadBuffer records a copy of data into buffer at offset, staged
// through the per-frame arena (FrequencyFrame) or the async upload ring
// (FrequencyAsync) depending on freq. This models begin_buffer_upload /
// end_buffer_upload as a single recorded op since the List itself holds
// no arena or ring state — the frame/device layer supplies the actual
// staging memory when it executes the op stream.
func (l *List) UploadBuffer(dst handle.BufferHandle, offset uint32, data []byte, freq UploadFrequency) {
	l.requireState(StateRecording, "UploadBuffer")
	cp := make([]byte, len(data))
	copy(cp, data)
	l.ops = append(l.ops, Op{
		Kind:            OpUploadBuffer,
		UploadBuffer:    dst,
		UploadOffset:    offset,
		UploadData:      cp,
		UploadFrequency: freq,
	})
}

// Ops returns the recorded operation stream since the last Begin, in
// record order, for a backend to execute at submit time.
func (l *List) Ops() []Op {
	return l.ops
}
