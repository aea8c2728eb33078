package ui

import (
	"encoding/binary"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ashfall-engine/rhi/command"
	"github.com/ashfall-engine/rhi/handle"
)

// GPUCommandSize is the serialized size of one UI command in the
// structured buffer the vertex shader reads. Fixed-size records let the
// shader index the buffer by vertex_id / 3 directly.
const GPUCommandSize = 128

// GPUClipRectSize is the serialized size of one clip rect.
const GPUClipRectSize = 32

// ResourceSource resolves handles into bindless descriptor indices at
// encode time. The device satisfies this.
type ResourceSource interface {
	GetBufferSRV(h handle.BufferHandle) uint32
	GetTextureSRV(h handle.TextureHandle) uint32
}

// Renderer funnels a CommandList into one buffer upload and one draw
// call per frame, independent of how many primitives were pushed. The
// command buffer and clip-rect buffer must be dynamic structured buffers
// sized for the frame's worst case; the PSO is the UI pipeline whose
// vertex shader expands each command into a quad from its vertex id.
type Renderer struct {
	pso            handle.PSOHandle
	commandBuffer  handle.BufferHandle
	clipRectBuffer handle.BufferHandle
	source         ResourceSource
}

// NewRenderer creates a Renderer drawing with pso and staging through the
// two dynamic buffers.
func NewRenderer(pso handle.PSOHandle, commandBuffer, clipRectBuffer handle.BufferHandle, source ResourceSource) *Renderer {
	return &Renderer{
		pso:            pso,
		commandBuffer:  commandBuffer,
		clipRectBuffer: clipRectBuffer,
		source:         source,
	}
}

// Render sorts cl, uploads the permuted command array and clip rects,
// binds the UI pipeline and issues the single draw of three vertices per
// command. The command list walks its full per-frame state machine:
// building, sorted, uploaded, drawn.
func (r *Renderer) Render(list *command.List, cl *CommandList) {
	cl.Sort()

	payload := cl.EncodeSorted(r.source)
	list.UploadBuffer(r.commandBuffer, 0, payload, command.FrequencyFrame)
	if clips := cl.EncodeClipRects(); len(clips) > 0 {
		list.UploadBuffer(r.clipRectBuffer, 0, clips, command.FrequencyFrame)
	}
	cl.MarkUploaded()

	list.SetPSO(r.pso)

	params := make([]byte, 12)
	binary.LittleEndian.PutUint32(params[0:], uint32(cl.Len()))
	binary.LittleEndian.PutUint32(params[4:], r.source.GetBufferSRV(r.commandBuffer))
	binary.LittleEndian.PutUint32(params[8:], r.source.GetBufferSRV(r.clipRectBuffer))
	list.SetParameters(command.SlotDraw, params)

	list.Draw(uint32(cl.Len())*3, 0)
	cl.MarkDrawn()
}

// EncodeSorted serializes the commands in sorted-key order as fixed-size
// records. The sort permuted only an index array; this walk is the one
// place command payloads are reordered, straight into upload staging.
// Valid only after Sort.
func (l *CommandList) EncodeSorted(source ResourceSource) []byte {
	if l.state == StateBuilding {
		panic("ui: EncodeSorted called before Sort")
	}
	out := make([]byte, len(l.sortedIdx)*GPUCommandSize)
	for i, idx := range l.sortedIdx {
		encodeCommand(out[i*GPUCommandSize:(i+1)*GPUCommandSize], &l.commands[idx], source)
	}
	return out
}

// EncodeClipRects serializes the clip-rect array referenced by command
// clip indices.
func (l *CommandList) EncodeClipRects() []byte {
	out := make([]byte, len(l.clipRects)*GPUClipRectSize)
	for i := range l.clipRects {
		r := &l.clipRects[i]
		o := out[i*GPUClipRectSize:]
		putRect(o[0:], r.Rect)
		putFloat4(o[16:], r.Roundedness)
	}
	return out
}

// Serialized command layout, 128 bytes:
//
//	0   kind        u32
//	4   clip rect   u32
//	8   texture srv u32
//	12  reserved    u32
//	16  rect        f32 x4 (origin.xy, radius.xy)
//	32  aux         f32 x4 (roundedness for boxes, uv rect for images)
//	48  colors      f32 x16 (TL, TR, BL, BR as RGBA)
//	112 shadow      f32 x3 (radius, amount, inner radius) + reserved
func encodeCommand(dst []byte, c *drawCommand, source ResourceSource) {
	binary.LittleEndian.PutUint32(dst[0:], uint32(c.kind))

	switch c.kind {
	case KindBox:
		binary.LittleEndian.PutUint32(dst[4:], uint32(c.box.ClipRect))
		putRect(dst[16:], c.box.Rect)
		putFloat4(dst[32:], c.box.Roundedness)
		putColors(dst[48:], c.box.Colors)
		putFloat(dst[112:], c.box.ShadowRadius)
		putFloat(dst[116:], c.box.ShadowAmount)
		putFloat(dst[120:], c.box.InnerRadius)
	case KindImage:
		binary.LittleEndian.PutUint32(dst[4:], uint32(c.img.ClipRect))
		binary.LittleEndian.PutUint32(dst[8:], source.GetTextureSRV(c.img.Texture))
		putRect(dst[16:], c.img.Rect)
		putRect(dst[32:], c.img.UVs)
		putColors(dst[48:], Colors{
			TopLeft:     colorful.Color{R: 1, G: 1, B: 1},
			TopRight:    colorful.Color{R: 1, G: 1, B: 1},
			BottomLeft:  colorful.Color{R: 1, G: 1, B: 1},
			BottomRight: colorful.Color{R: 1, G: 1, B: 1},
		})
	case KindCircle:
		binary.LittleEndian.PutUint32(dst[4:], uint32(c.circle.ClipRect))
		putRect(dst[16:], c.circle.Rect)
		putColors(dst[48:], c.circle.Colors)
	}
}

func putFloat(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}

func putRect(dst []byte, r Rect) {
	putFloat(dst[0:], r.OriginX)
	putFloat(dst[4:], r.OriginY)
	putFloat(dst[8:], r.RadiusX)
	putFloat(dst[12:], r.RadiusY)
}

func putFloat4(dst []byte, v [4]float32) {
	for i, f := range v {
		putFloat(dst[i*4:], f)
	}
}

func putColors(dst []byte, c Colors) {
	putColor(dst[0:], c.TopLeft)
	putColor(dst[16:], c.TopRight)
	putColor(dst[32:], c.BottomLeft)
	putColor(dst[48:], c.BottomRight)
}

func putColor(dst []byte, c colorful.Color) {
	putFloat(dst[0:], float32(c.R))
	putFloat(dst[4:], float32(c.G))
	putFloat(dst[8:], float32(c.B))
	putFloat(dst[12:], 1)
}
