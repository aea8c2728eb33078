// Package ui implements the UI render state: a single per-frame command
// list holding command payloads and their 32-bit sort keys in two parallel
// slices under one shared capacity bound. Sorting the keys into an index
// permutation and indexing into the untouched command array lets the
// whole pass draw in one call, decoding which command a given vertex
// belongs to from its vertex ID in the shader.
package ui

import (
	"errors"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ashfall-engine/rhi/handle"
)

// ErrCommandListFull is returned when a push would exceed the list's fixed
// command capacity.
var ErrCommandListFull = errors.New("ui: command list full")

// Kind identifies the payload type of a Command.
type Kind uint8

const (
	KindBox Kind = iota
	KindImage
	KindCircle
)

// Colors are the four corner colors of a box command, blended across its
// area. The blend uses go-colorful's linear-RGB interpolation, which is
// gamma-correct rather than a naive lerp of sRGB byte values.
type Colors struct {
	TopLeft     colorful.Color
	TopRight    colorful.Color
	BottomLeft  colorful.Color
	BottomRight colorful.Color
}

// Rect is a center/radius rectangle, matching make_r1_rect's
// origin/radius representation (center point plus half-extents) rather
// than min/max corners.
type Rect struct {
	OriginX, OriginY float32
	RadiusX, RadiusY float32
}

// MakeRect converts a min/max rectangle into the center/radius form
// commands store internally.
func MakeRect(minX, minY, maxX, maxY float32) Rect {
	return Rect{
		OriginX: 0.5 * (minX + maxX),
		OriginY: 0.5 * (minY + maxY),
		RadiusX: 0.5 * (maxX - minX),
		RadiusY: 0.5 * (maxY - minY),
	}
}

// BoxCommand is a rounded, optionally shadowed, gradient-filled rectangle.
type BoxCommand struct {
	Group         uint8
	ClipRect      uint16
	Rect          Rect
	Roundedness   [4]float32
	Colors        Colors
	ShadowRadius  float32
	ShadowAmount  float32
	InnerRadius   float32
}

// ImageCommand draws a texture into a rectangle with the given UV rect.
type ImageCommand struct {
	Group    uint8
	ClipRect uint16
	Rect     Rect
	UVs      Rect
	Texture  handle.TextureHandle
}

// CircleCommand draws a solid or gradient-filled circle inscribed in Rect.
type CircleCommand struct {
	Group    uint8
	ClipRect uint16
	Rect     Rect
	Colors   Colors
}

// drawCommand is the internal envelope every pushed command is stored as.
// Kept as a tagged union of typed fields rather than a raw byte blob —
// Go's type system already gives safe tagged-union storage without the
// original's memcpy-into-a-byte-array approach, so the command payload
// itself is a plain struct. Commands and their keys live in two separate
// slices that both grow forward; they do not share one arena.
type drawCommand struct {
	kind   Kind
	box    BoxCommand
	img    ImageCommand
	circle CircleCommand
}

// ClipRect is a clip rectangle referenced by index from box/image commands.
type ClipRect struct {
	Rect        Rect
	Roundedness [4]float32
}

// state machine states for CommandList.
type State uint8

const (
	StateBuilding State = iota
	StateSorted
	StateUploaded
	StateDrawn
)

// CommandList accumulates UI draw commands for one frame.
type CommandList struct {
	capacity   int
	commands   []drawCommand
	keys       []uint32 // keys[i] corresponds to commands[i] until sorted
	clipRects  []ClipRect
	state      State
	sortedIdx  []int
}

// NewCommandList creates a CommandList with the given fixed command
// capacity, the single bound shared by the command and key slices.
func NewCommandList(capacity int) *CommandList {
	return &CommandList{capacity: capacity}
}

func (l *CommandList) push(c drawCommand, layer, subLayer uint8) (uint16, error) {
	if l.state != StateBuilding {
		panic("ui: push called after sort/upload/draw; call Reset first")
	}
	if len(l.commands) >= l.capacity {
		return 0, ErrCommandListFull
	}
	index := uint16(len(l.commands))
	l.commands = append(l.commands, c)
	l.keys = append(l.keys, packSortKey(layer, subLayer, index))
	return index, nil
}

func packSortKey(layer, subLayer uint8, index uint16) uint32 {
	return uint32(layer)<<24 | uint32(subLayer)<<16 | uint32(index)
}

// PushClipRect registers a clip rectangle and returns its index for later
// reference from PushBox/PushImage.
func (l *CommandList) PushClipRect(rect Rect, roundedness [4]float32) uint16 {
	idx := uint16(len(l.clipRects))
	l.clipRects = append(l.clipRects, ClipRect{Rect: rect, Roundedness: roundedness})
	return idx
}

// PushBox appends a box command sorted under (layer, subLayer).
func (l *CommandList) PushBox(layer, subLayer uint8, box BoxCommand) error {
	_, err := l.push(drawCommand{kind: KindBox, box: box}, layer, subLayer)
	return err
}

// PushImage appends an image command sorted under (layer, subLayer).
func (l *CommandList) PushImage(layer, subLayer uint8, img ImageCommand) error {
	_, err := l.push(drawCommand{kind: KindImage, img: img}, layer, subLayer)
	return err
}

// PushCircle appends a circle command sorted under (layer, subLayer).
func (l *CommandList) PushCircle(layer, subLayer uint8, c CircleCommand) error {
	_, err := l.push(drawCommand{kind: KindCircle, circle: c}, layer, subLayer)
	return err
}

// Len returns the number of commands pushed since the last Reset.
func (l *CommandList) Len() int {
	return len(l.commands)
}

// Sort orders command indices by ascending sort key using a stable radix
// sort, transitioning the list from building to sorted. Calling it twice
// on unchanged input is idempotent and yields the same permutation, the
// property the RHI's UI determinism test exercises.
func (l *CommandList) Sort() {
	if l.state != StateBuilding {
		panic("ui: Sort called outside the building state")
	}
	l.sortedIdx = radixSortIndices(l.keys)
	l.state = StateSorted
}

// SortedCommandAt returns the i-th command in sorted order.
func (l *CommandList) SortedCommandAt(i int) (Kind, BoxCommand, ImageCommand, CircleCommand) {
	c := l.commands[l.sortedIdx[i]]
	return c.kind, c.box, c.img, c.circle
}

// SortedKeys returns the sort keys in sorted order, for upload alongside
// the reordered command payloads.
func (l *CommandList) SortedKeys() []uint32 {
	out := make([]uint32, len(l.sortedIdx))
	for i, idx := range l.sortedIdx {
		out[i] = l.keys[idx]
	}
	return out
}

// MarkUploaded transitions the list from sorted to uploaded.
func (l *CommandList) MarkUploaded() {
	if l.state != StateSorted {
		panic("ui: MarkUploaded called outside the sorted state")
	}
	l.state = StateUploaded
}

// MarkDrawn transitions the list from uploaded to drawn.
func (l *CommandList) MarkDrawn() {
	if l.state != StateUploaded {
		panic("ui: MarkDrawn called outside the uploaded state")
	}
	l.state = StateDrawn
}

// Reset clears the list for the next frame, retaining backing arrays.
func (l *CommandList) Reset() {
	l.commands = l.commands[:0]
	l.keys = l.keys[:0]
	l.clipRects = l.clipRects[:0]
	l.sortedIdx = nil
	l.state = StateBuilding
}

// State returns the list's current lifecycle state.
func (l *CommandList) State() State {
	return l.state
}

func radixSortIndices(keys []uint32) []int {
	n := len(keys)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if n <= 1 {
		return idx
	}

	tmp := make([]int, n)
	const radixBits = 8
	const buckets = 1 << radixBits
	var count [buckets]int

	for shift := uint(0); shift < 32; shift += radixBits {
		for i := range count {
			count[i] = 0
		}
		for _, i := range idx {
			b := (keys[i] >> shift) & (buckets - 1)
			count[b]++
		}
		sum := 0
		for i := 0; i < buckets; i++ {
			c := count[i]
			count[i] = sum
			sum += c
		}
		for _, i := range idx {
			b := (keys[i] >> shift) & (buckets - 1)
			tmp[count[b]] = i
			count[b]++
		}
		idx, tmp = tmp, idx
	}

	return idx
}
