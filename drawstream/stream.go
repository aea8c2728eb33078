// Package drawstream implements the draw stream: a flat array of draw
// packets paired with u32 sort keys, radix-sorted before submission so
// draws naturally batch by pipeline state without any manual bucketing by
// the caller.
package drawstream

import "github.com/ashfall-engine/rhi/handle"

// IndirectDraw describes a non-indexed draw call's arguments.
type IndirectDraw struct {
	VertexCount   uint32
	InstanceCount uint32
	VertexOffset  int32
	InstanceOffset uint32
}

// IndirectDrawIndexed describes an indexed draw call's arguments.
type IndirectDrawIndexed struct {
	IndexCount     uint32
	InstanceCount  uint32
	IndexOffset    uint32
	VertexOffset   int32
	InstanceOffset uint32
}

// Packet is one entry in a draw stream: everything needed to bind a PSO,
// an optional indirect-args buffer and an optional index buffer, plus up
// to three caller-defined parameter-block indices. Packets are fixed-size
// values; the radix sort moves whole packets between its buffers.
type Packet struct {
	PSO          handle.PSOHandle
	ArgsBuffer   handle.BufferHandle
	ArgsOffset   uint32
	IndexBuffer  handle.BufferHandle
	PushConstant uint32
	Params       [3]uint32
	SortKey      uint32
}

// Stream is a growable list of packets awaiting a sort-then-submit pass.
type Stream struct {
	packets []Packet
}

// New creates an empty Stream.
func New() *Stream {
	return &Stream{}
}

// Push appends p to the stream.
func (s *Stream) Push(p Packet) {
	s.packets = append(s.packets, p)
}

// Len returns the number of packets pushed since the last Reset.
func (s *Stream) Len() int {
	return len(s.packets)
}

// Reset clears the stream for the next frame, retaining its backing array.
func (s *Stream) Reset() {
	s.packets = s.packets[:0]
}

// Sorted returns the stream's packets ordered by ascending SortKey, using
// a stable 4-pass LSD radix sort over the 32-bit key. Equal keys preserve
// push order, matching the determinism the RHI's UI and opaque-geometry
// passes rely on for frame-to-frame stable batching.
func (s *Stream) Sorted() []Packet {
	return radixSortPackets(s.packets)
}

func radixSortPackets(in []Packet) []Packet {
	n := len(in)
	if n <= 1 {
		out := make([]Packet, n)
		copy(out, in)
		return out
	}

	src := make([]Packet, n)
	copy(src, in)
	dst := make([]Packet, n)

	const radixBits = 8
	const buckets = 1 << radixBits
	var count [buckets]int

	for shift := uint(0); shift < 32; shift += radixBits {
		for i := range count {
			count[i] = 0
		}
		for _, p := range src {
			b := (p.SortKey >> shift) & (buckets - 1)
			count[b]++
		}
		sum := 0
		for i := 0; i < buckets; i++ {
			c := count[i]
			count[i] = sum
			sum += c
		}
		for _, p := range src {
			b := (p.SortKey >> shift) & (buckets - 1)
			dst[count[b]] = p
			count[b]++
		}
		src, dst = dst, src
	}

	return src
}
