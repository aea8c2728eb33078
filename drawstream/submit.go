package drawstream

import (
	"encoding/binary"

	"github.com/ashfall-engine/rhi/command"
	"github.com/ashfall-engine/rhi/handle"
)

// Submit sorts the stream and records its packets into list, caching PSO
// and parameter bindings so consecutive packets that share them bind each
// exactly once. The index buffer is not cached: it is passed with every
// indirect draw. The parameter block for each draw carries
// the packet's push constant and its three parameter-buffer indices,
// matching the draw-slot root constant layout.
//
// Returns the number of draws recorded.
func (s *Stream) Submit(list *command.List) int {
	sorted := s.Sorted()

	var boundPSO handle.PSOHandle
	var boundIndexBuffer handle.BufferHandle
	var boundParams [4]uint32
	paramsBound := false

	for _, p := range sorted {
		if p.PSO != boundPSO {
			list.SetPSO(p.PSO)
			boundPSO = p.PSO
		}

		params := [4]uint32{p.PushConstant, p.Params[0], p.Params[1], p.Params[2]}
		if !paramsBound || params != boundParams {
			list.SetParameters(command.SlotDraw, packDrawParams(params))
			boundParams = params
			paramsBound = true
		}

		// The index buffer rides along on the indirect draw itself, so
		// there is no separate binding to skip when it repeats.
		boundIndexBuffer = p.IndexBuffer

		list.DrawIndirect(p.ArgsBuffer, p.ArgsOffset, boundIndexBuffer)
	}

	return len(sorted)
}

func packDrawParams(params [4]uint32) []byte {
	out := make([]byte, 16)
	for i, v := range params {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}
