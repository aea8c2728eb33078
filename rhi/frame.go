package rhi

import (
	"context"
	"errors"

	"github.com/ashfall-engine/rhi/command"
	"github.com/ashfall-engine/rhi/handle"
)

// ErrTransientArenaFull is returned when a frame's transient allocation
// budget is exhausted. Sized to never be hit in normal operation.
var ErrTransientArenaFull = errors.New("rhi: transient arena exhausted")

// TransientAllocation is a sub-range of the current frame's transient
// upload buffer. Bytes is CPU-writable until the frame is submitted;
// Buffer and Offset feed binding calls.
type TransientAllocation struct {
	Bytes  []byte
	Buffer handle.BufferHandle
	Offset uint32
}

// Frame is the per-frame recording context handed to the RunFrame
// callback. It is valid only for the duration of that callback.
type Frame struct {
	dev   *Device
	index uint64
	list  *command.List
	fc    *frameContext
}

// Index returns this frame's index. Frame indices start at 1 and only
// increase.
func (f *Frame) Index() uint64 { return f.index }

// List returns the command list being recorded this frame.
func (f *Frame) List() *command.List { return f.list }

// Backbuffer returns the swapchain texture to render into this frame.
// The handle is only meaningful for this frame; a later frame's
// backbuffer rotates to another texture.
func (f *Frame) Backbuffer() handle.TextureHandle {
	return f.dev.backbuffers[int(f.index%uint64(len(f.dev.backbuffers)))]
}

// AllocTransient reserves size bytes, aligned to align, from the frame's
// transient arena. Any goroutine recording into this frame may call it
// concurrently.
func (f *Frame) AllocTransient(size, align uint32) (TransientAllocation, error) {
	alloc, err := f.fc.arena.Allocate(size, align)
	if err != nil {
		return TransientAllocation{}, ErrTransientArenaFull
	}
	return TransientAllocation{
		Bytes:  f.fc.arenaMem[alloc.Offset : alloc.Offset+alloc.Size],
		Buffer: f.fc.arenaBuffer,
		Offset: alloc.Offset,
	}, nil
}

// Device returns the owning device.
func (f *Frame) Device() *Device { return f.dev }

// RunFrame executes one frame: wait for the frame at latency distance to
// retire, flush fence-gated frees, reset this frame's allocators, hand
// the frame to record, submit, signal and present. Must be called from a
// single render goroutine.
func (d *Device) RunFrame(ctx context.Context, record func(*Frame)) error {
	next := d.sched.FrameIndex() + 1
	fc := d.frames[int(next%uint64(len(d.frames)))]

	return d.sched.RunFrame(ctx, fc.list, func(list *command.List) {
		record(&Frame{dev: d, index: next, list: list, fc: fc})
	})
}

// FrameIndex returns the index of the most recently started frame.
func (d *Device) FrameIndex() uint64 { return d.sched.FrameIndex() }
