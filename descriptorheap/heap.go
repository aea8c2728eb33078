// Package descriptorheap implements the persistent bindless descriptor
// heap: a fixed-capacity table of shader-visible integer slots, allocated
// with a LIFO free list and released through a frame-tagged pending queue
// so an in-flight frame never sees one of its descriptors recycled out
// from under it.
package descriptorheap

import (
	"errors"
	"sync"
)

// ErrHeapExhausted is returned by AllocatePersistent once every slot is
// taken. The heap never grows; callers size it up front via Config.
var ErrHeapExhausted = errors.New("descriptorheap: persistent heap exhausted")

// ErrNotImplemented is returned by AllocateTransient. Per-frame transient
// descriptor allocation is a reserved capability: the config names it, but
// no caller needs it yet, and a typed error beats silently handing out
// slots that would never be bulk-released.
var ErrNotImplemented = errors.New("descriptorheap: transient allocation not implemented")

// pendingFree is a descriptor index queued for release, tagged with the
// frame index current when Free was called. It cannot be reused until the
// scheduler's flush for that frame (or a later one) runs, guaranteeing any
// command list still recording against that frame keeps seeing a valid
// descriptor.
type pendingFree struct {
	index      uint32
	frameIndex uint64
}

// Config sizes the heap: a persistent region for long-lived resources and
// a transient region reserved for the per-frame bulk-release allocation
// class (see AllocateTransient).
type Config struct {
	PersistentCapacity uint32
	TransientCapacity  uint32
}

// Heap is the persistent descriptor allocator. Index 0 is reserved as the
// null descriptor so a zero-valued shader parameter never aliases a real
// resource.
type Heap struct {
	mu                sync.Mutex
	capacity          uint32
	free              []uint32 // LIFO stack of free indices, highest address first.
	pending           []pendingFree
	currentFrameIndex uint64
	transientCapacity uint32
}

// New creates a Heap with the given configuration. Index 0 is pre-reserved
// for the null descriptor, so PersistentCapacity indices 1..capacity are
// actually allocatable.
func New(cfg Config) *Heap {
	h := &Heap{
		capacity:          cfg.PersistentCapacity,
		free:              make([]uint32, 0, cfg.PersistentCapacity),
		transientCapacity: cfg.TransientCapacity,
	}
	// Index 0 is the reserved null descriptor; push the rest in descending
	// order so AllocatePersistent hands out ascending indices first.
	for i := int64(cfg.PersistentCapacity); i >= 1; i-- {
		h.free = append(h.free, uint32(i))
	}
	return h
}

// AllocatePersistent reserves a slot that lives until explicitly freed.
func (h *Heap) AllocatePersistent() (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.free) == 0 {
		return 0, ErrHeapExhausted
	}
	n := len(h.free) - 1
	idx := h.free[n]
	h.free = h.free[:n]
	return idx, nil
}

// AllocateTransient is reserved for frame-scoped, bulk-released descriptor
// allocation. It is not implemented; see ErrNotImplemented.
func (h *Heap) AllocateTransient() (uint32, error) {
	return 0, ErrNotImplemented
}

// FreePersistent queues index for release, tagged with the heap's current
// frame index. The slot is not reusable until FlushPendingFrees is called
// with a frame index at or beyond the one recorded here.
func (h *Heap) FreePersistent(index uint32) {
	if index == 0 || index > h.capacity {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = append(h.pending, pendingFree{index: index, frameIndex: h.currentFrameIndex})
}

// AdvanceFrame records frameIndex as the tag for subsequent
// FreePersistent calls. The frame scheduler calls this at the top of each
// frame with the frame now being recorded, then separately flushes with
// the frame the GPU has finished — keeping the two apart is what makes a
// descriptor freed during frame F unavailable until the flush proves
// frame F's GPU work is done.
func (h *Heap) AdvanceFrame(frameIndex uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if frameIndex > h.currentFrameIndex {
		h.currentFrameIndex = frameIndex
	}
}

// FlushPendingFrees moves every pending free whose recorded frame index is
// at or before frameIndex back onto the free stack. Pending entries are
// appended in non-decreasing frame-index order by construction, so the
// scan below could stop at the first entry that is still too new; it
// keeps compacting instead to stay correct if a caller ever flushes out
// of order. The heap's current-frame tag also advances to frameIndex if
// it is behind, so standalone users who never call AdvanceFrame keep the
// old flush-driven tagging behavior.
func (h *Heap) FlushPendingFrees(frameIndex uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if frameIndex > h.currentFrameIndex {
		h.currentFrameIndex = frameIndex
	}

	n := 0
	for _, p := range h.pending {
		if p.frameIndex <= frameIndex {
			h.free = append(h.free, p.index)
		} else {
			h.pending[n] = p
			n++
		}
	}
	h.pending = h.pending[:n]
}

// FreeCount returns the number of slots currently available for
// AllocatePersistent. Exposed for tests and capacity diagnostics.
func (h *Heap) FreeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.free)
}

// PendingCount returns the number of slots awaiting a frame flush.
func (h *Heap) PendingCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// Capacity returns the persistent-region capacity the heap was built with.
func (h *Heap) Capacity() uint32 {
	return h.capacity
}
