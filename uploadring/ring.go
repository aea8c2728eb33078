// Package uploadring implements the upload ring buffer: a bounded byte
// ring paired with a bounded submission ring, used to stage CPU data for
// GPU upload. Submissions retire in FIFO order once the copy-queue fence
// they were signaled with has completed.
package uploadring

import (
	"context"
	"errors"
	"sync"
)

// ErrUploadTooLarge is returned when a single upload exceeds the ring's
// total byte capacity; no amount of waiting will ever free enough space.
var ErrUploadTooLarge = errors.New("uploadring: upload larger than ring capacity")

// FenceWaiter abstracts the GPU fence the ring waits on to know a
// submission has completed. Production code backs this with the copy
// queue's fence; tests back it with a fake.
type FenceWaiter interface {
	// CompletedValue returns the highest fence value the GPU has signaled.
	CompletedValue() uint64
	// Wait blocks until the GPU signals at least value, or ctx is done.
	Wait(ctx context.Context, value uint64) error
}

// Submission is a reserved, contiguous byte range in the ring, ready to be
// filled by the caller and later retired with End.
type Submission struct {
	// Offset is the byte offset into the ring's backing buffer. The
	// reservation never straddles the wrap point, so Offset..Offset+Size
	// is always one contiguous span of the mapped buffer.
	Offset uint32
	Size   uint32
	index  int
}

// submissionSlot tracks one in-flight reservation. start is the position
// in the unmasked, monotonic byte space: tail catches up to start+size
// when the slot retires, so the used-bytes arithmetic never has to reason
// about wraparound.
type submissionSlot struct {
	start      uint64
	size       uint32
	fenceValue uint64
	hasFence   bool
}

// Config sizes the ring.
type Config struct {
	// Capacity is the byte capacity of the ring. Must be a power of two.
	Capacity uint32
	// MaxSubmissions bounds how many Begin calls may be outstanding
	// (acquired but not yet End'd or retired) at once.
	MaxSubmissions int
}

// Ring is the upload ring buffer. One mutex guards both the byte ring and
// the submission ring; the critical sections are short and the
// contiguous-space check depends on both sets of counters at once, so the
// single lock is part of the contract rather than an optimization.
type Ring struct {
	mu      sync.Mutex
	cfg     Config
	mask    uint32
	head    uint64 // bytes reserved so far, monotonic
	tail    uint64 // bytes retired so far, monotonic
	subs    []submissionSlot
	subHead uint64
	subTail uint64

	fence     FenceWaiter
	nextFence uint64
}

// New creates a Ring with the given configuration, backed by fence for
// retirement waits.
func New(cfg Config, fence FenceWaiter) *Ring {
	return &Ring{
		cfg:   cfg,
		mask:  cfg.Capacity - 1,
		subs:  make([]submissionSlot, cfg.MaxSubmissions),
		fence: fence,
	}
}

func alignForward(offset uint64, alignment uint64) uint64 {
	if alignment <= 1 {
		return offset
	}
	return (offset + alignment - 1) &^ (alignment - 1)
}

// straddlesWrap reports whether the span [start, start+size) crosses a
// multiple of the ring capacity, i.e. would be split in the backing
// buffer. Reservations are contiguous-only.
func (r *Ring) straddlesWrap(start uint64, size uint32) bool {
	capacity := uint64(r.cfg.Capacity)
	return start/capacity != (start+uint64(size)-1)/capacity
}

// Begin reserves size bytes aligned to align, blocking (via ctx) to retire
// older submissions when the ring is full. Reservations never straddle the
// wrap point: a request that would is pushed forward to the next wrap
// boundary, and the slack bytes before the boundary retire with the
// submission that consumed past them. Returns ErrUploadTooLarge
// immediately if size can never fit.
func (r *Ring) Begin(ctx context.Context, size uint32, align uint32) (Submission, error) {
	if size == 0 || uint64(size) > uint64(r.cfg.Capacity) {
		return Submission{}, ErrUploadTooLarge
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := uint64(r.cfg.Capacity)

	for {
		submissionsUsed := r.subHead - r.subTail

		if submissionsUsed < uint64(len(r.subs)) {
			alignedHead := alignForward(r.head, uint64(align))
			if r.straddlesWrap(alignedHead, size) {
				alignedHead = alignForward(alignedHead, capacity)
			}

			if alignedHead+uint64(size) <= r.tail+capacity {
				idx := int(r.subHead % uint64(len(r.subs)))
				r.subs[idx] = submissionSlot{start: alignedHead, size: size}
				r.subHead++
				r.head = alignedHead + uint64(size)

				return Submission{
					Offset: uint32(alignedHead) & r.mask,
					Size:   size,
					index:  idx,
				}, nil
			}
		}

		if submissionsUsed == 0 {
			// Everything outstanding has retired, so the whole ring is
			// free; restart both cursors at the next wrap boundary and the
			// reservation above succeeds on the retry.
			r.head = alignForward(r.head, capacity)
			r.tail = r.head
			continue
		}

		retireIdx := int(r.subTail % uint64(len(r.subs)))
		retired := r.subs[retireIdx]

		if retired.hasFence && r.fence.CompletedValue() < retired.fenceValue {
			r.mu.Unlock()
			err := r.fence.Wait(ctx, retired.fenceValue)
			r.mu.Lock()
			if err != nil {
				return Submission{}, err
			}
		}

		r.subTail++
		r.tail = retired.start + uint64(retired.size)
	}
}

// End stamps sub with the next monotonic fence value and returns that
// value for the caller to signal on the copy queue after submitting the
// associated command list. The slot itself retires later, inside Begin.
func (r *Ring) End(sub Submission) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextFence++
	value := r.nextFence
	r.subs[sub.index].fenceValue = value
	r.subs[sub.index].hasFence = true
	return value
}

// Flush blocks (via ctx) until every submission acquired so far has been
// retired by the GPU fence. Used at teardown.
func (r *Ring) Flush(ctx context.Context) error {
	r.mu.Lock()
	target := r.nextFence
	r.mu.Unlock()
	if r.fence.CompletedValue() >= target {
		return nil
	}
	return r.fence.Wait(ctx, target)
}

// OutstandingSubmissions returns how many reservations have been acquired
// but not yet retired. Exposed for tests and saturation diagnostics.
func (r *Ring) OutstandingSubmissions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.subHead - r.subTail)
}
