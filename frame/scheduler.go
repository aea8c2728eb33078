// Package frame implements the frame scheduler: the per-frame loop that
// waits for a prior frame at a fixed latency to retire, advances the
// frame index, flushes deferred releases and pending descriptor frees,
// resets frame-local allocators, hands a command list to the caller to
// record into, submits it, signals a fence, and presents.
package frame

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ashfall-engine/rhi/command"
)

// Fence abstracts the GPU fence the scheduler signals at the end of each
// frame and waits on at the start of the next. Production code backs this
// with a real queue fence; tests back it with a fake.
type Fence interface {
	CompletedValue() uint64
	Signal(value uint64)
	Wait(ctx context.Context, value uint64) error
}

// Backend abstracts the operations the scheduler needs from the
// underlying graphics API: submitting a closed command list and
// presenting the swapchain image.
type Backend interface {
	Submit(list *command.List) error
	Present() error
}

// Config sizes the scheduler.
type Config struct {
	// Latency is the number of frames of slack between when a frame
	// starts recording and when the scheduler will block waiting for it
	// to retire — the "N frames in flight" constant.
	Latency uint64
}

// Scheduler runs the per-frame loop described in the RHI's frame
// scheduler component.
type Scheduler struct {
	mu         sync.Mutex
	cfg        Config
	fence      Fence
	backend    Backend
	logger     zerolog.Logger
	frameIndex uint64
	fenceValue uint64

	onFlush func(frameIndex uint64)
	onReset func(frameIndex uint64)
}

// New creates a Scheduler.
func New(cfg Config, fence Fence, backend Backend, logger zerolog.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, fence: fence, backend: backend, logger: logger}
}

// OnFlush registers a callback invoked each frame with the newly advanced
// frame index, to drain deferred-release queues and descriptor heap
// pending frees; the callback derives from it which earlier frame counts
// as completed. Multiple subsystems can be chained by the caller.
func (s *Scheduler) OnFlush(fn func(frameIndex uint64)) {
	s.onFlush = fn
}

// OnReset registers a callback invoked each frame to reset frame-local
// allocators (buffer arenas, descriptor arenas) now that their prior
// owning frame has retired.
func (s *Scheduler) OnReset(fn func(frameIndex uint64)) {
	s.onReset = fn
}

// FrameIndex returns the index of the frame currently being recorded, or
// about to be, between RunFrame calls.
func (s *Scheduler) FrameIndex() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameIndex
}

// RunFrame executes one iteration of the scheduler loop: wait for the
// frame at latency N to retire, advance, flush, reset, record via record,
// submit and present.
func (s *Scheduler) RunFrame(ctx context.Context, list *command.List, record func(*command.List)) error {
	if err := s.waitForLatency(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.frameIndex++
	frameIndex := s.frameIndex
	s.mu.Unlock()

	if s.onFlush != nil {
		s.onFlush(frameIndex)
	}
	if s.onReset != nil {
		s.onReset(frameIndex)
	}

	// Return a list left in flight by an earlier frame to idle before
	// recording into it again.
	if list.State() == command.StateInFlight {
		list.Reset()
	}
	list.Begin()
	record(list)
	list.Close()

	if err := s.backend.Submit(list); err != nil {
		return err
	}
	list.MarkSubmitted()

	s.mu.Lock()
	s.fenceValue++
	value := s.fenceValue
	s.mu.Unlock()
	s.fence.Signal(value)

	if err := s.backend.Present(); err != nil {
		return err
	}

	return nil
}

// waitForLatency blocks until frame (current - Latency) has retired,
// bounding how many frames of GPU work can be queued up at once.
func (s *Scheduler) waitForLatency(ctx context.Context) error {
	s.mu.Lock()
	frameIndex := s.frameIndex
	latency := s.cfg.Latency
	s.mu.Unlock()

	if frameIndex < latency {
		return nil
	}
	targetFence := frameIndex - latency
	if s.fence.CompletedValue() >= targetFence {
		return nil
	}
	return s.fence.Wait(ctx, targetFence)
}

// RetireList blocks until list's frame has completed, then transitions it
// back to idle so its backing command allocator can be reused.
func (s *Scheduler) RetireList(ctx context.Context, list *command.List, fenceValue uint64) error {
	if s.fence.CompletedValue() < fenceValue {
		if err := s.fence.Wait(ctx, fenceValue); err != nil {
			return err
		}
	}
	list.Reset()
	return nil
}
