// Package backend defines the pluggable low-level seam the RHI façade
// submits command lists and presents frames through, and provides two
// backends that need no real GPU: noop (discards everything, for
// headless tests) and software (rasterizes into a CPU framebuffer, for
// running the triangle/UI demos without a GPU).
package backend

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ashfall-engine/rhi/command"
)

// Fence is a monotonic counter fence usable by frame.Scheduler and
// uploadring.Ring alike.
type Fence struct {
	completed atomic.Uint64
	mu        sync.Mutex
	cond      *sync.Cond
}

// NewFence creates a zero-valued Fence.
func NewFence() *Fence {
	f := &Fence{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// CompletedValue returns the highest value signaled so far.
func (f *Fence) CompletedValue() uint64 {
	return f.completed.Load()
}

// Signal advances the fence to value, waking any waiters.
func (f *Fence) Signal(value uint64) {
	f.mu.Lock()
	if value > f.completed.Load() {
		f.completed.Store(value)
	}
	f.cond.Broadcast()
	f.mu.Unlock()
}

// Wait blocks until the fence reaches value or ctx is done. Neither the
// noop nor the software backend signals the fence; the frame scheduler
// signals it after Submit returns, and both backends finish their work
// inside Submit, so in practice this never actually blocks against them —
// it exists so real backends can satisfy the same interface.
func (f *Fence) Wait(ctx context.Context, value uint64) error {
	if f.CompletedValue() >= value {
		return nil
	}

	done := make(chan struct{})
	go func() {
		f.mu.Lock()
		for f.completed.Load() < value {
			f.cond.Wait()
		}
		f.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Noop is a Backend that discards every command list and never blocks.
// It backs headless unit and integration tests.
type Noop struct {
	fence   *Fence
	nextVal atomic.Uint64
}

// NewNoop creates a Noop backend sharing fence as its completion signal.
func NewNoop(fence *Fence) *Noop {
	return &Noop{fence: fence}
}

// Submit immediately "completes" the list — there is no GPU to wait on.
func (b *Noop) Submit(list *command.List) error {
	return nil
}

// Present is a no-op.
func (b *Noop) Present() error {
	return nil
}
